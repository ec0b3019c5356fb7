// Package bootscript renders the user-data script executed by each instance on first boot.
//
// The script installs the worker dependencies, fetches the worker and starts it
// with the concurrency and credentials given at launch. Credentials are inserted
// verbatim: nothing is escaped, so they must not contain shell metacharacters.
package bootscript

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/alessio/shellescape"
	sprig "github.com/go-task/slim-sprig/v3"
)

// Repository is where the worker program is fetched from.
const Repository = "https://github.com/glinscott/fishtest.git"

//go:embed default.sh.tmpl
var defaultSource string

var defaultTemplate = template.Must(Parse(defaultSource))

type Params struct {
	Concurrency int
	User        string
	Password    string
}

type templateData struct {
	Params
	Repository string
}

// Template is a parsed boot script template.
type Template struct {
	tmpl *template.Template
}

// Parse parses a boot script template. Templates have access to the sprig text
// functions and to 'shellquote', which is never applied implicitly.
func Parse(source string) (*template.Template, error) {
	tmpl, err := template.New("bootscript").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{
			"shellquote": shellescape.Quote,
		}).
		Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

// Default returns the built-in template.
func Default() *Template {
	return &Template{defaultTemplate}
}

// Load reads a custom template from disk.
func Load(file string) (*Template, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	tmpl, err := Parse(string(buf))
	if err != nil {
		return nil, fmt.Errorf("template '%s': %w", file, err)
	}
	return &Template{tmpl}, nil
}

func (t *Template) Render(params Params) (string, error) {
	var output strings.Builder
	if err := t.tmpl.Execute(&output, templateData{Params: params, Repository: Repository}); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return output.String(), nil
}

// Render renders the built-in template.
func Render(params Params) (string, error) {
	return Default().Render(params)
}
