package bootscript

import (
	"fmt"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(script string) string {
	lines := strings.Split(strings.TrimRight(script, "\n"), "\n")
	return lines[len(lines)-1]
}

func TestRender(t *testing.T) {
	script, err := Render(Params{Concurrency: 3, User: "alice", Password: "secret"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash\n"))
	assert.Contains(t, script, "apt-get update\n")
	for _, pkg := range []string{"git", "g++", "make", "libqt4-gui"} {
		assert.Contains(t, script, "apt-get -y install "+pkg+"\n")
	}
	assert.Contains(t, script, "git clone "+Repository+"\n")
	assert.Contains(t, script, "cd fishtest/worker\n")
	assert.Equal(t, "python worker.py --concurrency 3 alice secret", lastLine(script))
}

func TestRenderInsertsCredentialsVerbatim(t *testing.T) {
	credentials := [][2]string{
		{"bob", "p@ss word"},
		{"$(whoami)", "`id`; rm -rf /"},
		{"o'neil", `"quoted"`},
		{"", ""},
		{"ünïcode", "&&|<>"},
	}
	for i, c := range credentials {
		script, err := Render(Params{Concurrency: i, User: c[0], Password: c[1]})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("python worker.py --concurrency %d %s %s", i, c[0], c[1]), lastLine(script))
	}
}

func TestParseCustomTemplateWithHelpers(t *testing.T) {
	tmpl, err := Parse(`worker {{ .Concurrency }} {{ shellquote .User }} {{ .Password | upper }}`)
	require.NoError(t, err)

	out, err := (&Template{tmpl}).Render(Params{Concurrency: 7, User: "a b", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "worker 7 'a b' PW", out)
}

func TestParseInvalidTemplate(t *testing.T) {
	_, err := Parse(`{{ .Concurrency `)
	assert.ErrorContains(t, err, "failed to parse template")
}

func TestRenderUnknownField(t *testing.T) {
	tmpl, err := Parse(`{{ .Missing }}`)
	require.NoError(t, err)

	_, err = (&Template{tmpl}).Render(Params{})
	assert.ErrorContains(t, err, "failed to execute template")
}

func TestLoad(t *testing.T) {
	file := path.Join(t.TempDir(), "boot.sh.tmpl")
	require.NoError(t, os.WriteFile(file, []byte("run {{ .Concurrency }} {{ .User }} {{ .Password }}\n"), 0644))

	tmpl, err := Load(file)
	require.NoError(t, err)

	out, err := tmpl.Render(Params{Concurrency: 15, User: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "run 15 u p\n", out)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(path.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "read file")
}
