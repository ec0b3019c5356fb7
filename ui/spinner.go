package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type Spinner struct {
	*spinner.Spinner
	msg string
	out io.Writer
}

// NewSpinner creates a new spinner with the given message. On a non-interactive
// writer nothing spins and only the final message is printed.
func NewSpinner(out io.Writer, msg string) *Spinner {
	s := &Spinner{msg: msg, out: out}
	if f, ok := out.(*os.File); ok && Interactive(f) {
		s.Spinner = spinner.New(
			spinner.CharSets[14],
			200*time.Millisecond,
			spinner.WithHiddenCursor(true),
			spinner.WithWriter(out),
			spinner.WithSuffix(" "+msg),
		)
		s.Start()
	}
	return s
}

// UpdateMessage updates the spinner message.
// This function is safe to call on a nil Spinner.
func (s *Spinner) UpdateMessage(msg string) {
	if s == nil {
		return
	}
	if s.Spinner != nil {
		s.Spinner.Suffix = " " + msg
	}
	s.msg = msg
}

// Success stops the spinner and prints a success message.
// This function is safe to call on a nil Spinner.
func (s *Spinner) Success(msg ...string) {
	s.stop(color.HiGreenString("✓"), msg)
}

// Warn stops the spinner and prints a warning message.
// This function is safe to call on a nil Spinner.
func (s *Spinner) Warn(msg ...string) {
	s.stop(color.HiYellowString("!"), msg)
}

// Fail stops the spinner and prints a failure message.
// This function is safe to call on a nil Spinner.
func (s *Spinner) Fail(msg ...string) {
	s.stop(color.HiRedString("✗"), msg)
}

func (s *Spinner) stop(symbol string, msg []string) {
	if s == nil {
		return
	}
	if len(msg) == 0 {
		msg = []string{s.msg}
	}

	final := fmt.Sprintf("%s %s\n", symbol, msg[0])
	if s.Spinner == nil {
		fmt.Fprint(s.out, final)
		return
	}
	s.Spinner.FinalMSG = final
	s.Stop()
}
