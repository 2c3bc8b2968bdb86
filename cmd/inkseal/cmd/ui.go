package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

func checkMark() string { return color.GreenString("✓") }
func crossMark() string { return color.RedString("✗") }
func warnMark() string { return color.YellowString("!") }

// startSpinner shows an activity indicator on stderr while key derivation or
// a ledger call runs. The returned stop func is safe to call when stderr is
// not a terminal, in which case nothing is drawn.
func startSpinner(msg string) (stop func()) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", checkMark(), fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnMark(), fmt.Sprintf(format, args...))
}

// scoreColor paints a strength score by band.
func scoreColor(score int) string {
	s := fmt.Sprintf("%d/100", score)
	switch {
	case score >= 80:
		return color.GreenString(s)
	case score >= 60:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}
