package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorOptions describes an error shown to the operator
type ErrorOptions struct {
	// Context is a short category, e.g. "config"
	Context     string
	Problem     string
	Suggestions []string
	NoColor     bool
}

// FormatError renders an error with optional suggestions:
//
//	✗ CONFIG: store.driver "mongo" is not supported
//	  → use one of memory, sqlite3, postgres, pgx, redis
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	hint := color.New(color.FgCyan)
	if opts.NoColor {
		header.DisableColor()
		hint.DisableColor()
	}

	if opts.Context != "" {
		header.Fprintf(&b, "✗ %s: %s\n", strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "✗ %s\n", opts.Problem)
	}
	for _, s := range opts.Suggestions {
		hint.Fprintf(&b, "  → %s\n", s)
	}
	return b.String()
}

// WriteError writes a formatted error
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess renders a one-line success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}
