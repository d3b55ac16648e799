// Package ui implements the output discipline shared by every command:
// human messages go to stderr with optional colour, machine payloads
// (JSON, rewritten source, pack lines) go to stdout and nothing else
// does. Colour follows the usual rules: off when NO_COLOR is set, when
// stderr is not a terminal, or when the mode is "never".
package ui

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Verbosity levels.
const (
	Quiet   = "quiet"
	Normal  = "normal"
	Verbose = "verbose"
)

var (
	verbosity = Normal
	jsonMode  bool
)

// Configure sets global output behaviour. Safe to call multiple times.
func Configure(verb string, jsonOut bool, colorMode string) {
	if verb != "" {
		verbosity = verb
	}
	jsonMode = jsonOut
	switch colorMode {
	case "never":
		color.NoColor = true
	case "always":
		color.NoColor = false
	default:
		_, noColor := os.LookupEnv("NO_COLOR")
		color.NoColor = noColor || !isatty.IsTerminal(os.Stderr.Fd())
	}
}

// JSONMode reports whether machine output was requested.
func JSONMode() bool {
	return jsonMode
}

// EmitJSON writes a payload to stdout as indented JSON.
func EmitJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// Info prints a plain human message.
func Info(format string, args ...any) {
	if verbosity == Quiet || jsonMode {
		return
	}
	fmt.Fprintln(os.Stderr, fmt.Sprintf(format, args...))
}

// Successf prints a green confirmation.
func Successf(format string, args ...any) {
	if verbosity == Quiet || jsonMode {
		return
	}
	color.New(color.FgGreen).Fprintln(os.Stderr, fmt.Sprintf(format, args...))
}

// Warnf prints a yellow warning; suppressed only in JSON mode.
func Warnf(format string, args ...any) {
	if jsonMode {
		return
	}
	color.New(color.FgYellow).Fprintln(os.Stderr, fmt.Sprintf(format, args...))
}

// Errorf prints a red diagnostic; never suppressed.
func Errorf(format string, args ...any) {
	color.New(color.FgRed).Fprintln(os.Stderr, fmt.Sprintf(format, args...))
}

// Verbosef prints a cyan detail line at verbose level.
func Verbosef(format string, args ...any) {
	if jsonMode || verbosity != Verbose {
		return
	}
	color.New(color.FgCyan).Fprintln(os.Stderr, fmt.Sprintf(format, args...))
}
