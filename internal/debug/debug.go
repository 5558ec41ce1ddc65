// Package debug provides verbose/quiet output controls for notetrack.
// Every non-fatal failure path in the sync pipeline reports through here
// so that a failed sync attempt degrades to a logged diagnostic.
package debug

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	enabled     = os.Getenv("NT_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet suppresses non-essential output.
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode
}

// Logf writes a diagnostic line to stderr when debug output is enabled.
func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		printLine(os.Stderr, format, args...)
	}
}

// Warnf always writes a warning line to stderr unless quiet mode is on.
// Used for skipped fields, abandoned writes, and persist failures that
// must not interrupt the operation.
func Warnf(format string, args ...interface{}) {
	if !quietMode {
		printLine(os.Stderr, "warning: "+format, args...)
	}
}

// PrintNormal prints informational output unless quiet mode is enabled.
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		printLine(os.Stdout, format, args...)
	}
}

// printLine formats the message and terminates it with exactly one
// newline, whether or not the format carries its own.
func printLine(w io.Writer, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w, strings.TrimRight(msg, "\n"))
}
