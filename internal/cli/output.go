package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// MaxOutputSize is the maximum allowed size for output to prevent memory exhaustion
const MaxOutputSize = 10 * 1024 * 1024 // 10MB

const timeLayout = "2006-01-02 15:04:05"

var (
	successMark = color.New(color.FgGreen).SprintFunc()
	warnMark    = color.New(color.FgYellow).SprintFunc()
	failMark    = color.New(color.FgRed).SprintFunc()
	hintMark    = color.New(color.FgCyan).SprintFunc()
	emphasis    = color.New(color.FgYellow).SprintFunc()
)

// writeString writes a string to the writer with error checking and size limits
func writeString(w io.Writer, s string) error {
	if len(s) > MaxOutputSize {
		return fmt.Errorf("output size %d exceeds maximum allowed size %d", len(s), MaxOutputSize)
	}

	n, err := fmt.Fprint(w, s)
	if err != nil {
		return fmt.Errorf("failed to write output (wrote %d bytes): %w", n, err)
	}

	if f, ok := w.(interface{ Flush() error }); ok {
		if flushErr := f.Flush(); flushErr != nil {
			return fmt.Errorf("failed to flush output: %w", flushErr)
		}
	}
	return nil
}

// writeOutput writes formatted output with error checking and size limits
func writeOutput(w io.Writer, format string, args ...interface{}) error {
	return writeString(w, fmt.Sprintf(format, args...))
}

func printSuccess(w io.Writer, format string, args ...interface{}) error {
	return writeOutput(w, successMark("✓")+" "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...interface{}) error {
	return writeOutput(w, warnMark("!")+" "+format+"\n", args...)
}

func printFailure(w io.Writer, format string, args ...interface{}) error {
	return writeOutput(w, failMark("✗")+" "+format+"\n", args...)
}

func printHint(w io.Writer, format string, args ...interface{}) error {
	return writeOutput(w, hintMark("→")+" "+format+"\n", args...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
