// Package logging wraps charmbracelet/log so every component logs through
// the same key/value style logger. DEBUG=1 raises the level and reports
// callers.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a thin wrapper around charmbracelet's log.Logger.
type Logger struct {
	*log.Logger
}

// New creates a logger writing to stderr.
func New() *Logger {
	return NewWithOutput(os.Stderr)
}

// NewWithOutput creates a logger writing to w. Tests pass io.Discard.
func NewWithOutput(w io.Writer) *Logger {
	base := log.New(w)
	if os.Getenv("DEBUG") == "1" {
		base = log.NewWithOptions(w, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "tiktokbot",
		})
		base.SetLevel(log.DebugLevel)
	} else {
		base.SetLevel(log.InfoLevel)
	}
	return &Logger{Logger: base}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	base := log.New(io.Discard)
	base.SetLevel(log.FatalLevel)
	return &Logger{Logger: base}
}

// With returns a sub-logger carrying the given key/value context.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...)}
}
