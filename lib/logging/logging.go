// Package logging builds the loggers shared by the engine, the headless
// browser and the demo site.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options controls how a logger reports.
type Options struct {
	Level  string `toml:"level"`
	Caller bool   `toml:"caller"`
	Prefix string `toml:"-"`
}

// NewLogger creates a [log.Logger] writing to w with timestamps enabled.
//
// The writer defaults to [os.Stderr]. An unknown level falls back to info
// and is reported through the new logger.
func NewLogger(w io.Writer, opts Options) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    opts.Caller,
		Prefix:          opts.Prefix,
	})

	level, err := ParseLevel(opts.Level)
	if err != nil {
		l.Warn("unknown log level, using info", "level", opts.Level)
	}
	l.SetLevel(level)
	return l
}

// Quiet returns a logger that discards everything.
func Quiet() *log.Logger {
	return log.New(io.Discard)
}

// With creates a child logger with kv added to all entries.
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// ParseLevel maps a level name to a [log.Level]. The empty name is info.
func ParseLevel(name string) (log.Level, error) {
	if name == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}
