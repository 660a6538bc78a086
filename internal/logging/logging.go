// Package logging builds the server's structured logger. Every component
// that needs to log takes a zerolog.Logger rather than reaching for a
// package-level global, so tests can inject a silent one.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	Level  string // debug|info|warn|error, default info
	Pretty bool   // console-writer output instead of JSON
}

// New builds a logger with a timestamp, the server's component name, and
// the requested level and format.
func New(component string, opts Options) zerolog.Logger {
	var output io.Writer = os.Stderr
	if opts.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	level := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(level)

	return zerolog.New(output).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
