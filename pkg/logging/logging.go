// Package logging provides the process-wide structured logger for crushtool.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatHuman = "human"
)

var (
	logger atomic.Pointer[zerolog.Logger]
	pretty atomic.Bool
)

func init() {
	// JSON on stderr at info level until Init runs.
	l := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	logger.Store(&l)
}

// Init configures the global logger to write to stderr at the given level.
// human selects a console writer instead of JSON lines.
func Init(level zerolog.Level, human bool) {
	InitWriter(os.Stderr, level, human)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level zerolog.Level, human bool) {
	// The codec logs at trace level through loggers derived from this one.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	out := w
	if human {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	logger.Store(&l)
	pretty.Store(human)
}

// ParseLevel accepts trace, debug, info, warn, and error.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat accepts json or human.
func ParseFormat(s string) (human bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return false, nil
	case FormatHuman, "console", "pretty":
		return true, nil
	}
	return false, fmt.Errorf("unknown log format %q", s)
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger.Load()
}

// IsPrettyMode reports whether the console writer is active, in which case
// events carry human-readable companions to raw numbers.
func IsPrettyMode() bool {
	return pretty.Load()
}

// WithCommand returns a logger tagged with the running subcommand.
func WithCommand(cmd string) zerolog.Logger {
	return L().With().Str("command", cmd).Logger()
}

// SetLogger overrides the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}
