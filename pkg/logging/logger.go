// Package logging configures structured zerolog logging for the pager and
// its sources.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Loggers from NewLogger created
// afterwards write through it.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = LevelInfo
	}
	zerolog.SetGlobalLevel(level.zerolog())

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel parses a level name case-insensitively. "warning" is accepted
// for warn; the empty string means info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Fetcher lifecycle transitions (idle, fetching, complete, error)
//   - Request arguments of every page fetch
//   - Cache hits and results of replaced fetchers
//
// Info: Normal operation events
//   - Initial and next pages ingested
//   - Error budget state updates (healthy)
//   - Walker startup and shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rejected load calls
//   - Failed page fetches and retry attempts
//   - Error budget throttling
//   - Cache errors (fallback to the origin)
//
// Error: Error conditions requiring attention
//   - Requests failed after retries
//   - Critical error budget blocks
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting component
//   - end: Pagination end (head, tail)
//   - kind: Fetcher kind (initial, next)
//   - fetcher_id: Fetcher instance ID
//   - request: Encoded Relay arguments
//   - edges: Number of edges in a page
//   - status_code: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network, decode)
//   - errors_remaining: Current source error budget
//   - duration: Request duration
