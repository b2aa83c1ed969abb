// Package logging provides structured logging configuration using zerolog.
package logging

import (
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

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidLevel reports whether level names one of the supported log levels.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
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
//   - Outgoing request URLs
//   - Per-record filter decisions
//   - Checkpoint reads and writes
//
// Info: Normal operation events
//   - Harvest start and completion
//   - Per-page summary (rows written, cursor, token)
//
// Warn: Warning conditions that don't prevent operation
//   - Malformed pages that will be re-fetched
//   - Records dropped because a required field is missing
//   - Checkpoint store failures (harvest continues)
//   - Cursor moving backwards
//
// Error: Error conditions requiring attention
//   - Transport failures (run aborts)
//   - OAI-PMH protocol errors
//   - Parse retries exhausted
//   - Configuration errors
//
// Context Fields:
//   - component: emitting component (oai-client, harvest-driver, checkpoint)
//   - run_id: identifier of one harvest run
//   - url: request URL
//   - status: HTTP status code
//   - error_class: transport error classification (client, server, network)
//   - token: resumption token
//   - cursor, complete_list_size: provider progress counters
//   - rows: rows written for a page
//   - attempt: parse attempt for the current page
