// Package logger configures the zerolog logger shared across the library
// and the CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init initializes a stderr logger at the given level. Level may be empty,
// in which case OMNILLM_LOG_LEVEL decides, falling back to info.
func Init(level string) zerolog.Logger {
	l, _ := InitWithOptions("", false, level)
	return l
}

// InitWithOptions builds a logger with the specified options.
// If logFile is non-empty, JSON logs are appended to that file.
// If pretty is true, a human-readable ConsoleWriter on stderr is used.
// An empty level falls back to the OMNILLM_LOG_LEVEL environment variable.
func InitWithOptions(logFile string, pretty bool, level string) (zerolog.Logger, error) {
	if level == "" {
		level = os.Getenv("OMNILLM_LOG_LEVEL")
	}
	lvl := ParseLevel(level)

	var output io.Writer
	switch {
	case logFile != "":
		//nolint:gosec // G304: user-specified log file path is intentional
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		output = file
	case pretty:
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		output = os.Stderr
	}

	log := zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return log, nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
