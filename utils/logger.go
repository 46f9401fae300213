package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled, printf-style logging throughout the application.
// Messages carry a bracketed component prefix, e.g. "[loader] Read 120 rows".
type Logger struct {
	z zerolog.Logger
}

// NewLogger creates a Logger writing human-readable lines to stderr at info level.
func NewLogger() *Logger {
	return NewLoggerWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}, "info")
}

// NewLoggerWithWriter creates a Logger writing to w at the given level
// (debug, info, warn, error). Unknown levels fall back to info.
func NewLoggerWithWriter(w io.Writer, level string) *Logger {
	return &Logger{
		z: zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger(),
	}
}

// NewNopLogger returns a Logger that discards everything. Handy in tests.
func NewNopLogger() *Logger {
	return &Logger{z: zerolog.Nop()}
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetLevel changes the minimum level of l.
func (l *Logger) SetLevel(level string) {
	l.z = l.z.Level(ParseLevel(level))
}

func (l *Logger) Info(format string, args ...any) {
	l.z.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.z.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.z.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.z.Debug().Msgf(format, args...)
}
