package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a new zerolog logger with the specified level and format.
func New(level, format string) zerolog.Logger {
	return NewWriter(os.Stdout, level, format)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level, format string) zerolog.Logger {
	output := w

	// Use pretty printing for console format
	if format == "console" || format == "text" {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	// Parse log level
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()
}

// NewWithFields creates a logger with additional fields.
func NewWithFields(level, format string, fields map[string]interface{}) zerolog.Logger {
	log := New(level, format)
	ctx := log.With()

	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}

	return ctx.Logger()
}

// ForLesson scopes log to one practice series.
func ForLesson(log zerolog.Logger, userID, lessonID string) zerolog.Logger {
	return log.With().
		Str("user_id", userID).
		Str("lesson_id", lessonID).
		Logger()
}

// NewNop creates a no-op logger for testing.
func NewNop() zerolog.Logger {
	return zerolog.Nop()
}
