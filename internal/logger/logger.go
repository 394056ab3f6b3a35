// Package logger wraps zerolog.Logger with the constructors and context helpers
// used across reportapi. All output is one JSON object per line.
package logger

import (
	"context"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger embeds zerolog.Logger so the whole zerolog API is available directly.
type Logger struct {
	zerolog.Logger
}

// NewLogger builds a stdout logger tagged with role (e.g. "api", "migration").
// level is parsed with zerolog.ParseLevel; an unknown value falls back to info.
func NewLogger(role, level string) *Logger {
	return NewWithWriter(os.Stdout, role, level, time.UTC)
}

// NewWithWriter is NewLogger with an explicit sink and timestamp location.
func NewWithWriter(w io.Writer, role, level string, loc *time.Location) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if loc == nil {
		loc = time.UTC
	}

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"
	zerolog.TimestampFieldName = "ts"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(loc)
	}

	l := zerolog.New(w).Level(lvl).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{l}
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// WithContext attaches l to ctx so FromContext can find it downstream.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx. Without one, zerolog's
// default (disabled) context logger is returned, never nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
