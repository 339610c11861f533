// Package logger provides a small leveled, structured logger used across the service.
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Level is a logging verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoggerInterface is the logging contract used throughout the service.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
	With(kv ...any) LoggerInterface
}

// Logger is the default LoggerInterface implementation, backed by log/slog.
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger writing to w at the given level. name is attached to
// every record as the "service" field; fields are extra static key/value
// pairs attached to every record (may be nil).
func New(w io.Writer, level Level, name string, fields map[string]any) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	l := slog.New(h)
	if name != "" {
		l = l.With("service", name)
	}
	for k, v := range fields {
		l = l.With(k, v)
	}
	return &Logger{slog: l}
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	l.slog.DebugContext(ctx, msg, kv...)
}

func (l *Logger) Info(ctx context.Context, msg string, kv ...any) {
	l.slog.InfoContext(ctx, msg, kv...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	l.slog.WarnContext(ctx, msg, kv...)
}

func (l *Logger) Error(ctx context.Context, msg string, kv ...any) {
	l.slog.ErrorContext(ctx, msg, kv...)
}

// With returns a LoggerInterface that attaches kv to every subsequent record.
func (l *Logger) With(kv ...any) LoggerInterface {
	return &Logger{slog: l.slog.With(kv...)}
}
