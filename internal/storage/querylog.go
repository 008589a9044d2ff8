package storage

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/tracelog"
)

// SlogQueryLogger adapts a slog.Logger to pgx's tracelog.Logger.
type SlogQueryLogger struct {
	logger *slog.Logger
}

// NewSlogQueryLogger creates a new adapter.
func NewSlogQueryLogger(logger *slog.Logger) *SlogQueryLogger {
	return &SlogQueryLogger{logger: logger}
}

// Log implements tracelog.Logger.
func (l *SlogQueryLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, data[k]))
	}

	l.logger.LogAttrs(ctx, slogLevel(level), msg, attrs...)
}

func slogLevel(level tracelog.LogLevel) slog.Level {
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		return slog.LevelDebug
	case tracelog.LogLevelInfo:
		return slog.LevelInfo
	case tracelog.LogLevelWarn:
		return slog.LevelWarn
	case tracelog.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
