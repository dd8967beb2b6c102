package observability

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging with context awareness.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// Field represents a structured log field.
type Field = zap.Field

// NewLogger builds a zap logger for the given level and format ("json" or "text").
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "text" || format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// NewSDKLogger returns a no-op logger unless level is set, so the SDK stays
// silent inside host applications by default.
func NewSDKLogger(level string) *zap.Logger {
	if level == "" {
		return zap.NewNop()
	}
	logger, err := NewLogger(level, "json")
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("tokvera")
}

// contextLogger adds the request ID from the context to every entry
type contextLogger struct {
	base *zap.Logger
}

// NewContextLogger wraps a zap logger so request-scoped fields are added automatically.
func NewContextLogger(base *zap.Logger) Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &contextLogger{base: base}
}

func (l *contextLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx).Debug(msg, fields...)
}

func (l *contextLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx).Info(msg, fields...)
}

func (l *contextLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx).Warn(msg, fields...)
}

func (l *contextLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.with(ctx).Error(msg, fields...)
}

func (l *contextLogger) with(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.base
	}
	if id := middleware.GetReqID(ctx); id != "" {
		return l.base.With(zap.String("request_id", id))
	}
	return l.base
}
