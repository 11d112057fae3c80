// Package logger holds the process-wide zap logger and the request-scoped
// logger carried through context.Context.
package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

type ctxKey struct{}

// Init builds the process logger. Production environments get JSON output,
// everything else the human-readable development encoder.
func Init(env string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "production" || env == "prod" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

// Set replaces the process logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger stored in ctx, or the process logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// LogError logs an error with a message and optional fields.
func LogError(msg string, err error, fields ...zap.Field) {
	L().Error(msg, append([]zap.Field{zap.Error(err)}, fields...)...)
}

// LogWarn logs a warning message with optional fields.
func LogWarn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// LogInfo logs an informational message with optional fields.
func LogInfo(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}
