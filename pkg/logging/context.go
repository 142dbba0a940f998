package logging

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	ToolKey      ContextKey = "tool"
)

// FromContext returns base with the request fields stored in ctx.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base

	if id := RequestID(ctx); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}
	if tool, ok := ctx.Value(ToolKey).(string); ok && tool != "" {
		logger = logger.With(zap.String("tool", tool))
	}

	return logger
}

// WithRequestID stores a fresh request id in ctx unless one is already there.
func WithRequestID(ctx context.Context) context.Context {
	if RequestID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, RequestIDKey, uuid.NewString())
}

func WithTool(ctx context.Context, tool string) context.Context {
	return context.WithValue(ctx, ToolKey, tool)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
