package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type for context keys defined in this package.
type contextKey int

const (
	loggerKey contextKey = iota
	requestIDKey
)

// WithLogger returns a new context carrying the given logger.
// Handlers and middleware attach request-scoped loggers this way so
// downstream code logs with the request's attributes already attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger stored in the context, or nil if the
// context carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return nil
}

// FromContextOrDefault retrieves the logger stored in the context,
// falling back to slog.Default when the context carries none.
func FromContextOrDefault(ctx context.Context) *slog.Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	return slog.Default()
}

// WithRequestID returns a new context carrying a request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request correlation ID from the
// context, or the empty string if none is set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
