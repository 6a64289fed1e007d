// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// requestIDKey is the context key for request/correlation IDs.
type requestIDKey struct{}

// New creates a new structured JSON logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (request ID,
// service ID) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		base = base.With("request_id", reqID)
	}
	if serviceID := ServiceIDFromContext(ctx); serviceID != "" {
		base = base.With("service_id", serviceID)
	}
	return base
}

// serviceIDKey is the context key correlating log lines with the
// runner ServiceID they were emitted for.
type serviceIDKey struct{}

// WithServiceID returns a new context carrying serviceID for log
// correlation, mirroring WithRequestID above.
func WithServiceID(ctx context.Context, serviceID string) context.Context {
	return context.WithValue(ctx, serviceIDKey{}, serviceID)
}

// ServiceIDFromContext extracts the service id set by WithServiceID, if any.
func ServiceIDFromContext(ctx context.Context) string {
	if v := ctx.Value(serviceIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// RedirectToFile opens path for writing and returns a new JSON logger
// that writes to it in place of stdout, plus a close function the
// caller must invoke on shutdown. Used by the worker at startup, per
// its --log-file flag.
func RedirectToFile(path string) (*slog.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	l := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return l, f.Close, nil
}
