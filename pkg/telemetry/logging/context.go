package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// RouteKey is the context key for the matched route pattern.
	RouteKey contextKey = "route"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRoute adds the matched route pattern to the context.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

// GetRoute retrieves the route pattern from the context.
func GetRoute(ctx context.Context) string {
	if route, ok := ctx.Value(RouteKey).(string); ok {
		return route
	}
	return ""
}

// contextAttrs extracts common fields from ctx for logging.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), requestID))
	}
	if route := GetRoute(ctx); route != "" {
		attrs = append(attrs, slog.String(string(RouteKey), route))
	}
	return attrs
}
