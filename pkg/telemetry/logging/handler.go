package logging

import (
	"context"
	"log/slog"
)

// Handler wraps a slog.Handler, adding context fields and redacting
// attributes before they reach the inner handler.
type Handler struct {
	inner    slog.Handler
	redactor *Redactor
}

// NewHandler wraps inner. A nil redactor disables redaction.
func NewHandler(inner slog.Handler, redactor *Redactor) *Handler {
	return &Handler{inner: inner, redactor: redactor}
}

// Enabled reports whether the inner handler handles level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds context fields, redacts and forwards r.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	fields := contextAttrs(ctx)
	if h.redactor == nil && len(fields) == 0 {
		return h.inner.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(fields))
	attrs = append(attrs, fields...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	if h.redactor != nil {
		attrs = h.redactor.RedactAttrs(attrs)
	}
	out.AddAttrs(attrs...)
	return h.inner.Handle(ctx, out)
}

// WithAttrs returns a handler whose attributes are redacted once, up front.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.redactor != nil {
		attrs = h.redactor.RedactAttrs(append([]slog.Attr(nil), attrs...))
	}
	return &Handler{inner: h.inner.WithAttrs(attrs), redactor: h.redactor}
}

// WithGroup returns a handler that nests subsequent attributes under name.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}
