package logging

import (
	"log/slog"
	"regexp"

	"treblle-hq/agent/pkg/masking"
)

// bearerPattern matches bearer tokens embedded in free-form strings.
var bearerPattern = regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`)

// Redactor masks log attributes using the payload masking rules.
type Redactor struct {
	masker *masking.Masker
}

// NewRedactor creates a Redactor backed by m.
func NewRedactor(m *masking.Masker) *Redactor {
	return &Redactor{masker: m}
}

// RedactAttr returns a redacted copy of a. Groups are redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if r.masker.IsHidden(a.Key) || masking.IsSensitiveHeader(a.Key) {
		if v.Kind() == slog.KindGroup {
			return slog.String(a.Key, "[REDACTED]")
		}
		return slog.String(a.Key, masking.MaskValue(v.Any()))
	}

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		s := v.String()
		if bearerPattern.MatchString(s) {
			return slog.String(a.Key, bearerPattern.ReplaceAllString(s, "Bearer ***"))
		}
	case slog.KindAny:
		switch val := v.Any().(type) {
		case map[string]any, map[string]string, []any:
			return slog.Any(a.Key, r.masker.Mask(val))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// RedactAttrs redacts a slice of attributes in place.
func (r *Redactor) RedactAttrs(attrs []slog.Attr) []slog.Attr {
	for i := range attrs {
		attrs[i] = r.RedactAttr(attrs[i])
	}
	return attrs
}
