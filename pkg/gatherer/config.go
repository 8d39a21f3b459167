package gatherer

import (
	"log/slog"
	"strings"
	"time"

	"treblle-hq/agent/pkg/masking"
	"treblle-hq/agent/pkg/payload"
)

const (
	// DefaultRequestBodyLimit is the default request body capture limit (4 MiB).
	DefaultRequestBodyLimit = 4 << 20

	// MaxResponseBodySize is the fixed response body ceiling (2 MiB). Larger
	// bodies are never included in a payload.
	MaxResponseBodySize = 2 << 20

	// DefaultEnvironment is assumed when no environment name is configured.
	DefaultEnvironment = "production"
)

// DefaultIgnoredEnvironments lists environments in which capture is disabled.
var DefaultIgnoredEnvironments = []string{"dev", "test", "testing"}

// Transformer converts a raw body into the value recorded in the payload.
// The returned value must be encodable as JSON.
type Transformer func(body []byte) (any, error)

// Config contains the immutable gatherer configuration.
type Config struct {
	// SDKToken authenticates the agent against the backend.
	SDKToken string

	// APIKey identifies the project the telemetry belongs to.
	APIKey string

	// HiddenKeys lists field names (case-insensitive) whose values are masked
	// in headers, query parameters and bodies.
	HiddenKeys []string

	// MaskAuthHeader keeps the scheme of the Authorization header visible and
	// masks only the credential.
	MaskAuthHeader bool

	// RequestBodyLimit is the largest request body captured, in bytes.
	// Zero disables request body capture.
	RequestBodyLimit int64

	// RequestTransformer optionally replaces JSON parsing of request bodies.
	RequestTransformer Transformer

	// ResponseTransformer optionally replaces JSON parsing of response bodies.
	ResponseTransformer Transformer

	// IgnoredEnvironments lists environment names in which capture is disabled.
	IgnoredEnvironments []string

	// Environment is the name of the current runtime environment.
	Environment string

	// Debug enables verbose logging.
	Debug bool
}

// DefaultConfig returns a configuration with the default masking and capture
// settings and no credentials.
func DefaultConfig() Config {
	return Config{
		HiddenKeys:          append([]string(nil), masking.DefaultHiddenKeys...),
		MaskAuthHeader:      true,
		RequestBodyLimit:    DefaultRequestBodyLimit,
		IgnoredEnvironments: append([]string(nil), DefaultIgnoredEnvironments...),
		Environment:         DefaultEnvironment,
	}
}

// Disabled reports whether a gatherer built from this configuration would
// skip all capture.
func (c Config) Disabled() bool {
	if c.SDKToken == "" || c.APIKey == "" {
		return true
	}
	env := strings.TrimSpace(c.Environment)
	if env == "" {
		env = DefaultEnvironment
	}
	for _, ignored := range c.IgnoredEnvironments {
		if strings.EqualFold(strings.TrimSpace(ignored), env) {
			return true
		}
	}
	return false
}

// Option configures a Gatherer.
type Option func(*Gatherer)

// WithLogger sets the logger used for transformer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gatherer) {
		if logger != nil {
			g.logger = logger.With("component", "gatherer")
		}
	}
}

// WithMetrics sets the capture metrics sink.
func WithMetrics(m Metrics) Option {
	return func(g *Gatherer) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithTemplate overrides the detected payload template.
func WithTemplate(t *payload.Template) Option {
	return func(g *Gatherer) {
		g.template = t
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gatherer) {
		if now != nil {
			g.now = now
		}
	}
}
