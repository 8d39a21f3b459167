package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	securityTLS "treblle-hq/agent/pkg/security/tls"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "delivery.timeout").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together. Missing credentials are deliberately not checked.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateCapture(&cfg.Capture)...)
	errs = append(errs, validateDelivery(&cfg.Delivery)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateCapture(cfg *CaptureConfig) []FieldError {
	var errs []FieldError

	if cfg.RequestBodyLimit < 0 {
		errs = append(errs, FieldError{
			Field:   "capture.request_body_limit",
			Message: "request body limit must be non-negative (0 disables capture)",
		})
	}
	for i, key := range cfg.HiddenKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.hidden_keys[%d]", i),
				Message: "hidden key must not be empty",
			})
		}
	}

	return errs
}

func validateDelivery(cfg *DeliveryConfig) []FieldError {
	var errs []FieldError

	if cfg.Endpoint != "" {
		if msg := validateEndpointURL(cfg.Endpoint); msg != "" {
			errs = append(errs, FieldError{Field: "delivery.endpoint", Message: msg})
		}
	}
	for i, host := range cfg.Hosts {
		if msg := validateEndpointURL(host); msg != "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("delivery.hosts[%d]", i), Message: msg})
		}
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "delivery.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.QueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "delivery.queue_size",
			Message: "queue size must be positive",
		})
	}
	if cfg.DrainTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "delivery.drain_timeout",
			Message: "drain timeout must be non-negative",
		})
	}
	if cfg.DebugWait < 0 {
		errs = append(errs, FieldError{
			Field:   "delivery.debug_wait",
			Message: "debug wait must be non-negative",
		})
	}
	if !securityTLS.ValidVersion(cfg.TLS.MinVersion) {
		errs = append(errs, FieldError{
			Field:   "delivery.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
		})
	}

	return errs
}

func validateEndpointURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("invalid URL %q: host is required", raw)
	}
	return ""
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics endpoint
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/' when metrics are enabled",
		})
	}
	if !ascending(cfg.Metrics.LatencyBuckets) {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.latency_buckets",
			Message: "buckets must be strictly increasing",
		})
	}
	if !ascending(cfg.Metrics.SizeBuckets) {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.size_buckets",
			Message: "buckets must be strictly increasing",
		})
	}

	return errs
}

func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	validDrivers := map[string]bool{"sqlite": true, "sqlite3": true, "memory": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "journal.driver",
			Message: fmt.Sprintf("invalid journal driver %q: must be 'sqlite', 'sqlite3', or 'memory'", cfg.Driver),
		})
	}
	if cfg.Enabled && cfg.Driver != "memory" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "journal.path",
			Message: "path is required for SQLite journals",
		})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.max_open_conns",
			Message: "max open connections must be non-negative",
		})
	}
	if cfg.Retention.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.max_age",
			Message: "max age must be non-negative",
		})
	}
	if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "journal.retention.schedule",
			Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Retention.Schedule, err),
		})
	}

	return errs
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.Upstream != "" {
		if msg := validateEndpointURL(cfg.Upstream); msg != "" {
			errs = append(errs, FieldError{Field: "proxy.upstream", Message: msg})
		}
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must be non-negative",
		})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "proxy.tls.cert_file", Message: "cert_file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "proxy.tls.key_file", Message: "key_file is required when TLS is enabled"})
		}
	}
	if !securityTLS.ValidVersion(cfg.TLS.MinVersion) {
		errs = append(errs, FieldError{
			Field:   "proxy.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
		})
	}

	return errs
}

func ascending(buckets []float64) bool {
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return false
		}
	}
	return true
}
