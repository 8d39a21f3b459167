package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"negative body limit", func(c *Config) { c.Capture.RequestBodyLimit = -1 }, "capture.request_body_limit"},
		{"blank hidden key", func(c *Config) { c.Capture.HiddenKeys = []string{"ok", " "} }, "capture.hidden_keys[1]"},
		{"bad endpoint scheme", func(c *Config) { c.Delivery.Endpoint = "ftp://x" }, "delivery.endpoint"},
		{"endpoint without host", func(c *Config) { c.Delivery.Endpoint = "https://" }, "delivery.endpoint"},
		{"bad host", func(c *Config) { c.Delivery.Hosts = []string{"https://ok.example.com", "nope"} }, "delivery.hosts[1]"},
		{"zero timeout", func(c *Config) { c.Delivery.Timeout = 0 }, "delivery.timeout"},
		{"negative timeout", func(c *Config) { c.Delivery.Timeout = -time.Second }, "delivery.timeout"},
		{"zero queue", func(c *Config) { c.Delivery.QueueSize = 0 }, "delivery.queue_size"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "trace" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "console" }, "telemetry.logging.format"},
		{"bad metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"unsorted buckets", func(c *Config) { c.Telemetry.Metrics.LatencyBuckets = []float64{1, 0.5} }, "telemetry.metrics.latency_buckets"},
		{"bad journal driver", func(c *Config) { c.Journal.Driver = "postgres" }, "journal.driver"},
		{"missing journal path", func(c *Config) {
			c.Journal.Enabled = true
			c.Journal.Path = ""
		}, "journal.path"},
		{"bad cron", func(c *Config) { c.Journal.Retention.Schedule = "every hour" }, "journal.retention.schedule"},
		{"bad upstream", func(c *Config) { c.Proxy.Upstream = "localhost:3000" }, "proxy.upstream"},
		{"missing listen address", func(c *Config) { c.Proxy.ListenAddress = "" }, "proxy.listen_address"},
		{"tls without cert", func(c *Config) {
			c.Proxy.TLS.Enabled = true
			c.Proxy.TLS.KeyFile = "server.key"
		}, "proxy.tls.cert_file"},
		{"tls without key", func(c *Config) {
			c.Proxy.TLS.Enabled = true
			c.Proxy.TLS.CertFile = "server.crt"
		}, "proxy.tls.key_file"},
		{"bad proxy tls version", func(c *Config) { c.Proxy.TLS.MinVersion = "1.0" }, "proxy.tls.min_version"},
		{"bad delivery tls version", func(c *Config) { c.Delivery.TLS.MinVersion = "1.1" }, "delivery.tls.min_version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for %s, got %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidate_MissingCredentialsAllowed(t *testing.T) {
	cfg := Default()
	cfg.Credentials = CredentialsConfig{}
	if err := Validate(cfg); err != nil {
		t.Errorf("missing credentials must not be a validation error: %v", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("unexpected single error message %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("unexpected multi error message %q", got)
	}
}
