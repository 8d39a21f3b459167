package config

import (
	"time"

	securityTLS "treblle-hq/agent/pkg/security/tls"
)

// Config is the root configuration structure for the Treblle agent.
type Config struct {
	// Credentials contains the SDK token and API key.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Capture controls what is recorded for each exchange and how it is
	// masked.
	Capture CaptureConfig `yaml:"capture"`

	// Delivery contains configuration for the background publisher.
	Delivery DeliveryConfig `yaml:"delivery"`

	// Telemetry contains configuration for the agent's own logging and
	// metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Journal contains configuration for the local delivery journal.
	Journal JournalConfig `yaml:"journal"`

	// Proxy contains configuration for the reverse-proxy sidecar started by
	// `treblle run`.
	Proxy ProxyConfig `yaml:"proxy"`

	// Debug enables debug logging.
	// Default: false
	Debug bool `yaml:"debug"`
}

// CredentialsConfig contains the credential pair. Both values are required
// for capture to be enabled.
type CredentialsConfig struct {
	// SDKToken authenticates deliveries (sent as X-API-Key).
	SDKToken string `yaml:"sdk_token"`

	// APIKey identifies the project.
	APIKey string `yaml:"api_key"`
}

// CaptureConfig contains masking and body capture settings.
type CaptureConfig struct {
	// HiddenKeys lists field names (case-insensitive) masked in headers,
	// query parameters and bodies.
	// Default: masking.DefaultHiddenKeys
	HiddenKeys []string `yaml:"hidden_keys"`

	// MaskAuthHeader keeps the Authorization scheme visible and masks only
	// the credential.
	// Default: true
	MaskAuthHeader bool `yaml:"mask_auth_header"`

	// RequestBodyLimit is the largest request body captured, in bytes.
	// Zero disables request body capture.
	// Default: 4194304 (4 MiB)
	RequestBodyLimit int64 `yaml:"request_body_limit"`

	// IgnoredEnvironments lists environments in which capture is disabled.
	// Default: ["dev", "test", "testing"]
	IgnoredEnvironments []string `yaml:"ignored_environments"`

	// Environment is the current environment name.
	// Default: TREBLLE_ENV, then ENV, then "production"
	Environment string `yaml:"environment"`
}

// DeliveryConfig contains publisher settings.
type DeliveryConfig struct {
	// Endpoint overrides the host rotation with a single URL.
	Endpoint string `yaml:"endpoint"`

	// Hosts is the rotation used when Endpoint is empty.
	// Default: the three Treblle ingestion hosts
	Hosts []string `yaml:"hosts"`

	// Timeout bounds a single delivery attempt.
	// Default: 2s
	Timeout time.Duration `yaml:"timeout"`

	// QueueSize is the capacity of the submission queue.
	// Default: 1024
	QueueSize int `yaml:"queue_size"`

	// DrainTimeout bounds delivery of queued payloads at shutdown.
	// Default: 5s
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// DebugWait bounds interactive deliveries such as `treblle ping`.
	// Default: 3s
	DebugWait time.Duration `yaml:"debug_wait"`

	// TLS customizes the delivery client's trust roots.
	TLS securityTLS.ClientConfig `yaml:"tls"`
}

// TelemetryConfig contains configuration for the agent's observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactHiddenKeys masks log attributes named like hidden keys.
	// Default: true
	RedactHiddenKeys bool `yaml:"redact_hidden_keys"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// ListenAddress serves the metrics endpoint on a separate listener.
	// Empty serves it from the proxy listener.
	ListenAddress string `yaml:"listen_address"`

	// Namespace is the metric name prefix.
	// Default: "treblle"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "agent"
	Subsystem string `yaml:"subsystem"`

	// LatencyBuckets defines histogram buckets for exchange and delivery
	// latency (seconds).
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5]
	LatencyBuckets []float64 `yaml:"latency_buckets"`

	// SizeBuckets defines histogram buckets for compressed payload sizes.
	// Default: exponential from 256 bytes, factor 4, 8 buckets
	SizeBuckets []float64 `yaml:"size_buckets"`
}

// JournalConfig contains configuration for the delivery journal. The journal
// stores delivery outcomes only, never payloads.
type JournalConfig struct {
	// Enabled controls whether delivery outcomes are journaled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the storage backend.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file for the SQLite drivers.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// MemoryCapacity bounds the in-memory journal.
	// Default: 10000
	MemoryCapacity int `yaml:"memory_capacity"`

	// Retention controls pruning of old journal entries.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains journal retention settings.
type RetentionConfig struct {
	// MaxAge is how long journal entries are kept.
	// Default: 168h (7 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a standard cron expression for pruning runs.
	// Default: "0 * * * *" (hourly)
	Schedule string `yaml:"schedule"`
}

// ProxyConfig contains configuration for the reverse-proxy sidecar.
type ProxyConfig struct {
	// ListenAddress is the address the sidecar listens on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// Upstream is the URL of the application being instrumented.
	Upstream string `yaml:"upstream"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS terminates TLS on the proxy listener.
	TLS securityTLS.ServerConfig `yaml:"tls"`
}
