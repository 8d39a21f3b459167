package config

import (
	"time"

	"treblle-hq/agent/pkg/gatherer"
	"treblle-hq/agent/pkg/masking"
	"treblle-hq/agent/pkg/publisher"
)

// Default values for configuration fields.
const (
	// Capture defaults
	DefaultMaskAuthHeader   = true
	DefaultRequestBodyLimit = gatherer.DefaultRequestBodyLimit
	DefaultEnvironment      = gatherer.DefaultEnvironment

	// Delivery defaults
	DefaultDeliveryTimeout      = publisher.DefaultTimeout
	DefaultDeliveryQueueSize    = publisher.DefaultQueueSize
	DefaultDeliveryDrainTimeout = publisher.DefaultDrainTimeout
	DefaultDeliveryDebugWait    = publisher.DefaultDebugWait

	// Logging defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultRedactHiddenKeys = true

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "treblle"
	DefaultMetricsSubsystem = "agent"

	// Journal defaults
	DefaultJournalDriver            = "sqlite"
	DefaultJournalPath              = "data/journal.db"
	DefaultJournalMaxOpenConns      = 4
	DefaultJournalBusyTimeout       = 5 * time.Second
	DefaultJournalMemoryCapacity    = 10000
	DefaultJournalRetentionMaxAge   = 7 * 24 * time.Hour
	DefaultJournalRetentionSchedule = "0 * * * *"

	// Proxy defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// DefaultLatencyBuckets are the default latency histogram buckets (seconds).
var DefaultLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// DefaultSizeBuckets are the default payload size histogram buckets (bytes).
var DefaultSizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}

// Default returns a configuration populated with every default, including
// the ones whose zero value is meaningful (MaskAuthHeader, RequestBodyLimit,
// Metrics.Enabled, RedactHiddenKeys). File and environment values are
// applied on top of it.
func Default() *Config {
	cfg := &Config{
		Capture: CaptureConfig{
			HiddenKeys:          append([]string(nil), masking.DefaultHiddenKeys...),
			MaskAuthHeader:      DefaultMaskAuthHeader,
			RequestBodyLimit:    DefaultRequestBodyLimit,
			IgnoredEnvironments: append([]string(nil), gatherer.DefaultIgnoredEnvironments...),
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactHiddenKeys: DefaultRedactHiddenKeys},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields whose zero value is not meaningful.
func ApplyDefaults(cfg *Config) {
	// Capture defaults
	if cfg.Capture.HiddenKeys == nil {
		cfg.Capture.HiddenKeys = append([]string(nil), masking.DefaultHiddenKeys...)
	}
	if cfg.Capture.IgnoredEnvironments == nil {
		cfg.Capture.IgnoredEnvironments = append([]string(nil), gatherer.DefaultIgnoredEnvironments...)
	}
	if cfg.Capture.Environment == "" {
		cfg.Capture.Environment = ResolveEnvironment()
	}

	// Delivery defaults
	if len(cfg.Delivery.Hosts) == 0 {
		cfg.Delivery.Hosts = append([]string(nil), publisher.DefaultHosts...)
	}
	if cfg.Delivery.Timeout == 0 {
		cfg.Delivery.Timeout = DefaultDeliveryTimeout
	}
	if cfg.Delivery.QueueSize == 0 {
		cfg.Delivery.QueueSize = DefaultDeliveryQueueSize
	}
	if cfg.Delivery.DrainTimeout == 0 {
		cfg.Delivery.DrainTimeout = DefaultDeliveryDrainTimeout
	}
	if cfg.Delivery.DebugWait == 0 {
		cfg.Delivery.DebugWait = DefaultDeliveryDebugWait
	}

	// Logging defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.LatencyBuckets) == 0 {
		cfg.Telemetry.Metrics.LatencyBuckets = append([]float64(nil), DefaultLatencyBuckets...)
	}
	if len(cfg.Telemetry.Metrics.SizeBuckets) == 0 {
		cfg.Telemetry.Metrics.SizeBuckets = append([]float64(nil), DefaultSizeBuckets...)
	}

	// Journal defaults
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = DefaultJournalDriver
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Journal.MaxOpenConns == 0 {
		cfg.Journal.MaxOpenConns = DefaultJournalMaxOpenConns
	}
	if cfg.Journal.BusyTimeout == 0 {
		cfg.Journal.BusyTimeout = DefaultJournalBusyTimeout
	}
	if cfg.Journal.MemoryCapacity == 0 {
		cfg.Journal.MemoryCapacity = DefaultJournalMemoryCapacity
	}
	if cfg.Journal.Retention.MaxAge == 0 {
		cfg.Journal.Retention.MaxAge = DefaultJournalRetentionMaxAge
	}
	if cfg.Journal.Retention.Schedule == "" {
		cfg.Journal.Retention.Schedule = DefaultJournalRetentionSchedule
	}

	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.WriteTimeout == 0 {
		cfg.Proxy.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
}
