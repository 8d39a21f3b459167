package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default, so absent fields keep their
// defaults and explicit zero values are preserved. The configuration is not
// modified by environment variables; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. An empty path loads from the environment
// only.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Load YAML from file
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = loadFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds a configuration from defaults and environment variables.
func LoadFromEnv() (*Config, error) {
	return LoadConfigWithEnvOverrides("")
}

// ResolveEnvironment returns the current environment name from TREBLLE_ENV,
// then ENV, defaulting to "production".
func ResolveEnvironment() string {
	for _, key := range []string{"TREBLLE_ENV", "ENV"} {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return DefaultEnvironment
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format TREBLLE_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Credentials
	overrideCredential("TREBLLE_SDK_TOKEN", "credentials.sdk_token", &cfg.Credentials.SDKToken)
	overrideCredential("TREBLLE_API_KEY", "credentials.api_key", &cfg.Credentials.APIKey)

	// Capture overrides
	if val := os.Getenv("TREBLLE_HIDDEN_KEYS"); val != "" {
		cfg.Capture.HiddenKeys = splitList(val)
	}
	if val := os.Getenv("TREBLLE_MASK_AUTH_HEADER"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Capture.MaskAuthHeader = b
		}
	}
	if val := os.Getenv("TREBLLE_LIMIT_REQUEST_BODY_SIZE"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Capture.RequestBodyLimit = n
		}
	}
	if val := os.Getenv("TREBLLE_IGNORED_ENVIRONMENTS"); val != "" {
		cfg.Capture.IgnoredEnvironments = splitList(val)
	}
	if val := os.Getenv("TREBLLE_ENV"); val != "" {
		cfg.Capture.Environment = val
	}

	// Delivery overrides
	if val := os.Getenv("TREBLLE_ENDPOINT"); val != "" {
		cfg.Delivery.Endpoint = val
	}
	if val := os.Getenv("TREBLLE_DELIVERY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Delivery.Timeout = d
		}
	}
	if val := os.Getenv("TREBLLE_DELIVERY_QUEUE_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Delivery.QueueSize = n
		}
	}

	// Debug
	if val := os.Getenv("TREBLLE_DEBUG"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = b
		}
	}

	// Telemetry overrides
	if val := os.Getenv("TREBLLE_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(val)
	}
	if val := os.Getenv("TREBLLE_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = strings.ToLower(val)
	}
	if val := os.Getenv("TREBLLE_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("TREBLLE_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}

	// Journal overrides
	if val := os.Getenv("TREBLLE_JOURNAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Enabled = b
		}
	}
	if val := os.Getenv("TREBLLE_JOURNAL_DRIVER"); val != "" {
		cfg.Journal.Driver = val
	}
	if val := os.Getenv("TREBLLE_JOURNAL_PATH"); val != "" {
		cfg.Journal.Path = val
	}

	// Proxy overrides
	if val := os.Getenv("TREBLLE_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("TREBLLE_PROXY_UPSTREAM"); val != "" {
		cfg.Proxy.Upstream = val
	}
}

// overrideCredential applies an environment credential, warning when it
// replaces a different value from the file.
func overrideCredential(key, field string, dst *string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if *dst != "" && *dst != val {
		slog.Default().Warn("credential set in both configuration and environment, using environment",
			"field", field,
			"env", key,
		)
	}
	*dst = val
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
