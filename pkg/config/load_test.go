package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treblle.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
credentials:
  sdk_token: "file-token"
  api_key: "file-key"

capture:
  hidden_keys: ["password", "x-secret"]
  mask_auth_header: false
  request_body_limit: 0
  environment: "staging"

delivery:
  endpoint: "https://debug.example.com/ingest"
  timeout: "500ms"

telemetry:
  logging:
    level: "debug"
    format: "text"

journal:
  enabled: true
  driver: "memory"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Credentials.SDKToken != "file-token" || cfg.Credentials.APIKey != "file-key" {
		t.Errorf("unexpected credentials %+v", cfg.Credentials)
	}
	if len(cfg.Capture.HiddenKeys) != 2 {
		t.Errorf("expected hidden keys from file, got %v", cfg.Capture.HiddenKeys)
	}
	if cfg.Capture.MaskAuthHeader {
		t.Error("explicit mask_auth_header: false was not honored")
	}
	if cfg.Capture.RequestBodyLimit != 0 {
		t.Errorf("explicit zero request body limit was not honored, got %d", cfg.Capture.RequestBodyLimit)
	}
	if cfg.Delivery.Timeout != 500*time.Millisecond {
		t.Errorf("expected 500ms timeout, got %v", cfg.Delivery.Timeout)
	}
	if cfg.Delivery.QueueSize != DefaultDeliveryQueueSize {
		t.Errorf("expected default queue size, got %d", cfg.Delivery.QueueSize)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("unexpected logging %+v", cfg.Telemetry.Logging)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("absent metrics section should keep metrics enabled")
	}
	if !cfg.Journal.Enabled || cfg.Journal.Driver != "memory" {
		t.Errorf("unexpected journal %+v", cfg.Journal)
	}
}

func TestLoadConfig_MissingCredentialsIsValid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatalf("missing credentials must not fail loading: %v", err)
	}
	if !cfg.Debug {
		t.Error("expected debug enabled")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil || !strings.Contains(err.Error(), "failed to read configuration file") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "capture: [unterminated"))
		if err == nil || !strings.Contains(err.Error(), "failed to parse configuration file") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "delivery:\n  endpoint: \"ftp://nope\"\n"))
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Errors[0].Field != "delivery.endpoint" {
			t.Errorf("unexpected field %q", verr.Errors[0].Field)
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
credentials:
  sdk_token: "file-token"
  api_key: "file-key"
`)

	t.Setenv("TREBLLE_SDK_TOKEN", "env-token")
	t.Setenv("TREBLLE_API_KEY", "")
	t.Setenv("TREBLLE_HIDDEN_KEYS", "password, token ,")
	t.Setenv("TREBLLE_MASK_AUTH_HEADER", "false")
	t.Setenv("TREBLLE_LIMIT_REQUEST_BODY_SIZE", "1024")
	t.Setenv("TREBLLE_IGNORED_ENVIRONMENTS", "local")
	t.Setenv("TREBLLE_ENV", "local")
	t.Setenv("TREBLLE_ENDPOINT", "http://localhost:9000")
	t.Setenv("TREBLLE_DEBUG", "true")
	t.Setenv("TREBLLE_LOG_LEVEL", "WARN")
	t.Setenv("TREBLLE_JOURNAL_DRIVER", "sqlite3")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Credentials.SDKToken != "env-token" {
		t.Errorf("environment should override sdk token, got %q", cfg.Credentials.SDKToken)
	}
	if cfg.Credentials.APIKey != "file-key" {
		t.Errorf("empty environment value should not override api key, got %q", cfg.Credentials.APIKey)
	}
	if got := cfg.Capture.HiddenKeys; len(got) != 2 || got[0] != "password" || got[1] != "token" {
		t.Errorf("unexpected hidden keys %v", got)
	}
	if cfg.Capture.MaskAuthHeader {
		t.Error("expected auth header masking disabled")
	}
	if cfg.Capture.RequestBodyLimit != 1024 {
		t.Errorf("unexpected limit %d", cfg.Capture.RequestBodyLimit)
	}
	if cfg.Capture.Environment != "local" || cfg.Capture.IgnoredEnvironments[0] != "local" {
		t.Errorf("unexpected environment settings %+v", cfg.Capture)
	}
	if cfg.Delivery.Endpoint != "http://localhost:9000" {
		t.Errorf("unexpected endpoint %q", cfg.Delivery.Endpoint)
	}
	if !cfg.Debug || cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("unexpected debug/log level %v %q", cfg.Debug, cfg.Telemetry.Logging.Level)
	}
	if cfg.Journal.Driver != "sqlite3" {
		t.Errorf("unexpected journal driver %q", cfg.Journal.Driver)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TREBLLE_SDK_TOKEN", "token")
	t.Setenv("TREBLLE_API_KEY", "key")
	t.Setenv("TREBLLE_LOG_FORMAT", "yaml")

	_, err := LoadFromEnv()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for bad log format, got %v", err)
	}

	t.Setenv("TREBLLE_LOG_FORMAT", "text")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.Credentials.SDKToken != "token" || cfg.Credentials.APIKey != "key" {
		t.Errorf("unexpected credentials %+v", cfg.Credentials)
	}
}
