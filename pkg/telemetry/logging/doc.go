// Package logging builds the agent's structured loggers on log/slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Masker: masking.New(hiddenKeys, true),
//	})
//
//	logger.Info("request captured",
//	    "password", "hunter2",   // logged as *******
//	    "status", 200,
//	)
//
// # Redaction
//
// When a Masker is configured, every attribute whose key is a hidden key is
// masked with the same rules as telemetry payloads, and bearer tokens inside
// string values are collapsed to "Bearer ***".
//
// # Context
//
// Request ids stored with WithRequestID are added to every record logged
// with a context carrying them (logger.InfoContext and friends).
package logging
