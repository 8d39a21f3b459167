// Package telemetry groups the agent's own observability.
//
// # Components
//
//   - logging: slog loggers that mask hidden keys and bearer tokens
//   - metrics: Prometheus metrics for capture and delivery
//   - health: liveness, readiness and version endpoints
//
// These describe the agent itself. The API telemetry it captures and ships
// to Treblle lives in the gatherer and publisher packages.
package telemetry
