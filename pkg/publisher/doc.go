// Package publisher delivers telemetry payloads to the monitoring backend
// from a single background worker.
//
// Request-serving goroutines only ever call Submit, which hands the payload
// to the worker through a buffered channel and returns immediately. The
// worker owns the HTTP client and the endpoint Rotation; it encodes each
// payload as gzip-compressed JSON and issues one POST with a short timeout.
// Failed deliveries are logged and dropped, never retried.
//
// SubmitAndWait is the only blocking entry point and is meant for
// interactive tooling. Close stops the worker after draining the queue and
// is safe to call more than once; a Publisher that is garbage collected
// without Close is cleaned up automatically.
package publisher
