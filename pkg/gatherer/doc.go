// Package gatherer builds telemetry payloads from raw request and response
// data.
//
// A Gatherer is constructed once per process from an immutable Config. Each
// exchange flows through three calls:
//
//	x := g.Begin(rawRequest)      // request section, start timestamp
//	g.Complete(x, rawResponse)    // response section, load time
//	p := g.Finalize(x, err)       // timestamp, request id, terminal error
//
// The Exchange returned by Begin carries the in-progress payload and is the
// only request-scoped state; it is never shared between exchanges. When the
// gatherer is disabled (missing credentials or an ignored environment) every
// call is a no-op guarded by a single boolean check and Begin returns nil.
//
// Masking is applied at every insertion point through pkg/masking. Body
// capture follows a transform-or-parse policy: a configured Transformer that
// fails (error, panic, or a result that cannot be encoded as JSON) produces an
// ErrorRecord and an empty body, while a body that simply fails to parse as
// JSON is replaced by an empty body without an error record.
package gatherer
