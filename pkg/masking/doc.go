// Package masking redacts sensitive values from captured HTTP exchanges.
//
// A Masker walks arbitrary decoded JSON (maps, slices and scalars) and replaces
// the value of every hidden key with a run of '*' characters of the same length
// as the value's string representation. Lengths are counted in runes so that a
// consumer can tell a field was redacted without learning anything about it.
//
// Values that look like base64 encoded images are replaced with a fixed
// placeholder instead. Image detection is a heuristic (a data URI match or a
// magic number sniff of the first decoded bytes); it is not a guaranteed
// classifier and may miss unusual encodings.
//
// Header masking is a separate pre-pass. The authorization and x-api-key
// headers are always masked. When auth header masking is enabled, a recognized
// authentication scheme in the authorization header is kept visible:
//
//	m := masking.New([]string{"password"}, true)
//	m.MaskAuthorization("Bearer abc123") // "Bearer ******"
//	m.MaskAuthorization("garbled")       // "*******"
//
// Masker is immutable after construction and safe for concurrent use.
package masking
