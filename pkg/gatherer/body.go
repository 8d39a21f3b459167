package gatherer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"treblle-hq/agent/pkg/payload"
)

// NotSerializableError is returned when a Transformer result cannot be
// encoded as JSON.
type NotSerializableError struct {
	Side  string
	Cause error
}

func (e *NotSerializableError) Error() string {
	return fmt.Sprintf("%s transformer must return a JSON serializable value: %v", e.Side, e.Cause)
}

// decodeBody applies the transform-or-parse policy to a raw body. Transformer
// failures are recorded on p; parse failures are not.
func (g *Gatherer) decodeBody(p *payload.Payload, side string, raw []byte, fn Transformer) any {
	if fn == nil {
		return parseJSON(raw)
	}
	return g.transform(p, side, raw, fn)
}

func (g *Gatherer) transform(p *payload.Payload, side string, raw []byte, fn Transformer) (body any) {
	defer func() {
		if r := recover(); r != nil {
			g.recordTransformerError(p, side, NewPanicError(r), fn)
			body = payload.EmptyBody()
		}
	}()

	v, err := fn(raw)
	if err != nil {
		g.recordTransformerError(p, side, err, fn)
		return payload.EmptyBody()
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		g.recordTransformerError(p, side, &NotSerializableError{Side: side, Cause: err}, fn)
		return payload.EmptyBody()
	}
	return parseJSON(encoded)
}

func (g *Gatherer) recordTransformerError(p *payload.Payload, side string, err error, fn Transformer) {
	rec := newErrorRecord(err, fn)
	g.logger.Error("error in "+side+" transformer",
		"error_type", rec.Type,
		"error", rec.Message,
		"file", rec.File,
		"line", rec.Line,
	)
	p.AppendError(rec)
	g.metrics.IncErrorRecord(ErrorKindTransformer)
}

// parseJSON decodes raw as a single JSON document, replacing invalid UTF-8.
// Anything unparseable or empty yields an empty object.
func parseJSON(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return payload.EmptyBody()
	}

	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return payload.EmptyBody()
	}
	if _, err := dec.Token(); err != io.EOF {
		return payload.EmptyBody()
	}
	if isEmptyValue(v) {
		return payload.EmptyBody()
	}
	return v
}

// isEmptyValue reports whether v is a null, false, zero, empty string, empty
// array or empty object value.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
