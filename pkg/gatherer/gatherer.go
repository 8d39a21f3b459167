package gatherer

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"treblle-hq/agent/pkg/masking"
	"treblle-hq/agent/pkg/payload"
)

// Gatherer builds masked telemetry payloads for exchanges. It is safe for
// concurrent use; all per-exchange state lives in Exchange values.
type Gatherer struct {
	cfg      Config
	disabled bool
	masker   *masking.Masker
	template *payload.Template
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time
}

// New creates a Gatherer. The disabled flag is computed once here; a disabled
// gatherer never detects server identity.
func New(cfg Config, opts ...Option) *Gatherer {
	g := &Gatherer{
		cfg:      cfg,
		disabled: cfg.Disabled(),
		masker:   masking.New(cfg.HiddenKeys, cfg.MaskAuthHeader),
		logger:   slog.Default().With("component", "gatherer"),
		metrics:  nopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	if !g.disabled && g.template == nil {
		g.template = payload.NewTemplate(cfg.APIKey, cfg.SDKToken)
	}
	return g
}

// Disabled reports whether capture is switched off.
func (g *Gatherer) Disabled() bool {
	return g.disabled
}

// Masker returns the masker built from the configured hidden keys.
func (g *Gatherer) Masker() *masking.Masker {
	return g.masker
}

// RequestBodyLimit returns the request body capture limit in bytes. Zero
// disables request body capture.
func (g *Gatherer) RequestBodyLimit() int64 {
	return max(g.cfg.RequestBodyLimit, 0)
}

// Begin captures the request section of a new exchange. It returns nil when
// the gatherer is disabled.
func (g *Gatherer) Begin(req RawRequest) *Exchange {
	if g.disabled {
		return nil
	}

	p := g.template.NewPayload()
	start := g.now()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	route := req.Route
	if route == "" {
		route = req.Path
	}

	record := &payload.Request{
		Timestamp: payload.FormatTime(start),
		Method:    method,
		URL:       req.URL,
		RoutePath: route,
		UserAgent: req.Header.Get("User-Agent"),
		Headers:   g.masker.MaskHeaders(flattenHeader(req.Header)),
		IP:        ResolveClientIP(req.Header.Get("X-Forwarded-For"), req.RemoteAddr),
		Query:     g.maskQuery(req.Query),
		Body:      payload.EmptyBody(),
	}

	if g.captureRequestBody(req) {
		body := g.decodeBody(p, "request", req.Body, g.cfg.RequestTransformer)
		record.Body = g.maskBody(body)
	}
	p.Data.Request = record

	return &Exchange{
		start:   start,
		method:  method,
		payload: p,
	}
}

// Complete captures the response section of x. It is a no-op when the
// gatherer is disabled or x is nil.
func (g *Gatherer) Complete(x *Exchange, resp RawResponse) {
	if g.disabled || x == nil {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.payload == nil || x.finalized {
		return
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	elapsed := g.now().Sub(x.start)

	record := &payload.Response{
		Code:     status,
		Headers:  g.masker.MaskHeaders(flattenHeader(resp.Header)),
		LoadTime: elapsed.Milliseconds(),
		Body:     payload.EmptyBody(),
	}

	switch size := bodySize(resp); {
	case resp.Streaming:
	case size > MaxResponseBodySize:
		x.payload.AppendError(payload.ErrorRecord{
			Source:  payload.ErrorSource,
			Type:    OversizedErrorType,
			Message: OversizedErrorMessage,
		})
		g.metrics.IncErrorRecord(ErrorKindOversized)
	default:
		body := g.decodeBody(x.payload, "response", resp.Body, g.cfg.ResponseTransformer)
		record.Body = g.maskBody(body)
		record.Size = size
	}

	x.payload.Data.Response = record
	x.status = status
	x.loadTime = elapsed
	x.completed = true
}

// Finalize stamps the root timestamp and a fresh request id onto the payload
// of x and returns it. err, or else the failure recorded with Exchange.Fail,
// is appended as a single error record. Finalize returns nil when the
// gatherer is disabled, x was never begun, or x was already finalized.
func (g *Gatherer) Finalize(x *Exchange, err error) *payload.Payload {
	if g.disabled || x == nil {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.payload == nil || x.finalized {
		return nil
	}
	x.finalized = true

	p := x.payload
	p.Timestamp = payload.FormatTime(g.now())
	p.RequestID = uuid.NewString()

	if err == nil {
		err = x.failure
	}
	if err != nil {
		p.AppendError(newErrorRecord(err, nil))
		g.metrics.IncErrorRecord(ErrorKindException)
	}

	status := x.status
	if !x.completed {
		status = http.StatusInternalServerError
		if err == nil {
			status = http.StatusOK
		}
	}
	g.metrics.ObserveExchange(x.method, status, x.loadTime)

	return p
}

func (g *Gatherer) captureRequestBody(req RawRequest) bool {
	limit := g.cfg.RequestBodyLimit
	if limit <= 0 {
		return false
	}
	return max(req.ContentLength, 0) < limit && int64(len(req.Body)) < limit
}

func (g *Gatherer) maskBody(v any) any {
	if isEmptyValue(v) {
		return payload.EmptyBody()
	}
	return g.masker.Mask(v)
}

// maskQuery keeps the first value of each query parameter.
func (g *Gatherer) maskQuery(q url.Values) map[string]any {
	out := make(map[string]any, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		} else {
			out[k] = ""
		}
	}
	masked, _ := g.masker.Mask(out).(map[string]any)
	return masked
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func bodySize(resp RawResponse) int64 {
	return max(resp.Size, int64(len(resp.Body)))
}
