package gatherer

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"treblle-hq/agent/pkg/payload"
)

// RawRequest is the framework-independent view of an inbound request.
type RawRequest struct {
	Method        string
	URL           string
	Path          string
	Route         string
	Header        http.Header
	Query         url.Values
	RemoteAddr    string
	ContentLength int64
	Body          []byte
}

// RawResponse is the framework-independent view of an outbound response.
type RawResponse struct {
	StatusCode int
	Header     http.Header

	// Body holds the captured bytes, possibly truncated.
	Body []byte

	// Size is the total number of bytes written, which can exceed len(Body).
	Size int64

	// Streaming marks bodies that were flushed incrementally. They are never
	// buffered or measured.
	Streaming bool
}

// Exchange is the per-exchange context carrying the in-progress payload
// between Begin, Complete and Finalize.
type Exchange struct {
	mu        sync.Mutex
	start     time.Time
	method    string
	status    int
	loadTime  time.Duration
	payload   *payload.Payload
	failure   error
	completed bool
	finalized bool
}

// Fail records the error that terminated the exchange. Finalize uses it when
// called without an explicit error. Only the first failure is kept.
func (x *Exchange) Fail(err error) {
	if x == nil || err == nil {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.failure == nil {
		x.failure = err
	}
}

// SetRoute replaces the route pattern recorded at Begin. Routers that match
// only while dispatching call it once the pattern is known. Empty routes
// are ignored.
func (x *Exchange) SetRoute(route string) {
	if x == nil || route == "" {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.payload != nil && x.payload.Data.Request != nil && !x.finalized {
		x.payload.Data.Request.RoutePath = route
	}
}

// Start returns the time Begin was called.
func (x *Exchange) Start() time.Time {
	if x == nil {
		return time.Time{}
	}
	return x.start
}

type exchangeKey struct{}

// WithExchange returns a copy of ctx carrying x.
func WithExchange(ctx context.Context, x *Exchange) context.Context {
	return context.WithValue(ctx, exchangeKey{}, x)
}

// ExchangeFromContext returns the exchange stored in ctx, or nil.
func ExchangeFromContext(ctx context.Context) *Exchange {
	if ctx == nil {
		return nil
	}
	x, _ := ctx.Value(exchangeKey{}).(*Exchange)
	return x
}
