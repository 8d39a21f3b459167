// Package testutil provides a fake monitoring backend for tests.
package testutil

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Received is one request captured by the Backend.
type Received struct {
	Path    string
	Header  http.Header
	Payload map[string]any
	Err     error
}

// Backend is an httptest server that accepts gzip-compressed JSON payloads
// and records them in arrival order.
type Backend struct {
	server *httptest.Server

	mu       sync.Mutex
	received []Received
	status   int
	body     string
	delay    time.Duration
	block    chan struct{}
	arrived  chan struct{}
}

// NewBackend starts a backend that answers 200 with an empty JSON object.
func NewBackend() *Backend {
	b := &Backend{
		status:  http.StatusOK,
		body:    `{"status":"ok"}`,
		arrived: make(chan struct{}, 1024),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handler))
	return b
}

// URL returns the backend's base URL.
func (b *Backend) URL() string {
	return b.server.URL
}

// Close shuts the server down and releases blocked handlers.
func (b *Backend) Close() {
	b.Release()
	b.server.Close()
}

// SetResponse sets the status and body returned for every request.
func (b *Backend) SetResponse(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
	b.body = body
}

// SetDelay delays every response. Handlers give up early when the client
// cancels the request.
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// Block makes handlers wait until Release is called.
func (b *Backend) Block() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.block = make(chan struct{})
}

// Release unblocks handlers held by Block.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.block != nil {
		close(b.block)
		b.block = nil
	}
}

// Received returns a copy of the captured requests.
func (b *Backend) Received() []Received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Received(nil), b.received...)
}

// Count returns the number of captured requests.
func (b *Backend) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.received)
}

// WaitFor blocks until n requests have arrived or timeout passes.
func (b *Backend) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for b.Count() < n {
		select {
		case <-b.arrived:
		case <-deadline:
			return b.Count() >= n
		}
	}
	return true
}

func (b *Backend) handler(w http.ResponseWriter, r *http.Request) {
	rec := Received{Path: r.URL.Path, Header: r.Header.Clone()}
	rec.Payload, rec.Err = decode(r)

	b.mu.Lock()
	b.received = append(b.received, rec)
	status, body, delay, block := b.status, b.body, b.delay, b.block
	b.mu.Unlock()

	select {
	case b.arrived <- struct{}{}:
	default:
	}

	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func decode(r *http.Request) (map[string]any, error) {
	if r.Header.Get("Content-Encoding") != "gzip" {
		return nil, fmt.Errorf("unexpected content encoding %q", r.Header.Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(r.Body)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()

	var doc map[string]any
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return doc, nil
}
