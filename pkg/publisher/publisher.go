package publisher

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"treblle-hq/agent/pkg/payload"
)

// maxResponseRead caps how much of a backend response is read for logging.
const maxResponseRead = 64 << 10

// ErrClosed is returned by SubmitAndWait after Close.
var ErrClosed = errors.New("publisher closed")

// Publisher is the handle to the delivery worker. It is safe for concurrent
// use.
type Publisher struct {
	w *worker
}

type job struct {
	payload *payload.Payload
	result  chan<- Delivery
}

// worker owns everything touched by the delivery goroutine. It holds no
// reference to the Publisher handle so the handle can be collected.
type worker struct {
	cfg      Config
	client   *http.Client
	rotation *Rotation
	queue    chan job
	done     chan struct{}
	wg       sync.WaitGroup

	// mu orders sends on queue before close(done): the worker starts
	// draining only after every in-flight send has landed.
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	logger    *slog.Logger
	observers []Observer
}

// New starts the delivery worker.
func New(cfg Config, opts ...Option) *Publisher {
	cfg = cfg.withDefaults()

	w := &worker{
		cfg:      cfg,
		client:   &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		rotation: NewRotation(cfg.endpoints()),
		queue:    make(chan job, cfg.QueueSize),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "publisher"),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.run()

	w.logger.Info("publisher initialized",
		"endpoints", w.rotation.Endpoints(),
		"timeout", cfg.Timeout,
		"queue_size", cfg.QueueSize,
	)

	p := &Publisher{w: w}
	runtime.AddCleanup(p, func(w *worker) { w.close() }, w)
	return p
}

// Submit hands p to the worker and returns without waiting for the network.
// It returns false when the payload was dropped because the queue is full or
// the publisher is closed.
func (p *Publisher) Submit(pl *payload.Payload) bool {
	if pl == nil {
		return false
	}
	return p.w.enqueue(job{payload: pl})
}

// SubmitAndWait submits pl and waits for the delivery outcome. When ctx has no
// deadline the wait is bounded by Config.DebugWait. It is intended for
// interactive tooling only.
func (p *Publisher) SubmitAndWait(ctx context.Context, pl *payload.Payload) (Delivery, error) {
	if pl == nil {
		return Delivery{}, errors.New("nil payload")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.w.cfg.DebugWait)
		defer cancel()
	}

	result := make(chan Delivery, 1)
	if err := p.w.enqueueWait(ctx, job{payload: pl, result: result}); err != nil {
		return Delivery{}, err
	}

	select {
	case d := <-result:
		return d, d.Err
	case <-ctx.Done():
		return Delivery{}, fmt.Errorf("waiting for delivery: %w", ctx.Err())
	}
}

// Endpoints returns the endpoint rotation.
func (p *Publisher) Endpoints() []string {
	return p.w.rotation.Endpoints()
}

// Pending returns the number of queued payloads.
func (p *Publisher) Pending() int {
	return len(p.w.queue)
}

// Close stops accepting payloads, delivers what is queued within
// Config.DrainTimeout, waits for the worker to exit and releases the
// client's connections. It is idempotent.
func (p *Publisher) Close() error {
	p.w.close()
	return nil
}

func (w *worker) enqueue(j job) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.dropped(DropClosed, j)
		return false
	}

	select {
	case w.queue <- j:
		return true
	default:
		w.dropped(DropQueueFull, j)
		return false
	}
}

// enqueueWait blocks until j is queued or ctx is done. A pending Close waits
// for it.
func (w *worker) enqueueWait(ctx context.Context, j job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.queue <- j:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for queue: %w", ctx.Err())
	}
}

func (w *worker) dropped(reason string, j job) {
	w.logger.Warn("dropping telemetry payload",
		"reason", reason,
		"request_id", j.payload.RequestID,
		"queue_capacity", cap(w.queue),
	)
	for _, o := range w.observers {
		o.ObserveDrop(reason)
	}
}

func (w *worker) close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		w.logger.Info("shutting down publisher", "pending", len(w.queue))
		close(w.done)
		w.wg.Wait()
		w.client.CloseIdleConnections()
		w.logger.Info("publisher shut down complete")
	})
}

// run is the delivery goroutine.
func (w *worker) run() {
	defer w.wg.Done()

	for {
		select {
		case j := <-w.queue:
			w.process(context.Background(), j)
		case <-w.done:
			w.drain()
			return
		}
	}
}

// drain delivers queued payloads until the queue is empty or the drain
// deadline passes; the remainder is dropped.
func (w *worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.DrainTimeout)
	defer cancel()

	for {
		select {
		case j := <-w.queue:
			if ctx.Err() != nil {
				w.dropped(DropShutdown, j)
				continue
			}
			w.process(ctx, j)
		default:
			return
		}
	}
}

func (w *worker) process(ctx context.Context, j job) {
	d := w.send(ctx, j.payload)
	for _, o := range w.observers {
		o.ObserveDelivery(d)
	}
	if j.result != nil {
		j.result <- d
	}
}

// send performs one delivery attempt. Every failure is folded into the
// returned Delivery.
func (w *worker) send(ctx context.Context, p *payload.Payload) (d Delivery) {
	start := time.Now()
	d = Delivery{
		Endpoint:  w.rotation.Next(),
		RequestID: p.RequestID,
		At:        start,
	}
	defer func() {
		if r := recover(); r != nil {
			d.Outcome = OutcomeFailed
			d.Err = &DeliveryError{Endpoint: d.Endpoint, Op: "send", Cause: fmt.Errorf("panic: %v", r)}
		}
		d.Duration = time.Since(start)
		w.log(d)
	}()

	body, err := encode(p)
	if err != nil {
		d.Outcome = OutcomeFailed
		d.Err = &DeliveryError{Endpoint: d.Endpoint, Op: "encode", Cause: err}
		return d
	}
	d.Bytes = len(body)

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		d.Outcome = OutcomeFailed
		d.Err = &DeliveryError{Endpoint: d.Endpoint, Op: "build request", Cause: err}
		return d
	}
	req.Header.Set("X-API-Key", w.cfg.SDKToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := w.client.Do(req)
	if err != nil {
		d.Outcome = OutcomeFailed
		d.Err = &DeliveryError{Endpoint: d.Endpoint, Op: "post", Cause: err}
		return d
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseRead))
	d.StatusCode = resp.StatusCode
	d.Outcome = classify(resp.StatusCode, string(text))
	if d.Outcome == OutcomeRejected {
		d.Err = &DeliveryError{
			Endpoint: d.Endpoint,
			Op:       "response",
			Cause:    fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(text)),
		}
	}
	return d
}

func (w *worker) log(d Delivery) {
	attrs := []any{
		"endpoint", d.Endpoint,
		"request_id", d.RequestID,
		"status", d.StatusCode,
		"duration", d.Duration,
	}
	switch d.Outcome {
	case OutcomeAccepted:
		w.logger.Info("telemetry delivered", attrs...)
	case OutcomeRejected:
		w.logger.Warn("telemetry rejected by backend", append(attrs, "error", d.Err)...)
	default:
		w.logger.Debug("telemetry delivery failed", append(attrs, "error", d.Err)...)
	}
}

// encode serializes p as compact JSON and gzips it.
func encode(p *payload.Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	return buf.Bytes(), nil
}
