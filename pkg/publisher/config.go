package publisher

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultHosts are the backend hosts rotated across when no endpoint
// override is configured.
var DefaultHosts = []string{
	"https://rocknrolla.treblle.com",
	"https://punisher.treblle.com",
	"https://sicario.treblle.com",
}

const (
	// DefaultTimeout bounds a single delivery attempt.
	DefaultTimeout = 2 * time.Second

	// DefaultDebugWait bounds SubmitAndWait when the context has no deadline.
	DefaultDebugWait = 3 * time.Second

	// DefaultQueueSize is the capacity of the submission queue.
	DefaultQueueSize = 1024

	// DefaultDrainTimeout bounds how long Close keeps delivering queued payloads.
	DefaultDrainTimeout = 5 * time.Second
)

// Config contains configuration for the publisher.
type Config struct {
	// SDKToken is sent in the X-API-Key header.
	SDKToken string

	// Endpoint overrides the host rotation with a single URL.
	Endpoint string

	// Hosts is the rotation used when Endpoint is empty.
	// Default: DefaultHosts
	Hosts []string

	// Timeout bounds a single delivery attempt.
	// Default: 2 seconds
	Timeout time.Duration

	// QueueSize is the capacity of the submission queue. Payloads submitted
	// while the queue is full are dropped.
	// Default: 1024
	QueueSize int

	// DrainTimeout bounds the delivery of queued payloads during Close.
	// Default: 5 seconds
	DrainTimeout time.Duration

	// DebugWait bounds SubmitAndWait.
	// Default: 3 seconds
	DebugWait time.Duration
}

// DefaultConfig returns the default publisher configuration.
func DefaultConfig() Config {
	return Config{
		Hosts:        append([]string(nil), DefaultHosts...),
		Timeout:      DefaultTimeout,
		QueueSize:    DefaultQueueSize,
		DrainTimeout: DefaultDrainTimeout,
		DebugWait:    DefaultDebugWait,
	}
}

func (c Config) withDefaults() Config {
	if len(c.Hosts) == 0 {
		c.Hosts = append([]string(nil), DefaultHosts...)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.DebugWait <= 0 {
		c.DebugWait = DefaultDebugWait
	}
	return c
}

// endpoints returns the rotation list: the override alone, or the hosts.
func (c Config) endpoints() []string {
	if c.Endpoint != "" {
		return []string{c.Endpoint}
	}
	return c.Hosts
}

// Option configures a Publisher.
type Option func(*worker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *worker) {
		if logger != nil {
			w.logger = logger.With("component", "publisher")
		}
	}
}

// WithHTTPClient replaces the HTTP client owned by the worker.
func WithHTTPClient(client *http.Client) Option {
	return func(w *worker) {
		if client != nil {
			w.client = client
		}
	}
}

// WithObserver registers an observer notified of every delivery outcome.
func WithObserver(o Observer) Option {
	return func(w *worker) {
		if o != nil {
			w.observers = append(w.observers, o)
		}
	}
}
