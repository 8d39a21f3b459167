package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"treblle-hq/agent/pkg/publisher"
)

// RecorderConfig tunes the asynchronous journal writer.
type RecorderConfig struct {
	// Buffer is the number of entries that may wait for the writer.
	// Default: 1000
	Buffer int

	// WriteTimeout bounds a single store write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// Recorder adapts a Store to publisher.Observer. Observations are queued
// and written by a single goroutine so the delivery worker never waits on
// the database; entries are dropped when the buffer is full.
type Recorder struct {
	store   Store
	config  RecorderConfig
	entries chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	logger  *slog.Logger
	dropped atomic.Int64
}

var _ publisher.Observer = (*Recorder)(nil)

// NewRecorder starts a recorder writing to store.
func NewRecorder(store Store, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:   store,
		config:  cfg,
		entries: make(chan Entry, cfg.Buffer),
		done:    make(chan struct{}),
		logger:  logger.With("component", "journal.recorder"),
	}

	r.wg.Add(1)
	go r.worker()
	return r
}

// ObserveDelivery journals a delivery attempt.
func (r *Recorder) ObserveDelivery(d publisher.Delivery) {
	r.enqueue(EntryFromDelivery(d))
}

// ObserveDrop journals a payload dropped before delivery.
func (r *Recorder) ObserveDrop(reason string) {
	r.enqueue(Entry{Outcome: OutcomeDropped, Error: reason, RecordedAt: time.Now()})
}

// Dropped reports how many entries were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) enqueue(e Entry) {
	select {
	case <-r.done:
		return
	default:
	}

	select {
	case r.entries <- e:
	default:
		r.dropped.Add(1)
		r.logger.Debug("journal buffer full, dropping entry",
			"outcome", e.Outcome,
			"buffer", r.config.Buffer,
		)
	}
}

// Close stops accepting entries, writes the ones already queued and returns.
// It does not close the store.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case e := <-r.entries:
			r.write(e)
		case <-r.done:
			for {
				select {
				case e := <-r.entries:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store.Record(ctx, e); err != nil {
		r.logger.Warn("failed to journal delivery",
			"outcome", e.Outcome,
			"endpoint", e.Endpoint,
			"error", err,
		)
	}
}
