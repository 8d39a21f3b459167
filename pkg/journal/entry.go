package journal

import (
	"context"
	"fmt"
	"time"

	"treblle-hq/agent/pkg/publisher"
)

// OutcomeDropped marks a payload that never reached an endpoint.
const OutcomeDropped = "dropped"

// Entry is one journaled delivery outcome.
type Entry struct {
	ID         int64         `json:"id"`
	RequestID  string        `json:"request_id,omitempty"`
	Endpoint   string        `json:"endpoint,omitempty"`
	Outcome    string        `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"`
	Bytes      int           `json:"bytes,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// EntryFromDelivery converts a publisher delivery into a journal entry.
func EntryFromDelivery(d publisher.Delivery) Entry {
	e := Entry{
		RequestID:  d.RequestID,
		Endpoint:   d.Endpoint,
		Outcome:    string(d.Outcome),
		StatusCode: d.StatusCode,
		Bytes:      d.Bytes,
		Duration:   d.Duration,
		RecordedAt: d.At,
	}
	if d.Err != nil {
		e.Error = d.Err.Error()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	return e
}

// Summary counts entries per outcome.
type Summary map[string]int64

// Store persists journal entries. Implementations are safe for concurrent use.
type Store interface {
	// Record appends an entry.
	Record(ctx context.Context, e Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Summarize counts entries recorded at or after since, per outcome.
	Summarize(ctx context.Context, since time.Time) (Summary, error)

	// Prune deletes entries recorded before the cutoff and reports how many
	// were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Ping checks that the store is usable.
	Ping(ctx context.Context) error

	// Close releases the store.
	Close() error
}

// StorageError reports a failed store operation.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("journal error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, op string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: op, Cause: cause}
}
