package journal

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryCapacity bounds a MemoryStore created with capacity <= 0.
const DefaultMemoryCapacity = 10000

// MemoryStore keeps the most recent entries in a ring buffer. The oldest
// entry is overwritten once capacity is reached.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	lastID  int64
	closed  bool
}

// NewMemoryStore creates a store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{entries: make([]Entry, capacity)}
}

// Record appends e, evicting the oldest entry when full.
func (m *MemoryStore) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.lastID++
	e.ID = m.lastID
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	size := m.len()
	limit = min(max(limit, 0), size)
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}

// Summarize counts entries per outcome recorded at or after since.
func (m *MemoryStore) Summarize(_ context.Context, since time.Time) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	summary := Summary{}
	m.each(func(e Entry) {
		if !e.RecordedAt.Before(since) {
			summary[e.Outcome]++
		}
	})
	return summary, nil
}

// Prune removes entries recorded before the cutoff.
func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	kept := make([]Entry, 0, m.len())
	var removed int64
	m.each(func(e Entry) {
		if e.RecordedAt.Before(before) {
			removed++
			return
		}
		kept = append(kept, e)
	})

	clear(m.entries)
	copy(m.entries, kept)
	m.next = len(kept) % len(m.entries)
	m.full = len(kept) == len(m.entries)
	return removed, nil
}

// Ping reports ErrClosed after Close.
func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close discards all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

func (m *MemoryStore) len() int {
	if m.full {
		return len(m.entries)
	}
	return m.next
}

// each visits entries oldest first.
func (m *MemoryStore) each(fn func(Entry)) {
	size := m.len()
	start := 0
	if m.full {
		start = m.next
	}
	for i := range size {
		fn(m.entries[(start+i)%len(m.entries)])
	}
}
