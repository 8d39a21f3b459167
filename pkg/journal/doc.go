// Package journal keeps a local record of delivery outcomes.
//
// The journal stores one row per delivery attempt or dropped payload: the
// endpoint, outcome, status code, size and latency. It never stores payload
// bodies and it is not a retry queue; telemetry that failed to deliver is
// gone either way.
//
// # Backends
//
//   - "sqlite": SQLite through modernc.org/sqlite (pure Go, the default)
//   - "sqlite3": SQLite through github.com/mattn/go-sqlite3 (requires cgo)
//   - "memory": bounded in-memory ring, lost on restart
//
// # Usage
//
//	store, err := journal.Open(journal.Config{Driver: "sqlite", Path: "data/journal.db"})
//	rec := journal.NewRecorder(store, journal.RecorderConfig{}, logger)
//	pub := publisher.New(pcfg, publisher.WithObserver(rec))
//
//	sched := journal.NewScheduler(store, 7*24*time.Hour, "0 * * * *", logger)
//	_ = sched.Start(ctx)
package journal
