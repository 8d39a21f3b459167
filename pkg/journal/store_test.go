package journal

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// openStores returns every backend that can run in this environment.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	stores := map[string]Store{
		DriverMemory: NewMemoryStore(100),
	}

	s, err := OpenSQLite(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "journal.db")})
	if err != nil {
		t.Fatalf("OpenSQLite(sqlite): %v", err)
	}
	stores[DriverSQLite] = s

	// The mattn driver needs cgo; without it Open fails at schema creation.
	s3, err := OpenSQLite(Config{Driver: DriverSQLite3, Path: filepath.Join(t.TempDir(), "journal3.db")})
	if err == nil {
		stores[DriverSQLite3] = s3
	} else if !strings.Contains(err.Error(), "cgo") {
		t.Fatalf("OpenSQLite(sqlite3): %v", err)
	}

	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_RecordAndRecent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			entries := []Entry{
				{RequestID: "r1", Endpoint: "https://a.example", Outcome: "accepted", StatusCode: 200, Bytes: 512, Duration: 40 * time.Millisecond, RecordedAt: base},
				{RequestID: "r2", Endpoint: "https://b.example", Outcome: "rejected", StatusCode: 400, Bytes: 256, Duration: 30 * time.Millisecond, RecordedAt: base.Add(time.Second)},
				{RequestID: "r3", Endpoint: "https://c.example", Outcome: "failed", Error: "context deadline exceeded", Duration: 2 * time.Second, RecordedAt: base.Add(2 * time.Second)},
			}
			for _, e := range entries {
				if err := store.Record(ctx, e); err != nil {
					t.Fatalf("Record: %v", err)
				}
			}

			got, err := store.Recent(ctx, 2)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("Recent returned %d entries, want 2", len(got))
			}
			if got[0].RequestID != "r3" || got[1].RequestID != "r2" {
				t.Errorf("Recent order = %s, %s; want r3, r2", got[0].RequestID, got[1].RequestID)
			}

			newest := got[0]
			if newest.ID == 0 {
				t.Error("expected an assigned id")
			}
			if newest.Outcome != "failed" || newest.Error != "context deadline exceeded" {
				t.Errorf("newest = %+v", newest)
			}
			if newest.Duration != 2*time.Second {
				t.Errorf("Duration = %v, want 2s", newest.Duration)
			}
			if !newest.RecordedAt.Equal(base.Add(2 * time.Second)) {
				t.Errorf("RecordedAt = %v", newest.RecordedAt)
			}

			all, err := store.Recent(ctx, 10)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("Recent(10) returned %d entries, want 3", len(all))
			}
			if none, _ := store.Recent(ctx, 0); len(none) != 0 {
				t.Errorf("Recent(0) returned %d entries", len(none))
			}
		})
	}
}

func TestStore_SummarizeAndPrune(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, outcome := range []string{"accepted", "accepted", "rejected", OutcomeDropped, "accepted"} {
				e := Entry{Outcome: outcome, RecordedAt: base.Add(time.Duration(i) * time.Hour)}
				if err := store.Record(ctx, e); err != nil {
					t.Fatalf("Record: %v", err)
				}
			}

			summary, err := store.Summarize(ctx, base.Add(time.Hour))
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			want := Summary{"accepted": 2, "rejected": 1, OutcomeDropped: 1}
			for k, v := range want {
				if summary[k] != v {
					t.Errorf("summary[%s] = %d, want %d", k, summary[k], v)
				}
			}

			deleted, err := store.Prune(ctx, base.Add(2*time.Hour))
			if err != nil {
				t.Fatalf("Prune: %v", err)
			}
			if deleted != 2 {
				t.Errorf("Prune deleted %d, want 2", deleted)
			}

			rest, err := store.Recent(ctx, 10)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(rest) != 3 {
				t.Fatalf("after prune %d entries, want 3", len(rest))
			}
			if rest[2].Outcome != "rejected" {
				t.Errorf("oldest remaining = %q, want rejected", rest[2].Outcome)
			}

			// Recording after a prune keeps newest-first ordering.
			if err := store.Record(ctx, Entry{Outcome: "failed", RecordedAt: base.Add(10 * time.Hour)}); err != nil {
				t.Fatalf("Record: %v", err)
			}
			latest, _ := store.Recent(ctx, 1)
			if len(latest) != 1 || latest[0].Outcome != "failed" {
				t.Errorf("latest = %+v", latest)
			}
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Errorf("second Close: %v", err)
			}

			if err := store.Record(ctx, Entry{Outcome: "accepted"}); !errors.Is(err, ErrClosed) {
				t.Errorf("Record after Close = %v, want ErrClosed", err)
			}
			if _, err := store.Recent(ctx, 1); !errors.Is(err, ErrClosed) {
				t.Errorf("Recent after Close = %v, want ErrClosed", err)
			}
			if err := store.Ping(ctx); !errors.Is(err, ErrClosed) {
				t.Errorf("Ping after Close = %v, want ErrClosed", err)
			}
		})
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		if err := store.Record(ctx, Entry{RequestID: string(rune('a' + i)), Outcome: "accepted", RecordedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var ids []string
	for _, e := range got {
		ids = append(ids, e.RequestID)
	}
	if strings.Join(ids, "") != "edc" {
		t.Errorf("Recent ids = %v, want [e d c]", ids)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Driver: DriverMemory}, false},
		{"default sqlite", Config{Path: filepath.Join(t.TempDir(), "nested", "j.db")}, false},
		{"sqlite missing path", Config{Driver: DriverSQLite}, true},
		{"unknown driver", Config{Driver: "postgres"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					store.Close()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer store.Close()
			if err := store.Ping(context.Background()); err != nil {
				t.Errorf("Ping: %v", err)
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := newStorageError(DriverSQLite, "record", cause)

	if !errors.Is(err, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "operation=record") {
		t.Errorf("Error() = %q", err.Error())
	}
}
