package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)
)

// SQLiteStore implements Store on SQLite through either registered driver.
type SQLiteStore struct {
	db     *sql.DB
	driver string
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	insertStmt *sql.Stmt
}

// OpenSQLite opens (creating if needed) the journal database at cfg.Path.
func OpenSQLite(cfg Config) (*SQLiteStore, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if cfg.Path == "" {
		return nil, newStorageError(cfg.Driver, "open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newStorageError(cfg.Driver, "mkdir", err)
		}
	}

	db, err := sql.Open(cfg.Driver, dsn(cfg))
	if err != nil {
		return nil, newStorageError(cfg.Driver, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	s := &SQLiteStore{
		db:     db,
		driver: cfg.Driver,
		path:   cfg.Path,
		logger: slog.Default().With("component", "journal.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("journal opened",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// dsn builds a connection string carrying WAL mode and the busy timeout, so
// every pooled connection gets them.
func dsn(cfg Config) string {
	ms := cfg.BusyTimeout.Milliseconds()
	if cfg.Driver == DriverSQLite3 {
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", cfg.Path, ms)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", cfg.Path, ms)
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return newStorageError(s.driver, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError(s.driver, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return newStorageError(s.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return newStorageError(s.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertEntry)
	if err != nil {
		return newStorageError(s.driver, "prepare", err)
	}
	s.insertStmt = stmt
	return nil
}

// Record inserts e.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	var errVal any
	if e.Error != "" {
		errVal = e.Error
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	_, err := s.insertStmt.ExecContext(ctx,
		e.RequestID, e.Endpoint, e.Outcome, e.StatusCode, e.Bytes,
		e.Duration.Milliseconds(), errVal, e.RecordedAt.UnixNano(),
	)
	if err != nil {
		return newStorageError(s.driver, "record", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return []Entry{}, nil
	}

	rows, err := s.db.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, newStorageError(s.driver, "recent", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e          Entry
			durationMS int64
			recordedAt int64
			errText    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Endpoint, &e.Outcome, &e.StatusCode,
			&e.Bytes, &durationMS, &errText, &recordedAt); err != nil {
			return nil, newStorageError(s.driver, "scan", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Error = errText.String
		e.RecordedAt = time.Unix(0, recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(s.driver, "recent", err)
	}
	return entries, nil
}

// Summarize counts entries per outcome recorded at or after since.
func (s *SQLiteStore) Summarize(ctx context.Context, since time.Time) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, selectSummary, since.UnixNano())
	if err != nil {
		return nil, newStorageError(s.driver, "summarize", err)
	}
	defer rows.Close()

	summary := Summary{}
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, newStorageError(s.driver, "scan", err)
		}
		summary[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(s.driver, "summarize", err)
	}
	return summary, nil
}

// Prune deletes entries recorded before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	res, err := s.db.ExecContext(ctx, deleteBefore, before.UnixNano())
	if err != nil {
		return 0, newStorageError(s.driver, "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newStorageError(s.driver, "prune", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return newStorageError(s.driver, "ping", err)
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return newStorageError(s.driver, "close", err)
	}
	s.logger.Debug("journal closed", "path", s.path)
	return nil
}
