package journal

import (
	"errors"
	"fmt"
	"time"
)

// Driver names accepted by Open.
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
	DriverMemory  = "memory"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("journal closed")

// Config selects and tunes a journal backend.
type Config struct {
	Driver         string
	Path           string
	MaxOpenConns   int
	BusyTimeout    time.Duration
	MemoryCapacity int
}

// Open returns the store for cfg.Driver. An empty driver selects "sqlite".
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite, DriverSQLite3:
		return OpenSQLite(cfg)
	case DriverMemory:
		return NewMemoryStore(cfg.MemoryCapacity), nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
