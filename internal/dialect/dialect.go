// Package dialect abstracts the two supported relational backends (SQLite,
// MySQL) behind a small registry, following the Generator/registry shape
// used for multi-dialect SQL generation in this corpus (smf's
// internal/dialect), narrowed to the concerns the metadata store actually
// needs: opening a pool from a connection target, emitting the bootstrap
// DDL, and reading back an auto-increment id.
package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Name identifies a supported dialect.
type Name string

const (
	SQLite Name = "sqlite"
	MySQL  Name = "mysql"
)

// OpenOptions carries the tuning knobs internal/config resolves before
// Connect opens the pool. A zero value means "use each dialect's own
// hardcoded default".
type OpenOptions struct {
	// BusyTimeout overrides the SQLite busy_timeout pragma (ignored by
	// dialects that have no equivalent knob, e.g. MySQL).
	BusyTimeout time.Duration
}

// Dialect abstracts connection-pool construction and DDL generation for one
// backend. Both supported backends use '?' placeholders, so no placeholder
// rewriting is exposed; a future Postgres dialect would need one, which is
// why the shim exists as an interface rather than an if/else in the store.
type Dialect interface {
	Name() Name

	// Open builds the dialect-specific DSN from target and opens a pool.
	Open(ctx context.Context, target string, opts OpenOptions) (*sql.DB, error)

	// CreateTableStatements returns the ordered CREATE TABLE IF NOT EXISTS /
	// CREATE INDEX IF NOT EXISTS statements for the fifteen persisted tables.
	CreateTableStatements() []string

	// LastInsertID extracts the generated id from an INSERT result.
	LastInsertID(res sql.Result) (int64, error)

	// IsUniqueViolation reports whether err is a unique-constraint failure,
	// used to detect the PUT-type upsert race (spec §4.2, §5).
	IsUniqueViolation(err error) bool
}

var (
	registryMu sync.RWMutex
	registry   = map[Name]func() Dialect{}
)

// Register adds a dialect constructor to the registry. Called from each
// dialect's init().
func Register(name Name, ctor func() Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Get returns a fresh Dialect instance for name.
func Get(name Name) (Dialect, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dialect %q is not registered", name)
	}
	return ctor(), nil
}
