// Package schema bootstraps the fifteen-table persisted schema and reconciles
// the single-row MLMDEnv version marker, following the teacher's
// internal/storage/ephemeral package's "one const schema string, run it with
// CREATE TABLE IF NOT EXISTS" approach, generalized to run the dialect's own
// statement list instead of a single literal string.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sile/mlmd/internal/dialect"
)

// Version is the only schema version this implementation understands.
// Non-goals per the source spec: no migration from older versions.
const Version = 6

// Bootstrap creates all tables if absent and reconciles MLMDEnv.schema_version.
// Returns a schema-version-mismatch error (via the storage error classification
// layered on top by the caller) when an existing environment row disagrees.
func Bootstrap(ctx context.Context, db *sql.DB, d dialect.Dialect) error {
	for _, stmt := range d.CreateTableStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return reconcileEnv(ctx, db)
}

func reconcileEnv(ctx context.Context, db *sql.DB) error {
	row := db.QueryRowContext(ctx, "SELECT schema_version FROM MLMDEnv LIMIT 1")
	var version int
	switch err := row.Scan(&version); err {
	case sql.ErrNoRows:
		_, err := db.ExecContext(ctx, "INSERT INTO MLMDEnv (schema_version) VALUES (?)", Version)
		if err != nil {
			return fmt.Errorf("insert MLMDEnv: %w", err)
		}
		return nil
	case nil:
		if version != Version {
			return &MismatchError{Found: version, Want: Version}
		}
		return nil
	default:
		return fmt.Errorf("read MLMDEnv: %w", err)
	}
}

// MismatchError reports that the persisted schema version does not match
// Version. The root mlmd package classifies this as KindSchemaVersionMismatch.
type MismatchError struct {
	Found int
	Want  int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("schema version mismatch: found %d, want %d", e.Found, e.Want)
}
