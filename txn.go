package mlmd

import (
	"context"
	"database/sql"
)

// runInTransaction acquires a connection, begins a transaction, runs fn, and
// commits on success or rolls back on error or panic, grounded directly on
// the teacher's internal/storage/ephemeral.Store.RunInTransaction.
func (s *MetadataStore) runInTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newErrf(KindIO, "runInTransaction", "begin transaction: %s", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return newErrf(KindIO, "runInTransaction", "commit: %s", err)
	}
	return nil
}
