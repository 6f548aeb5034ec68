package mlmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sile/mlmd/internal/debug"
)

// PutType implements the PUT-type upsert (spec §4.2). Concurrent identical
// calls from this process are coalesced with singleflight before a
// transaction is even opened; the cross-process race (another process
// winning the unique-constraint insert) is handled by a single retry after a
// short backoff pause, grounded on the teacher's dolt package's use of
// backoff.Retry around transient server-mode errors.
func (s *MetadataStore) PutType(ctx context.Context, opts PutTypeOptions) (id int64, err error) {
	err = s.withSpan(ctx, "put_type", func(ctx context.Context) error {
		key := fmt.Sprintf("%d|%s|%s", opts.Kind, opts.Name, opts.Version)
		v, putErr, _ := s.typeUpsertGroup.Do(key, func() (interface{}, error) {
			return s.putTypeWithRetry(ctx, opts)
		})
		if putErr != nil {
			return putErr
		}
		id = v.(int64)
		return nil
	})
	return id, err
}

func (s *MetadataStore) putTypeWithRetry(ctx context.Context, opts PutTypeOptions) (int64, error) {
	const op = "put_type"
	if opts.Name == "" {
		return 0, newErr(KindInvalidArgument, op, "type name must not be empty")
	}

	var id int64
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		got, err := putTypeTx(ctx, tx, opts)
		if err != nil {
			return err
		}
		id = got
		return nil
	})
	if err == nil {
		return id, nil
	}
	if !s.dialect.IsUniqueViolation(err) {
		return 0, err
	}

	debug.Logf("mlmd: put_type unique-constraint race on %s/%s, retrying once\n", opts.Name, opts.Version)
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.retryMaxElapsed
	time.Sleep(bo.NextBackOff())

	err = s.runInTransaction(ctx, func(tx *sql.Tx) error {
		got, err := putTypeTx(ctx, tx, opts)
		if err != nil {
			return err
		}
		id = got
		return nil
	})
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return id, nil
}

func putTypeTx(ctx context.Context, tx *sql.Tx, opts PutTypeOptions) (int64, error) {
	const op = "put_type"

	existing, err := findTypeTx(ctx, tx, opts.Kind, opts.Name, opts.Version)
	if err != nil && !IsKind(err, KindNotFound) {
		return 0, err
	}

	if existing == nil {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO Type (type_kind, name, version, description) VALUES (?, ?, ?, ?)`,
			opts.Kind, opts.Name, opts.Version, opts.Description)
		if err != nil {
			return 0, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, wrapErr(op, err)
		}
		for name, dt := range opts.Properties {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO TypeProperty (type_id, name, data_type) VALUES (?, ?, ?)`,
				id, name, dt); err != nil {
				return 0, err
			}
		}
		for _, parentID := range opts.ParentTypeIDs {
			if parentID == id {
				return 0, newErr(KindInvalidArgument, op, "type cannot be its own parent")
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ParentType (type_id, parent_type_id) VALUES (?, ?)`, id, parentID); err != nil {
				return 0, err
			}
		}
		return id, nil
	}

	id := existing.ID
	removed := make([]string, 0)
	added := make(map[string]PropertyDataType)
	for name, existingDT := range existing.Properties {
		if newDT, ok := opts.Properties[name]; ok {
			if newDT != existingDT {
				return 0, newErrf(KindTypeConflict, op,
					"property %q datatype changed from %d to %d", name, existingDT, newDT)
			}
		} else {
			removed = append(removed, name)
		}
	}
	for name, dt := range opts.Properties {
		if _, ok := existing.Properties[name]; !ok {
			added[name] = dt
		}
	}

	if len(removed) > 0 && !opts.CanOmitFields {
		return 0, newErrf(KindTypeConflict, op, "type %q is missing declared properties %v", opts.Name, removed)
	}
	if len(added) > 0 && !opts.CanAddFields {
		names := make([]string, 0, len(added))
		for name := range added {
			names = append(names, name)
		}
		return 0, newErrf(KindTypeConflict, op, "type %q has undeclared new properties %v", opts.Name, names)
	}
	for name, dt := range added {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO TypeProperty (type_id, name, data_type) VALUES (?, ?, ?)`, id, name, dt); err != nil {
			return 0, err
		}
	}

	if opts.Description != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE Type SET description = ? WHERE id = ?`, opts.Description, id); err != nil {
			return 0, err
		}
	}
	if opts.ParentTypeIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ParentType WHERE type_id = ?`, id); err != nil {
			return 0, err
		}
		for _, parentID := range opts.ParentTypeIDs {
			if parentID == id {
				return 0, newErr(KindInvalidArgument, op, "type cannot be its own parent")
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ParentType (type_id, parent_type_id) VALUES (?, ?)`, id, parentID); err != nil {
				return 0, err
			}
		}
	}

	return id, nil
}

// findTypeTx looks up a type by (kind, name, version) and loads its
// properties and parent-type ids. Returns a KindNotFound error if absent.
func findTypeTx(ctx context.Context, tx *sql.Tx, kind TypeKind, name, version string) (*Type, error) {
	const op = "find_type"
	row := tx.QueryRowContext(ctx,
		`SELECT id, description FROM Type WHERE type_kind = ? AND name = ? AND version = ?`,
		kind, name, version)

	t := &Type{Kind: kind, Name: name, Version: version}
	var desc sql.NullString
	if err := row.Scan(&t.ID, &desc); err != nil {
		if err == sql.ErrNoRows {
			return nil, newErr(KindNotFound, op, "type not found")
		}
		return nil, wrapErr(op, err)
	}
	t.Description = desc.String

	if err := loadTypeDetailsTx(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func loadTypeDetailsTx(ctx context.Context, tx *sql.Tx, t *Type) error {
	const op = "load_type"
	rows, err := tx.QueryContext(ctx, `SELECT name, data_type FROM TypeProperty WHERE type_id = ?`, t.ID)
	if err != nil {
		return wrapErr(op, err)
	}
	props := make(map[string]PropertyDataType)
	for rows.Next() {
		var name string
		var dt PropertyDataType
		if err := rows.Scan(&name, &dt); err != nil {
			rows.Close()
			return wrapErr(op, err)
		}
		props[name] = dt
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return wrapErr(op, err)
	}
	rows.Close()
	t.Properties = props

	rows, err = tx.QueryContext(ctx, `SELECT parent_type_id FROM ParentType WHERE type_id = ?`, t.ID)
	if err != nil {
		return wrapErr(op, err)
	}
	var parents []int64
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return wrapErr(op, err)
		}
		parents = append(parents, pid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return wrapErr(op, err)
	}
	rows.Close()
	t.ParentTypeIDs = parents
	return nil
}

// GetTypeByID returns the type with id, or KindNotFound.
func (s *MetadataStore) GetTypeByID(ctx context.Context, id int64) (t *Type, err error) {
	err = s.withSpan(ctx, "get_type_by_id", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			const op = "get_type_by_id"
			row := tx.QueryRowContext(ctx, `SELECT type_kind, name, version, description FROM Type WHERE id = ?`, id)
			got := &Type{ID: id}
			var version, desc sql.NullString
			if err := row.Scan(&got.Kind, &got.Name, &version, &desc); err != nil {
				if err == sql.ErrNoRows {
					return newErr(KindNotFound, op, "type not found")
				}
				return wrapErr(op, err)
			}
			got.Version = version.String
			got.Description = desc.String
			if err := loadTypeDetailsTx(ctx, tx, got); err != nil {
				return err
			}
			t = got
			return nil
		})
	})
	return t, err
}

// GetTypeByNameVersion returns the type matching (kind, name, version), or KindNotFound.
func (s *MetadataStore) GetTypeByNameVersion(ctx context.Context, kind TypeKind, name, version string) (t *Type, err error) {
	err = s.withSpan(ctx, "get_type_by_name_version", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := findTypeTx(ctx, tx, kind, name, version)
			if err != nil {
				return err
			}
			t = got
			return nil
		})
	})
	return t, err
}

// GetTypesByKind lists all types of the given kind.
func (s *MetadataStore) GetTypesByKind(ctx context.Context, kind TypeKind) (types []*Type, err error) {
	err = s.withSpan(ctx, "get_types_by_kind", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			const op = "get_types_by_kind"
			rows, err := tx.QueryContext(ctx,
				`SELECT id, name, version, description FROM Type WHERE type_kind = ? ORDER BY id ASC`, kind)
			if err != nil {
				return wrapErr(op, err)
			}
			defer rows.Close()

			var ids []int64
			byID := make(map[int64]*Type)
			for rows.Next() {
				var version, desc sql.NullString
				t := &Type{Kind: kind}
				if err := rows.Scan(&t.ID, &t.Name, &version, &desc); err != nil {
					return wrapErr(op, err)
				}
				t.Version = version.String
				t.Description = desc.String
				ids = append(ids, t.ID)
				byID[t.ID] = t
			}
			if err := rows.Err(); err != nil {
				return wrapErr(op, err)
			}

			for _, id := range ids {
				if err := loadTypeDetailsTx(ctx, tx, byID[id]); err != nil {
					return err
				}
				types = append(types, byID[id])
			}
			return nil
		})
	})
	return types, err
}
