package mlmd

import (
	"context"
	"database/sql"
)

// validateDeclaredProperties checks that every name in declared appears in
// typeProps with a matching datatype (spec §4.4 step 3).
func validateDeclaredProperties(op string, typeProps map[string]PropertyDataType, declared map[string]PropertyValue) error {
	for name, v := range declared {
		dt, ok := typeProps[name]
		if !ok {
			return newErrf(KindTypeConflict, op, "property %q is not declared on this type", name)
		}
		if dt != v.DataType() {
			return newErrf(KindTypeConflict, op, "property %q has datatype %d, expected %d", name, v.DataType(), dt)
		}
	}
	return nil
}

func insertPropertiesTx(ctx context.Context, tx *sql.Tx, table, idCol string, id int64, declared, custom map[string]PropertyValue) error {
	insert := `INSERT INTO ` + table + ` (` + idCol + `, name, is_custom_property, int_value, double_value, string_value) VALUES (?, ?, ?, ?, ?, ?)`
	for name, v := range declared {
		e := encodeProperty(v)
		if _, err := tx.ExecContext(ctx, insert, id, name, 0, e.IntValue, e.DoubleValue, e.StringValue); err != nil {
			return err
		}
	}
	for name, v := range custom {
		e := encodeProperty(v)
		if _, err := tx.ExecContext(ctx, insert, id, name, 1, e.IntValue, e.DoubleValue, e.StringValue); err != nil {
			return err
		}
	}
	return nil
}

func loadPropertiesTx(ctx context.Context, tx *sql.Tx, op, table, idCol string, id int64) (declared, custom map[string]PropertyValue, err error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT name, is_custom_property, int_value, double_value, string_value FROM `+table+` WHERE `+idCol+` = ?`, id)
	if err != nil {
		return nil, nil, wrapErr(op, err)
	}
	defer rows.Close()

	declared = make(map[string]PropertyValue)
	custom = make(map[string]PropertyValue)
	for rows.Next() {
		var name string
		var isCustom int
		var e encodedProperty
		if err := rows.Scan(&name, &isCustom, &e.IntValue, &e.DoubleValue, &e.StringValue); err != nil {
			return nil, nil, wrapErr(op, err)
		}
		v, err := decodeProperty(op, e)
		if err != nil {
			return nil, nil, err
		}
		if isCustom == 1 {
			custom[name] = v
		} else {
			declared[name] = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, wrapErr(op, err)
	}
	return declared, custom, nil
}

func replacePropertiesTx(ctx context.Context, tx *sql.Tx, table, idCol string, id int64, declared, custom map[string]PropertyValue) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+idCol+` = ?`, id); err != nil {
		return err
	}
	return insertPropertiesTx(ctx, tx, table, idCol, id, declared, custom)
}

// loadTypePropsTx is the set of declared datatypes for typeID, used to
// validate instance properties.
func loadTypePropsTx(ctx context.Context, tx *sql.Tx, op string, typeID int64, wantKind TypeKind) (map[string]PropertyDataType, error) {
	row := tx.QueryRowContext(ctx, `SELECT type_kind FROM Type WHERE id = ?`, typeID)
	var kind TypeKind
	if err := row.Scan(&kind); err != nil {
		if err == sql.ErrNoRows {
			return nil, newErr(KindNotFound, op, "type not found")
		}
		return nil, wrapErr(op, err)
	}
	if kind != wantKind {
		return nil, newErrf(KindTypeConflict, op, "type %d is not kind %d", typeID, wantKind)
	}

	rows, err := tx.QueryContext(ctx, `SELECT name, data_type FROM TypeProperty WHERE type_id = ?`, typeID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()
	props := make(map[string]PropertyDataType)
	for rows.Next() {
		var name string
		var dt PropertyDataType
		if err := rows.Scan(&name, &dt); err != nil {
			return nil, wrapErr(op, err)
		}
		props[name] = dt
	}
	return props, rows.Err()
}

// ---- Artifact ----

// PostArtifactOptions are the inputs to creating a new artifact (spec §4.4).
type PostArtifactOptions struct {
	TypeID           int64
	Name             string
	URI              string
	State            ArtifactState
	Properties       map[string]PropertyValue
	CustomProperties map[string]PropertyValue
}

func (s *MetadataStore) PostArtifact(ctx context.Context, opts PostArtifactOptions) (id int64, err error) {
	err = s.withSpan(ctx, "post_artifact", func(ctx context.Context) error {
		const op = "post_artifact"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			typeProps, err := loadTypePropsTx(ctx, tx, op, opts.TypeID, ArtifactTypeKind)
			if err != nil {
				return err
			}
			if err := validateDeclaredProperties(op, typeProps, opts.Properties); err != nil {
				return err
			}
			now := nowMillis(s.clock)
			res, err := tx.ExecContext(ctx,
				`INSERT INTO Artifact (type_id, name, uri, state, create_time_since_epoch, last_update_time_since_epoch) VALUES (?, ?, ?, ?, ?, ?)`,
				opts.TypeID, nullableString(opts.Name), nullableString(opts.URI), opts.State, now, now)
			if err != nil {
				if s.dialect.IsUniqueViolation(err) {
					return newErrf(KindAlreadyExists, op, "artifact %q already exists for this type", opts.Name)
				}
				return err
			}
			gotID, err := res.LastInsertId()
			if err != nil {
				return wrapErr(op, err)
			}
			if err := insertPropertiesTx(ctx, tx, "ArtifactProperty", "artifact_id", gotID, opts.Properties, opts.CustomProperties); err != nil {
				return err
			}
			id = gotID
			return nil
		})
	})
	return id, err
}

// ArtifactPatch updates an existing artifact (spec §4.4). A nil Properties /
// CustomProperties map means "no change"; a non-nil map (possibly empty)
// fully replaces that property set.
type ArtifactPatch struct {
	Name             *string
	URI              *string
	State            *ArtifactState
	Properties       map[string]PropertyValue
	CustomProperties map[string]PropertyValue
}

func (s *MetadataStore) PutArtifact(ctx context.Context, id int64, patch ArtifactPatch) (err error) {
	return s.withSpan(ctx, "put_artifact", func(ctx context.Context) error {
		const op = "put_artifact"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			var typeID int64
			row := tx.QueryRowContext(ctx, `SELECT type_id FROM Artifact WHERE id = ?`, id)
			if err := row.Scan(&typeID); err != nil {
				if err == sql.ErrNoRows {
					return newErr(KindNotFound, op, "artifact not found")
				}
				return wrapErr(op, err)
			}

			sets := []string{"last_update_time_since_epoch = ?"}
			args := []interface{}{nowMillis(s.clock)}
			if patch.Name != nil {
				sets = append(sets, "name = ?")
				args = append(args, nullableString(*patch.Name))
			}
			if patch.URI != nil {
				sets = append(sets, "uri = ?")
				args = append(args, nullableString(*patch.URI))
			}
			if patch.State != nil {
				sets = append(sets, "state = ?")
				args = append(args, *patch.State)
			}
			args = append(args, id)
			if _, err := tx.ExecContext(ctx, "UPDATE Artifact SET "+joinSet(sets)+" WHERE id = ?", args...); err != nil {
				return err
			}

			if patch.Properties != nil || patch.CustomProperties != nil {
				typeProps, err := loadTypePropsTx(ctx, tx, op, typeID, ArtifactTypeKind)
				if err != nil {
					return err
				}
				if patch.Properties != nil {
					if err := validateDeclaredProperties(op, typeProps, patch.Properties); err != nil {
						return err
					}
					if err := deletePropertiesTx(ctx, tx, "ArtifactProperty", "artifact_id", id, 0); err != nil {
						return err
					}
					if err := insertPropertiesTx(ctx, tx, "ArtifactProperty", "artifact_id", id, patch.Properties, nil); err != nil {
						return err
					}
				}
				if patch.CustomProperties != nil {
					if err := deletePropertiesTx(ctx, tx, "ArtifactProperty", "artifact_id", id, 1); err != nil {
						return err
					}
					if err := insertPropertiesTx(ctx, tx, "ArtifactProperty", "artifact_id", id, nil, patch.CustomProperties); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
}

func deletePropertiesTx(ctx context.Context, tx *sql.Tx, table, idCol string, id int64, isCustom int) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+idCol+` = ? AND is_custom_property = ?`, id, isCustom)
	return err
}

func (s *MetadataStore) GetArtifactByID(ctx context.Context, id int64) (a *Artifact, err error) {
	err = s.withSpan(ctx, "get_artifact_by_id", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := scanArtifactTx(ctx, tx, id)
			if err != nil {
				return err
			}
			a = got
			return nil
		})
	})
	return a, err
}

func scanArtifactTx(ctx context.Context, tx *sql.Tx, id int64) (*Artifact, error) {
	const op = "get_artifact"
	row := tx.QueryRowContext(ctx,
		`SELECT type_id, name, uri, state, create_time_since_epoch, last_update_time_since_epoch FROM Artifact WHERE id = ?`, id)
	a := &Artifact{ID: id}
	var name, uri sql.NullString
	if err := row.Scan(&a.TypeID, &name, &uri, &a.State, &a.CreateTimeSinceEpoch, &a.LastUpdateTimeSinceEpoch); err != nil {
		if err == sql.ErrNoRows {
			return nil, newErr(KindNotFound, op, "artifact not found")
		}
		return nil, wrapErr(op, err)
	}
	a.Name = name.String
	a.URI = uri.String

	declared, custom, err := loadPropertiesTx(ctx, tx, op, "ArtifactProperty", "artifact_id", id)
	if err != nil {
		return nil, err
	}
	a.Properties = declared
	a.CustomProperties = custom
	return a, nil
}

// ---- Execution ----

type PostExecutionOptions struct {
	TypeID           int64
	Name             string
	LastKnownState   ExecutionState
	Properties       map[string]PropertyValue
	CustomProperties map[string]PropertyValue
}

func (s *MetadataStore) PostExecution(ctx context.Context, opts PostExecutionOptions) (id int64, err error) {
	err = s.withSpan(ctx, "post_execution", func(ctx context.Context) error {
		const op = "post_execution"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			typeProps, err := loadTypePropsTx(ctx, tx, op, opts.TypeID, ExecutionTypeKind)
			if err != nil {
				return err
			}
			if err := validateDeclaredProperties(op, typeProps, opts.Properties); err != nil {
				return err
			}
			now := nowMillis(s.clock)
			res, err := tx.ExecContext(ctx,
				`INSERT INTO Execution (type_id, name, last_known_state, create_time_since_epoch, last_update_time_since_epoch) VALUES (?, ?, ?, ?, ?)`,
				opts.TypeID, nullableString(opts.Name), opts.LastKnownState, now, now)
			if err != nil {
				if s.dialect.IsUniqueViolation(err) {
					return newErrf(KindAlreadyExists, op, "execution %q already exists for this type", opts.Name)
				}
				return err
			}
			gotID, err := res.LastInsertId()
			if err != nil {
				return wrapErr(op, err)
			}
			if err := insertPropertiesTx(ctx, tx, "ExecutionProperty", "execution_id", gotID, opts.Properties, opts.CustomProperties); err != nil {
				return err
			}
			id = gotID
			return nil
		})
	})
	return id, err
}

type ExecutionPatch struct {
	Name             *string
	LastKnownState   *ExecutionState
	Properties       map[string]PropertyValue
	CustomProperties map[string]PropertyValue
}

func (s *MetadataStore) PutExecution(ctx context.Context, id int64, patch ExecutionPatch) (err error) {
	return s.withSpan(ctx, "put_execution", func(ctx context.Context) error {
		const op = "put_execution"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			var typeID int64
			row := tx.QueryRowContext(ctx, `SELECT type_id FROM Execution WHERE id = ?`, id)
			if err := row.Scan(&typeID); err != nil {
				if err == sql.ErrNoRows {
					return newErr(KindNotFound, op, "execution not found")
				}
				return wrapErr(op, err)
			}

			sets := []string{"last_update_time_since_epoch = ?"}
			args := []interface{}{nowMillis(s.clock)}
			if patch.Name != nil {
				sets = append(sets, "name = ?")
				args = append(args, nullableString(*patch.Name))
			}
			if patch.LastKnownState != nil {
				sets = append(sets, "last_known_state = ?")
				args = append(args, *patch.LastKnownState)
			}
			args = append(args, id)
			if _, err := tx.ExecContext(ctx, "UPDATE Execution SET "+joinSet(sets)+" WHERE id = ?", args...); err != nil {
				return err
			}

			if patch.Properties != nil || patch.CustomProperties != nil {
				typeProps, err := loadTypePropsTx(ctx, tx, op, typeID, ExecutionTypeKind)
				if err != nil {
					return err
				}
				if patch.Properties != nil {
					if err := validateDeclaredProperties(op, typeProps, patch.Properties); err != nil {
						return err
					}
					if err := deletePropertiesTx(ctx, tx, "ExecutionProperty", "execution_id", id, 0); err != nil {
						return err
					}
					if err := insertPropertiesTx(ctx, tx, "ExecutionProperty", "execution_id", id, patch.Properties, nil); err != nil {
						return err
					}
				}
				if patch.CustomProperties != nil {
					if err := deletePropertiesTx(ctx, tx, "ExecutionProperty", "execution_id", id, 1); err != nil {
						return err
					}
					if err := insertPropertiesTx(ctx, tx, "ExecutionProperty", "execution_id", id, nil, patch.CustomProperties); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
}

func (s *MetadataStore) GetExecutionByID(ctx context.Context, id int64) (e *Execution, err error) {
	err = s.withSpan(ctx, "get_execution_by_id", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := scanExecutionTx(ctx, tx, id)
			if err != nil {
				return err
			}
			e = got
			return nil
		})
	})
	return e, err
}

func scanExecutionTx(ctx context.Context, tx *sql.Tx, id int64) (*Execution, error) {
	const op = "get_execution"
	row := tx.QueryRowContext(ctx,
		`SELECT type_id, name, last_known_state, create_time_since_epoch, last_update_time_since_epoch FROM Execution WHERE id = ?`, id)
	e := &Execution{ID: id}
	var name sql.NullString
	if err := row.Scan(&e.TypeID, &name, &e.LastKnownState, &e.CreateTimeSinceEpoch, &e.LastUpdateTimeSinceEpoch); err != nil {
		if err == sql.ErrNoRows {
			return nil, newErr(KindNotFound, op, "execution not found")
		}
		return nil, wrapErr(op, err)
	}
	e.Name = name.String

	declared, custom, err := loadPropertiesTx(ctx, tx, op, "ExecutionProperty", "execution_id", id)
	if err != nil {
		return nil, err
	}
	e.Properties = declared
	e.CustomProperties = custom
	return e, nil
}

// ---- Context ----

type PostContextOptions struct {
	TypeID           int64
	Name             string // required
	Properties       map[string]PropertyValue
	CustomProperties map[string]PropertyValue
}

func (s *MetadataStore) PostContext(ctx context.Context, opts PostContextOptions) (id int64, err error) {
	err = s.withSpan(ctx, "post_context", func(ctx context.Context) error {
		const op = "post_context"
		if opts.Name == "" {
			return newErr(KindInvalidArgument, op, "context name is required")
		}
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			typeProps, err := loadTypePropsTx(ctx, tx, op, opts.TypeID, ContextTypeKind)
			if err != nil {
				return err
			}
			if err := validateDeclaredProperties(op, typeProps, opts.Properties); err != nil {
				return err
			}
			now := nowMillis(s.clock)
			res, err := tx.ExecContext(ctx,
				`INSERT INTO Context (type_id, name, create_time_since_epoch, last_update_time_since_epoch) VALUES (?, ?, ?, ?)`,
				opts.TypeID, opts.Name, now, now)
			if err != nil {
				if s.dialect.IsUniqueViolation(err) {
					return newErrf(KindAlreadyExists, op, "context %q already exists for this type", opts.Name)
				}
				return err
			}
			gotID, err := res.LastInsertId()
			if err != nil {
				return wrapErr(op, err)
			}
			if err := insertPropertiesTx(ctx, tx, "ContextProperty", "context_id", gotID, opts.Properties, opts.CustomProperties); err != nil {
				return err
			}
			id = gotID
			return nil
		})
	})
	return id, err
}

type ContextPatch struct {
	Name             *string
	Properties       map[string]PropertyValue
	CustomProperties map[string]PropertyValue
}

func (s *MetadataStore) PutContext(ctx context.Context, id int64, patch ContextPatch) (err error) {
	return s.withSpan(ctx, "put_context", func(ctx context.Context) error {
		const op = "put_context"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			var typeID int64
			row := tx.QueryRowContext(ctx, `SELECT type_id FROM Context WHERE id = ?`, id)
			if err := row.Scan(&typeID); err != nil {
				if err == sql.ErrNoRows {
					return newErr(KindNotFound, op, "context not found")
				}
				return wrapErr(op, err)
			}

			sets := []string{"last_update_time_since_epoch = ?"}
			args := []interface{}{nowMillis(s.clock)}
			if patch.Name != nil {
				if *patch.Name == "" {
					return newErr(KindInvalidArgument, op, "context name is required")
				}
				sets = append(sets, "name = ?")
				args = append(args, *patch.Name)
			}
			args = append(args, id)
			if _, err := tx.ExecContext(ctx, "UPDATE Context SET "+joinSet(sets)+" WHERE id = ?", args...); err != nil {
				return err
			}

			if patch.Properties != nil || patch.CustomProperties != nil {
				typeProps, err := loadTypePropsTx(ctx, tx, op, typeID, ContextTypeKind)
				if err != nil {
					return err
				}
				if patch.Properties != nil {
					if err := validateDeclaredProperties(op, typeProps, patch.Properties); err != nil {
						return err
					}
					if err := deletePropertiesTx(ctx, tx, "ContextProperty", "context_id", id, 0); err != nil {
						return err
					}
					if err := insertPropertiesTx(ctx, tx, "ContextProperty", "context_id", id, patch.Properties, nil); err != nil {
						return err
					}
				}
				if patch.CustomProperties != nil {
					if err := deletePropertiesTx(ctx, tx, "ContextProperty", "context_id", id, 1); err != nil {
						return err
					}
					if err := insertPropertiesTx(ctx, tx, "ContextProperty", "context_id", id, nil, patch.CustomProperties); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
}

func (s *MetadataStore) GetContextByID(ctx context.Context, id int64) (c *Context, err error) {
	err = s.withSpan(ctx, "get_context_by_id", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := scanContextTx(ctx, tx, id)
			if err != nil {
				return err
			}
			c = got
			return nil
		})
	})
	return c, err
}

func scanContextTx(ctx context.Context, tx *sql.Tx, id int64) (*Context, error) {
	const op = "get_context"
	row := tx.QueryRowContext(ctx,
		`SELECT type_id, name, create_time_since_epoch, last_update_time_since_epoch FROM Context WHERE id = ?`, id)
	c := &Context{ID: id}
	if err := row.Scan(&c.TypeID, &c.Name, &c.CreateTimeSinceEpoch, &c.LastUpdateTimeSinceEpoch); err != nil {
		if err == sql.ErrNoRows {
			return nil, newErr(KindNotFound, op, "context not found")
		}
		return nil, wrapErr(op, err)
	}

	declared, custom, err := loadPropertiesTx(ctx, tx, op, "ContextProperty", "context_id", id)
	if err != nil {
		return nil, err
	}
	c.Properties = declared
	c.CustomProperties = custom
	return c, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func joinSet(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
