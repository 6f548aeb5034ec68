package mlmd

import (
	"context"
	"database/sql"
)

// PutEventOptions are the inputs to recording a lineage event (spec §4.5).
// MillisecondsSinceEpoch of zero means "use the store's clock".
type PutEventOptions struct {
	ExecutionID            int64
	ArtifactID              int64
	Type                    EventType
	Path                    []PathStep
	MillisecondsSinceEpoch  int64
}

// PutEvent validates both referenced ids exist, inserts the event, and
// inserts its path steps in the supplied order. Events are append-only: the
// same (execution, artifact) pair may appear in any number of events (spec §4.5).
func (s *MetadataStore) PutEvent(ctx context.Context, opts PutEventOptions) (id int64, err error) {
	err = s.withSpan(ctx, "put_event", func(ctx context.Context) error {
		const op = "put_event"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			if !existsTx(ctx, tx, "Artifact", opts.ArtifactID) {
				return newErrf(KindNotFound, op, "artifact %d not found", opts.ArtifactID)
			}
			if !existsTx(ctx, tx, "Execution", opts.ExecutionID) {
				return newErrf(KindNotFound, op, "execution %d not found", opts.ExecutionID)
			}

			ts := opts.MillisecondsSinceEpoch
			if ts == 0 {
				ts = nowMillis(s.clock)
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO Event (artifact_id, execution_id, type, milliseconds_since_epoch) VALUES (?, ?, ?, ?)`,
				opts.ArtifactID, opts.ExecutionID, opts.Type, ts)
			if err != nil {
				return err
			}
			gotID, err := res.LastInsertId()
			if err != nil {
				return wrapErr(op, err)
			}
			for seq, step := range opts.Path {
				isIndex := 0
				if step.IsIndex {
					isIndex = 1
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO EventPath (event_id, is_index_step, step_index, step_key, seq) VALUES (?, ?, ?, ?, ?)`,
					gotID, isIndex, step.Index, nullableString(step.Key), seq); err != nil {
					return err
				}
			}
			id = gotID
			return nil
		})
	})
	return id, err
}

func existsTx(ctx context.Context, tx *sql.Tx, table string, id int64) bool {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	return err == nil
}

// PutAttribution links an artifact into a context. Duplicate (context,
// artifact) pairs are a no-op success (spec §4.5 idempotence).
func (s *MetadataStore) PutAttribution(ctx context.Context, contextID, artifactID int64) error {
	return s.withSpan(ctx, "put_attribution", func(ctx context.Context) error {
		const op = "put_attribution"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			if !existsTx(ctx, tx, "Context", contextID) {
				return newErrf(KindNotFound, op, "context %d not found", contextID)
			}
			if !existsTx(ctx, tx, "Artifact", artifactID) {
				return newErrf(KindNotFound, op, "artifact %d not found", artifactID)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO Attribution (context_id, artifact_id) VALUES (?, ?)`, contextID, artifactID)
			if err != nil {
				if s.dialect.IsUniqueViolation(err) {
					return nil
				}
				return err
			}
			return nil
		})
	})
}

// PutAssociation links an execution into a context. Duplicate (context,
// execution) pairs are a no-op success.
func (s *MetadataStore) PutAssociation(ctx context.Context, contextID, executionID int64) error {
	return s.withSpan(ctx, "put_association", func(ctx context.Context) error {
		const op = "put_association"
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			if !existsTx(ctx, tx, "Context", contextID) {
				return newErrf(KindNotFound, op, "context %d not found", contextID)
			}
			if !existsTx(ctx, tx, "Execution", executionID) {
				return newErrf(KindNotFound, op, "execution %d not found", executionID)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO Association (context_id, execution_id) VALUES (?, ?)`, contextID, executionID)
			if err != nil {
				if s.dialect.IsUniqueViolation(err) {
					return nil
				}
				return err
			}
			return nil
		})
	})
}

// PutParentContext links contextID under parentContextID. A self-loop is
// invalid-argument; a duplicate link is already-exists (spec §4.5 — unlike
// attribution/association, parent-context duplicates are NOT idempotent).
func (s *MetadataStore) PutParentContext(ctx context.Context, contextID, parentContextID int64) error {
	return s.withSpan(ctx, "put_parent_context", func(ctx context.Context) error {
		const op = "put_parent_context"
		if contextID == parentContextID {
			return newErr(KindInvalidArgument, op, "context cannot be its own parent")
		}
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			if !existsTx(ctx, tx, "Context", contextID) {
				return newErrf(KindNotFound, op, "context %d not found", contextID)
			}
			if !existsTx(ctx, tx, "Context", parentContextID) {
				return newErrf(KindNotFound, op, "context %d not found", parentContextID)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO ParentContext (context_id, parent_context_id) VALUES (?, ?)`, contextID, parentContextID)
			if err != nil {
				if s.dialect.IsUniqueViolation(err) {
					return newErr(KindAlreadyExists, op, "parent context link already exists")
				}
				return err
			}
			return nil
		})
	})
}

func scanEventsTx(ctx context.Context, tx *sql.Tx, op, whereCol string, id int64) ([]*Event, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, artifact_id, execution_id, type, milliseconds_since_epoch FROM Event WHERE `+whereCol+` = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var events []*Event
	var ids []int64
	byID := make(map[int64]*Event)
	for rows.Next() {
		e := &Event{}
		var ts sql.NullInt64
		if err := rows.Scan(&e.ID, &e.ArtifactID, &e.ExecutionID, &e.Type, &ts); err != nil {
			return nil, wrapErr(op, err)
		}
		e.MillisecondsSinceEpoch = ts.Int64
		events = append(events, e)
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}

	for _, id := range ids {
		path, err := loadEventPathTx(ctx, tx, op, id)
		if err != nil {
			return nil, err
		}
		byID[id].Path = path
	}
	return events, nil
}

func loadEventPathTx(ctx context.Context, tx *sql.Tx, op string, eventID int64) ([]PathStep, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT is_index_step, step_index, step_key FROM EventPath WHERE event_id = ? ORDER BY seq ASC`, eventID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var steps []PathStep
	for rows.Next() {
		var isIndex int
		var index sql.NullInt64
		var key sql.NullString
		if err := rows.Scan(&isIndex, &index, &key); err != nil {
			return nil, wrapErr(op, err)
		}
		steps = append(steps, PathStep{IsIndex: isIndex == 1, Index: index.Int64, Key: key.String})
	}
	return steps, rows.Err()
}

// GetEventsByArtifact returns events for artifactID ordered by event id ascending.
func (s *MetadataStore) GetEventsByArtifact(ctx context.Context, artifactID int64) (events []*Event, err error) {
	err = s.withSpan(ctx, "get_events_by_artifact", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := scanEventsTx(ctx, tx, "get_events_by_artifact", "artifact_id", artifactID)
			if err != nil {
				return err
			}
			events = got
			return nil
		})
	})
	return events, err
}

// GetEventsByExecution returns events for executionID ordered by event id ascending.
func (s *MetadataStore) GetEventsByExecution(ctx context.Context, executionID int64) (events []*Event, err error) {
	err = s.withSpan(ctx, "get_events_by_execution", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := scanEventsTx(ctx, tx, "get_events_by_execution", "execution_id", executionID)
			if err != nil {
				return err
			}
			events = got
			return nil
		})
	})
	return events, err
}

// GetExecutionsByArtifact joins through Event to find executions that
// consumed or produced artifactID.
func (s *MetadataStore) GetExecutionsByArtifact(ctx context.Context, artifactID int64) (executions []*Execution, err error) {
	err = s.withSpan(ctx, "get_executions_by_artifact", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx,
				`SELECT DISTINCT execution_id FROM Event WHERE artifact_id = ? ORDER BY execution_id ASC`, artifactID)
			if err != nil {
				return wrapErr("get_executions_by_artifact", err)
			}
			var ids []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return wrapErr("get_executions_by_artifact", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			for _, id := range ids {
				e, err := scanExecutionTx(ctx, tx, id)
				if err != nil {
					return err
				}
				executions = append(executions, e)
			}
			return nil
		})
	})
	return executions, err
}

// GetContextsByArtifact joins through Attribution.
func (s *MetadataStore) GetContextsByArtifact(ctx context.Context, artifactID int64) (contexts []*Context, err error) {
	err = s.withSpan(ctx, "get_contexts_by_artifact", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := scanRelatedContextsTx(ctx, tx, "Attribution", "artifact_id", artifactID)
			if err != nil {
				return err
			}
			contexts = got
			return nil
		})
	})
	return contexts, err
}

// GetContextsByExecution joins through Association.
func (s *MetadataStore) GetContextsByExecution(ctx context.Context, executionID int64) (contexts []*Context, err error) {
	err = s.withSpan(ctx, "get_contexts_by_execution", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			got, err := scanRelatedContextsTx(ctx, tx, "Association", "execution_id", executionID)
			if err != nil {
				return err
			}
			contexts = got
			return nil
		})
	})
	return contexts, err
}

func scanRelatedContextsTx(ctx context.Context, tx *sql.Tx, joinTable, joinCol string, id int64) ([]*Context, error) {
	const op = "get_related_contexts"
	rows, err := tx.QueryContext(ctx,
		`SELECT context_id FROM `+joinTable+` WHERE `+joinCol+` = ? ORDER BY context_id ASC`, id)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	var ids []int64
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return nil, wrapErr(op, err)
		}
		ids = append(ids, cid)
	}
	rows.Close()

	var contexts []*Context
	for _, cid := range ids {
		c, err := scanContextTx(ctx, tx, cid)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, c)
	}
	return contexts, nil
}

// GetArtifactsByContext joins through Attribution.
func (s *MetadataStore) GetArtifactsByContext(ctx context.Context, contextID int64) (artifacts []*Artifact, err error) {
	err = s.withSpan(ctx, "get_artifacts_by_context", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx,
				`SELECT artifact_id FROM Attribution WHERE context_id = ? ORDER BY artifact_id ASC`, contextID)
			if err != nil {
				return wrapErr("get_artifacts_by_context", err)
			}
			var ids []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return wrapErr("get_artifacts_by_context", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			for _, id := range ids {
				a, err := scanArtifactTx(ctx, tx, id)
				if err != nil {
					return err
				}
				artifacts = append(artifacts, a)
			}
			return nil
		})
	})
	return artifacts, err
}

// GetExecutionsByContext joins through Association.
func (s *MetadataStore) GetExecutionsByContext(ctx context.Context, contextID int64) (executions []*Execution, err error) {
	err = s.withSpan(ctx, "get_executions_by_context", func(ctx context.Context) error {
		return s.runInTransaction(ctx, func(tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx,
				`SELECT execution_id FROM Association WHERE context_id = ? ORDER BY execution_id ASC`, contextID)
			if err != nil {
				return wrapErr("get_executions_by_context", err)
			}
			var ids []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return wrapErr("get_executions_by_context", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			for _, id := range ids {
				e, err := scanExecutionTx(ctx, tx, id)
				if err != nil {
					return err
				}
				executions = append(executions, e)
			}
			return nil
		})
	})
	return executions, err
}
