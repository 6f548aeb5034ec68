package mlmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// listFilter is the set of recognized filter options shared by every list
// query (spec §4.6), assembled as an accumulated slice of WHERE clauses plus
// parallel args, the same style as the teacher's GetReadyWork in
// internal/storage/sqlite/ready.go, rather than a generic AST query builder.
type listFilter struct {
	ids            []int64
	typeName       string
	name           string
	contextID      *int64
	artifactID     *int64
	executionID    *int64
	createSince    *int64
	createUntil    *int64
	updateSince    *int64
	updateUntil    *int64
	limit          int
	offset         int
	orderBy        string
	desc           bool
}

func (f *listFilter) emptyIDs() bool { return f.ids != nil && len(f.ids) == 0 }

// ArtifactQuery builds a filtered, paged list query over artifacts.
type ArtifactQuery struct {
	store *MetadataStore
	kind  TypeKind
	f     listFilter
}

// ArtifactQuery starts a query over artifacts.
func (s *MetadataStore) ArtifactQuery() *ArtifactQuery {
	return &ArtifactQuery{store: s, kind: ArtifactTypeKind, f: listFilter{orderBy: "id"}}
}

func (q *ArtifactQuery) WithIDs(ids []int64) *ArtifactQuery          { q.f.ids = ids; return q }
func (q *ArtifactQuery) WithTypeName(name string) *ArtifactQuery      { q.f.typeName = name; return q }
func (q *ArtifactQuery) WithName(name string) *ArtifactQuery          { q.f.name = name; return q }
func (q *ArtifactQuery) WithContextID(id int64) *ArtifactQuery        { q.f.contextID = &id; return q }
func (q *ArtifactQuery) WithExecutionID(id int64) *ArtifactQuery      { q.f.executionID = &id; return q }
func (q *ArtifactQuery) WithCreateTimeRange(since, until int64) *ArtifactQuery {
	q.f.createSince, q.f.createUntil = &since, &until
	return q
}
func (q *ArtifactQuery) WithUpdateTimeRange(since, until int64) *ArtifactQuery {
	q.f.updateSince, q.f.updateUntil = &since, &until
	return q
}
func (q *ArtifactQuery) WithLimit(n int) *ArtifactQuery  { q.f.limit = n; return q }
func (q *ArtifactQuery) WithOffset(n int) *ArtifactQuery { q.f.offset = n; return q }
func (q *ArtifactQuery) WithOrderBy(field string, desc bool) *ArtifactQuery {
	q.f.orderBy, q.f.desc = field, desc
	return q
}

func (q *ArtifactQuery) Execute(ctx context.Context) (artifacts []*Artifact, err error) {
	err = q.store.withSpan(ctx, "query_artifacts", func(ctx context.Context) error {
		if q.f.emptyIDs() {
			return nil
		}
		return q.store.runInTransaction(ctx, func(tx *sql.Tx) error {
			var joins []relatedJoin
			if q.f.contextID != nil {
				joins = append(joins, relatedJoin{"Attribution", "artifact_id", "context_id", *q.f.contextID})
			}
			if q.f.executionID != nil {
				joins = append(joins, relatedJoin{"Event", "artifact_id", "execution_id", *q.f.executionID})
			}
			sqlText, args := buildListQuery("Artifact", q.f, joins...)
			rows, err := tx.QueryContext(ctx, sqlText, args...)
			if err != nil {
				return wrapErr("query_artifacts", err)
			}
			var ids []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return wrapErr("query_artifacts", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return wrapErr("query_artifacts", err)
			}
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

// ExecutionQuery builds a filtered, paged list query over executions.
type ExecutionQuery struct {
	store *MetadataStore
	f     listFilter
}

func (s *MetadataStore) ExecutionQuery() *ExecutionQuery {
	return &ExecutionQuery{store: s, f: listFilter{orderBy: "id"}}
}

func (q *ExecutionQuery) WithIDs(ids []int64) *ExecutionQuery     { q.f.ids = ids; return q }
func (q *ExecutionQuery) WithTypeName(name string) *ExecutionQuery { q.f.typeName = name; return q }
func (q *ExecutionQuery) WithName(name string) *ExecutionQuery     { q.f.name = name; return q }
func (q *ExecutionQuery) WithContextID(id int64) *ExecutionQuery   { q.f.contextID = &id; return q }
func (q *ExecutionQuery) WithArtifactID(id int64) *ExecutionQuery  { q.f.artifactID = &id; return q }
func (q *ExecutionQuery) WithCreateTimeRange(since, until int64) *ExecutionQuery {
	q.f.createSince, q.f.createUntil = &since, &until
	return q
}
func (q *ExecutionQuery) WithUpdateTimeRange(since, until int64) *ExecutionQuery {
	q.f.updateSince, q.f.updateUntil = &since, &until
	return q
}
func (q *ExecutionQuery) WithLimit(n int) *ExecutionQuery  { q.f.limit = n; return q }
func (q *ExecutionQuery) WithOffset(n int) *ExecutionQuery { q.f.offset = n; return q }
func (q *ExecutionQuery) WithOrderBy(field string, desc bool) *ExecutionQuery {
	q.f.orderBy, q.f.desc = field, desc
	return q
}

func (q *ExecutionQuery) Execute(ctx context.Context) (executions []*Execution, err error) {
	err = q.store.withSpan(ctx, "query_executions", func(ctx context.Context) error {
		if q.f.emptyIDs() {
			return nil
		}
		return q.store.runInTransaction(ctx, func(tx *sql.Tx) error {
			var joins []relatedJoin
			if q.f.contextID != nil {
				joins = append(joins, relatedJoin{"Association", "execution_id", "context_id", *q.f.contextID})
			}
			if q.f.artifactID != nil {
				joins = append(joins, relatedJoin{"Event", "execution_id", "artifact_id", *q.f.artifactID})
			}
			sqlText, args := buildListQuery("Execution", q.f, joins...)
			rows, err := tx.QueryContext(ctx, sqlText, args...)
			if err != nil {
				return wrapErr("query_executions", err)
			}
			var ids []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return wrapErr("query_executions", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return wrapErr("query_executions", err)
			}
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

// ContextQuery builds a filtered, paged list query over contexts.
type ContextQuery struct {
	store *MetadataStore
	f     listFilter
}

func (s *MetadataStore) ContextQuery() *ContextQuery {
	return &ContextQuery{store: s, f: listFilter{orderBy: "id"}}
}

func (q *ContextQuery) WithIDs(ids []int64) *ContextQuery      { q.f.ids = ids; return q }
func (q *ContextQuery) WithTypeName(name string) *ContextQuery { q.f.typeName = name; return q }
func (q *ContextQuery) WithName(name string) *ContextQuery     { q.f.name = name; return q }
func (q *ContextQuery) WithArtifactID(id int64) *ContextQuery  { q.f.artifactID = &id; return q }
func (q *ContextQuery) WithExecutionID(id int64) *ContextQuery { q.f.executionID = &id; return q }
func (q *ContextQuery) WithCreateTimeRange(since, until int64) *ContextQuery {
	q.f.createSince, q.f.createUntil = &since, &until
	return q
}
func (q *ContextQuery) WithUpdateTimeRange(since, until int64) *ContextQuery {
	q.f.updateSince, q.f.updateUntil = &since, &until
	return q
}
func (q *ContextQuery) WithLimit(n int) *ContextQuery  { q.f.limit = n; return q }
func (q *ContextQuery) WithOffset(n int) *ContextQuery { q.f.offset = n; return q }
func (q *ContextQuery) WithOrderBy(field string, desc bool) *ContextQuery {
	q.f.orderBy, q.f.desc = field, desc
	return q
}

func (q *ContextQuery) Execute(ctx context.Context) (contexts []*Context, err error) {
	err = q.store.withSpan(ctx, "query_contexts", func(ctx context.Context) error {
		if q.f.emptyIDs() {
			return nil
		}
		return q.store.runInTransaction(ctx, func(tx *sql.Tx) error {
			var joins []relatedJoin
			if q.f.artifactID != nil {
				joins = append(joins, relatedJoin{"Attribution", "context_id", "artifact_id", *q.f.artifactID})
			}
			if q.f.executionID != nil {
				joins = append(joins, relatedJoin{"Association", "context_id", "execution_id", *q.f.executionID})
			}
			sqlText, args := buildListQuery("Context", q.f, joins...)
			rows, err := tx.QueryContext(ctx, sqlText, args...)
			if err != nil {
				return wrapErr("query_contexts", err)
			}
			var ids []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return wrapErr("query_contexts", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return wrapErr("query_contexts", err)
			}
			for _, id := range ids {
				c, err := scanContextTx(ctx, tx, id)
				if err != nil {
					return err
				}
				contexts = append(contexts, c)
			}
			return nil
		})
	})
	return contexts, err
}

// TypeQuery builds a filtered list query over types of one kind.
type TypeQuery struct {
	store *MetadataStore
	kind  TypeKind
	ids   []int64
	limit int
}

func (s *MetadataStore) TypeQuery(kind TypeKind) *TypeQuery {
	return &TypeQuery{store: s, kind: kind}
}

func (q *TypeQuery) WithIDs(ids []int64) *TypeQuery { q.ids = ids; return q }
func (q *TypeQuery) WithLimit(n int) *TypeQuery      { q.limit = n; return q }

func (q *TypeQuery) Execute(ctx context.Context) (types []*Type, err error) {
	err = q.store.withSpan(ctx, "query_types", func(ctx context.Context) error {
		if q.ids != nil && len(q.ids) == 0 {
			return nil
		}
		return q.store.runInTransaction(ctx, func(tx *sql.Tx) error {
			clauses := []string{"type_kind = ?"}
			args := []interface{}{q.kind}
			if len(q.ids) > 0 {
				placeholders := make([]string, len(q.ids))
				for i, id := range q.ids {
					placeholders[i] = "?"
					args = append(args, id)
				}
				clauses = append(clauses, "id IN ("+strings.Join(placeholders, ",")+")")
			}
			sqlText := "SELECT id FROM Type WHERE " + strings.Join(clauses, " AND ") + " ORDER BY id ASC"
			if q.limit > 0 {
				sqlText += fmt.Sprintf(" LIMIT %d", q.limit)
			}
			rows, err := tx.QueryContext(ctx, sqlText, args...)
			if err != nil {
				return wrapErr("query_types", err)
			}
			var ids []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return wrapErr("query_types", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			for _, id := range ids {
				t, err := findTypeByIDTx(ctx, tx, q.kind, id)
				if err != nil {
					return err
				}
				types = append(types, t)
			}
			return nil
		})
	})
	return types, err
}

func findTypeByIDTx(ctx context.Context, tx *sql.Tx, kind TypeKind, id int64) (*Type, error) {
	const op = "query_types"
	row := tx.QueryRowContext(ctx, `SELECT name, version, description FROM Type WHERE id = ?`, id)
	t := &Type{ID: id, Kind: kind}
	var version, desc sql.NullString
	if err := row.Scan(&t.Name, &version, &desc); err != nil {
		return nil, wrapErr(op, err)
	}
	t.Version = version.String
	t.Description = desc.String
	if err := loadTypeDetailsTx(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// EventQuery lists events related to an artifact or an execution, always
// ordered by event id ascending (spec §4.6 default order).
type EventQuery struct {
	store       *MetadataStore
	artifactID  *int64
	executionID *int64
}

func (s *MetadataStore) EventQuery() *EventQuery { return &EventQuery{store: s} }

func (q *EventQuery) WithArtifactID(id int64) *EventQuery  { q.artifactID = &id; return q }
func (q *EventQuery) WithExecutionID(id int64) *EventQuery { q.executionID = &id; return q }

func (q *EventQuery) Execute(ctx context.Context) (events []*Event, err error) {
	err = q.store.withSpan(ctx, "query_events", func(ctx context.Context) error {
		return q.store.runInTransaction(ctx, func(tx *sql.Tx) error {
			switch {
			case q.artifactID != nil:
				got, err := scanEventsTx(ctx, tx, "query_events", "artifact_id", *q.artifactID)
				if err != nil {
					return err
				}
				events = got
			case q.executionID != nil:
				got, err := scanEventsTx(ctx, tx, "query_events", "execution_id", *q.executionID)
				if err != nil {
					return err
				}
				events = got
			}
			return nil
		})
	})
	return events, err
}

// relatedJoin names one EXISTS-subquery join against a relationship table:
// "this row's id matches MatchCol, and OtherCol equals Value".
type relatedJoin struct {
	Table    string
	MatchCol string
	OtherCol string
	Value    int64
}

// buildListQuery assembles "SELECT id FROM <table> WHERE ... ORDER BY ... LIMIT ... OFFSET ...",
// joining through zero or more relationship tables via EXISTS subqueries, the
// same accumulated-clauses-plus-args style as the teacher's GetReadyWork in
// internal/storage/sqlite/ready.go, rather than a generic AST query builder.
func buildListQuery(table string, f listFilter, joins ...relatedJoin) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	if len(f.ids) > 0 {
		placeholders := make([]string, len(f.ids))
		for i, id := range f.ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, table+".id IN ("+strings.Join(placeholders, ",")+")")
	}
	if f.typeName != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM Type WHERE Type.id = "+table+".type_id AND Type.name = ?)")
		args = append(args, f.typeName)
	}
	if f.name != "" {
		clauses = append(clauses, table+".name = ?")
		args = append(args, f.name)
	}
	if f.createSince != nil {
		clauses = append(clauses, table+".create_time_since_epoch >= ?")
		args = append(args, *f.createSince)
	}
	if f.createUntil != nil {
		clauses = append(clauses, table+".create_time_since_epoch < ?")
		args = append(args, *f.createUntil)
	}
	if f.updateSince != nil {
		clauses = append(clauses, table+".last_update_time_since_epoch >= ?")
		args = append(args, *f.updateSince)
	}
	if f.updateUntil != nil {
		clauses = append(clauses, table+".last_update_time_since_epoch < ?")
		args = append(args, *f.updateUntil)
	}
	for _, j := range joins {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.id AND %s.%s = ?)",
			j.Table, j.Table, j.MatchCol, table, j.Table, j.OtherCol))
		args = append(args, j.Value)
	}

	sqlText := "SELECT " + table + ".id FROM " + table
	if len(clauses) > 0 {
		sqlText += " WHERE " + strings.Join(clauses, " AND ")
	}

	orderCol := "id"
	switch f.orderBy {
	case "create_time":
		orderCol = "create_time_since_epoch"
	case "update_time":
		orderCol = "last_update_time_since_epoch"
	}
	dir := "ASC"
	if f.desc {
		dir = "DESC"
	}
	sqlText += fmt.Sprintf(" ORDER BY %s.%s %s, %s.id ASC", table, orderCol, dir, table)

	if f.limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", f.limit)
		if f.offset > 0 {
			sqlText += fmt.Sprintf(" OFFSET %d", f.offset)
		}
	}
	return sqlText, args
}
