package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func init() {
	Register(SQLite, func() Dialect { return &sqliteDialect{} })
}

type sqliteDialect struct{}

func (sqliteDialect) Name() Name { return SQLite }

// Open builds a SQLite connection string with the pragmas this store
// requires (foreign_keys for referential integrity, busy_timeout to avoid
// spurious "database is locked" errors under concurrent writers) and opens
// a pool restricted to a single connection, the same way the teacher's
// ephemeral store pins MaxOpenConns(1) so every transaction observes its
// own writes without cross-connection lock contention.
func (sqliteDialect) Open(ctx context.Context, target string, opts OpenOptions) (*sql.DB, error) {
	dsn := sqliteDSN(target, opts.BusyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// sqliteDSN appends the store's standard pragmas to path. The busy_timeout
// pragma is resolved with precedence override (from config.SQLite.BusyTimeout)
// > MLMD_LOCK_TIMEOUT env var > a 30s default. If path is already a file:
// URI, pragmas are appended only when absent.
func sqliteDSN(path string, override time.Duration) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = ":memory:"
	}

	busy := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("MLMD_LOCK_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			busy = d
		}
	}
	if override > 0 {
		busy = override
	}
	busyMs := int64(busy / time.Millisecond)

	if strings.HasPrefix(path, "file:") {
		conn := path
		sep := "?"
		if strings.Contains(conn, "?") {
			sep = "&"
		}
		if !strings.Contains(conn, "_pragma=busy_timeout") {
			conn += sep + "_pragma=busy_timeout(" + strconv.FormatInt(busyMs, 10) + ")"
			sep = "&"
		}
		if !strings.Contains(conn, "_pragma=foreign_keys") {
			conn += sep + "_pragma=foreign_keys(ON)"
		}
		return conn
	}

	return fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)", path, busyMs)
}

func (sqliteDialect) CreateTableStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS Type (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type_kind INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			version VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT,
			input_type TEXT,
			output_type TEXT,
			UNIQUE(name, version, type_kind)
		)`,
		`CREATE TABLE IF NOT EXISTS ParentType (
			type_id INTEGER NOT NULL,
			parent_type_id INTEGER NOT NULL,
			PRIMARY KEY (type_id, parent_type_id)
		)`,
		`CREATE TABLE IF NOT EXISTS TypeProperty (
			type_id INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			data_type INTEGER NOT NULL,
			PRIMARY KEY (type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS Artifact (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type_id INTEGER NOT NULL,
			name VARCHAR(255),
			uri TEXT,
			state INTEGER NOT NULL DEFAULT 0,
			create_time_since_epoch BIGINT NOT NULL,
			last_update_time_since_epoch BIGINT NOT NULL,
			UNIQUE(type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ArtifactProperty (
			artifact_id INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_custom_property INTEGER NOT NULL,
			int_value BIGINT,
			double_value DOUBLE,
			string_value TEXT,
			PRIMARY KEY (artifact_id, name, is_custom_property)
		)`,
		`CREATE TABLE IF NOT EXISTS Execution (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type_id INTEGER NOT NULL,
			name VARCHAR(255),
			last_known_state INTEGER NOT NULL DEFAULT 0,
			create_time_since_epoch BIGINT NOT NULL,
			last_update_time_since_epoch BIGINT NOT NULL,
			UNIQUE(type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ExecutionProperty (
			execution_id INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_custom_property INTEGER NOT NULL,
			int_value BIGINT,
			double_value DOUBLE,
			string_value TEXT,
			PRIMARY KEY (execution_id, name, is_custom_property)
		)`,
		`CREATE TABLE IF NOT EXISTS Context (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type_id INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			create_time_since_epoch BIGINT NOT NULL,
			last_update_time_since_epoch BIGINT NOT NULL,
			UNIQUE(type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ContextProperty (
			context_id INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_custom_property INTEGER NOT NULL,
			int_value BIGINT,
			double_value DOUBLE,
			string_value TEXT,
			PRIMARY KEY (context_id, name, is_custom_property)
		)`,
		`CREATE TABLE IF NOT EXISTS ParentContext (
			context_id INTEGER NOT NULL,
			parent_context_id INTEGER NOT NULL,
			PRIMARY KEY (context_id, parent_context_id)
		)`,
		`CREATE TABLE IF NOT EXISTS Event (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artifact_id INTEGER NOT NULL,
			execution_id INTEGER NOT NULL,
			type INTEGER NOT NULL,
			milliseconds_since_epoch BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_artifact ON Event(artifact_id)`,
		`CREATE INDEX IF NOT EXISTS idx_event_execution ON Event(execution_id)`,
		`CREATE TABLE IF NOT EXISTS EventPath (
			event_id INTEGER NOT NULL,
			is_index_step INTEGER NOT NULL,
			step_index INTEGER,
			step_key VARCHAR(255),
			seq INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eventpath_event ON EventPath(event_id, seq)`,
		`CREATE TABLE IF NOT EXISTS Attribution (
			context_id INTEGER NOT NULL,
			artifact_id INTEGER NOT NULL,
			PRIMARY KEY (context_id, artifact_id)
		)`,
		`CREATE TABLE IF NOT EXISTS Association (
			context_id INTEGER NOT NULL,
			execution_id INTEGER NOT NULL,
			PRIMARY KEY (context_id, execution_id)
		)`,
		`CREATE TABLE IF NOT EXISTS MLMDEnv (
			schema_version INTEGER NOT NULL
		)`,
	}
}

func (sqliteDialect) LastInsertID(res sql.Result) (int64, error) {
	return res.LastInsertId()
}

func (sqliteDialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// go-sqlite3 surfaces constraint violations as plain text errors from
	// the wazero-hosted engine rather than a typed driver error; matching
	// on the SQLite error string is the same approach the teacher's
	// isRetryableError/isLockError helpers use for the MySQL driver.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
