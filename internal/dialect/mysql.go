package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func init() {
	Register(MySQL, func() Dialect { return &mysqlDialect{} })
}

type mysqlDialect struct{}

func (mysqlDialect) Name() Name { return MySQL }

// Open connects to the DSN tail following the mysql:// scheme (e.g.
// "user:pass@tcp(host:port)/db" or "user:pass@host:port/db", the latter
// rewritten to the driver's tcp(...) form), mirroring the teacher's
// buildServerDSN + sql.Open("mysql", ...) pattern for its Dolt server mode,
// with parseTime enabled so TIMESTAMP/DATETIME columns scan into time.Time.
func (mysqlDialect) Open(ctx context.Context, target string, opts OpenOptions) (*sql.DB, error) {
	dsn := mysqlDSN(target)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func mysqlDSN(target string) string {
	dsn := target
	if !strings.Contains(dsn, "(") {
		// user:pass@host:port/db -> user:pass@tcp(host:port)/db
		if at := strings.LastIndex(dsn, "@"); at >= 0 {
			cred, rest := dsn[:at+1], dsn[at+1:]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				dsn = cred + "tcp(" + rest[:slash] + ")" + rest[slash:]
			}
		}
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "parseTime=") {
		dsn += sep + "parseTime=true"
	}
	return dsn
}

func (mysqlDialect) CreateTableStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS Type (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			type_kind TINYINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			version VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT,
			input_type TEXT,
			output_type TEXT,
			UNIQUE KEY idx_type_name_version_kind (name, version, type_kind)
		)`,
		`CREATE TABLE IF NOT EXISTS ParentType (
			type_id BIGINT NOT NULL,
			parent_type_id BIGINT NOT NULL,
			PRIMARY KEY (type_id, parent_type_id)
		)`,
		`CREATE TABLE IF NOT EXISTS TypeProperty (
			type_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			data_type TINYINT NOT NULL,
			PRIMARY KEY (type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS Artifact (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			type_id BIGINT NOT NULL,
			name VARCHAR(255),
			uri TEXT,
			state TINYINT NOT NULL DEFAULT 0,
			create_time_since_epoch BIGINT NOT NULL,
			last_update_time_since_epoch BIGINT NOT NULL,
			UNIQUE KEY idx_artifact_type_name (type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ArtifactProperty (
			artifact_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_custom_property TINYINT NOT NULL,
			int_value BIGINT,
			double_value DOUBLE,
			string_value TEXT,
			PRIMARY KEY (artifact_id, name, is_custom_property)
		)`,
		`CREATE TABLE IF NOT EXISTS Execution (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			type_id BIGINT NOT NULL,
			name VARCHAR(255),
			last_known_state TINYINT NOT NULL DEFAULT 0,
			create_time_since_epoch BIGINT NOT NULL,
			last_update_time_since_epoch BIGINT NOT NULL,
			UNIQUE KEY idx_execution_type_name (type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ExecutionProperty (
			execution_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_custom_property TINYINT NOT NULL,
			int_value BIGINT,
			double_value DOUBLE,
			string_value TEXT,
			PRIMARY KEY (execution_id, name, is_custom_property)
		)`,
		`CREATE TABLE IF NOT EXISTS Context (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			type_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			create_time_since_epoch BIGINT NOT NULL,
			last_update_time_since_epoch BIGINT NOT NULL,
			UNIQUE KEY idx_context_type_name (type_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ContextProperty (
			context_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_custom_property TINYINT NOT NULL,
			int_value BIGINT,
			double_value DOUBLE,
			string_value TEXT,
			PRIMARY KEY (context_id, name, is_custom_property)
		)`,
		`CREATE TABLE IF NOT EXISTS ParentContext (
			context_id BIGINT NOT NULL,
			parent_context_id BIGINT NOT NULL,
			PRIMARY KEY (context_id, parent_context_id)
		)`,
		`CREATE TABLE IF NOT EXISTS Event (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			artifact_id BIGINT NOT NULL,
			execution_id BIGINT NOT NULL,
			type TINYINT NOT NULL,
			milliseconds_since_epoch BIGINT,
			KEY idx_event_artifact (artifact_id),
			KEY idx_event_execution (execution_id)
		)`,
		`CREATE TABLE IF NOT EXISTS EventPath (
			event_id BIGINT NOT NULL,
			is_index_step TINYINT NOT NULL,
			step_index BIGINT,
			step_key VARCHAR(255),
			seq INT NOT NULL,
			KEY idx_eventpath_event (event_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS Attribution (
			context_id BIGINT NOT NULL,
			artifact_id BIGINT NOT NULL,
			PRIMARY KEY (context_id, artifact_id)
		)`,
		`CREATE TABLE IF NOT EXISTS Association (
			context_id BIGINT NOT NULL,
			execution_id BIGINT NOT NULL,
			PRIMARY KEY (context_id, execution_id)
		)`,
		`CREATE TABLE IF NOT EXISTS MLMDEnv (
			schema_version INT NOT NULL
		)`,
	}
}

func (mysqlDialect) LastInsertID(res sql.Result) (int64, error) {
	return res.LastInsertId()
}

func (mysqlDialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Error 1062") || strings.Contains(err.Error(), "Duplicate entry")
}
