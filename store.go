// Package mlmd is a typed, transactional metadata store client library for
// recording ML pipeline artifacts, executions, contexts, and the lineage
// events between them, over either a SQLite file or a MySQL-compatible
// server.
package mlmd

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/sile/mlmd/internal/clock"
	"github.com/sile/mlmd/internal/config"
	"github.com/sile/mlmd/internal/debug"
	"github.com/sile/mlmd/internal/dialect"
	"github.com/sile/mlmd/internal/schema"
	"github.com/sile/mlmd/internal/storage"
)

// MetadataStore is the single handle object the library surface exposes
// (spec §6.2). All public methods run inside one transaction each and return
// a classified Error on failure.
type MetadataStore struct {
	db      *sql.DB
	dialect dialect.Dialect
	clock   Clock

	retryMaxElapsed time.Duration

	typeUpsertGroup singleflight.Group

	tracer trace.Tracer
	meter  metric.Meter
	ops    otelInstruments
}

// Option customizes Connect.
type Option func(*options)

type options struct {
	clock      Clock
	configPath string
}

// WithClock overrides the default wall-clock time source.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithConfigFile points Connect at an optional YAML tuning file (see
// internal/config for recognized keys). Absent by default.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configPath = path }
}

// Connect opens the dialect-specific pool for uri, bootstraps the schema if
// needed, and returns a ready MetadataStore. uri must start with "sqlite://"
// or "mysql://" (spec §6.1); any other scheme is invalid-argument.
func Connect(ctx context.Context, uri string, opts ...Option) (*MetadataStore, error) {
	const op = "Connect"

	o := options{clock: clock.System{}}
	for _, apply := range opts {
		apply(&o)
	}

	parsed, ok := storage.ParseURI(uri)
	if !ok {
		return nil, newErrf(KindInvalidArgument, op, "unrecognized connection URI scheme: %q", uri)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	d, err := dialect.Get(dialect.Name(parsed.Dialect))
	if err != nil {
		return nil, newErrf(KindInvalidArgument, op, "%s", err)
	}

	db, err := d.Open(ctx, parsed.Target, dialect.OpenOptions{BusyTimeout: cfg.SQLite.BusyTimeout})
	if err != nil {
		return nil, newErrf(KindIO, op, "%s", err)
	}
	db.SetMaxOpenConns(cfg.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	if d.Name() == dialect.SQLite {
		// The sqlite dialect pins a single connection (see dialect/sqlite.go)
		// so read-your-writes holds without per-transaction locking games,
		// mirroring the teacher's ephemeral store.
		db.SetMaxOpenConns(1)
	}

	debug.Logf("mlmd: bootstrapping schema for dialect %s\n", d.Name())
	if err := schema.Bootstrap(ctx, db, d); err != nil {
		_ = db.Close()
		var mismatch *schema.MismatchError
		if asMismatch(err, &mismatch) {
			return nil, newErrf(KindSchemaVersionMismatch, op, "%s", mismatch)
		}
		return nil, newErrf(KindIO, op, "%s", err)
	}

	s := &MetadataStore{
		db:              db,
		dialect:         d,
		clock:           o.clock,
		retryMaxElapsed: cfg.Retry.MaxElapsed,
		tracer:          otel.Tracer("github.com/sile/mlmd"),
		meter:           otel.Meter("github.com/sile/mlmd"),
	}
	s.ops = newOtelInstruments(s.meter)
	return s, nil
}

// Close releases the underlying connection pool.
func (s *MetadataStore) Close() error {
	return s.db.Close()
}

func asMismatch(err error, target **schema.MismatchError) bool {
	m, ok := err.(*schema.MismatchError)
	if ok {
		*target = m
	}
	return ok
}
