package mlmd

import (
	"github.com/sile/mlmd/internal/storage"
)

// Kind classifies the way a store operation failed (spec §7).
type Kind = storage.Kind

const (
	KindNotFound              = storage.KindNotFound
	KindAlreadyExists         = storage.KindAlreadyExists
	KindTypeConflict          = storage.KindTypeConflict
	KindInvalidArgument       = storage.KindInvalidArgument
	KindSchemaVersionMismatch = storage.KindSchemaVersionMismatch
	KindDataCorruption        = storage.KindDataCorruption
	KindIO                    = storage.KindIO
)

// Error is the type every public store operation returns on failure.
type Error = storage.Error

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool { return storage.Is(err, kind) }

func newErr(kind Kind, op, msg string) error              { return storage.New(kind, op, msg) }
func newErrf(kind Kind, op, f string, a ...interface{}) error { return storage.Newf(kind, op, f, a...) }
func wrapErr(op string, err error) error                  { return storage.Wrap(op, err) }
