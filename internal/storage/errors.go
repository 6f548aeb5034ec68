package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// Kind classifies a store error per the error surface every public
// operation returns. It intentionally never leaks a raw database error
// beyond this classification (spec §6.3, §7).
type Kind int

const (
	// KindNone is the zero value; never returned from a failed operation.
	KindNone Kind = iota
	KindNotFound
	KindAlreadyExists
	KindTypeConflict
	KindInvalidArgument
	KindSchemaVersionMismatch
	KindDataCorruption
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindAlreadyExists:
		return "already-exists"
	case KindTypeConflict:
		return "type-conflict"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindSchemaVersionMismatch:
		return "schema-version-mismatch"
	case KindDataCorruption:
		return "data-corruption"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the error type every public store operation returns on failure.
// It carries a classification plus a human message but never a raw driver
// error value (wrapErr folds database/sql errors into one of the kinds).
type Error struct {
	Kind    Kind
	Op      string
	Message string
	err     error // wrapped cause, for errors.Is/errors.As chains only
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New constructs a classified store error.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf constructs a classified store error with a formatted message.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying driver/runtime error, converting
// sql.ErrNoRows to KindNotFound the way the teacher's wrapDBError does, and
// falling back to KindIO for anything else unclassified.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Op: op, Message: "not found", err: err}
	}
	return &Error{Kind: KindIO, Op: op, Message: err.Error(), err: err}
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
