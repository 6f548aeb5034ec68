package storage

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindNotFound, "not-found"},
		{KindAlreadyExists, "already-exists"},
		{KindTypeConflict, "type-conflict"},
		{KindInvalidArgument, "invalid-argument"},
		{KindSchemaVersionMismatch, "schema-version-mismatch"},
		{KindDataCorruption, "data-corruption"},
		{KindIO, "io"},
		{KindNone, "unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.kind.String())
	}
}

func TestNewAndError(t *testing.T) {
	err := New(KindNotFound, "get_artifact", "no such artifact")
	assert.Equal(t, "get_artifact: not-found: no such artifact", err.Error())
}

func TestNewfFormats(t *testing.T) {
	err := Newf(KindTypeConflict, "put_type", "property %q changed from %d to %d", "rows", 1, 2)
	assert.Equal(t, `put_type: type-conflict: property "rows" changed from 1 to 2`, err.Error())
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap("op", nil))
}

func TestWrapClassifiedErrorPassesThrough(t *testing.T) {
	original := New(KindAlreadyExists, "post_context", "dup")
	got := Wrap("post_context", original)
	assert.Same(t, original, got)
}

func TestWrapNoRowsBecomesNotFound(t *testing.T) {
	got := Wrap("get_type", sql.ErrNoRows)
	assert.True(t, Is(got, KindNotFound))
}

func TestWrapUnclassifiedBecomesIO(t *testing.T) {
	got := Wrap("open", errors.New("disk full"))
	assert.True(t, Is(got, KindIO))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("boom"), KindIO))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap("op", cause)
	var se *Error
	ok := errors.As(err, &se)
	assert.True(t, ok)
	assert.ErrorIs(t, se, cause)
}
