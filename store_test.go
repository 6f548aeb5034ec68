package mlmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestStore opens a fresh SQLite-backed MetadataStore in a temp dir,
// closing it automatically at test cleanup.
func newTestStore(t *testing.T) *MetadataStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mlmd.db")
	store, err := Connect(context.Background(), "sqlite://"+path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}
