package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gao-dev/doclife/internal/types"
)

// newTestStore opens a store backed by a file in t.TempDir(). File-backed
// rather than :memory: so each test gets an isolated database (shared
// in-memory databases are process-wide).
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// testDocument returns a minimal valid document for tests.
func testDocument(path string) *types.Document {
	return &types.Document{
		Path:   path,
		Type:   types.TypePRD,
		Author: "john",
	}
}
