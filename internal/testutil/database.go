package testutil

import (
	"testing"

	"mex-go/internal/database"
	"mex-go/internal/mex"
)

// NewTestRunStore creates an in-memory SQLite run store with the schema
// applied. The store is automatically closed when the test completes.
func NewTestRunStore(t *testing.T) mex.RunStore {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open run store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
