// Package helpers provides shared test fixtures.
package helpers

import (
	"path/filepath"
	"testing"

	"github.com/xiaot623/chatd/store"
)

// NewTestSQLiteStore creates a throwaway file-backed store. A file rather
// than :memory: so that the connection pool sees one database.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	s, err := store.NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
