package chat

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xiaot623/chatd/config"
	"github.com/xiaot623/chatd/filestore"
	"github.com/xiaot623/chatd/llm"
	"github.com/xiaot623/chatd/store"
	"github.com/xiaot623/chatd/tests/helpers"
)

func newTestService(t *testing.T, backend llm.Backend) (*Service, store.Store) {
	t.Helper()

	st := helpers.NewTestSQLiteStore(t)
	fs, err := filestore.New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	cfg := &config.Config{
		DefaultModel:  "llama3.2:3b",
		HistoryWindow: 4,
		LLMTimeout:    time.Minute,
		StreamTimeout: 5 * time.Minute,
		ExportDir:     filepath.Join(t.TempDir(), "exports"),
	}
	return New(st, fs, backend, cfg), st
}
