// Package chat implements the conversation pipeline: session resolution,
// history assembly, model invocation, streaming, and persistence.
package chat

import (
	"context"

	"github.com/xiaot623/chatd/config"
	"github.com/xiaot623/chatd/filestore"
	"github.com/xiaot623/chatd/llm"
	"github.com/xiaot623/chatd/store"
)

// Service coordinates the store, the file store, and the model backend.
// One instance is shared by all requests; per-request state (accumulators,
// correlation ids) lives on the stack of the request that owns it.
type Service struct {
	store   store.Store
	files   *filestore.FileStore
	backend llm.Backend
	config  *config.Config
}

// New creates the chat service.
func New(store store.Store, files *filestore.FileStore, backend llm.Backend, cfg *config.Config) *Service {
	return &Service{
		store:   store,
		files:   files,
		backend: backend,
		config:  cfg,
	}
}

// Models lists the models available on the backend.
func (s *Service) Models(ctx context.Context) ([]llm.ModelInfo, error) {
	return s.backend.ListModels(ctx)
}
