package llm

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Mock is a scripted Backend for tests. It emits Script increments in
// order and can be told to fail before the first increment or after any
// number of them.
type Mock struct {
	// Script holds the increments emitted by ChatStream; Chat returns
	// their concatenation.
	Script []string

	// Err, when set, is returned after FailAfter increments have been
	// emitted. FailAfter zero fails before the first increment.
	Err       error
	FailAfter int

	// Delay paces increments, for cancellation tests.
	Delay time.Duration

	mu       sync.Mutex
	requests []*ChatRequest
}

// Ensure Mock implements Backend.
var _ Backend = (*Mock)(nil)

// LastRequest returns the most recent request seen, or nil.
func (m *Mock) LastRequest() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *Mock) record(req *ChatRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// Chat returns the full scripted completion.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	m.record(req)
	if m.Err != nil && m.FailAfter == 0 {
		return "", m.Err
	}
	return strings.Join(m.Script, ""), nil
}

// ChatStream emits the script through the callback.
func (m *Mock) ChatStream(ctx context.Context, req *ChatRequest, callback StreamCallback) error {
	m.record(req)

	if m.Err != nil && m.FailAfter == 0 {
		return m.Err
	}

	for i, chunk := range m.Script {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if m.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.Delay):
			}
		}
		if err := callback(chunk); err != nil {
			return err
		}
		if m.Err != nil && i+1 == m.FailAfter {
			return m.Err
		}
	}
	return nil
}

// ListModels returns a fixed model list.
func (m *Mock) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{Name: "mock-model"}}, nil
}
