// Package llm provides the client for the Ollama model backend.
package llm

import "context"

// ChatMessage is one role-tagged message sent to the backend. Images carry
// base64-encoded attachment payloads of the current turn.
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ChatRequest is the input of a chat call.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// StreamCallback is called for each text increment of a streaming response.
// Returning an error aborts the stream.
type StreamCallback func(chunk string) error

// ModelInfo describes an available model.
type ModelInfo struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

// Backend is the opaque model backend: a full completion, or a lazy finite
// sequence of text increments delivered through the callback. A streaming
// call may fail before the first increment or between increments; text
// already delivered stays with the caller either way.
type Backend interface {
	Chat(ctx context.Context, req *ChatRequest) (string, error)
	ChatStream(ctx context.Context, req *ChatRequest, callback StreamCallback) error
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
