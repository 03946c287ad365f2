// Package domain defines the core domain models for the chat service.
package domain

import (
	"errors"
	"time"
)

// Sentinel errors handlers branch on.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Chat represents a conversation thread.
//
// MessageCount is the number of turns ever appended to the chat. It is
// bumped on every append and never decremented; sequence numbers are
// derived from it.
type Chat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Active       bool      `json:"active"`
	ModelName    string    `json:"modelName"`
	MessageCount int       `json:"messageCount"`
}

// Message represents a single turn in a chat. Messages are immutable once
// written; they are only removed when the owning chat is deleted.
type Message struct {
	ID             string       `json:"id"`
	ChatID         string       `json:"chatId"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"timestamp"`
	SequenceNumber int          `json:"sequenceNumber"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

// Attachment describes a file attached to a message. DataRef points at the
// stored bytes in the file store; the bytes are removed when the owning
// chat is deleted.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	DataRef     string `json:"dataRef,omitempty"`
}

// PromptRequest is the parsed input of the prompt endpoints.
type PromptRequest struct {
	Model       string
	Prompt      string
	Role        string
	ChatID      string
	Attachments []Upload
}

// Upload is one uploaded file, read into memory by the transport layer.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PromptResult is the response of the non-streaming prompt endpoint.
type PromptResult struct {
	ChatID     string `json:"chatId"`
	Completion string `json:"completion"`
}
