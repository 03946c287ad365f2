package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaot623/chatd/domain"
	"github.com/xiaot623/chatd/llm"
)

// EmitFunc delivers one stream event to the client. A non-nil return means
// the client can no longer be reached and aborts the stream.
type EmitFunc func(domain.StreamEvent) error

// StreamPrompt runs one conversation turn end to end, relaying model
// increments through emit as they arrive.
//
// The user turn is persisted before the model is invoked. Every increment
// is appended to a request-owned accumulator and forwarded in arrival
// order. Whatever the stream's fate — completion, backend error, the
// stream timeout, or client disconnect via ctx — the accumulated text is
// persisted as the assistant turn, except when the backend failed before
// producing anything. On error or cancellation exactly one error event is
// emitted; a successful stream just ends.
//
// Failures after the transport has started streaming are reported as error
// events, not returned: the returned error is reserved for emit failures
// surfaced by the transport itself.
func (s *Service) StreamPrompt(ctx context.Context, req *domain.PromptRequest, emit EmitFunc) error {
	correlationID := uuid.New().String()
	log.Printf("starting streaming response for message: %s", correlationID)

	chat, err := s.ResolveChat(ctx, req.ChatID, req.Model)
	if err != nil {
		log.Printf("ERROR: failed to resolve chat: %v", err)
		return emitError(emit, correlationID, err)
	}

	var history []domain.Message
	if chat.MessageCount > 0 {
		history, err = s.recentHistory(ctx, chat.ID, s.config.HistoryWindow)
		if err != nil {
			log.Printf("ERROR: failed to assemble history: %v", err)
			return emitError(emit, correlationID, err)
		}
	}

	images := encodeAttachments(req.Attachments)
	messages := buildMessages(req.Role, history, req.Prompt, images)

	// The user's input is never lost, even if the model call fails.
	if _, err := s.appendTurn(ctx, chat.ID, domain.RoleUser, req.Prompt, req.Attachments); err != nil {
		log.Printf("ERROR: failed to persist user message: %v", err)
		return emitError(emit, correlationID, err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, s.config.StreamTimeout)
	defer cancel()

	// Accumulator owned exclusively by this request.
	var accumulated strings.Builder
	received := 0

	streamErr := s.backend.ChatStream(streamCtx, &llm.ChatRequest{Model: req.Model, Messages: messages}, func(chunk string) error {
		accumulated.WriteString(chunk)
		received++
		return emit(domain.StreamEvent{
			ID:    correlationID,
			Event: domain.StreamEventMessage,
			Data:  chunk,
		})
	})

	s.finalize(ctx, chat.ID, correlationID, accumulated.String(), received, streamErr, emit)
	return nil
}

// finalize commits the assistant turn and emits the terminal error event
// when the stream did not complete cleanly.
func (s *Service) finalize(ctx context.Context, chatID, correlationID, accumulated string, received int, streamErr error, emit EmitFunc) {
	cancelled := errors.Is(streamErr, context.Canceled) || errors.Is(streamErr, context.DeadlineExceeded)

	// A backend failure before the first increment leaves nothing
	// meaningful to store; every other outcome commits the accumulated
	// text, even empty — the user turn is already durable either way.
	persist := streamErr == nil || cancelled || received > 0 || accumulated != ""
	if persist {
		// Persistence must survive the request context: a client
		// disconnect cancels ctx, and the partial answer is still
		// committed.
		persistCtx := context.WithoutCancel(ctx)
		if _, err := s.appendTurn(persistCtx, chatID, domain.RoleAssistant, accumulated, nil); err != nil {
			log.Printf("ERROR: failed to persist assistant message %s: %v", correlationID, err)
		}
	}

	switch {
	case streamErr == nil:
		log.Printf("streaming completed for message: %s", correlationID)
	case cancelled:
		log.Printf("streaming cancelled for message: %s (%d increments kept)", correlationID, received)
		emitError(emit, correlationID, streamErr)
	default:
		log.Printf("ERROR: streaming failed for message %s: %v", correlationID, streamErr)
		emitError(emit, correlationID, streamErr)
	}
}

// emitError sends the single terminal error event, best effort.
func emitError(emit EmitFunc, correlationID string, err error) error {
	if emitErr := emit(domain.StreamEvent{
		ID:    correlationID,
		Event: domain.StreamEventError,
		Data:  "Error: " + err.Error(),
	}); emitErr != nil {
		return emitErr
	}
	return nil
}
