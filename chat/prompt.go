package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/chatd/domain"
	"github.com/xiaot623/chatd/llm"
)

// systemPromptTemplate synthesizes the leading system message from the
// persona role supplied with each request.
const systemPromptTemplate = "You act in the role of %s"

// recentHistory returns up to limit prior turns in chronological order.
// The store hands them back most recent first; they are reversed here.
func (s *Service) recentHistory(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	messages, err := s.store.RecentMessages(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// buildMessages assembles the backend message list: the synthesized system
// message, the chronological history, then the current user turn with its
// attachment payloads. Stored system turns are skipped; the synthesized
// one is prepended exactly once.
func buildMessages(personaRole string, history []domain.Message, prompt string, images []string) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.ChatMessage{
		Role:    string(domain.RoleSystem),
		Content: fmt.Sprintf(systemPromptTemplate, personaRole),
	})

	for _, msg := range history {
		switch msg.Role {
		case domain.RoleUser:
			messages = append(messages, llm.ChatMessage{Role: string(domain.RoleUser), Content: msg.Content})
		case domain.RoleAssistant:
			messages = append(messages, llm.ChatMessage{Role: string(domain.RoleAssistant), Content: msg.Content})
		case domain.RoleSystem:
			// already synthesized above
		}
	}

	messages = append(messages, llm.ChatMessage{
		Role:    string(domain.RoleUser),
		Content: prompt,
		Images:  images,
	})
	return messages
}

// encodeAttachments base64-encodes upload payloads for the backend.
// Unreadable uploads are logged and skipped; the request proceeds without
// them.
func encodeAttachments(uploads []domain.Upload) []string {
	var images []string
	for _, u := range uploads {
		if len(u.Data) == 0 {
			log.Printf("WARN: skipping empty attachment %q", u.Filename)
			continue
		}
		images = append(images, base64.StdEncoding.EncodeToString(u.Data))
	}
	return images
}

// appendTurn durably records one turn: attachment payloads go to the file
// store first, then the message row is appended with its sequence number.
// A failed attachment is logged and dropped rather than failing the turn.
func (s *Service) appendTurn(ctx context.Context, chatID string, role domain.Role, content string, uploads []domain.Upload) (*domain.Message, error) {
	var attachments []domain.Attachment
	for _, u := range uploads {
		ref, err := s.files.Save(u.Filename, bytes.NewReader(u.Data))
		if err != nil {
			log.Printf("WARN: failed to store attachment %q: %v", u.Filename, err)
			continue
		}
		attachments = append(attachments, domain.Attachment{
			Filename:    u.Filename,
			ContentType: u.ContentType,
			DataRef:     ref,
		})
	}

	msg := &domain.Message{
		ID:          uuid.New().String(),
		ChatID:      chatID,
		Role:        role,
		Content:     content,
		CreatedAt:   time.Now(),
		Attachments: attachments,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return msg, nil
}

// Prompt runs one conversation turn synchronously and returns the full
// completion. The user turn is persisted before the model is invoked, so
// it survives a backend failure.
func (s *Service) Prompt(ctx context.Context, req *domain.PromptRequest) (*domain.PromptResult, error) {
	chat, err := s.ResolveChat(ctx, req.ChatID, req.Model)
	if err != nil {
		return nil, err
	}

	var history []domain.Message
	if chat.MessageCount > 0 {
		history, err = s.recentHistory(ctx, chat.ID, s.config.HistoryWindow)
		if err != nil {
			return nil, err
		}
	}

	images := encodeAttachments(req.Attachments)
	messages := buildMessages(req.Role, history, req.Prompt, images)

	if _, err := s.appendTurn(ctx, chat.ID, domain.RoleUser, req.Prompt, req.Attachments); err != nil {
		return nil, err
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.config.LLMTimeout)
	defer cancel()

	completion, err := s.backend.Chat(llmCtx, &llm.ChatRequest{Model: req.Model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	if _, err := s.appendTurn(ctx, chat.ID, domain.RoleAssistant, completion, nil); err != nil {
		log.Printf("ERROR: failed to persist assistant message: %v", err)
	}

	return &domain.PromptResult{ChatID: chat.ID, Completion: completion}, nil
}
