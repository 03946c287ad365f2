package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/chatd/domain"
)

// defaultTitle is the title of a freshly created chat.
const defaultTitle = "New chat"

// ResolveChat maps an optional client-supplied chat id to a chat record.
// An empty or unknown id mints a brand-new chat with a fresh id; the
// client-supplied id is never reused. A missing chat is not an error.
func (s *Service) ResolveChat(ctx context.Context, chatID, model string) (*domain.Chat, error) {
	if chatID != "" {
		chat, err := s.store.GetChat(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up chat: %w", err)
		}
		if chat != nil {
			return chat, nil
		}
	}
	return s.CreateChat(ctx, model)
}

// CreateChat creates and persists a new empty chat.
func (s *Service) CreateChat(ctx context.Context, model string) (*domain.Chat, error) {
	if model == "" {
		model = s.config.DefaultModel
	}
	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.New().String(),
		Title:     defaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Active:    true,
		ModelName: model,
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	log.Printf("new chat created: %s (model %s)", chat.ID, model)
	return chat, nil
}

// ListChats returns a page of chats, most recently updated first.
func (s *Service) ListChats(ctx context.Context, page, size int, activeOnly bool) (domain.Page[domain.Chat], error) {
	return s.store.ListChats(ctx, page, size, activeOnly)
}

// ChatHistory returns a page of a chat's messages, oldest first.
func (s *Service) ChatHistory(ctx context.Context, chatID string, page, size int) (domain.Page[domain.Message], error) {
	return s.store.GetChatMessages(ctx, chatID, page, size)
}

// RenameChat updates a chat's title.
func (s *Service) RenameChat(ctx context.Context, chatID, title string) (*domain.Chat, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidInput)
	}
	return s.store.UpdateChatTitle(ctx, chatID, title)
}

// ArchiveChat flips a chat's active flag off. Its messages and turn
// counter are untouched.
func (s *Service) ArchiveChat(ctx context.Context, chatID string) error {
	return s.store.ArchiveChat(ctx, chatID)
}

// DeleteChat removes a chat, all its messages, and every attachment
// payload they reference.
func (s *Service) DeleteChat(ctx context.Context, chatID string) error {
	refs, err := s.store.AttachmentRefs(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to collect attachment refs: %w", err)
	}

	if err := s.store.DeleteChat(ctx, chatID); err != nil {
		return err
	}

	for _, ref := range refs {
		if err := s.files.Delete(ref); err != nil {
			log.Printf("WARN: failed to delete attachment %s: %v", ref, err)
		}
	}
	return nil
}
