// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/xiaot623/chatd/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Chat operations
	CreateChat(ctx context.Context, chat *domain.Chat) error
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)
	ListChats(ctx context.Context, page, size int, activeOnly bool) (domain.Page[domain.Chat], error)
	UpdateChatTitle(ctx context.Context, chatID, title string) (*domain.Chat, error)
	ArchiveChat(ctx context.Context, chatID string) error
	DeleteChat(ctx context.Context, chatID string) error

	// Message operations
	//
	// AppendMessage assigns msg.SequenceNumber and bumps the chat's
	// message count in one transaction, so concurrent appends to the
	// same chat never collide or skip a sequence number.
	AppendMessage(ctx context.Context, msg *domain.Message) error
	GetChatMessages(ctx context.Context, chatID string, page, size int) (domain.Page[domain.Message], error)
	RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
	AttachmentRefs(ctx context.Context, chatID string) ([]string, error)

	// Export operations
	AllChats(ctx context.Context) ([]domain.Chat, error)
	AllMessages(ctx context.Context) ([]domain.Message, error)

	// Lifecycle
	Close() error
}
