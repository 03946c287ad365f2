package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/chatd/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			chat_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			active INTEGER NOT NULL DEFAULT 1,
			model_name TEXT NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_active ON chats(active, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			sequence_number INTEGER NOT NULL,
			attachments TEXT,
			FOREIGN KEY (chat_id) REFERENCES chats(chat_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_seq ON messages(chat_id, sequence_number)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_time ON messages(chat_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateChat creates a new chat.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *domain.Chat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (chat_id, title, created_at, updated_at, active, model_name, message_count) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		chat.ID, chat.Title, chat.CreatedAt, chat.UpdatedAt, chat.Active, chat.ModelName, chat.MessageCount)
	return err
}

// GetChat retrieves a chat by ID. Returns nil when the chat does not exist.
func (s *SQLiteStore) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	var chat domain.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, title, created_at, updated_at, active, model_name, message_count FROM chats WHERE chat_id = ?`,
		chatID).Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt, &chat.Active, &chat.ModelName, &chat.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats retrieves a page of chats ordered by most recent activity.
func (s *SQLiteStore) ListChats(ctx context.Context, page, size int, activeOnly bool) (domain.Page[domain.Chat], error) {
	where := ""
	if activeOnly {
		where = " WHERE active = 1"
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`+where).Scan(&total); err != nil {
		return domain.Page[domain.Chat]{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, title, created_at, updated_at, active, model_name, message_count FROM chats`+where+
			` ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		size, page*size)
	if err != nil {
		return domain.Page[domain.Chat]{}, err
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var chat domain.Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt, &chat.Active, &chat.ModelName, &chat.MessageCount); err != nil {
			return domain.Page[domain.Chat]{}, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Chat]{}, err
	}
	return domain.NewPage(chats, page, size, total), nil
}

// UpdateChatTitle renames a chat and touches its update time.
func (s *SQLiteStore) UpdateChatTitle(ctx context.Context, chatID, title string) (*domain.Chat, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ?, updated_at = ? WHERE chat_id = ?`,
		title, time.Now(), chatID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetChat(ctx, chatID)
}

// ArchiveChat flips the active flag off. Messages and counters are untouched.
func (s *SQLiteStore) ArchiveChat(ctx context.Context, chatID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET active = 0, updated_at = ? WHERE chat_id = ?`,
		time.Now(), chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteChat removes a chat and all its messages.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

// AppendMessage appends a message to its chat.
//
// The chat's message_count is bumped and read back inside one transaction,
// and the new row gets that value as its sequence number. Two concurrent
// appends to the same chat therefore always observe distinct, gap-free
// sequence numbers.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE chats SET message_count = message_count + 1, updated_at = ? WHERE chat_id = ?`,
		msg.CreatedAt, msg.ChatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT message_count FROM chats WHERE chat_id = ?`, msg.ChatID).Scan(&seq); err != nil {
		return err
	}
	msg.SequenceNumber = seq

	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return fmt.Errorf("failed to marshal attachments: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, chat_id, role, content, created_at, sequence_number, attachments) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, msg.Role, msg.Content, msg.CreatedAt, msg.SequenceNumber, string(attachments)); err != nil {
		return err
	}

	return tx.Commit()
}

// GetChatMessages retrieves a page of messages for a chat, oldest first.
func (s *SQLiteStore) GetChatMessages(ctx context.Context, chatID string, page, size int) (domain.Page[domain.Message], error) {
	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&total); err != nil {
		return domain.Page[domain.Message]{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, chat_id, role, content, created_at, sequence_number, attachments FROM messages
		 WHERE chat_id = ? ORDER BY sequence_number ASC LIMIT ? OFFSET ?`,
		chatID, size, page*size)
	if err != nil {
		return domain.Page[domain.Message]{}, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return domain.Page[domain.Message]{}, err
	}
	return domain.NewPage(messages, page, size, total), nil
}

// RecentMessages retrieves up to limit messages, most recent first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, chat_id, role, content, created_at, sequence_number, attachments FROM messages
		 WHERE chat_id = ? ORDER BY sequence_number DESC LIMIT ?`,
		chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// AttachmentRefs collects every attachment data ref across a chat's messages.
func (s *SQLiteStore) AttachmentRefs(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT attachments FROM messages WHERE chat_id = ? AND attachments IS NOT NULL`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if !raw.Valid || raw.String == "" {
			continue
		}
		var attachments []domain.Attachment
		if err := json.Unmarshal([]byte(raw.String), &attachments); err != nil {
			continue
		}
		for _, a := range attachments {
			if a.DataRef != "" {
				refs = append(refs, a.DataRef)
			}
		}
	}
	return refs, rows.Err()
}

// AllChats returns every chat, for export.
func (s *SQLiteStore) AllChats(ctx context.Context) ([]domain.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, title, created_at, updated_at, active, model_name, message_count FROM chats ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var chat domain.Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt, &chat.Active, &chat.ModelName, &chat.MessageCount); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// AllMessages returns every message, for export.
func (s *SQLiteStore) AllMessages(ctx context.Context) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, chat_id, role, content, created_at, sequence_number, attachments FROM messages ORDER BY chat_id, sequence_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role string
		var attachments sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &msg.CreatedAt, &msg.SequenceNumber, &attachments); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", msg.ID, err)
		}
		msg.Role = parsed
		if attachments.Valid && attachments.String != "" && attachments.String != "null" {
			if err := json.Unmarshal([]byte(attachments.String), &msg.Attachments); err != nil {
				return nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
