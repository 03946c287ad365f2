package chat

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// exportTimestamp names export files; second precision keeps them sortable.
func exportTimestamp() string {
	return time.Now().Format("20060102_150405")
}

func (s *Service) exportPath(name string) (string, error) {
	if err := os.MkdirAll(s.config.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	return filepath.Join(s.config.ExportDir, name), nil
}

func (s *Service) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// ExportChatsJSON writes every chat to a timestamped JSON file and returns
// its path.
func (s *Service) ExportChatsJSON(ctx context.Context) (string, error) {
	chats, err := s.store.AllChats(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load chats: %w", err)
	}
	path, err := s.exportPath("chats_export_" + exportTimestamp() + ".json")
	if err != nil {
		return "", err
	}
	if err := s.writeJSON(path, chats); err != nil {
		return "", err
	}
	return path, nil
}

// ExportMessagesJSON writes every message to a timestamped JSON file and
// returns its path.
func (s *Service) ExportMessagesJSON(ctx context.Context) (string, error) {
	messages, err := s.store.AllMessages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load messages: %w", err)
	}
	path, err := s.exportPath("messages_export_" + exportTimestamp() + ".json")
	if err != nil {
		return "", err
	}
	if err := s.writeJSON(path, messages); err != nil {
		return "", err
	}
	return path, nil
}

// ExportMessagesCSV writes every message to a timestamped CSV file and
// returns its path.
func (s *Service) ExportMessagesCSV(ctx context.Context) (string, error) {
	messages, err := s.store.AllMessages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load messages: %w", err)
	}
	path, err := s.exportPath("messages_export_" + exportTimestamp() + ".csv")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "chatId", "role", "content", "timestamp", "sequenceNumber"}); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	for _, msg := range messages {
		record := []string{
			msg.ID,
			msg.ChatID,
			string(msg.Role),
			msg.Content,
			msg.CreatedAt.Format(time.RFC3339),
			strconv.Itoa(msg.SequenceNumber),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
