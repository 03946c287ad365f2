// Package filestore provides disk-backed storage for attachment payloads.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore stores attachment bytes under a single directory. Files are
// keyed by an opaque ref generated at save time; the original filename is
// kept only on the attachment descriptor, never on disk.
type FileStore struct {
	dir string
}

// New creates a file store rooted at dir, creating it if needed.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the payload and returns the ref to retrieve it later.
// Empty payloads are rejected.
func (fs *FileStore) Save(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("refusing to store empty file %q", filename)
	}

	ref := uuid.New().String() + filepath.Ext(filename)
	if err := os.WriteFile(filepath.Join(fs.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return ref, nil
}

// Load reads the payload for a ref.
func (fs *FileStore) Load(ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, filepath.Base(ref)))
	if err != nil {
		return nil, fmt.Errorf("failed to load file %q: %w", ref, err)
	}
	return data, nil
}

// Delete removes the payload for a ref. Deleting a missing ref is not an
// error.
func (fs *FileStore) Delete(ref string) error {
	err := os.Remove(filepath.Join(fs.dir, filepath.Base(ref)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %q: %w", ref, err)
	}
	return nil
}
