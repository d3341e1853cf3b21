package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ppiankov/fixit3d/internal/model"
)

// JSONStore keeps the catalog as a JSON array in a single file
type JSONStore struct {
	path string
}

// NewJSONStore creates a file-backed store
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the snapshot. A missing file yields an empty snapshot; an
// unreadable or invalid file yields an error so the caller can decide.
func (s *JSONStore) Load(ctx context.Context) ([]model.CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries []model.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", s.path, err)
	}
	return entries, nil
}

// Save writes the snapshot atomically: temp file in the same directory, then rename
func (s *JSONStore) Save(ctx context.Context, entries []model.CatalogEntry) (err error) {
	if entries == nil {
		entries = []model.CatalogEntry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync catalog: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// Describe returns the file path
func (s *JSONStore) Describe() string {
	return s.path
}

// Close is a no-op
func (s *JSONStore) Close() error {
	return nil
}
