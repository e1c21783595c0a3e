package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/taskmesh/core"
)

// FileStore persists the task collection as a single JSON document mapping
// task id to the full task record. The document is rewritten in full on every
// Save with deterministic (sorted) key order, so the file is stable under
// diffing and safe to read by external dashboards between writes.
//
// Writes go through a temp file + rename so a crash mid-write never leaves a
// truncated document behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file store at path, creating parent directories and
// initializing an empty document if the file does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	s := &FileStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.Save(map[string]core.Task{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking store file: %w", err)
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the full task collection. Every call re-reads the
// file; the store holds no cache, so independent handles observe a consistent
// view of the persisted state.
func (s *FileStore) Load() (map[string]core.Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading task store: %w", err)
	}
	tasks := map[string]core.Task{}
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decoding task store: %w", err)
	}
	return tasks, nil
}

// Save rewrites the whole collection. encoding/json emits map keys in sorted
// order which gives the deterministic layout external readers rely on.
func (s *FileStore) Save(tasks map[string]core.Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding task store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing task store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing task store: %w", err)
	}
	return nil
}
