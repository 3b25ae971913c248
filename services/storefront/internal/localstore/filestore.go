package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/appetiteclub/apt"
)

// FileStore is a small key-value store kept in one JSON file, the storefront's
// stand-in for browser local storage. Each value must itself be JSON.
// An empty path keeps the records in memory only.
type FileStore struct {
	mu      sync.Mutex
	path    string
	records map[string]json.RawMessage
	loaded  bool
	logger  apt.Logger
}

func NewFileStore(path string, logger apt.Logger) *FileStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &FileStore{
		path:    path,
		records: make(map[string]json.RawMessage),
		logger:  logger,
	}
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore() *FileStore {
	return NewFileStore("", nil)
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	value, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("cannot save %s: value is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}

	value := make(json.RawMessage, len(data))
	copy(value, data)
	s.records[key] = value
	return s.flush()
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if _, ok := s.records[key]; !ok {
		return nil
	}

	delete(s.records, key)
	return s.flush()
}

func (s *FileStore) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	records, err := readRecords(s.path)
	if errors.Is(err, errCorruptRecords) {
		s.logger.Error("local store file is corrupt, starting empty", "path", s.path, "error", err)
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", s.path, err)
	}
	if records != nil {
		s.records = records
		s.logger.Debug("local store loaded", "path", s.path, "keys", len(records))
	}
	s.loaded = true
	return nil
}

func (s *FileStore) flush() error {
	if s.path == "" {
		return nil
	}
	if err := writeRecords(s.path, s.records); err != nil {
		return fmt.Errorf("cannot write %s: %w", s.path, err)
	}
	return nil
}

var errCorruptRecords = errors.New("corrupt records")

// readRecords returns nil records for a missing or empty file.
func readRecords(path string) (map[string]json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	records := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptRecords, err)
	}
	return records, nil
}

// writeRecords replaces the file through a rename so readers never see a partial write.
func writeRecords(path string, records map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(temp, path)
}
