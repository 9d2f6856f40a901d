package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists settings as a JSON file
type FileStore struct {
	filePath string
	mu       sync.RWMutex
}

// NewFileStore creates a store backed by filePath. The file is created on first save.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

// Load reads the settings file, returning defaults if it does not exist yet
func (f *FileStore) Load(ctx context.Context) (AppSettings, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return AppSettings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return AppSettings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// Save writes the settings file
func (f *FileStore) Save(ctx context.Context, s AppSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if dir := filepath.Dir(f.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	if err := os.WriteFile(f.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
