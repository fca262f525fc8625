package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/entrhq/estate/pkg/fsutil"
	"github.com/entrhq/estate/pkg/types"
)

// Store provides persistence for the application configuration.
type Store interface {
	// Load loads the configuration from disk
	Load() error

	// Save saves the configuration to disk
	Save() error

	// Get returns a copy of the current configuration
	Get() AppConfig

	// Set replaces the configuration in memory
	Set(cfg AppConfig)
}

// FileStore implements Store using a JSON file.
type FileStore struct {
	path     string
	cfg      AppConfig
	sink     fsutil.Sink
	mu       sync.RWMutex
	version  string
	modified bool
}

// file is the on-disk envelope.
type file struct {
	Version string `json:"version"`
	AppConfig
}

// NewFileStore creates a configuration store backed by path and loads it.
// A missing file yields Defaults(); a file that cannot be parsed is an
// error rather than being silently replaced.
func NewFileStore(path string, sink fsutil.Sink) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("config: %w: path cannot be empty", types.ErrInvalidInput)
	}
	if sink == nil {
		sink = fsutil.NewWriter(nil)
	}

	store := &FileStore{
		path:    path,
		cfg:     Defaults(),
		sink:    sink,
		version: Version,
	}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return store, nil
}

// Load loads the configuration from disk.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, use defaults
		s.cfg = Defaults()
		s.modified = false
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}

	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("config: %w: failed to decode config file: %v", types.ErrCorrupt, err)
	}

	if f.Version != "" {
		s.version = f.Version
	}
	s.cfg = f.AppConfig.withDefaults()
	s.modified = false
	return nil
}

// Save writes the configuration atomically, creating the directory if needed.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *FileStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(file{Version: s.version, AppConfig: s.cfg}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := s.sink.WriteFile(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	s.modified = false
	return nil
}

// Get returns a copy of the current configuration.
func (s *FileStore) Get() AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the configuration in memory. Call Save to persist it.
func (s *FileStore) Set(cfg AppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.modified = true
}

// Update applies fn to the configuration and saves the result. Nothing is
// changed if fn or the save fails.
func (s *FileStore) Update(fn func(*AppConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg
	next := s.cfg
	if err := fn(&next); err != nil {
		return err
	}
	s.cfg = next
	if err := s.saveLocked(); err != nil {
		s.cfg = prev
		return err
	}
	return nil
}

// SetArchiveRoot prepares root with prepare (bootstrap and cleanup) and
// persists it as the archive root only if that succeeds.
func (s *FileStore) SetArchiveRoot(root string, prepare func(root string) error) error {
	if root == "" {
		return fmt.Errorf("config: %w: archive root cannot be empty", types.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("config: failed to resolve %s: %w", root, err)
	}
	if prepare != nil {
		if err := prepare(abs); err != nil {
			return err
		}
	}
	return s.Update(func(c *AppConfig) error {
		c.ArchiveRoot = abs
		return nil
	})
}

// IsModified returns true if the store has unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

var _ Store = (*FileStore)(nil)
