// Package config holds the operator settings of an archive installation:
// which directory is the archive root, how recordings are transcribed and
// where the server listens. Settings live in a JSON file managed by
// FileStore.
package config

import (
	"path/filepath"

	"github.com/entrhq/estate/pkg/transcription"
)

const (
	// Version is written into every saved config file.
	Version = "1.0"

	// DefaultListenAddr is the API address used when none is configured.
	DefaultListenAddr = "127.0.0.1:8765"
)

// AppConfig is the persisted configuration.
type AppConfig struct {
	// ArchiveRoot is empty until an operator selects a root.
	ArchiveRoot   string               `json:"archive_root,omitempty"`
	Transcription transcription.Config `json:"transcription"`
	LogDir        string               `json:"log_dir,omitempty"`
	ListenAddr    string               `json:"listen_addr,omitempty"`
}

// Defaults returns the configuration used when no file exists yet.
func Defaults() AppConfig {
	return AppConfig{
		Transcription: transcription.Config{Provider: transcription.DefaultProvider},
		ListenAddr:    DefaultListenAddr,
	}
}

// withDefaults fills fields an older or hand-written file left empty.
func (c AppConfig) withDefaults() AppConfig {
	d := Defaults()
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = d.Transcription.Provider
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	return c
}

// Redacted returns a copy safe to print or return over the API.
func (c AppConfig) Redacted() AppConfig {
	if c.Transcription.APIKey != "" {
		c.Transcription.APIKey = "********"
	}
	return c
}

// DefaultPath returns the config file location below a home directory.
func DefaultPath(home string) string {
	return filepath.Join(home, ".config", "digital-estate", "config.json")
}

// DefaultLogDir returns the log directory below a home directory.
func DefaultLogDir(home string) string {
	return filepath.Join(home, ".config", "digital-estate", "logs")
}
