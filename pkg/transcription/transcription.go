// Package transcription turns recorded audio or video into text.
//
// Providers are chosen by an explicit tag in Config:
//
//	p, err := transcription.New(transcription.Config{
//	    Provider: transcription.ProviderOpenAI,
//	    APIKey:   key,
//	})
//	text, err := p.Transcribe(ctx, "/archive/people/ab/cd/Doe,_Jane--x/recordings/audio/interview.wav")
package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Provider tags accepted by New.
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
)

// DefaultProvider is used when Config.Provider is empty.
const DefaultProvider = ProviderLocal

// ErrUnknownProvider is returned by New for an unrecognised tag.
var ErrUnknownProvider = errors.New("transcription: unknown provider")

// Provider transcribes one media file.
type Provider interface {
	// Name returns the provider tag.
	Name() string
	// Transcribe returns the text spoken in the file at filePath.
	Transcribe(ctx context.Context, filePath string) (string, error)
}

// Config selects and configures a provider. Fields a provider does not use
// are ignored.
type Config struct {
	Provider      string `json:"provider"`
	Model         string `json:"model,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	BaseURL       string `json:"base_url,omitempty"`
	WhisperBinary string `json:"whisper_binary,omitempty"`
}

// New returns the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		var opts []LocalOption
		if cfg.Model != "" {
			opts = append(opts, WithLocalModel(cfg.Model))
		}
		if cfg.WhisperBinary != "" {
			opts = append(opts, WithBinary(cfg.WhisperBinary))
		}
		return NewLocalProvider(opts...), nil
	case ProviderOpenAI:
		var opts []OpenAIOption
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		return NewOpenAIProvider(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// checkInput fails with an error wrapping fs.ErrNotExist when the media file
// is missing, before any provider work starts.
func checkInput(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("transcription: %s is a directory", filePath)
	}
	return nil
}
