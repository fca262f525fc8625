package transcription

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// DefaultWhisperBinary is looked up on PATH when no binary is configured.
	DefaultWhisperBinary = "whisper"
	// DefaultLocalModel is the whisper model size used by default.
	DefaultLocalModel = "base"
)

// LocalProvider runs the whisper command line tool on this machine.
type LocalProvider struct {
	binary string
	model  string
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithBinary sets the whisper executable.
func WithBinary(path string) LocalOption {
	return func(p *LocalProvider) {
		p.binary = path
	}
}

// WithLocalModel sets the whisper model size (tiny, base, small, ...).
func WithLocalModel(model string) LocalOption {
	return func(p *LocalProvider) {
		p.model = model
	}
}

// NewLocalProvider returns a provider that shells out to whisper.
func NewLocalProvider(opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{binary: DefaultWhisperBinary, model: DefaultLocalModel}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *LocalProvider) Name() string { return ProviderLocal }

// Transcribe runs
//
//	whisper <file> --model <model> --output_format txt --output_dir <tmp>
//
// and returns the text file whisper writes for the input.
func (p *LocalProvider) Transcribe(ctx context.Context, filePath string) (string, error) {
	if err := checkInput(filePath); err != nil {
		return "", err
	}

	outDir, err := os.MkdirTemp("", "estate-whisper-*")
	if err != nil {
		return "", fmt.Errorf("transcription: failed to create output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx, p.binary, filePath,
		"--model", p.model,
		"--output_format", "txt",
		"--output_dir", outDir,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("transcription: %s failed: %w: %s", p.binary, err, msg)
		}
		return "", fmt.Errorf("transcription: %s failed: %w", p.binary, err)
	}

	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	text, err := os.ReadFile(filepath.Join(outDir, stem+".txt"))
	if err != nil {
		return "", fmt.Errorf("transcription: whisper produced no transcript: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}
