package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultOpenAIModel is the speech model used when none is configured.
	DefaultOpenAIModel = "whisper-1"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
)

// OpenAIProvider transcribes through an OpenAI-compatible audio API.
type OpenAIProvider struct {
	client  openai.Client
	baseURL string
	model   string
	retries int
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithModel sets the transcription model.
func WithModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables Azure OpenAI or a self-hosted whisper server.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = baseURL
	}
}

// WithMaxRetries sets how often the client retries a failed request.
func WithMaxRetries(n int) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.retries = n
	}
}

// NewOpenAIProvider creates a provider authenticating with apiKey.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("transcription: OpenAI API key is required")
	}

	p := &OpenAIProvider{
		baseURL: DefaultBaseURL,
		model:   DefaultOpenAIModel,
		retries: 2,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.client = openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimSuffix(p.baseURL, "/")+"/"),
		option.WithMaxRetries(p.retries),
	)
	return p, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Model returns the configured model.
func (p *OpenAIProvider) Model() string { return p.model }

// Transcribe uploads the file and returns the transcript text.
func (p *OpenAIProvider) Transcribe(ctx context.Context, filePath string) (string, error) {
	if err := checkInput(filePath); err != nil {
		return "", err
	}
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("transcription: failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(p.model),
	})
	if err != nil {
		return "", fmt.Errorf("transcription: openai request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
