package mt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider translates through the Google Gemini API.
// The genai client needs a context to dial, so it is created lazily on
// the first request.
type GeminiProvider struct {
	apiKey    string
	model     string
	maxTokens int32

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a provider. An empty apiKey yields an
// unavailable provider; an empty model selects the default.
func NewGeminiProvider(apiKey, model string, maxTokens int) *GeminiProvider {
	p := &GeminiProvider{
		apiKey:    apiKey,
		model:     model,
		maxTokens: int32(maxTokens),
	}
	if p.model == "" {
		p.model = defaultGeminiModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = 1024
	}
	return p
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string { return "gemini" }

// Available reports whether a credential was supplied.
func (p *GeminiProvider) Available() bool { return p.apiKey != "" }

// Translate performs one translation.
func (p *GeminiProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: gemini", ErrProviderUnavailable)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.SetMaxOutputTokens(p.maxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("gemini translate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: gemini", ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("%w: gemini", ErrEmptyResponse)
	}

	return &Result{Text: text, Provider: p.Name(), Model: p.model}, nil
}

func (p *GeminiProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

// Close releases the underlying client connection if one was opened.
func (p *GeminiProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
