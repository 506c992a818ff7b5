package mt

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIProvider translates through the OpenAI chat completions API.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	maxTokens int64
	available bool
}

// NewOpenAIProvider creates a provider. An empty apiKey yields an
// unavailable provider; an empty model selects the default.
func NewOpenAIProvider(apiKey, model string, maxTokens int) *OpenAIProvider {
	p := &OpenAIProvider{
		model:     model,
		maxTokens: int64(maxTokens),
	}
	if p.model == "" {
		p.model = defaultOpenAIModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = 1024
	}
	if apiKey == "" {
		return p
	}

	p.client = openai.NewClient(option.WithAPIKey(apiKey))
	p.available = true
	return p
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

// Available reports whether a credential was supplied.
func (p *OpenAIProvider) Available() bool { return p.available }

// Translate performs one translation.
func (p *OpenAIProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	if !p.available {
		return nil, fmt.Errorf("%w: openai", ErrProviderUnavailable)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(p.model),
		MaxCompletionTokens: openai.Int(p.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(req)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai", ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: openai", ErrEmptyResponse)
	}

	return &Result{Text: text, Provider: p.Name(), Model: p.model}, nil
}
