package mt

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider translates through the Anthropic Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	available bool
}

// NewAnthropicProvider creates a provider. An empty apiKey yields an
// unavailable provider; an empty model selects the default.
func NewAnthropicProvider(apiKey, model string, maxTokens int) *AnthropicProvider {
	p := &AnthropicProvider{
		model:     model,
		maxTokens: int64(maxTokens),
	}
	if p.model == "" {
		p.model = defaultAnthropicModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = 1024
	}
	if apiKey == "" {
		return p
	}

	p.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	p.available = true
	return p
}

// Name returns "anthropic".
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Available reports whether a credential was supplied.
func (p *AnthropicProvider) Available() bool { return p.available }

// Translate performs one translation.
func (p *AnthropicProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	if !p.available {
		return nil, fmt.Errorf("%w: anthropic", ErrProviderUnavailable)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic translate: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("%w: anthropic", ErrEmptyResponse)
	}

	return &Result{Text: text, Provider: p.Name(), Model: p.model}, nil
}
