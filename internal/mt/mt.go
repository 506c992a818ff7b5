// Package mt provides machine-translation suggestions through pluggable
// providers (Anthropic, OpenAI, Gemini).
//
// Providers are constructed from POLYGLOT_*_KEY credentials; a provider
// without a credential reports unavailable and is skipped. The registry
// resolves the configured default provider and fans translation requests
// out to the chosen one.
package mt

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by translation operations.
var (
	// ErrProviderNotFound indicates no provider is registered under the name.
	ErrProviderNotFound = errors.New("translation provider not found")

	// ErrProviderUnavailable indicates the provider has no usable credential.
	ErrProviderUnavailable = errors.New("translation provider unavailable")

	// ErrEmptyText indicates a request with nothing to translate.
	ErrEmptyText = errors.New("empty source text")

	// ErrNoTargetLanguage indicates a request without a target language.
	ErrNoTargetLanguage = errors.New("no target language")

	// ErrEmptyResponse indicates the provider returned no translation.
	ErrEmptyResponse = errors.New("empty provider response")
)

// Request describes one translation to perform.
type Request struct {
	// Text is the source string.
	Text string

	// SourceLang is the source language name or code; empty lets the
	// provider detect it.
	SourceLang string

	// TargetLang is the target language name or code.
	TargetLang string

	// Context carries disambiguation hints (msgctxt, UI location).
	Context string
}

// Validate checks that the request can be sent to a provider.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if strings.TrimSpace(r.TargetLang) == "" {
		return ErrNoTargetLanguage
	}
	return nil
}

// Result is a completed translation.
type Result struct {
	// Text is the translated string.
	Text string

	// Provider is the name of the provider that produced it.
	Provider string

	// Model is the model that produced it.
	Model string
}

// Provider is a machine-translation backend.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic", "openai").
	Name() string

	// Available reports whether the provider can serve requests.
	Available() bool

	// Translate performs one translation.
	Translate(ctx context.Context, req Request) (*Result, error)
}

// systemPrompt is shared by every provider.
const systemPrompt = "You are a professional software localization translator. " +
	"Translate UI strings exactly, preserving placeholders such as %s, %d, " +
	"{name}, and escape sequences like \\n. Reply with the translation only, " +
	"no quotes and no commentary."

// buildPrompt renders a request as the user message sent to a provider.
func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Translate the following string")
	if req.SourceLang != "" {
		fmt.Fprintf(&sb, " from %s", req.SourceLang)
	}
	fmt.Fprintf(&sb, " to %s.", req.TargetLang)
	if req.Context != "" {
		fmt.Fprintf(&sb, " Context: %s.", req.Context)
	}
	sb.WriteString("\n\n")
	sb.WriteString(req.Text)
	return sb.String()
}
