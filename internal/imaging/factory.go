package imaging

import (
	"context"
	"fmt"
	"strings"
)

// BackendFactory creates image backends and verifiers by name
type BackendFactory struct {
	openaiAPIKey string
	geminiAPIKey string
}

// NewBackendFactory creates a new backend factory
func NewBackendFactory(openaiAPIKey, geminiAPIKey string) *BackendFactory {
	return &BackendFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
	}
}

// GetBackend returns the image backend for the given name; model may be empty
func (f *BackendFactory) GetBackend(ctx context.Context, name, model string) (ImageBackend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendOpenAI:
		if f.openaiAPIKey == "" {
			return nil, fmt.Errorf("%w: openai", ErrMissingAPIKey)
		}
		return NewOpenAIBackend(f.openaiAPIKey, model), nil

	case BackendGemini:
		if f.geminiAPIKey == "" {
			return nil, fmt.Errorf("%w: gemini", ErrMissingAPIKey)
		}
		return NewGeminiBackend(ctx, f.geminiAPIKey, model)

	default:
		return nil, fmt.Errorf("%w: %s (allowed: openai, gemini)", ErrUnknownBackend, name)
	}
}

// GetVerifier returns the verifier for the given name; model may be empty
func (f *BackendFactory) GetVerifier(ctx context.Context, name, model string) (Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendOpenAI:
		if f.openaiAPIKey == "" {
			return nil, fmt.Errorf("%w: openai", ErrMissingAPIKey)
		}
		return NewOpenAIVerifier(f.openaiAPIKey, model), nil

	case BackendGemini:
		if f.geminiAPIKey == "" {
			return nil, fmt.Errorf("%w: gemini", ErrMissingAPIKey)
		}
		return NewGeminiVerifier(ctx, f.geminiAPIKey, model)

	default:
		return nil, fmt.Errorf("%w: %s (allowed: openai, gemini)", ErrUnknownBackend, name)
	}
}
