// Package llm defines the completion interface the analysis pipeline calls
// and provides the OpenRouter and Gemini backends. The pipeline tolerates any
// backend implementing Client; model names are configuration, not design.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// CompletionRequest is one prompt sent to a model.
type CompletionRequest struct {
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client is the completion port. Implementations must be safe for concurrent
// use: the pipeline issues calls from multiple worker goroutines.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Provider selects a Client backend.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderGemini     Provider = "gemini"
)

// ClientConfig holds backend configuration. API keys are injected here rather
// than read from module scope so tests and alternate deployments can swap
// them per instance.
type ClientConfig struct {
	Provider Provider
	APIKey   string
	BaseURL  string // optional override; OpenRouter only
}

var ErrMissingAPIKey = errors.New("llm: API key not configured")

// NewClient creates the backend named by cfg.Provider.
func NewClient(ctx context.Context, cfg ClientConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenRouter:
		return NewOpenRouterClient(cfg)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// NewClientFromEnv creates a client from environment variables. LLM_PROVIDER
// selects the backend (default "openrouter"); the matching *_API_KEY
// variable supplies credentials.
func NewClientFromEnv(ctx context.Context) (Client, error) {
	provider := Provider(os.Getenv("LLM_PROVIDER"))
	if provider == "" {
		provider = ProviderOpenRouter
	}

	cfg := ClientConfig{Provider: provider}
	switch provider {
	case ProviderOpenRouter:
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
		cfg.BaseURL = os.Getenv("OPENROUTER_BASE_URL")
	case ProviderGemini:
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return NewClient(ctx, cfg)
}
