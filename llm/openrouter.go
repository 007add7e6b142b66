package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient talks to OpenRouter's OpenAI-compatible chat completions
// endpoint. Model names are provider-prefixed (e.g. "anthropic/claude-3-5-sonnet").
type OpenRouterClient struct {
	client *openai.Client
}

// NewOpenRouterClient creates an OpenRouter-backed client.
func NewOpenRouterClient(cfg ClientConfig) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = defaultOpenRouterBaseURL
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	return &OpenRouterClient{client: openai.NewClientWithConfig(apiConfig)}, nil
}

// Complete issues a single-turn chat completion and returns the text of the
// first choice.
func (c *OpenRouterClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
