// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// OpenAIProvider uses the Chat Completions API of OpenAI or any compatible
// endpoint named by BaseURL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI provider. An API key is required
// unless BaseURL points at a compatible endpoint.
func NewOpenAIProvider(cfg types.LLMConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeoutOf(cfg)}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientConfig), model: model}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Model returns the model the provider asks for.
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends prompt as a single user message and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if transient(apiErr.HTTPStatusCode) {
			return fmt.Errorf("%w: OpenAI API error: %v", ErrTransient, err)
		}
		return fmt.Errorf("OpenAI API error: %w", err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && !transient(reqErr.HTTPStatusCode) {
		return fmt.Errorf("OpenAI API error: %w", err)
	}
	return fmt.Errorf("%w: OpenAI API error: %v", ErrTransient, err)
}
