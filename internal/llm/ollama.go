// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider calls a local Ollama server's /api/chat endpoint without
// streaming.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates an Ollama provider. BaseURL defaults to
// http://localhost:11434 and Model to deepseek-r1:1.5b.
func NewOllamaProvider(cfg types.LLMConfig) *OllamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeoutOf(cfg)},
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string { return ProviderOllama }

// Model returns the model the provider asks for.
func (p *OllamaProvider) Model() string { return p.model }

// Complete sends prompt as a single user message and returns the reply.
func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: execute request: %v", ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var apiErr ollamaError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		if transient(resp.StatusCode) {
			return "", fmt.Errorf("%w: ollama API error (%d): %s", ErrTransient, resp.StatusCode, msg)
		}
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, msg)
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return chat.Message.Content, nil
}

// Close releases idle connections.
func (p *OllamaProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
