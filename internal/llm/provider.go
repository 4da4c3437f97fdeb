// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm talks to the language model that answers questions and
// writes research text. Providers perform one completion; Client adds
// retries, caching and the error-as-text contract callers rely on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultModel      = "deepseek-r1:1.5b"
	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 2
)

// ErrTransient marks a failure worth retrying: a transport error, a 429 or
// a 5xx response.
var ErrTransient = errors.New("transient model failure")

// Provider performs a single chat completion for one user prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the provider named by cfg.Provider. An empty name
// selects Ollama.
func NewProvider(cfg types.LLMConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderAnthropic, "claude":
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: ollama, openai, anthropic)", cfg.Provider)
	}
}

func timeoutOf(cfg types.LLMConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return defaultTimeout
}

func transient(status int) bool {
	return status == 429 || status >= 500
}
