// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func TestOllamaProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "What is attention?", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "llama3",
			Message: ollamaMessage{Role: "assistant", Content: "Weighted averaging."},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(types.LLMConfig{BaseURL: srv.URL + "/", Model: "llama3"})
	defer p.Close()

	got, err := p.Complete(context.Background(), "What is attention?")
	require.NoError(t, err)
	assert.Equal(t, "Weighted averaging.", got)
}

func TestOllamaProvider_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		contains  string
	}{
		{"model missing", http.StatusNotFound, `{"error":"model 'x' not found"}`, false, "model 'x' not found"},
		{"overloaded", http.StatusServiceUnavailable, `{"error":"busy"}`, true, "busy"},
		{"rate limited", http.StatusTooManyRequests, `slow down`, true, "slow down"},
		{"malformed body", http.StatusOK, `{not json`, false, "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOllamaProvider(types.LLMConfig{BaseURL: srv.URL})
			_, err := p.Complete(context.Background(), "q")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.transient, errors.Is(err, ErrTransient))
		})
	}
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOllamaProvider(types.LLMConfig{BaseURL: url})
	_, err := p.Complete(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
}

func TestOllamaProvider_Defaults(t *testing.T) {
	p := NewOllamaProvider(types.LLMConfig{})
	assert.Equal(t, defaultOllamaURL, p.baseURL)
	assert.Equal(t, defaultModel, p.Model())
	assert.Equal(t, defaultTimeout, p.httpClient.Timeout)
	assert.Equal(t, "ollama", p.Name())
}
