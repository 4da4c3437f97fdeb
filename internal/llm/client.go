// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sethvargo/go-retry"

	"github.com/pdiddy/research-assistant/internal/logger"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ErrorPrefix starts the text Ask returns when the model could not answer.
const ErrorPrefix = "Error: Failed to get a response from the model."

// retryBaseDelay is the first backoff step. Tests shorten it.
var retryBaseDelay = 500 * time.Millisecond

// Client wraps a Provider with retries for transient failures and an
// optional completion cache.
type Client struct {
	provider   Provider
	cache      *gocache.Cache
	maxRetries int
	log        logger.Logger
}

// NewClient wraps provider. cfg.MaxRetries defaults to 2 (negative means no
// retries); cfg.CacheTTL of zero disables caching.
func NewClient(provider Provider, cfg types.LLMConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}
	c := &Client{provider: provider, maxRetries: maxRetries, log: log}
	if cfg.CacheTTL > 0 {
		c.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c
}

// Complete asks the provider, retrying transient failures with exponential
// backoff. Successful answers are cached by prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	key := c.cacheKey(prompt)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			c.log.Debug("completion cache hit", "provider", c.provider.Name())
			return v.(string), nil
		}
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(retryBaseDelay))

	var answer string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var callErr error
		answer, callErr = c.provider.Complete(ctx, prompt)
		if callErr == nil {
			return nil
		}
		if errors.Is(callErr, ErrTransient) {
			c.log.Warn("model request failed, retrying", "provider", c.provider.Name(), "attempt", attempt, "error", callErr)
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		c.cache.SetDefault(key, answer)
	}
	return answer, nil
}

// Ask returns the model's answer to prompt. It never fails: when the model
// cannot be reached the returned text starts with ErrorPrefix followed by
// the cause.
func (c *Client) Ask(ctx context.Context, prompt string) string {
	answer, err := c.Complete(ctx, prompt)
	if err != nil {
		c.log.Error("error asking model", "provider", c.provider.Name(), "error", err)
		return ErrorPrefix + " " + err.Error()
	}
	return answer
}

// Close flushes the cache and closes the provider when it holds resources.
func (c *Client) Close() error {
	if c.cache != nil {
		c.cache.Flush()
	}
	if closer, ok := c.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) cacheKey(prompt string) string {
	h := sha256.New()
	h.Write([]byte(c.provider.Name()))
	if m, ok := c.provider.(interface{ Model() string }); ok {
		h.Write([]byte{0})
		h.Write([]byte(m.Model()))
	}
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
