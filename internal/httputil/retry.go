// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages: throttling
// backoff for API calls and per-host request pacing for PDF downloads.
package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryBaseDelay is the first backoff step; each further step doubles it.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 3 * time.Second

// MaxRetryAfter caps how long a server-supplied Retry-After header may
// stall a request.
var MaxRetryAfter = 60 * time.Second

const defaultMaxRetries = 3

var errThrottled = errors.New("throttled")

// Throttled reports whether status asks the client to slow down: 429, or
// 503 as arXiv sends under load.
func Throttled(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries while the server answers with a
// throttling status. A Retry-After header (seconds or HTTP date) sets the
// next wait, capped at MaxRetryAfter; otherwise waits start at
// RetryBaseDelay and double.
//
// A non-positive maxRetries means 3. Throttled responses are drained and
// closed before waiting. When ctx ends during a wait its error is returned.
// Once retries are exhausted the last throttled response is returned
// unread so the caller can inspect it. Transport errors are not retried.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var (
		last      *http.Response
		serverSet time.Duration
		hasServer bool
	)
	exp := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(RetryBaseDelay))
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := exp.Next()
		if !stop && hasServer {
			next = serverSet
		}
		return next, stop
	})

	discard := func() {
		if last != nil {
			io.Copy(io.Discard, last.Body)
			last.Body.Close()
			last = nil
		}
	}

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		discard()
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return err
		}
		if !Throttled(resp.StatusCode) {
			last = resp
			return nil
		}
		last = resp
		serverSet, hasServer = retryAfter(resp.Header.Get("Retry-After"), time.Now())
		return retry.RetryableError(errThrottled)
	})
	switch {
	case err == nil, errors.Is(err, errThrottled):
		return last, nil
	default:
		discard()
		return nil, err
	}
}

// retryAfter parses a Retry-After value given as delta-seconds or an HTTP
// date relative to now. The result is clamped to [0, MaxRetryAfter].
func retryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(value); err == nil {
		d = max(t.Sub(now), 0)
	} else {
		return 0, false
	}
	return min(d, MaxRetryAfter), true
}
