// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads paper PDFs and resolves paper identifiers
// (arXiv IDs, DOIs, direct URLs) to PDF locations and metadata.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBytes     = 64 << 20
	defaultUserAgent    = "research-assistant/0.1"
)

// Fetch failures. Every error returned by Fetch wraps exactly one of
// ErrBadURL, ErrNetwork, ErrHTTPStatus, ErrNotPDF or ErrTooLarge;
// ErrNotFound is additionally matched for 404 and 410 responses.
var (
	ErrBadURL     = errors.New("invalid document URL")
	ErrNetwork    = errors.New("network failure")
	ErrHTTPStatus = errors.New("unsuccessful HTTP status")
	ErrNotFound   = errors.New("document not found")
	ErrNotPDF     = errors.New("not a PDF document")
	ErrTooLarge   = errors.New("document exceeds size limit")
)

// RawDocument is a downloaded PDF payload. It is consumed once by the text
// extractor and not retained.
type RawDocument struct {
	URL         string
	ContentType string
	Data        []byte
}

// StatusError records a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Is lets errors.Is match the status sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrHTTPStatus:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
	}
	return false
}

// Fetcher downloads PDFs with a single bounded attempt per URL.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFetcher builds a Fetcher from cfg. A nil client gets a fresh one with
// cfg.Timeout (default 30s).
func NewFetcher(client *http.Client, cfg types.FetchConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{client: client, userAgent: ua, maxBytes: maxBytes}
}

// Fetch performs one GET of url. It fails when the transport errors, the
// status is not 2xx, or the response is neither declared as
// application/pdf nor served from a URL ending in ".pdf".
func (f *Fetcher) Fetch(ctx context.Context, url string) (*RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsPDFResponse(url, contentType) {
		return nil, fmt.Errorf("%w: %s (Content-Type: %s)", ErrNotPDF, url, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, url, f.maxBytes)
	}

	return &RawDocument{URL: url, ContentType: contentType, Data: data}, nil
}

// IsPDFResponse reports whether a response may be treated as a PDF: the
// declared type contains application/pdf, or the URL ends in ".pdf".
func IsPDFResponse(url, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(url), ".pdf")
}

// Retryable reports whether a fetch failure is transient: network errors,
// 429 and 5xx responses. Malformed URLs, missing documents, non-PDF
// responses and oversized payloads are terminal.
func Retryable(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return false
}
