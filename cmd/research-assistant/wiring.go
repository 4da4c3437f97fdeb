// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pdiddy/research-assistant/internal/acquire"
	"github.com/pdiddy/research-assistant/internal/assistant"
	"github.com/pdiddy/research-assistant/internal/convert"
	"github.com/pdiddy/research-assistant/internal/extract"
	"github.com/pdiddy/research-assistant/internal/knowledge"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/search"
	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/pkg/types"
)

func openStore() (*knowledge.Store, error) {
	return knowledge.Open(cfg.Store, log.With("component", "store"))
}

// searchBackends returns arXiv first, then OpenAlex.
func searchBackends() []search.Backend {
	client := &http.Client{Timeout: cfg.Search.Timeout}
	return []search.Backend{
		&search.ArxivBackend{Client: client, UserAgent: cfg.Search.UserAgent},
		&search.OpenAlexBackend{
			Client:    client,
			UserAgent: cfg.Search.UserAgent,
			Email:     loadedSecrets.Lookup(secrets.OpenAlexEmail, "", "OPENALEX_EMAIL"),
		},
	}
}

// searchTopic queries every backend and returns the merged recent papers.
func searchTopic(ctx context.Context, topic string, maxResults, yearsBack int, w io.Writer) (search.Output, error) {
	q := search.QueryFromConfig(topic, types.SearchConfig{MaxResults: maxResults, YearsBack: yearsBack})
	return search.Search(ctx, q, searchBackends(), w)
}

// loadSegmenter compiles the heading vocabulary from headingsFile, the
// config file, or the defaults, in that order.
func loadSegmenter(headingsFile string) (*extract.Segmenter, error) {
	headings := cfg.Extract.Headings
	if headingsFile != "" {
		f, err := os.Open(headingsFile)
		if err != nil {
			return nil, fmt.Errorf("opening headings file: %w", err)
		}
		defer f.Close()
		if headings, err = extract.LoadHeadings(f); err != nil {
			return nil, err
		}
	}
	seg, err := extract.NewSegmenter(headings)
	if err != nil {
		return nil, err
	}
	log.Debug("heading vocabulary", "labels", seg.Labels())
	return seg, nil
}

func newPipeline(headingsFile string) (*pipeline.Pipeline, error) {
	seg, err := loadSegmenter(headingsFile)
	if err != nil {
		return nil, err
	}
	fetcher := acquire.NewFetcher(nil, cfg.Fetch)
	extractor := convert.NewPDFExtractor(cfg.Extract.PagePolicy)
	return pipeline.New(fetcher, extractor, seg, cfg.Fetch, log.With("component", "pipeline")), nil
}

func newResolver() *acquire.Resolver {
	return acquire.NewResolver(nil, cfg.Fetch.UserAgent,
		loadedSecrets.Lookup(secrets.OpenAlexEmail, "", "OPENALEX_EMAIL"), log.With("component", "resolver"))
}

func newLLMClient() (*llm.Client, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(provider, cfg.LLM, log.With("component", "llm", "provider", provider.Name())), nil
}

// newAssistant opens the store and the model client. The returned close
// function releases both.
func newAssistant() (*assistant.Assistant, *knowledge.Store, func(), error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := newLLMClient()
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	closeAll := func() {
		client.Close()
		store.Close()
	}
	return assistant.New(store, client, log.With("component", "assistant")), store, closeAll, nil
}

// joinArgs joins positional arguments into one topic or question.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
