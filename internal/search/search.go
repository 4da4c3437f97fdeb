// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search finds papers on a topic through academic APIs and returns
// them as paper records without content.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	defaultMaxResults = 10
	defaultYearsBack  = 5
)

// Backend searches a single academic API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query) ([]*types.Paper, error)
}

// Query holds the search parameters.
type Query struct {
	// Topic is matched against titles and abstracts.
	Topic string
	// MaxResults bounds the number of papers requested per backend.
	MaxResults int
	// YearsBack drops papers published before the current year minus
	// YearsBack.
	YearsBack int
}

// IsEmpty reports whether the query has no topic.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Topic) == ""
}

// QueryFromConfig fills unset query limits from cfg and then from the
// built-in defaults (10 results, 5 years).
func QueryFromConfig(topic string, cfg types.SearchConfig) Query {
	q := Query{Topic: topic, MaxResults: cfg.MaxResults, YearsBack: cfg.YearsBack}
	if q.MaxResults <= 0 {
		q.MaxResults = defaultMaxResults
	}
	if q.YearsBack <= 0 {
		q.YearsBack = defaultYearsBack
	}
	return q
}

// Output holds the results and dedup statistics.
type Output struct {
	Papers        []*types.Paper
	DupsRemoved   int
	BackendErrors []string
}

// Search fans the query out to all backends concurrently, merges duplicate
// papers, and keeps those published within the query's year window.
// Results keep backend order and, within a backend, relevance order.
// A failing backend is reported but does not fail the search unless every
// backend fails.
func Search(ctx context.Context, query Query, backends []Backend, w io.Writer) (Output, error) {
	if query.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide a research topic")
	}
	if len(backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}

	type backendResult struct {
		papers []*types.Paper
		err    error
	}
	results := make([]backendResult, len(backends))

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			papers, err := b.Search(ctx, query)
			results[i] = backendResult{papers: papers, err: err}
		}(i, b)
	}
	wg.Wait()

	var all []*types.Paper
	var backendErrors []string
	for i, br := range results {
		name := backends[i].Name()
		if br.err != nil {
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", name, br.err))
			fmt.Fprintf(w, "warning: backend %s failed: %v\n", name, br.err)
			continue
		}
		all = append(all, br.papers...)
	}
	if len(backendErrors) == len(backends) {
		return Output{BackendErrors: backendErrors}, fmt.Errorf("all search backends failed: %s", strings.Join(backendErrors, "; "))
	}

	deduped, removed := deduplicate(all)
	recent := FilterRecent(deduped, query.YearsBack, time.Now())

	return Output{
		Papers:        recent,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// FilterRecent keeps papers whose year is at least now's year minus
// yearsBack. Papers with no known year are dropped. A non-positive
// yearsBack disables the filter.
func FilterRecent(papers []*types.Paper, yearsBack int, now time.Time) []*types.Paper {
	if yearsBack <= 0 {
		return papers
	}
	cutoff := now.Year() - yearsBack
	kept := make([]*types.Paper, 0, len(papers))
	for _, p := range papers {
		if p.Year != nil && *p.Year >= cutoff {
			kept = append(kept, p)
		}
	}
	return kept
}

// deduplicate merges papers that share a paper ID or normalized title.
func deduplicate(papers []*types.Paper) ([]*types.Paper, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []*types.Paper
	removed := 0

	for _, p := range papers {
		idKey := ""
		if p.PaperID != "" {
			idKey = "id:" + p.PaperID
		}
		titleKey := ""
		if t := normalizeTitle(p.Title); t != "" {
			titleKey = "title:" + t
		}

		if idx, ok := lookup(seen, idKey, titleKey); ok {
			mergeInto(deduped[idx], p)
			removed++
			continue
		}

		idx := len(deduped)
		deduped = append(deduped, p)
		if idKey != "" {
			seen[idKey] = idx
		}
		if titleKey != "" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

func lookup(seen map[string]int, keys ...string) (int, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if idx, ok := seen[k]; ok {
			return idx, true
		}
	}
	return 0, false
}

// mergeInto fills empty fields of dst from src.
func mergeInto(dst, src *types.Paper) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.PublishedDate == "" {
		dst.PublishedDate = src.PublishedDate
	}
	if dst.Year == nil {
		dst.Year = src.Year
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FormatTable writes papers as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %s\n", "#", "Title", "Authors", "Year", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, p := range out.Papers {
		year := ""
		if p.Year != nil {
			year = fmt.Sprintf("%d", *p.Year)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %s\n",
			i+1, truncate(p.Title, 60), formatAuthors(p.Authors), year, p.PaperID)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Papers))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes papers as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	papers := out.Papers
	if papers == nil {
		papers = []*types.Paper{}
	}
	return enc.Encode(papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
