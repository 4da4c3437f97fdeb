// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv API.
type ArxivBackend struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Search asks arXiv for papers whose title or abstract matches the topic,
// sorted by relevance.
func (b *ArxivBackend) Search(ctx context.Context, query Query) ([]*types.Paper, error) {
	if query.IsEmpty() {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	params := url.Values{
		"search_query": {buildArxivQuery(query.Topic)},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]*types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if p := entry.toPaper(); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// buildArxivQuery matches the topic against titles or abstracts.
func buildArxivQuery(topic string) string {
	topic = strings.TrimSpace(topic)
	return fmt.Sprintf("ti:%s OR abs:%s", topic, topic)
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

func (e arxivEntry) toPaper() *types.Paper {
	id := extractArxivID(e.ID)
	if id == "" {
		return nil
	}

	p := &types.Paper{
		PaperID:  id,
		Title:    collapseSpace(e.Title),
		Abstract: strings.TrimSpace(e.Summary),
		URL:      e.pdfURL(),
	}
	for _, a := range e.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.PublishedDate = t.Format("2006-01-02")
		p.Year = types.IntPtr(t.Year())
	}
	return p
}

// pdfURL returns the entry's PDF link, falling back to rewriting the
// abstract URL.
func (e arxivEntry) pdfURL() string {
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	if strings.Contains(e.ID, "/abs/") {
		return strings.Replace(strings.TrimSpace(e.ID), "/abs/", "/pdf/", 1)
	}
	return ""
}

// extractArxivID returns the last path segment of the entry's <id> URL,
// version suffix included (e.g. "http://arxiv.org/abs/2301.07041v1" →
// "2301.07041v1"). Old-style IDs keep only their final segment.
func extractArxivID(idURL string) string {
	idURL = strings.TrimRight(strings.TrimSpace(idURL), "/")
	if idURL == "" {
		return ""
	}
	return idURL[strings.LastIndex(idURL, "/")+1:]
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
