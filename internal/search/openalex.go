// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexBackend queries the OpenAlex API. Its results carry DOI-derived
// paper IDs and, when OpenAlex knows one, an open-access PDF URL.
type OpenAlexBackend struct {
	Client    *http.Client
	UserAgent string
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return "openalex" }

// Search queries OpenAlex for works matching the topic, restricted to the
// query's publication window.
func (b *OpenAlexBackend) Search(ctx context.Context, query Query) ([]*types.Paper, error) {
	if query.IsEmpty() {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > 200 {
		maxResults = 200
	}

	params := url.Values{
		"search":   {strings.TrimSpace(query.Topic)},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if query.YearsBack > 0 {
		from := time.Now().Year() - query.YearsBack
		params.Set("filter", fmt.Sprintf("from_publication_date:%d-01-01", from))
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	papers := make([]*types.Paper, 0, len(oar.Results))
	for _, work := range oar.Results {
		if p := work.toPaper(); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func (w openAlexWork) toPaper() *types.Paper {
	p := &types.Paper{
		Title:    w.Title,
		Abstract: reconstructAbstract(w.AbstractInvertedIndex),
	}

	// OpenAlex is DOI-centric; fall back to the work ID.
	switch {
	case w.DOI != "":
		doi := strings.TrimPrefix(w.DOI, "https://doi.org/")
		p.PaperID = strings.NewReplacer("/", "-", ":", "-").Replace(doi)
	case w.ID != "":
		p.PaperID = w.ID[strings.LastIndex(w.ID, "/")+1:]
	default:
		return nil
	}

	for _, authorship := range w.Authorships {
		if authorship.Author.DisplayName != "" {
			p.Authors = append(p.Authors, authorship.Author.DisplayName)
		}
	}

	if w.PublicationDate != "" {
		p.PublishedDate = w.PublicationDate
		p.Year = types.DeriveYear(w.PublicationDate)
	} else if w.PublicationYear > 0 {
		p.Year = types.IntPtr(w.PublicationYear)
	}

	if w.BestOALocation != nil {
		p.URL = w.BestOALocation.PDFURL
	}
	return p
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	BestOALocation        *openAlexLocation    `json:"best_oa_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	PDFURL string `json:"pdf_url"`
}
