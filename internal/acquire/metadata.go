// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/internal/logger"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Resolver turns a user-supplied identifier into a paper record carrying a
// downloadable PDF URL and whatever bibliographic metadata the public APIs
// provide.
type Resolver struct {
	client    *http.Client
	userAgent string
	mailto    string
	log       logger.Logger
}

// NewResolver creates a Resolver. mailto is passed to OpenAlex to join its
// polite pool and may be empty.
func NewResolver(client *http.Client, userAgent, mailto string, log logger.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{client: client, userAgent: userAgent, mailto: mailto, log: log}
}

// Resolve classifies identifier and builds a paper record for it. Metadata
// lookup failures are logged and leave the title set to the paper ID; only
// unrecognised identifiers are errors.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*types.Paper, error) {
	id := ParseIdentifier(identifier)
	if id.Kind == KindUnknown {
		return nil, fmt.Errorf("unrecognized identifier %q", identifier)
	}

	paper := &types.Paper{
		PaperID: id.PaperID(),
		URL:     id.PDFURL(),
	}

	switch id.Kind {
	case KindArxiv:
		if err := r.fetchArxivMetadata(ctx, id.Value, paper); err != nil {
			r.log.Warn("arXiv metadata lookup failed", "id", id.Value, "error", err)
		}
	case KindDOI:
		oaURL, err := r.openAccessPDF(ctx, id.Value)
		if err != nil {
			r.log.Warn("OpenAlex lookup failed, using doi.org", "doi", id.Value, "error", err)
		} else if oaURL != "" {
			paper.URL = oaURL
		}
		if err := r.fetchCrossRefMetadata(ctx, id.Value, paper); err != nil {
			r.log.Warn("CrossRef metadata lookup failed", "doi", id.Value, "error", err)
		}
	}

	if paper.Title == "" {
		paper.Title = paper.PaperID
	}
	paper.Year = types.DeriveYear(paper.PublishedDate)
	return paper, nil
}

// get issues a GET with the resolver's User-Agent, backing off on 429, and
// fails on any non-200 status. The caller closes the body.
func (r *Resolver) get(ctx context.Context, service, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", service, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := httputil.DoWithRetry(ctx, r.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%s API request: %w", service, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s API returned HTTP %d", service, resp.StatusCode)
	}
	return resp.Body, nil
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

func (r *Resolver) fetchArxivMetadata(ctx context.Context, arxivID string, paper *types.Paper) error {
	body, err := r.get(ctx, "arXiv", arxivAPIBase+"?id_list="+url.QueryEscape(arxivID))
	if err != nil {
		return err
	}
	defer body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(body).Decode(&feed); err != nil {
		return fmt.Errorf("parsing arXiv response: %w", err)
	}
	if len(feed.Entries) == 0 {
		return fmt.Errorf("no entries found for arXiv ID %s", arxivID)
	}

	entry := feed.Entries[0]
	paper.Title = collapseSpace(entry.Title)
	paper.Abstract = collapseSpace(entry.Summary)
	for _, a := range entry.Authors {
		paper.Authors = append(paper.Authors, strings.TrimSpace(a.Name))
	}
	paper.PublishedDate = arxivDate(entry.Published)
	return nil
}

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title    []string         `json:"title"`
	Abstract string           `json:"abstract"`
	Author   []crossrefAuthor `json:"author"`
	Created  crossrefDate     `json:"created"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (r *Resolver) fetchCrossRefMetadata(ctx context.Context, doi string, paper *types.Paper) error {
	body, err := r.get(ctx, "CrossRef", crossrefAPIBase+doi)
	if err != nil {
		return err
	}
	defer body.Close()

	var cr crossrefResponse
	if err := json.NewDecoder(body).Decode(&cr); err != nil {
		return fmt.Errorf("parsing CrossRef response: %w", err)
	}

	if len(cr.Message.Title) > 0 {
		paper.Title = cr.Message.Title[0]
	}
	paper.Abstract = cr.Message.Abstract
	for _, a := range cr.Message.Author {
		paper.Authors = append(paper.Authors, strings.TrimSpace(a.Given+" "+a.Family))
	}

	if len(cr.Message.Created.DateParts) > 0 && len(cr.Message.Created.DateParts[0]) >= 3 {
		parts := cr.Message.Created.DateParts[0]
		d := time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)
		paper.PublishedDate = d.Format("2006-01-02")
	}
	return nil
}

// arxivDate reduces an Atom timestamp to YYYY-MM-DD.
func arxivDate(published string) string {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(published)); err == nil {
		return t.Format("2006-01-02")
	}
	if len(published) >= 10 {
		return published[:10]
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
