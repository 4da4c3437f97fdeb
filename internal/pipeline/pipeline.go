// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline enriches paper records with their PDF content: it fetches
// each paper's PDF, extracts the text, and attaches sections and
// figure/table references. A failure at any stage leaves the paper
// untouched and is reported as an Outcome; it never aborts a batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/pdiddy/research-assistant/internal/acquire"
	"github.com/pdiddy/research-assistant/internal/extract"
	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/internal/logger"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	defaultMinDelay     = time.Second
	defaultMaxDelay     = 2 * time.Second
	defaultHostInterval = time.Second
)

// Fetcher downloads a PDF.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*acquire.RawDocument, error)
}

// Extractor turns PDF bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Segmenter partitions plain text into named sections.
type Segmenter interface {
	Segment(text string) types.SectionMap
}

// Stage names the pipeline step an Outcome refers to.
type Stage string

const (
	StageNone    Stage = ""
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
)

// Outcome reports how processing one paper ended. Err is nil on success.
type Outcome struct {
	PaperID string
	Title   string
	Stage   Stage
	Err     error
}

// OK reports whether the paper was enriched.
func (o Outcome) OK() bool { return o.Err == nil }

// Retryable reports whether a later pass could succeed: transient fetch
// failures and interrupted runs are retryable, extraction failures are not.
func (o Outcome) Retryable() bool {
	switch {
	case o.Err == nil:
		return false
	case errors.Is(o.Err, context.Canceled), errors.Is(o.Err, context.DeadlineExceeded):
		return true
	case o.Stage == StageFetch:
		return acquire.Retryable(o.Err)
	default:
		return false
	}
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Processed int
	Skipped   int
	Failed    int
	// Retryable counts the failures a later pass could recover.
	Retryable int
	Outcomes  []Outcome
}

// Total returns the total number of papers considered.
func (r BatchResult) Total() int {
	return r.Processed + r.Skipped + r.Failed
}

// HasFailures reports whether any paper failed processing.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Pipeline runs the fetch, extract and segment stages over paper records.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	segmenter Segmenter
	limiter   *httputil.HostLimiter
	log       logger.Logger

	minDelay time.Duration
	maxDelay time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	jitter   func() float64
}

// New assembles a Pipeline. cfg supplies the inter-paper pause bounds
// (default 1s to 2s) and the per-host interval (default 1s). A nil
// segmenter means the default heading vocabulary.
func New(f Fetcher, e Extractor, s Segmenter, cfg types.FetchConfig, log logger.Logger) *Pipeline {
	if s == nil {
		s = mustDefaultSegmenter()
	}
	if log == nil {
		log = logger.NewNop()
	}
	minDelay, maxDelay := cfg.MinDelay, cfg.MaxDelay
	if minDelay <= 0 {
		minDelay = defaultMinDelay
	}
	if maxDelay < minDelay {
		maxDelay = max(defaultMaxDelay, minDelay)
	}
	interval := cfg.HostInterval
	if interval == 0 {
		interval = defaultHostInterval
	}
	p := &Pipeline{
		fetcher:   f,
		extractor: e,
		segmenter: s,
		limiter:   httputil.NewHostLimiter(interval),
		log:       log,
		minDelay:  minDelay,
		maxDelay:  maxDelay,
		sleep:     sleepCtx,
		jitter:    rand.Float64,
	}
	log.Debug("pipeline configured",
		"min_delay", minDelay, "max_delay", maxDelay, "host_interval", p.limiter.Interval())
	return p
}

// ProcessPaper enriches paper in place with Content, Sections and
// FiguresTables. On failure the paper is left unmodified, a warning naming
// the paper and the failed stage is logged, and the returned Outcome
// carries the error.
func (p *Pipeline) ProcessPaper(ctx context.Context, paper *types.Paper) Outcome {
	out := Outcome{PaperID: paper.PaperID, Title: paper.Title}

	content, err := p.fetchAndExtract(ctx, paper.URL, &out.Stage)
	if err != nil {
		out.Err = err
		p.log.Warn("PDF processing failed",
			"title", paper.Title, "paper_id", paper.PaperID, "stage", string(out.Stage), "error", err)
		return out
	}

	paper.Content = &content
	paper.Sections = p.segmenter.Segment(content)
	paper.FiguresTables = extract.ExtractReferences(content)
	out.Stage = StageNone

	p.log.Debug("PDF processed",
		"paper_id", paper.PaperID, "sections", len(paper.Sections), "figures_tables", len(paper.FiguresTables))
	return out
}

func (p *Pipeline) fetchAndExtract(ctx context.Context, url string, stage *Stage) (string, error) {
	*stage = StageFetch
	if err := p.limiter.Wait(ctx, url); err != nil {
		return "", err
	}
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	*stage = StageExtract
	return p.extractor.Extract(ctx, doc.Data)
}

// ProcessBatch runs ProcessPaper over papers in order, printing a status
// line per paper and a closing summary to w. Papers without a URL are
// skipped. Successive fetches are separated by a randomized pause. The
// batch stops early only when ctx is done.
func (p *Pipeline) ProcessBatch(ctx context.Context, papers []*types.Paper, w io.Writer) BatchResult {
	var result BatchResult
	attempted := 0
	interrupted := func(err error) {
		p.log.Warn("batch interrupted", "remaining", len(papers)-result.Total(), "error", err)
	}
	for _, paper := range papers {
		if err := ctx.Err(); err != nil {
			interrupted(err)
			break
		}
		if paper.URL == "" {
			fmt.Fprintf(w, "skipped: %s (no PDF URL)\n", paper.Title)
			result.Skipped++
			continue
		}

		if attempted > 0 {
			if err := p.sleep(ctx, p.pause()); err != nil {
				interrupted(err)
				break
			}
		}
		attempted++

		out := p.ProcessPaper(ctx, paper)
		result.Outcomes = append(result.Outcomes, out)
		if !out.OK() {
			kind := "terminal"
			if out.Retryable() {
				kind = "retryable"
				result.Retryable++
			}
			fmt.Fprintf(w, "failed:  %s (%s, %s: %v)\n", paper.Title, kind, out.Stage, out.Err)
			result.Failed++
			continue
		}
		fmt.Fprintf(w, "processed: %s (%d sections, %d figures/tables)\n",
			paper.Title, len(paper.Sections), len(paper.FiguresTables))
		result.Processed++
	}
	fmt.Fprintf(w, "\nBatch summary: %d processed, %d skipped, %d failed (%d retryable) (total: %d)\n",
		result.Processed, result.Skipped, result.Failed, result.Retryable, result.Total())
	return result
}

// pause returns a duration uniformly drawn from [minDelay, maxDelay].
func (p *Pipeline) pause() time.Duration {
	span := p.maxDelay - p.minDelay
	return p.minDelay + time.Duration(p.jitter()*float64(span))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func mustDefaultSegmenter() *extract.Segmenter {
	s, err := extract.NewSegmenter(extract.DefaultHeadings)
	if err != nil {
		panic(err)
	}
	return s
}
