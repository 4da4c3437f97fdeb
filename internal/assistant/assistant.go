// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assistant answers questions about stored papers and writes
// research ideas, review papers and improvement plans from them. Model
// failures surface as answer text, never as errors.
package assistant

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/research-assistant/internal/logger"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// NoPapersAnswer is the answer given when a question names no papers.
const NoPapersAnswer = "No papers provided for reference."

// Paper limits and truncation lengths applied when building prompts.
const (
	ideasPaperLimit  = 10
	reviewPaperLimit = 15
	planPaperLimit   = 8

	qaSectionChars     = 1000
	reviewSectionChars = 1000
	planSectionChars   = 800
	singleContentChars = 8000
)

var (
	qaSections     = []string{"Introduction", "Methodology", "Method", "Results", "Discussion", "Conclusion"}
	reviewSections = []string{"Introduction", "Method", "Methodology", "Results", "Conclusion"}
	planSections   = []string{"Results", "Conclusion", "Discussion"}
)

// citationPattern matches "[Paper 2 - Title, Section Results]"; title and
// section are optional.
var citationPattern = regexp.MustCompile(`\[Paper\s+(\d+)(?:\s*-\s*([^,]+))?,\s*(?:Section\s+([^\]]+))?\]`)

// PaperSource loads stored papers.
type PaperSource interface {
	PapersByIDs(ctx context.Context, ids []string) ([]*types.Paper, error)
	PapersLastNYears(ctx context.Context, topic string, n int) ([]*types.Paper, error)
}

// Asker returns a model answer for a prompt. Failures are returned as
// answer text.
type Asker interface {
	Ask(ctx context.Context, prompt string) string
}

// Assistant builds prompts from papers and asks the model.
type Assistant struct {
	papers PaperSource
	model  Asker
	log    logger.Logger
	now    func() time.Time
}

// New creates an Assistant.
func New(papers PaperSource, model Asker, log logger.Logger) *Assistant {
	if log == nil {
		log = logger.NewNop()
	}
	return &Assistant{papers: papers, model: model, log: log, now: time.Now}
}

// AnswerQuestion answers question from the papers named by paperIDs. IDs
// that are not stored are skipped.
func (a *Assistant) AnswerQuestion(ctx context.Context, question string, paperIDs []string, topic string) types.QAResult {
	result := types.QAResult{Question: question, Timestamp: a.now()}
	if len(paperIDs) == 0 {
		result.Answer = NoPapersAnswer
		return result
	}

	papers, err := a.papers.PapersByIDs(ctx, paperIDs)
	if err != nil {
		a.log.Error("loading papers failed", "error", err)
		result.Answer = fmt.Sprintf("Error: Failed to load papers. %v", err)
		return result
	}
	if len(papers) == 0 {
		result.Answer = "None of the requested papers are stored."
		return result
	}

	a.log.Info("answering question", "papers", len(papers), "topic", topic)
	prompt, err := render(multiPaperQATmpl, struct {
		Question string
		Topic    string
		Papers   []paperView
	}{question, topic, views(papers, qaSections, qaSectionChars)})
	if err != nil {
		result.Answer = fmt.Sprintf("Error: Failed to build the prompt. %v", err)
		return result
	}

	result.Answer = a.model.Ask(ctx, prompt)
	result.Papers = refs(papers)
	result.Citations = ParseCitations(result.Answer)
	return result
}

// AnswerSinglePaper answers question from one paper's full content,
// truncated to 8000 characters.
func (a *Assistant) AnswerSinglePaper(ctx context.Context, question string, paper *types.Paper) types.QAResult {
	result := types.QAResult{Question: question, Timestamp: a.now()}
	if paper == nil {
		result.Answer = NoPapersAnswer
		return result
	}

	a.log.Info("answering question about paper", "title", paper.Title)
	content := ""
	if paper.Content != nil {
		content = truncate(*paper.Content, singleContentChars, "... [content truncated]")
	}
	prompt, err := render(singlePaperQATmpl, struct {
		Question string
		Paper    paperView
		Content  string
	}{question, view(0, paper, nil, 0), content})
	if err != nil {
		result.Answer = fmt.Sprintf("Error: Failed to answer the question. %v", err)
		return result
	}

	result.Answer = a.model.Ask(ctx, prompt)
	result.Papers = refs([]*types.Paper{paper})
	result.Citations = ParseCitations(result.Answer)
	return result
}

// FutureWork asks for future research directions on topic. The papers
// stored for the last yearsBack years are reported as its basis.
func (a *Assistant) FutureWork(ctx context.Context, topic string, yearsBack int) types.Generation {
	gen := types.Generation{Kind: types.GenFutureWork, Topic: topic, Timestamp: a.now()}

	prompt, err := render(futureWorkTmpl, struct {
		Topic     string
		YearsBack int
	}{topic, yearsBack})
	if err != nil {
		gen.Text = fmt.Sprintf("Error: %v", err)
		return gen
	}
	gen.Text = a.model.Ask(ctx, prompt)

	if a.papers != nil {
		papers, err := a.papers.PapersLastNYears(ctx, topic, yearsBack)
		if err != nil {
			a.log.Warn("loading basis papers failed", "topic", topic, "error", err)
		} else {
			gen.BasedOnPapers = refs(papers)
		}
	}
	return gen
}

// ResearchIdeas asks for 5-7 research ideas drawn from the 10 most recent
// papers.
func (a *Assistant) ResearchIdeas(ctx context.Context, papers []*types.Paper, topic string) types.Generation {
	selected := limit(newestFirst(papers), ideasPaperLimit)
	return a.generate(ctx, types.GenResearchIdeas, researchIdeasTmpl, topic, selected, views(selected, nil, 0))
}

// ReviewPaper asks for a review paper over up to 15 papers, oldest first,
// with key sections truncated to 1000 characters.
func (a *Assistant) ReviewPaper(ctx context.Context, papers []*types.Paper, topic string) types.Generation {
	selected := limit(oldestFirst(papers), reviewPaperLimit)
	return a.generate(ctx, types.GenReviewPaper, reviewPaperTmpl, topic, selected, views(selected, reviewSections, reviewSectionChars))
}

// ImprovementPlan asks for a research plan from the 8 most recent papers,
// with findings sections truncated to 800 characters.
func (a *Assistant) ImprovementPlan(ctx context.Context, papers []*types.Paper, topic string) types.Generation {
	selected := limit(newestFirst(papers), planPaperLimit)
	return a.generate(ctx, types.GenImprovementPlan, improvementPlanTmpl, topic, selected, views(selected, planSections, planSectionChars))
}

// Generate dispatches to the generator named by kind. FutureWork is not
// paper-driven and is not reachable here.
func (a *Assistant) Generate(ctx context.Context, kind types.GenerationKind, papers []*types.Paper, topic string) (types.Generation, error) {
	switch kind {
	case types.GenResearchIdeas:
		return a.ResearchIdeas(ctx, papers, topic), nil
	case types.GenReviewPaper:
		return a.ReviewPaper(ctx, papers, topic), nil
	case types.GenImprovementPlan:
		return a.ImprovementPlan(ctx, papers, topic), nil
	default:
		return types.Generation{}, fmt.Errorf("unknown generation kind %q (use ideas, review or plan)", kind)
	}
}

func (a *Assistant) generate(ctx context.Context, kind types.GenerationKind, tmpl *template.Template, topic string, papers []*types.Paper, pv []paperView) types.Generation {
	gen := types.Generation{Kind: kind, Topic: topic, Timestamp: a.now()}
	a.log.Info("generating", "kind", kind, "topic", topic, "papers", len(papers))

	prompt, err := render(tmpl, struct {
		Topic  string
		Papers []paperView
	}{topic, pv})
	if err != nil {
		gen.Text = fmt.Sprintf("Error: Failed to build the prompt. %v", err)
		return gen
	}

	gen.Text = a.model.Ask(ctx, prompt)
	gen.BasedOnPapers = refs(papers)
	return gen
}

// ParseCitations returns every "[Paper N - Title, Section X]" reference in
// answer, in order of appearance.
func ParseCitations(answer string) []types.Citation {
	var citations []types.Citation
	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		citations = append(citations, types.Citation{
			PaperNum:     m[1],
			PaperTitle:   strings.TrimSpace(m[2]),
			Section:      strings.TrimSpace(m[3]),
			FullCitation: m[0],
		})
	}
	return citations
}

func views(papers []*types.Paper, sections []string, maxChars int) []paperView {
	out := make([]paperView, len(papers))
	for i, p := range papers {
		out[i] = view(i+1, p, sections, maxChars)
	}
	return out
}

func view(num int, p *types.Paper, sections []string, maxChars int) paperView {
	v := paperView{
		Num:      num,
		Title:    orDefault(p.Title, "Unknown Title"),
		Authors:  "Unknown",
		Year:     "Unknown Year",
		Abstract: orDefault(p.Abstract, "No abstract available"),
	}
	if len(p.Authors) > 0 {
		v.Authors = strings.Join(p.Authors, ", ")
	}
	if p.Year != nil {
		v.Year = strconv.Itoa(*p.Year)
	}
	for _, name := range sections {
		if text, ok := p.Sections[name]; ok {
			v.Sections = append(v.Sections, sectionView{Name: name, Text: truncate(text, maxChars, "... [truncated]")})
		}
	}
	return v
}

func refs(papers []*types.Paper) []types.PaperRef {
	out := make([]types.PaperRef, len(papers))
	for i, p := range papers {
		out[i] = types.PaperRef{PaperID: p.PaperID, Title: p.Title, Authors: p.Authors, Year: p.Year}
	}
	return out
}

// newestFirst returns a copy sorted by year descending; unknown years
// count as 0.
func newestFirst(papers []*types.Paper) []*types.Paper {
	sorted := slices.Clone(papers)
	slices.SortStableFunc(sorted, func(a, b *types.Paper) int {
		return cmp.Compare(b.YearOr(0), a.YearOr(0))
	})
	return sorted
}

func oldestFirst(papers []*types.Paper) []*types.Paper {
	sorted := slices.Clone(papers)
	slices.SortStableFunc(sorted, func(a, b *types.Paper) int {
		return cmp.Compare(a.YearOr(0), b.YearOr(0))
	})
	return sorted
}

func limit(papers []*types.Paper, n int) []*types.Paper {
	if len(papers) > n {
		return papers[:n]
	}
	return papers
}

// truncate cuts s to maxChars characters and appends marker when it was
// longer.
func truncate(s string, maxChars int, marker string) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i] + marker
		}
		n++
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
