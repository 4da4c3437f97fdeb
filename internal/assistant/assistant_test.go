// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- fakes ---

type fakeModel struct {
	prompts []string
	answer  string
}

func (m *fakeModel) Ask(_ context.Context, prompt string) string {
	m.prompts = append(m.prompts, prompt)
	return m.answer
}

type fakeSource struct {
	papers map[string]*types.Paper
	recent []*types.Paper
	err    error

	lastTopic string
	lastYears int
}

func (s *fakeSource) PapersByIDs(_ context.Context, ids []string) ([]*types.Paper, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*types.Paper
	for _, id := range ids {
		if p, ok := s.papers[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeSource) PapersLastNYears(_ context.Context, topic string, n int) ([]*types.Paper, error) {
	s.lastTopic, s.lastYears = topic, n
	return s.recent, s.err
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAssistant(src PaperSource, model Asker) *Assistant {
	a := New(src, model, nil)
	a.now = func() time.Time { return fixedNow }
	return a
}

func paper(id string, year int, sections types.SectionMap) *types.Paper {
	p := &types.Paper{
		PaperID:  id,
		Title:    "Title " + id,
		Authors:  []string{"A. Author"},
		Abstract: "Abstract " + id,
		Sections: sections,
	}
	if year > 0 {
		p.Year = types.IntPtr(year)
	}
	return p
}

func paperIDs(refs []types.PaperRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.PaperID
	}
	return out
}

// --- question answering ---

func TestAnswerQuestion_NoIDs(t *testing.T) {
	model := &fakeModel{answer: "unused"}
	a := newTestAssistant(&fakeSource{}, model)

	res := a.AnswerQuestion(context.Background(), "why?", nil, "")
	assert.Equal(t, "why?", res.Question)
	assert.Equal(t, "No papers provided for reference.", res.Answer)
	assert.Empty(t, model.prompts)
}

func TestAnswerQuestion(t *testing.T) {
	src := &fakeSource{papers: map[string]*types.Paper{
		"p1": paper("p1", 2023, types.SectionMap{"Results": "We win.", "References": "[1] x"}),
		"p2": paper("p2", 0, nil),
	}}
	model := &fakeModel{answer: "Yes [Paper 1 - Title p1, Section Results] and [Paper 2, ]."}
	a := newTestAssistant(src, model)

	res := a.AnswerQuestion(context.Background(), "Does it work?", []string{"p1", "missing", "p2"}, "graphs")

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "Question: Does it work?")
	assert.Contains(t, prompt, `topic "graphs"`)
	assert.Contains(t, prompt, "[Paper N - Title, Section X]")
	assert.Contains(t, prompt, "Paper 1:\nTitle: Title p1")
	assert.Contains(t, prompt, "Results: We win.")
	assert.NotContains(t, prompt, "References")
	assert.Contains(t, prompt, "Paper 2:\nTitle: Title p2")
	assert.Contains(t, prompt, "Year: Unknown Year")

	assert.Equal(t, model.answer, res.Answer)
	assert.Equal(t, []string{"p1", "p2"}, paperIDs(res.Papers))
	assert.Equal(t, fixedNow, res.Timestamp)
	require.Len(t, res.Citations, 2)
	assert.Equal(t, types.Citation{
		PaperNum: "1", PaperTitle: "Title p1", Section: "Results",
		FullCitation: "[Paper 1 - Title p1, Section Results]",
	}, res.Citations[0])
	assert.Equal(t, "2", res.Citations[1].PaperNum)
	assert.Empty(t, res.Citations[1].Section)
}

func TestAnswerQuestion_NoneStored(t *testing.T) {
	model := &fakeModel{}
	a := newTestAssistant(&fakeSource{}, model)
	res := a.AnswerQuestion(context.Background(), "q", []string{"x"}, "")
	assert.Equal(t, "None of the requested papers are stored.", res.Answer)
	assert.Empty(t, model.prompts)
}

func TestAnswerQuestion_StoreError(t *testing.T) {
	a := newTestAssistant(&fakeSource{err: errors.New("db locked")}, &fakeModel{})
	res := a.AnswerQuestion(context.Background(), "q", []string{"x"}, "")
	assert.True(t, strings.HasPrefix(res.Answer, "Error:"))
	assert.Contains(t, res.Answer, "db locked")
}

func TestAnswerQuestion_ModelErrorText(t *testing.T) {
	src := &fakeSource{papers: map[string]*types.Paper{"p1": paper("p1", 2023, nil)}}
	model := &fakeModel{answer: "Error: Failed to get a response from the model. connection refused"}
	res := newTestAssistant(src, model).AnswerQuestion(context.Background(), "q", []string{"p1"}, "")
	assert.Equal(t, model.answer, res.Answer)
	assert.Empty(t, res.Citations)
}

func TestAnswerSinglePaper(t *testing.T) {
	content := strings.Repeat("é", singleContentChars+10)
	p := paper("p1", 2022, nil)
	p.Content = &content
	model := &fakeModel{answer: "It says so."}

	res := newTestAssistant(nil, model).AnswerSinglePaper(context.Background(), "What?", p)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "Title: Title p1")
	assert.Contains(t, prompt, "Year: 2022")
	assert.Contains(t, prompt, strings.Repeat("é", singleContentChars)+"... [content truncated]")
	assert.NotContains(t, prompt, strings.Repeat("é", singleContentChars+1))
	assert.Equal(t, "It says so.", res.Answer)
	assert.Equal(t, []string{"p1"}, paperIDs(res.Papers))
}

func TestAnswerSinglePaper_NoContent(t *testing.T) {
	model := &fakeModel{answer: "a"}
	res := newTestAssistant(nil, model).AnswerSinglePaper(context.Background(), "q", &types.Paper{PaperID: "x"})
	assert.Contains(t, model.prompts[0], "Title: Unknown Title")
	assert.Contains(t, model.prompts[0], "Authors: Unknown")
	assert.Equal(t, "a", res.Answer)
}

// --- generation ---

func TestFutureWork(t *testing.T) {
	src := &fakeSource{recent: []*types.Paper{paper("r1", 2024, nil)}}
	model := &fakeModel{answer: "ideas"}
	gen := newTestAssistant(src, model).FutureWork(context.Background(), "quantum", 3)

	assert.Equal(t, "Generate future research ideas for the topic: quantum based on research from the past 3 years.", model.prompts[0])
	assert.Equal(t, types.GenFutureWork, gen.Kind)
	assert.Equal(t, "ideas", gen.Text)
	assert.Equal(t, []string{"r1"}, paperIDs(gen.BasedOnPapers))
	assert.Equal(t, "quantum", src.lastTopic)
	assert.Equal(t, 3, src.lastYears)
}

func manyPapers(n int) []*types.Paper {
	var papers []*types.Paper
	for i := 0; i < n; i++ {
		papers = append(papers, paper(fmt.Sprintf("p%02d", i), 2000+i, nil))
	}
	return papers
}

func TestResearchIdeas_TenMostRecent(t *testing.T) {
	papers := manyPapers(12)
	papers = append(papers, paper("unknown", 0, nil))
	model := &fakeModel{answer: "1. Idea"}

	gen := newTestAssistant(nil, model).ResearchIdeas(context.Background(), papers, "nlp")

	assert.Equal(t, types.GenResearchIdeas, gen.Kind)
	require.Len(t, gen.BasedOnPapers, 10)
	assert.Equal(t, "p11", gen.BasedOnPapers[0].PaperID)
	assert.Equal(t, "p02", gen.BasedOnPapers[9].PaperID)
	assert.Contains(t, model.prompts[0], "5-7 promising ideas")
	assert.Contains(t, model.prompts[0], "Paper 1:\nTitle: Title p11")
	assert.NotContains(t, model.prompts[0], "Title unknown")
	assert.Equal(t, "p00", papers[0].PaperID, "input order unchanged")
}

func TestReviewPaper_OldestFirstWithSections(t *testing.T) {
	papers := manyPapers(17)
	long := strings.Repeat("x", reviewSectionChars+5)
	papers[0].Sections = types.SectionMap{"Introduction": long, "Appendix": "skip me"}
	model := &fakeModel{answer: "review"}

	gen := newTestAssistant(nil, model).ReviewPaper(context.Background(), papers, "nlp")

	require.Len(t, gen.BasedOnPapers, 15)
	assert.Equal(t, "p00", gen.BasedOnPapers[0].PaperID)
	assert.Equal(t, "p14", gen.BasedOnPapers[14].PaperID)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "Introduction: "+strings.Repeat("x", reviewSectionChars)+"... [truncated]")
	assert.NotContains(t, prompt, "skip me")
	assert.NotContains(t, prompt, "Title p15")
}

func TestImprovementPlan_EightMostRecent(t *testing.T) {
	papers := manyPapers(9)
	papers[8].Sections = types.SectionMap{
		"Conclusion": strings.Repeat("c", planSectionChars+1),
		"Results":    "r",
		"Method":     "not a finding",
	}
	model := &fakeModel{answer: "plan"}

	gen := newTestAssistant(nil, model).ImprovementPlan(context.Background(), papers, "nlp")

	require.Len(t, gen.BasedOnPapers, 8)
	assert.Equal(t, "p08", gen.BasedOnPapers[0].PaperID)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "Key Findings:\nResults: r\nConclusion: "+strings.Repeat("c", planSectionChars)+"... [truncated]")
	assert.NotContains(t, prompt, "not a finding")
	assert.Equal(t, "plan", gen.Text)
}

func TestGenerate_Dispatch(t *testing.T) {
	a := newTestAssistant(nil, &fakeModel{answer: "x"})
	for _, kind := range []types.GenerationKind{types.GenResearchIdeas, types.GenReviewPaper, types.GenImprovementPlan} {
		gen, err := a.Generate(context.Background(), kind, manyPapers(2), "t")
		require.NoError(t, err)
		assert.Equal(t, kind, gen.Kind)
	}
	_, err := a.Generate(context.Background(), types.GenFutureWork, nil, "t")
	assert.Error(t, err)
}

// --- helpers ---

func TestParseCitations(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []types.Citation
	}{
		{"none", "no citations here", nil},
		{
			"title and section",
			"see [Paper 3 - Deep Nets, Section Methods]",
			[]types.Citation{{PaperNum: "3", PaperTitle: "Deep Nets", Section: "Methods", FullCitation: "[Paper 3 - Deep Nets, Section Methods]"}},
		},
		{
			"section only",
			"[Paper 12, Section Results and Discussion]",
			[]types.Citation{{PaperNum: "12", Section: "Results and Discussion", FullCitation: "[Paper 12, Section Results and Discussion]"}},
		},
		{"missing comma", "[Paper 1 - Title]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCitations(tt.answer))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3, "…"))
	assert.Equal(t, "ab…", truncate("abc", 2, "…"))
	assert.Equal(t, "日本…", truncate("日本語", 2, "…"))
	assert.Equal(t, "abc", truncate("abc", 0, "…"))
}
