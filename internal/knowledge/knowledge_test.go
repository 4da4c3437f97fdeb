package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(types.StoreConfig{DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func samplePaper(id, title, date string) *types.Paper {
	return &types.Paper{
		PaperID:       id,
		Title:         title,
		Authors:       []string{"Alice Smith", "Bob Jones"},
		Abstract:      "Abstract of " + title,
		PublishedDate: date,
		URL:           "https://arxiv.org/pdf/" + id,
	}
}

func ids(papers []*types.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.PaperID
	}
	return out
}

// --- StorePaper / PaperByID ---

func TestStoreAndGetPaper(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := samplePaper("2301.07041v1", "Paper A", "2023-01-17")
	p.Content = strPtr("Abstract\nbody")
	p.Sections = types.SectionMap{"Abstract": "Abstract\nbody"}
	p.FiguresTables = []types.FigureTableRef{{Type: types.RefFigure, Number: "1", Caption: "c", Text: "Figure 1: c"}}
	require.NoError(t, s.StorePaper(ctx, p, "llm"))

	got, err := s.PaperByID(ctx, "2301.07041v1")
	require.NoError(t, err)
	assert.Equal(t, "Paper A", got.Title)
	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, got.Authors)
	assert.Equal(t, "2023-01-17", got.PublishedDate)
	require.NotNil(t, got.Year)
	assert.Equal(t, 2023, *got.Year)
	require.NotNil(t, got.Content)
	assert.Equal(t, "Abstract\nbody", *got.Content)
	assert.Equal(t, p.Sections, got.Sections)
	assert.Equal(t, p.FiguresTables, got.FiguresTables)
	assert.Equal(t, []string{"llm"}, got.Topics)
}

func TestPaperByIDNotFound(t *testing.T) {
	_, err := testStore(t).PaperByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrPaperNotFound))
}

func TestStorePaperRequiresID(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.StorePaper(context.Background(), &types.Paper{Title: "x"}, "t"))
	assert.Error(t, s.StorePaper(context.Background(), nil, "t"))
}

func TestStorePaperMergeLastWriteWins(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := samplePaper("p1", "Old Title", "2020-05-01")
	first.Content = strPtr("full text")
	first.Sections = types.SectionMap{types.FullTextSection: "full text"}
	require.NoError(t, s.StorePaper(ctx, first, "a"))

	// A later search result without content updates metadata only.
	second := samplePaper("p1", "New Title", "2021-02-03")
	require.NoError(t, s.StorePaper(ctx, second, "b"))

	got, err := s.PaperByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, 2021, *got.Year)
	require.NotNil(t, got.Content)
	assert.Equal(t, "full text", *got.Content)
	assert.Equal(t, first.Sections, got.Sections)
	assert.Equal(t, []string{"a", "b"}, got.Topics)

	// New content replaces old content and its derived fields.
	third := samplePaper("p1", "New Title", "2021-02-03")
	third.Content = strPtr("replacement")
	require.NoError(t, s.StorePaper(ctx, third, "a"))

	got, err = s.PaperByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "replacement", *got.Content)
	assert.Nil(t, got.Sections)
}

func TestStorePaperYearDerivation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tests := []struct {
		id   string
		date string
		year *int
		want *int
	}{
		{"iso", "2019-07-04", nil, types.IntPtr(2019)},
		{"prefix", "2018 spring", nil, types.IntPtr(2018)},
		{"garbage", "n/a", types.IntPtr(1990), nil},
		{"no date keeps year", "", types.IntPtr(2015), types.IntPtr(2015)},
		{"unknown", "", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p := samplePaper(tt.id, tt.id, tt.date)
			p.Year = tt.year
			require.NoError(t, s.StorePaper(ctx, p, ""))

			got, err := s.PaperByID(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Year)
			assert.Empty(t, got.Topics)
		})
	}
}

// --- topic queries ---

func seedTopic(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	papers := []*types.Paper{
		samplePaper("a", "Beta", "2022-01-01"),
		samplePaper("b", "Alpha", "2022-06-01"),
		samplePaper("c", "Gamma", "2024-03-01"),
		samplePaper("d", "Delta", ""),
		samplePaper("e", "Epsilon", "2019-01-01"),
	}
	require.Equal(t, 5, s.StorePapers(ctx, papers, "graphs"))
	require.NoError(t, s.StorePaper(ctx, samplePaper("x", "Other", "2023-01-01"), "vision"))
}

func TestPapersByTopicOrdering(t *testing.T) {
	s := testStore(t)
	seedTopic(t, s)

	got, err := s.PapersByTopic(context.Background(), "graphs", YearRange{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a", "e", "d"}, ids(got))
}

func TestPapersByTopicYearRange(t *testing.T) {
	s := testStore(t)
	seedTopic(t, s)
	ctx := context.Background()

	tests := []struct {
		name  string
		years YearRange
		want  []string
	}{
		{"from inclusive", YearRange{From: types.IntPtr(2022)}, []string{"c", "b", "a"}},
		{"to inclusive", YearRange{To: types.IntPtr(2022)}, []string{"b", "a", "e"}},
		{"both", YearRange{From: types.IntPtr(2022), To: types.IntPtr(2022)}, []string{"b", "a"}},
		{"empty window", YearRange{From: types.IntPtr(2030)}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.PapersByTopic(ctx, "graphs", tt.years)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestPapersLastNYears(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().Year()

	require.NoError(t, s.StorePaper(ctx, &types.Paper{PaperID: "new", Year: types.IntPtr(now)}, "t"))
	require.NoError(t, s.StorePaper(ctx, &types.Paper{PaperID: "old", Year: types.IntPtr(now - 10)}, "t"))

	got, err := s.PapersLastNYears(ctx, "t", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(got))
}

func TestPapersByIDs(t *testing.T) {
	s := testStore(t)
	seedTopic(t, s)

	got, err := s.PapersByIDs(context.Background(), []string{"c", "missing", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(got))
}

func TestTopics(t *testing.T) {
	s := testStore(t)
	got, err := s.Topics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	seedTopic(t, s)
	got, err = s.Topics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"graphs", "vision"}, got)
}

func TestClearTopic(t *testing.T) {
	s := testStore(t)
	seedTopic(t, s)
	ctx := context.Background()

	// Paper "a" also belongs to vision; clearing graphs removes it entirely.
	require.NoError(t, s.StorePaper(ctx, samplePaper("a", "Beta", "2022-01-01"), "vision"))

	n, err := s.ClearTopic(ctx, "graphs")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := s.PapersByTopic(ctx, "graphs", YearRange{})
	require.NoError(t, err)
	assert.Empty(t, got)

	vision, err := s.PapersByTopic(ctx, "vision", YearRange{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(vision))

	_, err = s.PaperByID(ctx, "a")
	assert.ErrorIs(t, err, ErrPaperNotFound)

	topics, err := s.Topics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"graphs", "vision"}, topics)

	n, err = s.ClearTopic(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(types.StoreConfig{DataDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.StorePaper(context.Background(), samplePaper("p", "Persisted", "2022-01-01"), "t"))
	require.NoError(t, s.Close())

	s, err = Open(types.StoreConfig{DataDir: dir}, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.PaperByID(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Title)
}

// --- export ---

func TestExportTopic(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := samplePaper("p1", "Exported", "2023-01-01")
	p.Content = strPtr("secret body")
	require.NoError(t, s.StorePaper(ctx, p, "t"))

	var buf bytes.Buffer
	require.NoError(t, s.ExportTopic(ctx, "t", FormatJSON, false, &buf))
	var doc TopicExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "t", doc.Topic)
	assert.Equal(t, 1, doc.Count)
	require.Len(t, doc.Papers, 1)
	assert.Nil(t, doc.Papers[0].Content)

	buf.Reset()
	require.NoError(t, s.ExportTopic(ctx, "t", FormatYAML, true, &buf))
	var ydoc TopicExport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &ydoc))
	require.Len(t, ydoc.Papers, 1)
	assert.Equal(t, "secret body", *ydoc.Papers[0].Content)
	assert.True(t, strings.Contains(buf.String(), "paper_id: p1"))

	assert.Error(t, s.ExportTopic(ctx, "t", "xml", false, &buf))
}
