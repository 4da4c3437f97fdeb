// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/assistant"
	"github.com/pdiddy/research-assistant/internal/knowledge"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- fakes ---

type fakeModel struct{ answer string }

func (m fakeModel) Ask(context.Context, string) string { return m.answer }

type fakeProcessor struct{ calls int }

func (p *fakeProcessor) ProcessBatch(_ context.Context, papers []*types.Paper, _ io.Writer) pipeline.BatchResult {
	p.calls++
	for _, paper := range papers {
		text := "Abstract\nprocessed " + paper.PaperID
		paper.Content = &text
		paper.Sections = types.SectionMap{"Abstract": text}
	}
	return pipeline.BatchResult{Processed: len(papers)}
}

type testEnv struct {
	srv       *Server
	store     *knowledge.Store
	processor *fakeProcessor
	searchErr error
	lastQuery [3]any
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := knowledge.Open(types.StoreConfig{DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{store: store, processor: &fakeProcessor{}}
	year := time.Now().Year()
	search := func(_ context.Context, topic string, maxResults, yearsBack int) ([]*types.Paper, error) {
		env.lastQuery = [3]any{topic, maxResults, yearsBack}
		if env.searchErr != nil {
			return nil, env.searchErr
		}
		return []*types.Paper{
			{PaperID: "p1", Title: "First", Year: types.IntPtr(year), URL: "https://example.com/p1.pdf"},
			{PaperID: "p2", Title: "Second", Year: types.IntPtr(year - 1)},
		}, nil
	}

	env.srv = New(types.ServerConfig{CORS: true}, Deps{
		Store:     store,
		Search:    search,
		Processor: env.processor,
		Assistant: assistant.New(store, fakeModel{answer: "<think>hmm</think>\nThe answer [Paper 1 - First, Section Abstract]"}, nil),
	})
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

// --- tests ---

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "is running")

	w = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodOptions, "/search", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSearch_StoresImmediately(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/search", map[string]any{"topic": "graphs", "fetch_content": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Stored 2 papers.", body["message"])
	assert.Len(t, body["papers"], 2)
	assert.Equal(t, [3]any{"graphs", 10, 5}, env.lastQuery)
	assert.Zero(t, env.processor.calls)

	papers, err := env.store.PapersByTopic(context.Background(), "graphs", knowledge.YearRange{})
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}

func TestSearch_BackgroundProcessing(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/search", map[string]any{"topic": "graphs", "max_results": 3, "years_back": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Processing 2 papers in background.", body["message"])
	assert.Equal(t, [3]any{"graphs", 3, 2}, env.lastQuery)

	env.srv.Wait()
	assert.Equal(t, 1, env.processor.calls)
	p, err := env.store.PaperByID(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, p.Content)
	assert.Equal(t, "Abstract\nprocessed p1", *p.Content)
	assert.Equal(t, []string{"graphs"}, p.Topics)
}

func TestSearch_Validation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing topic", map[string]any{"max_results": 5}},
		{"too many results", map[string]any{"topic": "x", "max_results": 51}},
		{"zero results", map[string]any{"topic": "x", "max_results": 0}},
		{"years too far", map[string]any{"topic": "x", "years_back": 21}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSearch_BackendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.searchErr = errors.New("all search backends failed")
	w := env.do(t, http.MethodPost, "/search", map[string]any{"topic": "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "all search backends failed")
}

func seed(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.store.StorePaper(ctx, &types.Paper{PaperID: "a", Title: "Old", PublishedDate: "2001-01-01"}, "ml"))
	require.NoError(t, env.store.StorePaper(ctx, &types.Paper{PaperID: "b", Title: "New", Year: types.IntPtr(time.Now().Year())}, "ml"))
	require.NoError(t, env.store.StorePaper(ctx, &types.Paper{PaperID: "c", Title: "Other"}, "vision"))
}

func TestPapersByTopic(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	w := env.do(t, http.MethodGet, "/papers/ml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ml", body["topic"])
	assert.EqualValues(t, 2, body["paper_count"])

	w = env.do(t, http.MethodGet, "/papers/ml?year_to=2005", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["paper_count"])

	w = env.do(t, http.MethodGet, "/papers/ml?year_from=1800", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/papers/none", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["papers"])
}

func TestPaperByID(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	w := env.do(t, http.MethodGet, "/paper/a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Old", decode(t, w)["title"])

	w = env.do(t, http.MethodGet, "/paper/zzz", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTopicsAndClear(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	w := env.do(t, http.MethodGet, "/topics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"ml", "vision"}, decode(t, w)["topics"])

	w = env.do(t, http.MethodDelete, "/topics/ml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["deleted"])

	w = env.do(t, http.MethodGet, "/papers/ml", nil)
	assert.EqualValues(t, 0, decode(t, w)["paper_count"])
}

func TestQA(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	w := env.do(t, http.MethodPost, "/qa", map[string]any{"question": "What?", "paper_ids": []string{"a"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res types.QAResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "The answer [Paper 1 - First, Section Abstract]", res.Answer)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "Abstract", res.Citations[0].Section)

	w = env.do(t, http.MethodPost, "/qa", map[string]any{"question": "What?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), assistant.NoPapersAnswer)

	w = env.do(t, http.MethodPost, "/qa", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFutureWorks(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	w := env.do(t, http.MethodPost, "/generate-future-works", map[string]any{"topic": "ml", "years_back": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var gen types.Generation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
	assert.Equal(t, types.GenFutureWork, gen.Kind)
	assert.False(t, strings.Contains(gen.Text, "<think>"))
	require.Len(t, gen.BasedOnPapers, 1)
	assert.Equal(t, "b", gen.BasedOnPapers[0].PaperID)
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	for _, kind := range []string{"ideas", "review", "plan"} {
		t.Run(kind, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/generate/"+kind, map[string]any{"topic": "ml"})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var gen types.Generation
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
			assert.Equal(t, types.GenerationKind(kind), gen.Kind)
			assert.NotEmpty(t, gen.BasedOnPapers)
		})
	}

	w := env.do(t, http.MethodPost, "/generate/poem", map[string]any{"topic": "ml"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/generate/ideas", map[string]any{"topic": "empty-topic"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
