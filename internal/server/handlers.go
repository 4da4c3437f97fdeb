// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/research-assistant/internal/knowledge"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

type searchRequest struct {
	Topic        string `json:"topic" binding:"required"`
	MaxResults   int    `json:"max_results" binding:"min=1,max=50"`
	YearsBack    int    `json:"years_back" binding:"min=1,max=20"`
	FetchContent bool   `json:"fetch_content"`
}

type papersQuery struct {
	YearFrom *int `form:"year_from" binding:"omitempty,min=1900,max=2100"`
	YearTo   *int `form:"year_to" binding:"omitempty,min=1900,max=2100"`
}

type questionRequest struct {
	Question string   `json:"question" binding:"required"`
	PaperIDs []string `json:"paper_ids"`
	Topic    string   `json:"topic"`
}

type generateRequest struct {
	Topic     string `json:"topic" binding:"required"`
	YearsBack int    `json:"years_back" binding:"min=1,max=20"`
}

func respondError(c *gin.Context, status int, msg string, err error) {
	body := gin.H{"detail": msg}
	if err != nil {
		body["detail"] = fmt.Sprintf("%s: %v", msg, err)
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Academic Research Paper Assistant API is running"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Format(time.RFC3339)})
}

// search runs the search backends and stores the results. With
// fetch_content the PDF pipeline and the store run in the background and
// the search results are returned immediately.
func (s *Server) search(c *gin.Context) {
	req := searchRequest{MaxResults: 10, YearsBack: 5, FetchContent: true}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid search request", err)
		return
	}

	papers, err := s.deps.Search(c.Request.Context(), req.Topic, req.MaxResults, req.YearsBack)
	if err != nil {
		s.log.Error("search failed", "topic", req.Topic, "error", err)
		respondError(c, http.StatusInternalServerError, "Error searching papers", err)
		return
	}
	if papers == nil {
		papers = []*types.Paper{}
	}

	if req.FetchContent && len(papers) > 0 && s.deps.Processor != nil {
		batch := clonePapers(papers)
		topic := req.Topic
		s.runBackground("process "+topic, func(ctx context.Context) {
			result := s.deps.Processor.ProcessBatch(ctx, batch, io.Discard)
			stored := s.deps.Store.StorePapers(context.WithoutCancel(ctx), batch, topic)
			s.log.Info("background processing finished", "topic", topic,
				"processed", result.Processed, "skipped", result.Skipped, "failed", result.Failed, "stored", stored)
		})
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Processing %d papers in background.", len(papers)),
			"papers":  papers,
		})
		return
	}

	stored := s.deps.Store.StorePapers(c.Request.Context(), papers, req.Topic)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Stored %d papers.", stored),
		"papers":  papers,
	})
}

func (s *Server) papersByTopic(c *gin.Context) {
	var q papersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid year range", err)
		return
	}
	topic := c.Param("topic")
	papers, err := s.deps.Store.PapersByTopic(c.Request.Context(), topic, knowledge.YearRange{From: q.YearFrom, To: q.YearTo})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error fetching papers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic, "paper_count": len(papers), "papers": papers})
}

func (s *Server) paperByID(c *gin.Context) {
	paper, err := s.deps.Store.PaperByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, knowledge.ErrPaperNotFound) {
		respondError(c, http.StatusNotFound, "paper not found", nil)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error fetching paper", err)
		return
	}
	c.JSON(http.StatusOK, paper)
}

func (s *Server) topics(c *gin.Context) {
	topics, err := s.deps.Store.Topics(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error listing topics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (s *Server) clearTopic(c *gin.Context) {
	topic := c.Param("topic")
	n, err := s.deps.Store.ClearTopic(c.Request.Context(), topic)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error clearing topic", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic, "deleted": n})
}

func (s *Server) answerQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid question request", err)
		return
	}
	result := s.deps.Assistant.AnswerQuestion(c.Request.Context(), req.Question, req.PaperIDs, req.Topic)
	result.Answer = llm.StripThinking(result.Answer)
	c.JSON(http.StatusOK, result)
}

func (s *Server) futureWorks(c *gin.Context) {
	req := generateRequest{YearsBack: 5}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid generate request", err)
		return
	}
	gen := s.deps.Assistant.FutureWork(c.Request.Context(), req.Topic, req.YearsBack)
	gen.Text = llm.StripThinking(gen.Text)
	c.JSON(http.StatusOK, gen)
}

// generate writes research ideas, a review paper or an improvement plan
// from the topic's papers of the last years_back years.
func (s *Server) generate(c *gin.Context) {
	kind := types.GenerationKind(c.Param("kind"))
	switch kind {
	case types.GenResearchIdeas, types.GenReviewPaper, types.GenImprovementPlan:
	default:
		respondError(c, http.StatusNotFound, fmt.Sprintf("unknown generation kind %q", kind), nil)
		return
	}

	req := generateRequest{YearsBack: 5}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid generate request", err)
		return
	}

	papers, err := s.deps.Store.PapersLastNYears(c.Request.Context(), req.Topic, req.YearsBack)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error fetching papers", err)
		return
	}
	if len(papers) == 0 {
		respondError(c, http.StatusNotFound, fmt.Sprintf("no papers stored for topic %q", req.Topic), nil)
		return
	}

	gen, err := s.deps.Assistant.Generate(c.Request.Context(), kind, papers, req.Topic)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Error generating", err)
		return
	}
	gen.Text = llm.StripThinking(gen.Text)
	c.JSON(http.StatusOK, gen)
}

// clonePapers copies the records so background processing does not race
// with the response encoder.
func clonePapers(papers []*types.Paper) []*types.Paper {
	out := make([]*types.Paper, len(papers))
	for i, p := range papers {
		cp := *p
		out[i] = &cp
	}
	return out
}
