// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes search, stored papers, question answering and
// research generation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/research-assistant/internal/assistant"
	"github.com/pdiddy/research-assistant/internal/knowledge"
	"github.com/pdiddy/research-assistant/internal/logger"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	defaultAddr     = ":8000"
	shutdownTimeout = 10 * time.Second
)

// Store is the subset of the paper store the API uses.
type Store interface {
	StorePapers(ctx context.Context, papers []*types.Paper, topic string) int
	PapersByTopic(ctx context.Context, topic string, years knowledge.YearRange) ([]*types.Paper, error)
	PapersLastNYears(ctx context.Context, topic string, n int) ([]*types.Paper, error)
	PaperByID(ctx context.Context, paperID string) (*types.Paper, error)
	Topics(ctx context.Context) ([]string, error)
	ClearTopic(ctx context.Context, topic string) (int, error)
}

// Processor fills paper content from PDFs.
type Processor interface {
	ProcessBatch(ctx context.Context, papers []*types.Paper, w io.Writer) pipeline.BatchResult
}

// Deps are the collaborators the API is built from.
type Deps struct {
	Store     Store
	Search    func(ctx context.Context, topic string, maxResults, yearsBack int) ([]*types.Paper, error)
	Processor Processor
	Assistant *assistant.Assistant
	Log       logger.Logger
}

// Server is the HTTP API. Background processing started by /search runs
// on a context that Close cancels.
type Server struct {
	deps   Deps
	cfg    types.ServerConfig
	router *gin.Engine
	log    logger.Logger

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New builds the server and its routes.
func New(cfg types.ServerConfig, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{deps: deps, cfg: cfg, log: log, bgCtx: ctx, bgCancel: cancel}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	if s.cfg.CORS {
		r.Use(corsMiddleware())
	}

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.POST("/search", s.search)
	r.GET("/papers/:topic", s.papersByTopic)
	r.GET("/paper/:id", s.paperByID)
	r.GET("/topics", s.topics)
	r.DELETE("/topics/:topic", s.clearTopic)
	r.POST("/qa", s.answerQuestion)
	r.POST("/generate-future-works", s.futureWorks)
	r.POST("/generate/:kind", s.generate)
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.Close()
	return nil
}

// Wait blocks until background processing has finished.
func (s *Server) Wait() {
	s.bg.Wait()
}

// Close cancels background processing and waits for it to stop.
func (s *Server) Close() {
	s.bgCancel()
	s.bg.Wait()
}

func (s *Server) runBackground(name string, fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		fn(s.bgCtx)
	}()
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
