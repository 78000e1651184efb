// Package httpapi serves the lookup over HTTP for documentation viewer pages.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

const shutdownTimeout = 5 * time.Second

// Server exposes search and status endpoints
type Server struct {
	storage  storage.Storage
	searcher *searcher.Searcher
	logger   *zap.Logger
	engine   *gin.Engine
}

// searchQuery binds the /api/search query string
type searchQuery struct {
	Docs       string `form:"docs" binding:"required"`
	Query      string `form:"q"`
	Category   string `form:"category"`
	Limit      int    `form:"limit" binding:"omitempty,min=1"`
	PrefixOnly bool   `form:"prefix_only"`
	Owner      string `form:"owner"`
}

type statusQuery struct {
	Docs string `form:"docs" binding:"required"`
}

// New creates the HTTP front end. The searcher may be shared with other
// front ends so they reuse one table cache.
func New(store storage.Storage, srch *searcher.Searcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		storage:  store,
		searcher: srch,
		logger:   logger,
		engine:   engine,
	}

	engine.GET("/healthz", s.handleHealth)
	api := engine.Group("/api")
	api.GET("/search", s.handleSearch)
	api.GET("/status", s.handleStatus)

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving HTTP", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSearch(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit > searcher.MaxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be at most %d", searcher.MaxLimit)})
		return
	}

	resp, err := s.searcher.Search(c.Request.Context(), searcher.SearchRequest{
		DocsRoot:   q.Docs,
		Query:      q.Query,
		Category:   types.Category(q.Category),
		Limit:      q.Limit,
		PrefixOnly: q.PrefixOnly,
		Owner:      q.Owner,
		UseCache:   true,
	})
	switch {
	case errors.Is(err, searcher.ErrNotIndexed):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, searcher.ErrUnknownCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("search failed", zap.String("docs", q.Docs), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	results := make([]gin.H, len(resp.Results))
	for i, r := range resp.Results {
		occs := make([]gin.H, len(r.Entry.Occurrences))
		for j, o := range r.Entry.Occurrences {
			occs[j] = gin.H{
				"anchor":   o.Anchor,
				"page":     o.Page(),
				"fragment": o.Fragment(),
				"owner":    o.Owner,
			}
		}
		results[i] = gin.H{
			"rank":        r.Rank,
			"key":         r.Entry.Key,
			"name":        r.Entry.DisplayName,
			"match":       r.Match,
			"owners":      r.Entry.Owners(),
			"occurrences": occs,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":    q.Query,
		"category": resp.Category,
		"total":    resp.TotalMatches,
		"results":  results,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	var q statusQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	root, err := filepath.Abs(q.Docs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	snapshot, err := s.storage.GetSnapshot(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "docs root not indexed", "docs": root})
		return
	}
	if err != nil {
		s.logger.Error("failed to load snapshot", zap.String("docs", root), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshot"})
		return
	}

	status, err := s.storage.GetStatus(ctx, snapshot.ID)
	if err != nil {
		s.logger.Error("failed to load status", zap.Int64("snapshot", snapshot.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"docs":              snapshot.RootPath,
		"search_dir":        snapshot.SearchDir,
		"last_indexed_at":   snapshot.LastIndexedAt,
		"files_count":       status.FilesCount,
		"failed_files":      status.FailedFiles,
		"entries_count":     status.EntriesCount,
		"occurrences_count": status.OccurrencesCount,
		"categories":        status.Categories,
		"index_size_bytes":  status.IndexSizeBytes,
	})
}

// requestLogger logs each request at debug level
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
