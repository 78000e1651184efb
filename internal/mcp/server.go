package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/docsearch-mcp/internal/config"
	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	logger   *zap.Logger
	workers  int
}

// NewServer creates a new MCP server instance over an open store. The
// caller keeps ownership of the store.
func NewServer(cfg *config.Config, store storage.Storage, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Indexer and searcher share the store so a reindex is visible to the
	// next search
	idx := indexer.New(store, logger.Named("indexer"))
	srch := searcher.NewSearcher(store, logger.Named("searcher"), searcher.Options{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		indexer:  idx,
		searcher: srch,
		logger:   logger,
		workers:  cfg.Workers,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", zap.String("name", ServerName), zap.String("version", ServerVersion))
	return server.ServeStdio(s.mcp)
}

// Searcher exposes the shared searcher so other front ends reuse its cache
func (s *Server) Searcher() *searcher.Searcher {
	return s.searcher
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexDocsTool(), s.handleIndexDocs)
	s.mcp.AddTool(searchDocsTool(), s.handleSearchDocs)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
