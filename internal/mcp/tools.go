package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/parser"
	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNoSearchData       = -32001 // Specified path has no generated search data
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Docs root not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is missing
)

// maxReportedErrors caps the per-file errors echoed back by index_docs
const maxReportedErrors = 5

// handleIndexDocs handles the index_docs tool invocation
func (s *Server) handleIndexDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	if _, err := indexer.ResolveSearchDir(path); err != nil {
		return nil, newMCPError(ErrorCodeNoSearchData, "no search data found", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	categories, err := getCategories(args, "categories")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid categories", map[string]interface{}{
			"param":  "categories",
			"reason": err.Error(),
		})
	}

	config := &indexer.Config{
		Workers:    s.workers,
		Categories: categories,
		Force:      getBoolDefault(args, "force", false),
	}

	stats, err := s.indexer.IndexDocs(ctx, path, config)
	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()
	s.logger.Info("indexed docs",
		zap.String("path", path),
		zap.Int("files_indexed", stats.FilesIndexed),
		zap.Int("entries_stored", stats.EntriesStored),
		zap.Duration("duration", stats.Duration),
	)

	response := map[string]interface{}{
		"indexed":        true,
		"search_dir":     stats.SearchDir,
		"files_indexed":  stats.FilesIndexed,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"files_removed":  stats.FilesRemoved,
		"entries_stored": stats.EntriesStored,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if errorCount := len(stats.ErrorMessages); errorCount > 0 {
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocs handles the search_docs tool invocation
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	// An empty string is a valid query; it lists the category
	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		DocsRoot:   path,
		Query:      query,
		Category:   types.Category(getStringDefault(args, "category", "")),
		Limit:      limit,
		PrefixOnly: getBoolDefault(args, "prefix_only", false),
		Owner:      getStringDefault(args, "owner", ""),
		UseCache:   true,
	})
	switch {
	case errors.Is(err, searcher.ErrNotIndexed):
		return nil, newMCPError(ErrorCodeNotIndexed, "docs root not indexed", map[string]interface{}{
			"path": path,
			"hint": "use index_docs to index this docs root",
		})
	case errors.Is(err, searcher.ErrUnknownCategory):
		return nil, newMCPError(ErrorCodeInvalidParams, "unknown category", map[string]interface{}{
			"param": "category",
			"known": categoryNames(),
			"hint":  "use get_status to list the indexed categories",
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = resultJSON(r)
	}

	response := map[string]interface{}{
		"query":       query,
		"category":    resp.Category,
		"total":       resp.TotalMatches,
		"returned":    len(resp.Results),
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
		"results":     results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	snapshot, err := s.storage.GetSnapshot(ctx, filepath.Clean(path))
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Docs root not indexed. Use index_docs tool to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, snapshot.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	categories := make(map[string]int, len(status.Categories))
	for c, n := range status.Categories {
		categories[string(c)] = n
	}

	response := map[string]interface{}{
		"indexed": true,
		"snapshot": map[string]interface{}{
			"path":              snapshot.RootPath,
			"search_dir":        snapshot.SearchDir,
			"index_version":     snapshot.IndexVersion,
			"last_indexed_at":   snapshot.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
			"index_duration_ms": snapshot.IndexDuration.Milliseconds(),
		},
		"statistics": map[string]interface{}{
			"files_count":       status.FilesCount,
			"failed_files":      status.FailedFiles,
			"entries_count":     status.EntriesCount,
			"occurrences_count": status.OccurrencesCount,
			"categories":        categories,
			"index_size_mb":     fmt.Sprintf("%.2f", float64(status.IndexSizeBytes)/(1024*1024)),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"has_entries":         status.Health.HasEntries,
			"indexing":            s.indexer.Lock().Held(),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// resultJSON is the wire form of one search hit
func resultJSON(r types.SearchResult) map[string]interface{} {
	occs := make([]map[string]interface{}, len(r.Entry.Occurrences))
	for i, o := range r.Entry.Occurrences {
		occs[i] = map[string]interface{}{
			"anchor":   o.Anchor,
			"page":     o.Page(),
			"fragment": o.Fragment(),
			"owner":    o.Owner,
		}
	}
	return map[string]interface{}{
		"rank":        r.Rank,
		"key":         r.Entry.Key,
		"name":        r.Entry.DisplayName,
		"match":       r.Match,
		"owners":      r.Entry.Owners(),
		"occurrences": occs,
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	return path, nil
}

// validatePath checks if a path exists and is a readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getCategories extracts an optional list of known categories
func getCategories(args map[string]interface{}, key string) ([]types.Category, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var items []string
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			items = append(items, s)
		}
	case []string:
		items = v
	default:
		return nil, fmt.Errorf("expected an array, got %T", raw)
	}

	categories := make([]types.Category, 0, len(items))
	for _, item := range items {
		if !parser.IsCategoryName(item) {
			return nil, fmt.Errorf("invalid category %q", item)
		}
		categories = append(categories, types.Category(item))
	}
	return categories, nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
