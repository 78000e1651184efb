package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

func categoryNames() []string {
	names := make([]string, len(types.KnownCategories))
	for i, c := range types.KnownCategories {
		names[i] = string(c)
	}
	return names
}

// indexDocsTool returns the tool definition for index_docs
func indexDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_docs",
		Description: "Index the generated search data of a documentation tree so its symbols can be looked up",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the docs root (containing search/ or html/search/)",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, discard the stored snapshot and rebuild it",
					"default":     false,
				},
				"categories": map[string]interface{}{
					"type":        "array",
					"description": "Only index these categories, e.g. functions or classes (default: all found)",
					"items": map[string]interface{}{
						"type":     "string",
						"examples": categoryNames(),
					},
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchDocsTool returns the tool definition for search_docs
func searchDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_docs",
		Description: "Look up documented symbols by name. Prefix matches come first, then substring matches; an empty query lists the category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed docs root",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive name fragment",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Search index section, any indexed prefix (default: all, then functions)",
					"examples":    categoryNames(),
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"prefix_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, drop substring matches",
					"default":     false,
				},
				"owner": map[string]interface{}{
					"type":        "string",
					"description": "Keep occurrences whose owner (class, file or signature) starts with this",
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for a docs root",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the docs root",
				},
			},
			Required: []string{"path"},
		},
	}
}
