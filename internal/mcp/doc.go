// Package mcp implements the Model Context Protocol (MCP) server for docsearch.
//
// The MCP server exposes three tools to AI coding assistants:
//   - index_docs: Index the generated search data of a docs tree
//   - search_docs: Look up documented symbols by name
//   - get_status: Check indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is typically started via the serve command:
//
//	docsearch serve
//
// Logs go to stderr; stdout carries protocol messages only.
//
// # Tool: index_docs
//
//	Request:
//	{
//	  "name": "index_docs",
//	  "arguments": {
//	    "path": "/path/to/docs",
//	    "force": false,
//	    "categories": ["functions", "classes"]
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "search_dir": "/path/to/docs/html/search",
//	  "files_indexed": 12,
//	  "files_skipped": 0,
//	  "entries_stored": 1843,
//	  "duration_ms": 41
//	}
//
// # Tool: search_docs
//
//	Request:
//	{
//	  "name": "search_docs",
//	  "arguments": {
//	    "path": "/path/to/docs",
//	    "query": "getX",
//	    "category": "functions",
//	    "limit": 10
//	  }
//	}
//
//	Response:
//	{
//	  "query": "getX",
//	  "category": "functions",
//	  "total": 1,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "key": "getx_515",
//	      "name": "getX",
//	      "match": "prefix",
//	      "occurrences": [
//	        {"anchor": "../class_sound_info.html#abc9...", "owner": "SoundInfo"}
//	      ]
//	    }
//	  ]
//	}
//
// Prefix matches are listed before substring matches, each in index order.
// An empty query lists the whole category.
//
// # Tool: get_status
//
// Reports file, entry and occurrence counts per snapshot, entries per
// category, database size and health.
//
// # Error Codes
//
//	-32602: Invalid parameters
//	-32603: Internal error
//	-32001: No search data under path
//	-32002: Indexing already in progress
//	-32003: Docs root not indexed
//	-32004: Query parameter missing
package mcp
