// Package types provides shared type definitions for the docsearch MCP server.
//
// This package defines the domain types used across the parser, index,
// storage and search layers.
//
// # Core Types
//
// SearchEntry is one row of a generated documentation search index. It groups
// every declaration site sharing a display name:
//
//	entry := types.SearchEntry{
//	    Key:         "gameobject_501",
//	    DisplayName: "GameObject",
//	    Occurrences: []types.Occurrence{
//	        {Anchor: "../class_game_object.html#a3423", LinkFlag: 1, Owner: "GameObject::GameObject(const char *filepath)"},
//	    },
//	}
//
// Occurrence carries the anchor URL and the owner label (class, file or
// scoped signature) of one site. LinkFlag is the generator's per-link flag and
// is kept only so that an index can be written back unchanged.
//
// # Categories
//
// The generator splits its index into sections (all, classes, functions,
// variables, defines, ...) named by file prefix. Category holds that prefix.
//
// # Validation
//
//	if err := entry.Validate(); err != nil {
//	    return err
//	}
//
// An entry needs a key, a display name and at least one occurrence with a
// non-empty anchor. Key uniqueness is a table-level invariant and is checked
// by the index package.
package types
