package index

import (
	"github.com/dshills/docsearch-mcp/internal/parser"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

// Builder assembles a Table in insertion order
type Builder struct {
	nextID  int
	entries []types.SearchEntry
	byName  map[string]int
}

// NewBuilder creates a Builder whose generated keys start at startID
func NewBuilder(startID int) *Builder {
	return &Builder{
		nextID: startID,
		byName: make(map[string]int),
	}
}

// Add records occurrences of a display name. Occurrences of a name that was
// already added are appended to its entry; otherwise a new entry is created
// with a key derived from the name and the next id.
func (b *Builder) Add(displayName string, occs ...types.Occurrence) *Builder {
	if i, ok := b.byName[displayName]; ok {
		b.entries[i].Occurrences = append(b.entries[i].Occurrences, occs...)
		return b
	}

	b.byName[displayName] = len(b.entries)
	b.entries = append(b.entries, types.SearchEntry{
		Key:         parser.FormatKey(displayName, b.nextID),
		DisplayName: displayName,
		Occurrences: append([]types.Occurrence(nil), occs...),
	})
	b.nextID++
	return b
}

// AddEntry appends an entry with an explicit key, as read from a parsed index
func (b *Builder) AddEntry(entry types.SearchEntry) *Builder {
	if _, ok := b.byName[entry.DisplayName]; !ok {
		b.byName[entry.DisplayName] = len(b.entries)
	}
	b.entries = append(b.entries, entry.Clone())
	if _, id, err := parser.SplitKey(entry.Key); err == nil && id >= b.nextID {
		b.nextID = id + 1
	}
	return b
}

// AddParsed appends every entry of a parse result
func (b *Builder) AddParsed(result *types.ParseResult) *Builder {
	for _, entry := range result.Entries {
		b.AddEntry(entry)
	}
	return b
}

// Len returns the number of entries added so far
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build validates the entries and returns the table
func (b *Builder) Build() (*Table, error) {
	return New(b.entries)
}
