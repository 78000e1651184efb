package index

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/cases"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// Table is an immutable lookup table over search entries. It is safe for
// concurrent use by any number of readers.
type Table struct {
	entries []types.SearchEntry
	folded  []string // Case-folded display names, parallel to entries
	byKey   map[string]int
}

// Match is one lookup hit
type Match struct {
	Entry types.SearchEntry
	Kind  types.MatchKind
	Index int // Insertion position in the table
}

// Options narrows a Search
type Options struct {
	Limit      int    // Maximum matches to return, 0 for no limit
	PrefixOnly bool   // Drop substring matches
	Owner      string // Keep occurrences whose owner label starts with this
}

// Section groups consecutive entries that share a first letter
type Section struct {
	Letter string `json:"letter"`
	Start  int    `json:"start"` // Index of the first entry
	Count  int    `json:"count"`
}

// New builds a table from entries in insertion order. Every entry must be
// valid and keys must be unique; all violations are reported together.
func New(entries []types.SearchEntry) (*Table, error) {
	t := &Table{
		entries: make([]types.SearchEntry, 0, len(entries)),
		folded:  make([]string, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
	}

	var result *multierror.Error
	caser := cases.Fold()
	for i := range entries {
		e := entries[i]
		if err := e.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		if prev, exists := t.byKey[e.Key]; exists {
			result = multierror.Append(result, fmt.Errorf("entry %d: %w %q (first at %d)", i, types.ErrDuplicateKey, e.Key, prev))
			continue
		}

		t.byKey[e.Key] = len(t.entries)
		t.entries = append(t.entries, e.Clone())
		t.folded = append(t.folded, caser.String(e.DisplayName))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of entries
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of all entries in insertion order
func (t *Table) Entries() []types.SearchEntry {
	out := make([]types.SearchEntry, len(t.entries))
	for i := range t.entries {
		out[i] = t.entries[i].Clone()
	}
	return out
}

// Get returns the entry with the given key
func (t *Table) Get(key string) (types.SearchEntry, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return types.SearchEntry{}, false
	}
	return t.entries[i].Clone(), true
}

// Lookup returns the entries whose display name contains query, ignoring
// case. Prefix matches come first, then substring matches, each group in
// insertion order. An empty query returns every entry.
func (t *Table) Lookup(query string) []types.SearchEntry {
	matches := t.Search(query, Options{})
	out := make([]types.SearchEntry, len(matches))
	for i := range matches {
		out[i] = matches[i].Entry
	}
	return out
}

// Search is Lookup with options and match details
func (t *Table) Search(query string, opts Options) []Match {
	q := cases.Fold().String(strings.TrimSpace(query))

	var owner string
	if opts.Owner != "" {
		owner = cases.Fold().String(opts.Owner)
	}

	matches := make([]Match, 0)
	add := func(i int, kind types.MatchKind) bool {
		if opts.Limit > 0 && len(matches) >= opts.Limit {
			return false
		}
		entry, ok := t.project(i, owner)
		if ok {
			matches = append(matches, Match{Entry: entry, Kind: kind, Index: i})
		}
		return true
	}

	// Prefix pass
	for i, name := range t.folded {
		if strings.HasPrefix(name, q) && !add(i, types.MatchPrefix) {
			return matches
		}
	}

	if q == "" || opts.PrefixOnly {
		return matches
	}

	// Substring pass
	for i, name := range t.folded {
		if !strings.HasPrefix(name, q) && strings.Contains(name, q) && !add(i, types.MatchSubstring) {
			return matches
		}
	}

	return matches
}

// project copies entry i, keeping only occurrences whose folded owner label
// starts with owner. ok is false when nothing is left.
func (t *Table) project(i int, owner string) (types.SearchEntry, bool) {
	if owner == "" {
		return t.entries[i].Clone(), true
	}

	src := t.entries[i]
	entry := types.SearchEntry{Key: src.Key, DisplayName: src.DisplayName}
	caser := cases.Fold()
	for _, occ := range src.Occurrences {
		if strings.HasPrefix(caser.String(occ.Owner), owner) {
			entry.Occurrences = append(entry.Occurrences, occ)
		}
	}
	return entry, len(entry.Occurrences) > 0
}

// Sections groups entries by the folded first letter of their display name,
// in insertion order. A letter that reappears after another letter starts a
// new section.
func (t *Table) Sections() []Section {
	var sections []Section
	for i, name := range t.folded {
		r, _ := utf8.DecodeRuneInString(name)
		letter := string(r)
		if n := len(sections); n > 0 && sections[n-1].Letter == letter {
			sections[n-1].Count++
			continue
		}
		sections = append(sections, Section{Letter: letter, Start: i, Count: 1})
	}
	return sections
}
