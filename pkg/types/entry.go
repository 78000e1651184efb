package types

import (
	"fmt"
	"strings"
)

// DefaultLinkFlag is the per-link flag the documentation generator writes
// for every occurrence it emits.
const DefaultLinkFlag = 1

// Category names one section of the generated search index
type Category string

const (
	CategoryAll        Category = "all"
	CategoryClasses    Category = "classes"
	CategoryNamespaces Category = "namespaces"
	CategoryFiles      Category = "files"
	CategoryFunctions  Category = "functions"
	CategoryVariables  Category = "variables"
	CategoryTypedefs   Category = "typedefs"
	CategoryEnums      Category = "enums"
	CategoryEnumValues Category = "enumvalues"
	CategoryRelated    Category = "related"
	CategoryDefines    Category = "defines"
	CategoryGroups     Category = "groups"
	CategoryPages      Category = "pages"
	CategoryConcepts   Category = "concepts"
)

// KnownCategories lists the section prefixes the generator is known to emit
var KnownCategories = []Category{
	CategoryAll, CategoryClasses, CategoryNamespaces, CategoryFiles,
	CategoryFunctions, CategoryVariables, CategoryTypedefs, CategoryEnums,
	CategoryEnumValues, CategoryRelated, CategoryDefines, CategoryGroups,
	CategoryPages, CategoryConcepts,
}

// IsKnown reports whether the category is one the generator emits
func (c Category) IsKnown() bool {
	for _, known := range KnownCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Occurrence is one declaration or definition site of a symbol
type Occurrence struct {
	Anchor   string // Document URL, optionally with a #fragment
	LinkFlag int    // Generator link flag, preserved verbatim
	Owner    string // Class, file or scoped signature the site belongs to
}

// Page returns the document part of the anchor, without the fragment
func (o Occurrence) Page() string {
	page, _, _ := strings.Cut(o.Anchor, "#")
	return page
}

// Fragment returns the anchor fragment, or "" when the anchor has none
func (o Occurrence) Fragment() string {
	_, fragment, _ := strings.Cut(o.Anchor, "#")
	return fragment
}

// Validate checks the occurrence is usable
func (o Occurrence) Validate() error {
	if o.Anchor == "" {
		return ErrEmptyAnchor
	}
	return nil
}

// SearchEntry groups every occurrence sharing one display name
type SearchEntry struct {
	Key         string // Normalized name plus numeric disambiguator
	DisplayName string
	Occurrences []Occurrence
}

// Validate checks the per-entry invariants
func (e *SearchEntry) Validate() error {
	if e.Key == "" {
		return ErrEmptyKey
	}

	if e.DisplayName == "" {
		return fmt.Errorf("%s: %w", e.Key, ErrEmptyDisplayName)
	}

	if len(e.Occurrences) == 0 {
		return fmt.Errorf("%s: %w", e.Key, ErrNoOccurrences)
	}

	for i, occ := range e.Occurrences {
		if err := occ.Validate(); err != nil {
			return fmt.Errorf("%s: occurrence %d: %w", e.Key, i, err)
		}
	}

	return nil
}

// Clone returns a deep copy of the entry
func (e SearchEntry) Clone() SearchEntry {
	occs := make([]Occurrence, len(e.Occurrences))
	copy(occs, e.Occurrences)
	e.Occurrences = occs
	return e
}

// Owners returns the distinct owner labels in occurrence order
func (e *SearchEntry) Owners() []string {
	seen := make(map[string]bool, len(e.Occurrences))
	owners := make([]string, 0, len(e.Occurrences))
	for _, occ := range e.Occurrences {
		if occ.Owner == "" || seen[occ.Owner] {
			continue
		}
		seen[occ.Owner] = true
		owners = append(owners, occ.Owner)
	}
	return owners
}
