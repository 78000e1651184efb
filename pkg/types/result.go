package types

// MatchKind describes how a query matched a display name
type MatchKind string

const (
	MatchPrefix    MatchKind = "prefix"
	MatchSubstring MatchKind = "substring"
)

// SearchResult represents a single lookup hit
type SearchResult struct {
	Entry    SearchEntry
	Rank     int // Position in result set (1-based)
	Match    MatchKind
	Category Category
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	switch sr.Match {
	case MatchPrefix, MatchSubstring:
	default:
		return ErrInvalidMatchKind
	}

	return sr.Entry.Validate()
}
