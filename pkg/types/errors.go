package types

import "errors"

// Domain errors for type validation
var (
	// Entry errors
	ErrEmptyKey         = errors.New("entry key cannot be empty")
	ErrEmptyDisplayName = errors.New("display name cannot be empty")
	ErrNoOccurrences    = errors.New("entry must have at least one occurrence")
	ErrEmptyAnchor      = errors.New("occurrence anchor cannot be empty")
	ErrDuplicateKey     = errors.New("duplicate entry key")

	// Search result errors
	ErrInvalidRank      = errors.New("rank must be >= 1")
	ErrInvalidMatchKind = errors.New("invalid match kind")
)
