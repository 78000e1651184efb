package types

// ParseResult represents the output of parsing one search index file
type ParseResult struct {
	// Extracted data
	Entries  []SearchEntry
	Category Category
	Section  int // First-letter bucket from the file name, -1 if absent

	// Errors encountered during parsing
	Errors []ParseError
}

// ParseError represents an entry that could not be read
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.Message
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file string, line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{
		File:    file,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}
