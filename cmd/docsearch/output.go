package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"sigs.k8s.io/yaml"

	"github.com/dshills/docsearch-mcp/internal/index"
)

// Result types shared by the json and yaml output formats

// IndexResult is the result of an index command.
type IndexResult struct {
	DocsRoot      string   `json:"docsRoot"`
	SearchDir     string   `json:"searchDir"`
	FilesIndexed  int      `json:"filesIndexed"`
	FilesSkipped  int      `json:"filesSkipped"`
	FilesFailed   int      `json:"filesFailed"`
	FilesRemoved  int      `json:"filesRemoved"`
	EntriesStored int      `json:"entriesStored"`
	DurationMS    int64    `json:"durationMs"`
	Errors        []string `json:"errors,omitempty"`
}

// SearchResult is the result of a search command.
type SearchResult struct {
	Query    string      `json:"query"`
	Category string      `json:"category"`
	Total    int         `json:"total"`
	Results  []EntryInfo `json:"results"`
}

// EntryInfo is one search hit.
type EntryInfo struct {
	Rank        int              `json:"rank"`
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Match       string           `json:"match"`
	Owners      []string         `json:"owners,omitempty"`
	Occurrences []OccurrenceInfo `json:"occurrences"`
}

// OccurrenceInfo is one place a symbol is documented.
type OccurrenceInfo struct {
	Anchor   string `json:"anchor"`
	Page     string `json:"page"`
	Fragment string `json:"fragment,omitempty"`
	Owner    string `json:"owner"`
}

// SnapshotInfo summarizes one indexed docs root.
type SnapshotInfo struct {
	DocsRoot         string         `json:"docsRoot"`
	SearchDir        string         `json:"searchDir"`
	IndexVersion     string         `json:"indexVersion"`
	LastIndexedAt    time.Time      `json:"lastIndexedAt"`
	IndexDurationMS  int64          `json:"indexDurationMs"`
	FilesCount       int            `json:"filesCount"`
	FailedFiles      int            `json:"failedFiles"`
	EntriesCount     int            `json:"entriesCount"`
	OccurrencesCount int            `json:"occurrencesCount"`
	Categories       map[string]int `json:"categories"`
}

// SectionsResult lists the first-letter runs of one category.
type SectionsResult struct {
	DocsRoot string          `json:"docsRoot"`
	Category string          `json:"category"`
	Entries  int             `json:"entries"`
	Sections []index.Section `json:"sections"`
}

// StatusResult is the result of a status command.
type StatusResult struct {
	Database       string         `json:"database"`
	Driver         string         `json:"driver"`
	IndexSizeBytes int64          `json:"indexSizeBytes"`
	Snapshots      []SnapshotInfo `json:"snapshots"`
}

// outputResult writes the result in the specified format.
func outputResult(w io.Writer, result interface{}, format string) error {
	switch format {
	case "json":
		return outputJSON(w, result)
	case "yaml":
		return outputYAML(w, result)
	default:
		return outputTable(w, result)
	}
}

func outputJSON(w io.Writer, result interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputYAML(w io.Writer, result interface{}) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func outputTable(out io.Writer, result interface{}) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case IndexResult:
		return outputIndexTable(w, r)
	case SearchResult:
		return outputSearchTable(w, r)
	case StatusResult:
		return outputStatusTable(w, r)
	case SectionsResult:
		return outputSectionsTable(w, r)
	default:
		// Fall back to JSON for unknown types
		return outputJSON(out, result)
	}
}

func outputIndexTable(w *tabwriter.Writer, r IndexResult) error {
	fmt.Fprintf(w, "DOCS:\t%s\n", r.DocsRoot)
	fmt.Fprintf(w, "SEARCH DIR:\t%s\n", r.SearchDir)
	fmt.Fprintf(w, "FILES:\t%d indexed, %d skipped, %d failed, %d removed\n",
		r.FilesIndexed, r.FilesSkipped, r.FilesFailed, r.FilesRemoved)
	fmt.Fprintf(w, "ENTRIES:\t%s\n", humanize.Comma(int64(r.EntriesStored)))
	fmt.Fprintf(w, "DURATION:\t%s\n", time.Duration(r.DurationMS)*time.Millisecond)

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\nERRORS:")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
	}
	return nil
}

func outputSearchTable(w *tabwriter.Writer, r SearchResult) error {
	fmt.Fprintf(w, "CATEGORY\t%s\n", r.Category)
	fmt.Fprintf(w, "TOTAL\t%d\n\n", r.Total)

	fmt.Fprintln(w, "RANK\tNAME\tMATCH\tOWNERS\tPAGE")
	for _, e := range r.Results {
		pages := make([]string, 0, len(e.Occurrences))
		seen := make(map[string]bool, len(e.Occurrences))
		for _, o := range e.Occurrences {
			if !seen[o.Page] {
				seen[o.Page] = true
				pages = append(pages, o.Page)
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Rank, e.Name, e.Match,
			strings.Join(e.Owners, ", "), strings.Join(pages, ", "))
	}
	return nil
}

func outputSectionsTable(w *tabwriter.Writer, r SectionsResult) error {
	fmt.Fprintf(w, "CATEGORY\t%s\n", r.Category)
	fmt.Fprintf(w, "ENTRIES\t%s\n\n", humanize.Comma(int64(r.Entries)))

	fmt.Fprintln(w, "LETTER\tSTART\tCOUNT")
	for _, s := range r.Sections {
		fmt.Fprintf(w, "%s\t%d\t%d\n", s.Letter, s.Start, s.Count)
	}
	return nil
}

func outputStatusTable(w *tabwriter.Writer, r StatusResult) error {
	fmt.Fprintf(w, "DATABASE:\t%s (%s)\n", r.Database, r.Driver)
	fmt.Fprintf(w, "SIZE:\t%s\n", humanize.Bytes(uint64(r.IndexSizeBytes)))
	fmt.Fprintf(w, "SNAPSHOTS:\t%d\n\n", len(r.Snapshots))

	if len(r.Snapshots) == 0 {
		return nil
	}

	fmt.Fprintln(w, "DOCS\tFILES\tFAILED\tENTRIES\tCATEGORIES\tINDEXED")
	for _, s := range r.Snapshots {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
			s.DocsRoot, s.FilesCount, s.FailedFiles, humanize.Comma(int64(s.EntriesCount)),
			formatCategories(s.Categories), humanize.Time(s.LastIndexedAt))
	}
	return nil
}

// formatCategories renders counts as "all=2,functions=20"
func formatCategories(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, ",")
}
