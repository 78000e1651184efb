// Package indexer coordinates the indexing pipeline for generated
// documentation search data.
//
// The indexer discovers searchData scripts, hashes and parses them
// concurrently, and persists the entries through the storage layer.
//
// # Basic Usage
//
//	idx := indexer.New(store, logger)
//
//	stats, err := idx.IndexDocs(ctx, "/path/to/docs", &indexer.Config{
//	    Workers:    8,
//	    Categories: []types.Category{types.CategoryFunctions},
//	})
//
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Locating Search Data
//
// The search directory is the first of <root>/search, <root>/html/search
// and <root> that holds at least one <category>_<n>.js file. The search
// widget scripts (search.js, searchdata.js) are never indexed.
//
// # Incremental Indexing
//
// File change detection uses SHA-256 content hashing:
//
//	// First index: processes all files
//	stats1, _ := idx.IndexDocs(ctx, root, nil)
//	// Files: 28 indexed, 0 skipped
//
//	// Subsequent index: only changed files
//	stats2, _ := idx.IndexDocs(ctx, root, nil)
//	// Files: 1 indexed, 27 skipped
//
// Files that vanished from disk are removed from the snapshot. Config.Force
// drops the snapshot and rebuilds it from scratch.
//
// # Key Clashes
//
// Keys are unique within a category. An entry whose key is already held by
// an earlier file of the run, or by a stored file that keeps its entries, is
// skipped and reported like a malformed row.
//
// # Concurrent Processing
//
// Hashing and parsing run on an errgroup limited to Config.Workers
// goroutines (default runtime.NumCPU()). Results are written sequentially
// in one transaction, so a failed run leaves the previous snapshot intact.
//
// Only one IndexDocs call runs at a time per Indexer; others fail
// immediately with ErrIndexingInProgress.
//
// # Error Handling
//
// Storage failures and cancellation abort the run. Per-file problems do not:
//   - Read errors: the stored data for the file is kept
//   - Syntax errors: the file is recorded with its error and no entries
//   - Malformed rows: skipped, the rest of the file is stored
//
// Every problem is listed in Statistics.ErrorMessages.
package indexer
