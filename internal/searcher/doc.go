// Package searcher answers symbol lookups against indexed documentation.
//
// A Searcher loads the entries of one category of a stored snapshot into an
// index.Table and queries it:
//
//	s := searcher.NewSearcher(store, logger, searcher.Options{})
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    DocsRoot: "/path/to/docs",
//	    Query:    "getX",
//	    Category: types.CategoryFunctions,
//	    Limit:    10,
//	    UseCache: true,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s (%s)\n", r.Rank, r.Entry.DisplayName, r.Match)
//	}
//
// # Categories
//
// Without an explicit category the searcher uses all when it was indexed,
// then functions, then the first category present. An explicit category
// outside the generator's usual set is searchable once the snapshot holds
// entries for it.
//
// # Caching
//
// Tables are cached in an LRU keyed by snapshot, category and the snapshot's
// update time, with a per-entry TTL. Reindexing bumps the update time, so a
// stale table is never served.
package searcher
