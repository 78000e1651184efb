package searcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dshills/docsearch-mcp/internal/index"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

const (
	DefaultLimit     = 50
	MaxLimit         = 1000
	DefaultCacheSize = 128
	DefaultCacheTTL  = 10 * time.Minute
)

var (
	// ErrNotIndexed is returned for a docs root that has no snapshot
	ErrNotIndexed = errors.New("docs root not indexed")
	// ErrUnknownCategory is returned for a category the generator never
	// emits and the snapshot does not hold
	ErrUnknownCategory = errors.New("unknown category")
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	DocsRoot   string
	Query      string // Empty lists the whole category
	Category   types.Category
	Limit      int
	PrefixOnly bool
	Owner      string
	UseCache   bool // Whether to use the table cache
	CacheTTL   time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalMatches int // Matches before the limit was applied
	Category     types.Category
	Duration     time.Duration
	CacheHit     bool
}

// Options configures a Searcher
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// tableKey identifies one category table of one snapshot version
type tableKey struct {
	snapshotID int64
	category   types.Category
	updatedAt  int64
}

// cacheEntry represents a cached table with expiration time
type cacheEntry struct {
	table     *index.Table
	expiresAt time.Time
}

// Searcher answers lookups against stored snapshots
type Searcher struct {
	storage  storage.Storage
	logger   *zap.Logger
	cache    *lru.Cache[tableKey, *cacheEntry]
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, logger *zap.Logger, opts Options) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	cache, err := lru.New[tableKey, *cacheEntry](opts.CacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage:  store,
		logger:   logger,
		cache:    cache,
		cacheTTL: opts.CacheTTL,
	}
}

// Search performs a lookup based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	snapshot, err := s.snapshot(ctx, req.DocsRoot)
	if err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, snapshot, req.Category)
	if err != nil {
		return nil, err
	}

	table, hit, err := s.table(ctx, snapshot, category, req.UseCache, req.CacheTTL)
	if err != nil {
		return nil, err
	}

	matches := table.Search(req.Query, index.Options{
		PrefixOnly: req.PrefixOnly,
		Owner:      req.Owner,
	})

	response := &SearchResponse{
		Results:      make([]types.SearchResult, 0, min(len(matches), req.Limit)),
		TotalMatches: len(matches),
		Category:     category,
		CacheHit:     hit,
	}
	for i, m := range matches {
		if i >= req.Limit {
			break
		}
		response.Results = append(response.Results, types.SearchResult{
			Entry:    m.Entry,
			Rank:     i + 1,
			Match:    m.Kind,
			Category: category,
		})
	}
	response.Duration = time.Since(startTime)

	s.logger.Debug("search",
		zap.String("root", snapshot.RootPath),
		zap.String("query", req.Query),
		zap.String("category", string(category)),
		zap.Int("matches", response.TotalMatches),
		zap.Bool("cache_hit", hit),
		zap.Duration("duration", response.Duration),
	)

	return response, nil
}

// LoadTable returns the lookup table for one category of an indexed docs
// root. An empty category resolves the same way Search does.
func (s *Searcher) LoadTable(ctx context.Context, docsRoot string, category types.Category) (*index.Table, types.Category, error) {
	snapshot, err := s.snapshot(ctx, docsRoot)
	if err != nil {
		return nil, "", err
	}
	category, err = s.resolveCategory(ctx, snapshot, category)
	if err != nil {
		return nil, "", err
	}
	table, _, err := s.table(ctx, snapshot, category, true, s.cacheTTL)
	return table, category, err
}

// validateRequest fills defaults and clamps the limit
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if req.DocsRoot == "" {
		return fmt.Errorf("docs root cannot be empty")
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.CacheTTL <= 0 {
		req.CacheTTL = s.cacheTTL
	}

	return nil
}

func (s *Searcher) snapshot(ctx context.Context, docsRoot string) (*storage.Snapshot, error) {
	root, err := filepath.Abs(docsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve docs root: %w", err)
	}

	snapshot, err := s.storage.GetSnapshot(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snapshot, nil
}

// resolveCategory picks the category to search. An explicit category must
// be one the generator emits or one stored for the snapshot. Without one
// it prefers all, then functions, then the first present.
func (s *Searcher) resolveCategory(ctx context.Context, snapshot *storage.Snapshot, requested types.Category) (types.Category, error) {
	if requested.IsKnown() {
		return requested, nil
	}

	counts, err := s.storage.CategoryCounts(ctx, snapshot.ID)
	if err != nil {
		return "", fmt.Errorf("failed to count categories: %w", err)
	}
	if requested == "" {
		return DefaultCategory(counts), nil
	}
	if counts[requested] == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, requested)
	}
	return requested, nil
}

// DefaultCategory chooses the category searched when none is given
func DefaultCategory(counts map[types.Category]int) types.Category {
	for _, preferred := range []types.Category{types.CategoryAll, types.CategoryFunctions} {
		if counts[preferred] > 0 {
			return preferred
		}
	}

	present := make([]types.Category, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return types.CategoryAll
	}
	sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })
	return present[0]
}

// table returns the category table, from the cache when allowed
func (s *Searcher) table(ctx context.Context, snapshot *storage.Snapshot, category types.Category,
	useCache bool, ttl time.Duration) (*index.Table, bool, error) {

	key := tableKey{
		snapshotID: snapshot.ID,
		category:   category,
		updatedAt:  snapshot.UpdatedAt.UnixNano(),
	}

	if useCache {
		if table, ok := s.checkCache(key); ok {
			return table, true, nil
		}
	}

	entries, err := s.storage.ListEntries(ctx, snapshot.ID, category)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s entries: %w", category, err)
	}

	table, err := index.New(entries)
	if err != nil {
		return nil, false, fmt.Errorf("stored %s entries are inconsistent: %w", category, err)
	}

	if useCache {
		s.storeInCache(key, table, ttl)
	}
	return table, false, nil
}

// checkCache looks up a cached table
func (s *Searcher) checkCache(key tableKey) (*index.Table, bool) {
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	s.cacheMu.RUnlock()

	if !found {
		return nil, false
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil, false
	}

	return entry.table, true
}

// storeInCache saves a table. Tables are immutable, so no copy is needed.
func (s *Searcher) storeInCache(key tableKey, table *index.Table, ttl time.Duration) {
	s.cacheMu.Lock()
	s.cache.Add(key, &cacheEntry{table: table, expiresAt: time.Now().Add(ttl)})
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached table. Keys include the snapshot's
// update time, so reindexing already bypasses stale tables; this frees them.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached tables
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
