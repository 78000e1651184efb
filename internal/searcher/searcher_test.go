package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/docsearch-mcp/internal/parser"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

const testRoot = "/test/docs"

// setupTestSearcher creates a searcher over an in-memory snapshot holding
// the generator fixture as functions and a small all section
func setupTestSearcher(t testing.TB) (*Searcher, storage.Storage, *storage.Snapshot) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	snapshot := &storage.Snapshot{RootPath: testRoot, IndexVersion: storage.CurrentSchemaVersion}
	if err := store.CreateSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("failed to create test snapshot: %v", err)
	}

	fixture, err := parser.New().ParseFile("../parser/testdata/functions_6.js")
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	addFile(t, store, snapshot.ID, "functions_6.js", types.CategoryFunctions, 6, fixture.Entries)

	addFile(t, store, snapshot.ID, "all_0.js", types.CategoryAll, 0, []types.SearchEntry{
		{Key: "grass_0", DisplayName: "Grass", Occurrences: []types.Occurrence{{Anchor: "../class_grass.html", LinkFlag: 1}}},
		{Key: "getx_1", DisplayName: "getX", Occurrences: []types.Occurrence{{Anchor: "../class_sound_info.html#abc", LinkFlag: 1, Owner: "SoundInfo"}}},
	})

	return NewSearcher(store, nil, Options{}), store, snapshot
}

func addFile(t testing.TB, store storage.Storage, snapshotID int64, path string, category types.Category, section int, entries []types.SearchEntry) {
	t.Helper()
	ctx := context.Background()
	file := &storage.SourceFile{
		SnapshotID: snapshotID,
		FilePath:   path,
		Category:   category,
		Section:    section,
		ModTime:    time.Now(),
	}
	if err := store.UpsertFile(ctx, file); err != nil {
		t.Fatalf("failed to store file: %v", err)
	}
	if err := store.InsertEntries(ctx, file.ID, entries); err != nil {
		t.Fatalf("failed to store entries: %v", err)
	}
}

func names(results []types.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Entry.DisplayName
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestNewSearcher verifies searcher creation
func TestNewSearcher(t *testing.T) {
	s := NewSearcher(nil, nil, Options{})

	if s == nil {
		t.Fatal("expected non-nil searcher")
	}
	if s.logger == nil {
		t.Error("expected default logger")
	}
	if s.cacheTTL != DefaultCacheTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultCacheTTL, s.cacheTTL)
	}
}

// TestValidateRequest tests request defaults and clamping
func TestValidateRequest(t *testing.T) {
	s := NewSearcher(nil, nil, Options{CacheTTL: time.Minute})

	tests := []struct {
		name        string
		req         SearchRequest
		expectError bool
		wantLimit   int
	}{
		{name: "MissingRoot", req: SearchRequest{Query: "get"}, expectError: true},
		{name: "DefaultLimit", req: SearchRequest{DocsRoot: testRoot}, wantLimit: DefaultLimit},
		{name: "NegativeLimit", req: SearchRequest{DocsRoot: testRoot, Limit: -5}, wantLimit: DefaultLimit},
		{name: "ClampedLimit", req: SearchRequest{DocsRoot: testRoot, Limit: 5000}, wantLimit: MaxLimit},
		{name: "ExplicitLimit", req: SearchRequest{DocsRoot: testRoot, Limit: 7}, wantLimit: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := s.validateRequest(&req)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, req.Limit)
			}
			if req.CacheTTL != time.Minute {
				t.Errorf("expected searcher TTL, got %v", req.CacheTTL)
			}
		})
	}
}

func TestSearch_PrefixBeforeSubstring(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{
		DocsRoot: testRoot,
		Query:    "scale",
		Category: types.CategoryFunctions,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	want := []string{"getScale", "GLOBAL_POSITION_SCALE", "GLOBAL_SCALE"}
	if got := names(resp.Results); !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	for i, r := range resp.Results {
		if r.Rank != i+1 {
			t.Errorf("result %d has rank %d", i, r.Rank)
		}
		if r.Match != types.MatchSubstring {
			t.Errorf("result %d has match %s", i, r.Match)
		}
		if r.Category != types.CategoryFunctions {
			t.Errorf("result %d has category %s", i, r.Category)
		}
	}

	resp, err = s.Search(context.Background(), SearchRequest{DocsRoot: testRoot, Query: "getX", Category: types.CategoryFunctions})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Entry.DisplayName != "getX" || resp.Results[0].Match != types.MatchPrefix {
		t.Errorf("expected getX as first prefix match, got %v", names(resp.Results))
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	s, _, _ := setupTestSearcher(t)
	ctx := context.Background()

	upper, err := s.Search(ctx, SearchRequest{DocsRoot: testRoot, Query: "GRASS", Category: types.CategoryFunctions})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	lower, err := s.Search(ctx, SearchRequest{DocsRoot: testRoot, Query: "grass", Category: types.CategoryFunctions})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !equalStrings(names(upper.Results), names(lower.Results)) {
		t.Errorf("case changed the result: %v vs %v", names(upper.Results), names(lower.Results))
	}
	if len(lower.Results) != 1 {
		t.Errorf("expected 1 result, got %d", len(lower.Results))
	}
}

func TestSearch_EmptyQueryListsCategory(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{DocsRoot: testRoot, Category: types.CategoryFunctions, Limit: 5})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.TotalMatches != 20 {
		t.Errorf("expected 20 total matches, got %d", resp.TotalMatches)
	}
	want := []string{"GameObject", "generateAABBoxAroundPoint", "getFilePath", "getModel", "getNextIndex"}
	if got := names(resp.Results); !equalStrings(got, want) {
		t.Errorf("expected insertion order %v, got %v", want, got)
	}
}

func TestSearch_DefaultCategory(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{DocsRoot: testRoot, Query: "get"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.Category != types.CategoryAll {
		t.Errorf("expected all, got %s", resp.Category)
	}
	if resp.TotalMatches != 1 {
		t.Errorf("expected 1 match in all, got %d", resp.TotalMatches)
	}
}

func TestDefaultCategory(t *testing.T) {
	tests := []struct {
		name   string
		counts map[types.Category]int
		want   types.Category
	}{
		{name: "all", counts: map[types.Category]int{types.CategoryAll: 3, types.CategoryFunctions: 2}, want: types.CategoryAll},
		{name: "functions", counts: map[types.Category]int{types.CategoryClasses: 1, types.CategoryFunctions: 2}, want: types.CategoryFunctions},
		{name: "first present", counts: map[types.Category]int{types.CategoryVariables: 1, types.CategoryClasses: 1}, want: types.CategoryClasses},
		{name: "empty", counts: map[types.Category]int{}, want: types.CategoryAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultCategory(tt.counts); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSearch_LimitAndTotal(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{DocsRoot: testRoot, Query: "get", Category: types.CategoryFunctions, Limit: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.TotalMatches != 15 {
		t.Errorf("expected 15 total matches, got %d", resp.TotalMatches)
	}
}

func TestSearch_Filters(t *testing.T) {
	s, _, _ := setupTestSearcher(t)
	ctx := context.Background()

	resp, err := s.Search(ctx, SearchRequest{DocsRoot: testRoot, Query: "scale", Category: types.CategoryFunctions, PrefixOnly: true})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected no prefix matches, got %v", names(resp.Results))
	}

	resp, err = s.Search(ctx, SearchRequest{DocsRoot: testRoot, Query: "get", Category: types.CategoryFunctions, Owner: "AudioEngine"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got := names(resp.Results); !equalStrings(got, []string{"getSoundLengthInMS"}) {
		t.Errorf("unexpected owner filter result %v", got)
	}
}

func TestSearch_Errors(t *testing.T) {
	s, _, _ := setupTestSearcher(t)
	ctx := context.Background()

	_, err := s.Search(ctx, SearchRequest{DocsRoot: "/not/indexed", Query: "x"})
	if !errors.Is(err, ErrNotIndexed) {
		t.Errorf("expected ErrNotIndexed, got %v", err)
	}

	_, err = s.Search(ctx, SearchRequest{DocsRoot: testRoot, Query: "x", Category: "widgets"})
	if !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}

	// A known category with no data is just empty
	resp, err := s.Search(ctx, SearchRequest{DocsRoot: testRoot, Query: "x", Category: types.CategoryDefines})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalMatches != 0 {
		t.Errorf("expected no matches, got %d", resp.TotalMatches)
	}
}

func TestSearch_StoredCategoryOutsideKnownSet(t *testing.T) {
	s, store, snapshot := setupTestSearcher(t)
	ctx := context.Background()

	addFile(t, store, snapshot.ID, "properties_0.js", "properties", 0, []types.SearchEntry{
		{Key: "volume_0", DisplayName: "volume", Occurrences: []types.Occurrence{{Anchor: "../class_audio.html#a1", LinkFlag: 1, Owner: "Audio"}}},
	})

	resp, err := s.Search(ctx, SearchRequest{DocsRoot: testRoot, Query: "vol", Category: "properties"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.Category != "properties" {
		t.Errorf("expected category properties, got %s", resp.Category)
	}
	if got := names(resp.Results); !equalStrings(got, []string{"volume"}) {
		t.Errorf("unexpected results: %v", got)
	}

	table, category, err := s.LoadTable(ctx, testRoot, "properties")
	if err != nil {
		t.Fatalf("load table failed: %v", err)
	}
	if category != "properties" || table.Len() != 1 {
		t.Errorf("expected 1 properties entry, got %s/%d", category, table.Len())
	}
}

func TestSearch_Cache(t *testing.T) {
	s, store, snapshot := setupTestSearcher(t)
	ctx := context.Background()
	req := SearchRequest{DocsRoot: testRoot, Query: "get", Category: types.CategoryFunctions, UseCache: true}

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if first.CacheHit {
		t.Error("first search should miss the cache")
	}

	second, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !second.CacheHit {
		t.Error("second search should hit the cache")
	}
	if !equalStrings(names(first.Results), names(second.Results)) {
		t.Error("cached results differ")
	}

	// Updating the snapshot changes the key
	if err := store.UpdateSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("failed to update snapshot: %v", err)
	}
	third, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if third.CacheHit {
		t.Error("search after snapshot update should miss the cache")
	}

	s.InvalidateCache()
	if s.CacheLen() != 0 {
		t.Errorf("expected empty cache, got %d entries", s.CacheLen())
	}

	// Without UseCache nothing is stored
	req.UseCache = false
	if _, err := s.Search(ctx, req); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if s.CacheLen() != 0 {
		t.Errorf("expected empty cache, got %d entries", s.CacheLen())
	}
}

func TestSearch_CacheExpiry(t *testing.T) {
	s, _, _ := setupTestSearcher(t)
	ctx := context.Background()
	req := SearchRequest{DocsRoot: testRoot, Query: "get", UseCache: true, CacheTTL: time.Nanosecond}

	if _, err := s.Search(ctx, req); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	resp, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.CacheHit {
		t.Error("expired entry should not be served")
	}
}

func TestLoadTable(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	table, category, err := s.LoadTable(context.Background(), testRoot, "")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if category != types.CategoryAll {
		t.Errorf("expected all, got %s", category)
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", table.Len())
	}
}
