package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dshills/docsearch-mcp/internal/index"
	"github.com/dshills/docsearch-mcp/internal/parser"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

const fixturePath = "../parser/testdata/functions_6.js"

// setupTestStorage creates an in-memory SQLite database for testing
func setupTestStorage(t testing.TB) storage.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// createTestFile writes a file below dir, creating parents as needed
func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, name)
	err := os.MkdirAll(filepath.Dir(filePath), 0755)
	require.NoError(t, err)

	err = os.WriteFile(filePath, []byte(content), 0644)
	require.NoError(t, err)

	return filePath
}

func readFixture(t testing.TB) string {
	t.Helper()
	content, err := os.ReadFile(fixturePath)
	require.NoError(t, err)
	return string(content)
}

// setupDocs lays out a generator-style html/search tree
func setupDocs(t testing.TB) (root, searchDir string) {
	t.Helper()
	root = t.TempDir()
	searchDir = filepath.Join(root, "html", "search")

	createTestFile(t, searchDir, "functions_6.js", readFixture(t))
	createTestFile(t, searchDir, "classes_0.js", `var searchData=
[
  ['aabb_0',['AABB',['../class_a_a_b_b.html',1,'']]],
  ['audioengine_1',['AudioEngine',['../class_audio_engine.html',1,'']]]
];
`)
	createTestFile(t, searchDir, "all_0.js", `var searchData=
[
  ['aabb_0',['AABB',['../class_a_a_b_b.html',1,'']]]
];
`)
	// Widget scripts that must be ignored
	createTestFile(t, searchDir, "search.js", "function init_search() {}\n")
	createTestFile(t, searchDir, "searchdata.js", "var indexSectionsWithContent = {};\n")
	return root, searchDir
}

func TestNew(t *testing.T) {
	store := setupTestStorage(t)

	idx := New(store, nil)

	assert.NotNil(t, idx)
	assert.NotNil(t, idx.parser)
	assert.NotNil(t, idx.storage)
	assert.NotNil(t, idx.logger)
	assert.Equal(t, runtime.NumCPU(), idx.workers)
}

func TestResolveSearchDir(t *testing.T) {
	t.Run("html/search", func(t *testing.T) {
		root, searchDir := setupDocs(t)
		dir, err := ResolveSearchDir(root)
		require.NoError(t, err)
		assert.Equal(t, searchDir, dir)
	})

	t.Run("search preferred", func(t *testing.T) {
		root, _ := setupDocs(t)
		createTestFile(t, root, "search/all_0.js", "var searchData=[];\n")
		dir, err := ResolveSearchDir(root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "search"), dir)
	})

	t.Run("root itself", func(t *testing.T) {
		root := t.TempDir()
		createTestFile(t, root, "functions_0.js", "var searchData=[];\n")
		dir, err := ResolveSearchDir(root)
		require.NoError(t, err)
		assert.Equal(t, root, dir)
	})

	t.Run("nothing", func(t *testing.T) {
		root := t.TempDir()
		createTestFile(t, root, "search/search.js", "")
		_, err := ResolveSearchDir(root)
		assert.ErrorIs(t, err, ErrNoSearchData)
	})
}

func TestDiscoverFiles(t *testing.T) {
	_, searchDir := setupDocs(t)

	files, err := discoverFiles(searchDir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"all_0.js", "classes_0.js", "functions_6.js"}, files)

	files, err = discoverFiles(searchDir, []types.Category{types.CategoryFunctions})
	require.NoError(t, err)
	assert.Equal(t, []string{"functions_6.js"}, files)
}

func TestIndexDocs_Success(t *testing.T) {
	root, searchDir := setupDocs(t)
	store := setupTestStorage(t)
	ctx := context.Background()

	idx := New(store, zap.NewNop())
	stats, err := idx.IndexDocs(ctx, root, &Config{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, searchDir, stats.SearchDir)
	assert.Equal(t, 3, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 23, stats.EntriesStored)
	assert.Empty(t, stats.ErrorMessages)

	snapshot, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.TotalFiles)
	assert.Equal(t, 23, snapshot.TotalEntries)
	assert.Equal(t, searchDir, snapshot.SearchDir)
	assert.False(t, snapshot.LastIndexedAt.IsZero())

	// Stored entries match a direct parse, in order
	want, err := parser.New().ParseFile(fixturePath)
	require.NoError(t, err)
	got, err := store.ListEntries(ctx, snapshot.ID, types.CategoryFunctions)
	require.NoError(t, err)
	assert.Equal(t, want.Entries, got)
}

func TestIndexDocs_IncrementalUpdate(t *testing.T) {
	root, searchDir := setupDocs(t)
	store := setupTestStorage(t)
	ctx := context.Background()
	idx := New(store, zap.NewNop())

	_, err := idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err)

	// Nothing changed
	stats, err := idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 3, stats.FilesSkipped)

	// One file changes, one disappears
	createTestFile(t, searchDir, "classes_0.js", `var searchData=
[
  ['grass_0',['Grass',['../class_grass.html',1,'']]]
];
`)
	require.NoError(t, os.Remove(filepath.Join(searchDir, "all_0.js")))

	stats, err = idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 1, stats.FilesRemoved)

	snapshot, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.TotalFiles)
	assert.Equal(t, 21, snapshot.TotalEntries)

	classes, err := store.ListEntries(ctx, snapshot.ID, types.CategoryClasses)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Grass", classes[0].DisplayName)

	all, err := store.ListEntries(ctx, snapshot.ID, types.CategoryAll)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIndexDocs_Force(t *testing.T) {
	root, _ := setupDocs(t)
	store := setupTestStorage(t)
	ctx := context.Background()
	idx := New(store, zap.NewNop())

	first, err := idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err)
	before, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)

	stats, err := idx.IndexDocs(ctx, root, &Config{Force: true})
	require.NoError(t, err)
	assert.Equal(t, first.FilesIndexed, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)

	after, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)
	assert.NotEqual(t, before.ID, after.ID)
	assert.Equal(t, before.TotalEntries, after.TotalEntries)
}

func TestIndexDocs_CategoryFilter(t *testing.T) {
	root, searchDir := setupDocs(t)
	store := setupTestStorage(t)
	ctx := context.Background()
	idx := New(store, zap.NewNop())

	_, err := idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err)

	// Removing a class file while only functions are indexed leaves classes alone
	require.NoError(t, os.Remove(filepath.Join(searchDir, "classes_0.js")))
	stats, err := idx.IndexDocs(ctx, root, &Config{Categories: []types.Category{types.CategoryFunctions}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 0, stats.FilesRemoved)

	snapshot, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)
	classes, err := store.ListEntries(ctx, snapshot.ID, types.CategoryClasses)
	require.NoError(t, err)
	assert.Len(t, classes, 2)
}

func TestIndexDocs_WithParseErrors(t *testing.T) {
	root, searchDir := setupDocs(t)
	createTestFile(t, searchDir, "defines_0.js", "var searchData=\n[\n  ['broken_0',['Broken'\n")
	createTestFile(t, searchDir, "variables_0.js", `var searchData=
[
  ['count_0',['count',['../a.html',1,'A']]],
  ['bad_1',['bad']],
  ['total_2',['total',['../b.html',1,'B']]]
];
`)

	store := setupTestStorage(t)
	ctx := context.Background()
	idx := New(store, zap.NewNop())

	stats, err := idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err, "parse errors are not fatal")
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 4, stats.FilesIndexed)
	assert.Len(t, stats.ErrorMessages, 2)

	snapshot, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)

	broken, err := store.GetFile(ctx, snapshot.ID, "defines_0.js")
	require.NoError(t, err)
	require.NotNil(t, broken.ParseError)

	partial, err := store.GetFile(ctx, snapshot.ID, "variables_0.js")
	require.NoError(t, err)
	require.NotNil(t, partial.ParseError)
	assert.Contains(t, *partial.ParseError, "1 entries skipped")

	variables, err := store.ListEntries(ctx, snapshot.ID, types.CategoryVariables)
	require.NoError(t, err)
	assert.Len(t, variables, 2)

	status, err := store.GetStatus(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.FailedFiles)
}

func oneEntry(key, name string) string {
	return "var searchData=\n[\n  ['" + key + "',['" + name + "',['../a.html',1,'']]]\n];\n"
}

func entryNames(entries []types.SearchEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.DisplayName
	}
	return names
}

func TestIndexDocs_HexSections(t *testing.T) {
	root := t.TempDir()
	searchDir := filepath.Join(root, "search")
	createTestFile(t, searchDir, "all_10.js", oneEntry("sixteen_0", "sixteen"))
	createTestFile(t, searchDir, "all_9.js", oneEntry("nine_0", "nine"))
	createTestFile(t, searchDir, "all_a.js", oneEntry("ten_0", "ten"))

	files, err := discoverFiles(searchDir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"all_9.js", "all_a.js", "all_10.js"}, files)

	store := setupTestStorage(t)
	ctx := context.Background()
	_, err = New(store, zap.NewNop()).IndexDocs(ctx, root, nil)
	require.NoError(t, err)

	snapshot, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)
	sixteen, err := store.GetFile(ctx, snapshot.ID, "all_10.js")
	require.NoError(t, err)
	assert.Equal(t, 16, sixteen.Section)

	all, err := store.ListEntries(ctx, snapshot.ID, types.CategoryAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"nine", "ten", "sixteen"}, entryNames(all))
}

func TestIndexDocs_DuplicateKeys(t *testing.T) {
	root := t.TempDir()
	searchDir := filepath.Join(root, "search")
	createTestFile(t, searchDir, "functions_0.js", oneEntry("getx_0", "getX"))
	createTestFile(t, searchDir, "functions_1.js", `var searchData=
[
  ['getx_0',['getX',['../b.html',1,'']]],
  ['gety_1',['getY',['../b.html',1,'']]]
];
`)

	store := setupTestStorage(t)
	ctx := context.Background()
	idx := New(store, zap.NewNop())

	stats, err := idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 2, stats.EntriesStored)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], `duplicate entry key "getx_0", already in functions_0.js`)

	snapshot, err := store.GetSnapshot(ctx, root)
	require.NoError(t, err)
	second, err := store.GetFile(ctx, snapshot.ID, "functions_1.js")
	require.NoError(t, err)
	require.NotNil(t, second.ParseError)

	// The category stays searchable
	functions, err := store.ListEntries(ctx, snapshot.ID, types.CategoryFunctions)
	require.NoError(t, err)
	assert.Equal(t, []string{"getX", "getY"}, entryNames(functions))
	_, err = index.New(functions)
	require.NoError(t, err)

	// An unchanged file keeps its keys against a rewritten neighbour
	createTestFile(t, searchDir, "functions_1.js", oneEntry("gety_1", "getY"))
	createTestFile(t, searchDir, "functions_2.js", oneEntry("gety_1", "getYAgain"))
	stats, err = idx.IndexDocs(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesSkipped)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "functions_2.js")

	functions, err = store.ListEntries(ctx, snapshot.ID, types.CategoryFunctions)
	require.NoError(t, err)
	assert.Equal(t, []string{"getX", "getY"}, entryNames(functions))
	_, err = index.New(functions)
	require.NoError(t, err)
}

func TestIndexDocs_NoSearchData(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, zap.NewNop())

	_, err := idx.IndexDocs(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNoSearchData)
}

func TestIndexDocs_ConcurrentCalls(t *testing.T) {
	root, _ := setupDocs(t)
	store := setupTestStorage(t)
	idx := New(store, zap.NewNop())

	// Hold the lock as a running index would
	require.True(t, idx.lock.TryAcquire())
	_, err := idx.IndexDocs(context.Background(), root, nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
	idx.lock.Release()

	// Racing calls: every call either succeeds or is rejected
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := idx.IndexDocs(context.Background(), root, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrIndexingInProgress), "unexpected error: %v", err)
	}
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.False(t, idx.lock.Held())
}

func TestIndexDocs_ContextCancellation(t *testing.T) {
	root, _ := setupDocs(t)
	store := setupTestStorage(t)
	idx := New(store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.IndexDocs(ctx, root, nil)
	assert.Error(t, err)

	// Nothing was committed
	_, err = store.GetSnapshot(context.Background(), root)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndexLock(t *testing.T) {
	var l IndexLock
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Held())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
}
