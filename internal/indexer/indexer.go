package indexer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsearch-mcp/internal/parser"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

var (
	// ErrIndexingInProgress is returned when another IndexDocs call is running
	ErrIndexingInProgress = errors.New("indexing already in progress")
	// ErrNoSearchData is returned when no searchData files can be found
	ErrNoSearchData = errors.New("no search index files found")
)

// Indexer coordinates the indexing pipeline: discover -> hash -> parse -> store
type Indexer struct {
	parser  *parser.Parser
	storage storage.Storage
	logger  *zap.Logger
	lock    IndexLock

	// Worker pool configuration
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers    int              // Number of concurrent workers (default: runtime.NumCPU())
	Categories []types.Category // Categories to index, empty for all
	Force      bool             // Discard the stored snapshot and rebuild it
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	SearchDir     string
	FilesIndexed  int
	FilesSkipped  int
	FilesFailed   int
	FilesRemoved  int
	EntriesStored int
	Duration      time.Duration
	ErrorMessages []string
}

// fileResult is the outcome of reading and parsing one file
type fileResult struct {
	relPath  string
	category types.Category
	section  int
	hash     [32]byte
	modTime  time.Time
	size     int64
	parsed   *types.ParseResult
	skipped  bool
	readErr  error // The file could not be read, stored data is kept
	parseErr error // The file is not valid search data
}

// New creates a new Indexer instance
func New(store storage.Storage, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		parser:  parser.New(),
		storage: store,
		logger:  logger,
		workers: runtime.NumCPU(),
	}
}

// Lock returns the lock that serializes indexing runs
func (idx *Indexer) Lock() *IndexLock {
	return &idx.lock
}

// IndexDocs indexes the search data of one documentation tree. Unchanged
// files are skipped, changed files are replaced and vanished files are
// removed, all in a single transaction.
func (idx *Indexer) IndexDocs(ctx context.Context, docsRoot string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = idx.workers
	}

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	rootPath, err := filepath.Abs(docsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve docs root: %w", err)
	}

	searchDir, err := ResolveSearchDir(rootPath)
	if err != nil {
		return nil, err
	}
	stats.SearchDir = searchDir

	files, err := discoverFiles(searchDir, config.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	idx.logger.Info("indexing docs",
		zap.String("root", rootPath),
		zap.String("search_dir", searchDir),
		zap.Int("files", len(files)),
		zap.Int("workers", workers),
		zap.Bool("force", config.Force),
	)

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snapshot, err := idx.getOrCreateSnapshot(ctx, tx, rootPath, searchDir, config.Force)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create snapshot: %w", err)
	}
	snapshot.SearchDir = searchDir

	existing, err := tx.ListFiles(ctx, snapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored files: %w", err)
	}
	known := make(map[string]*storage.SourceFile, len(existing))
	for _, f := range existing {
		known[f.FilePath] = f
	}

	results, err := idx.processFiles(ctx, searchDir, files, known, workers)
	if err != nil {
		return nil, err
	}

	claims, err := retainedKeys(ctx, tx, snapshot.ID, results)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored keys: %w", err)
	}

	for _, res := range results {
		if claims[res.category] == nil {
			claims[res.category] = make(map[string]string)
		}
		if err := idx.storeResult(ctx, tx, snapshot.ID, known[res.relPath], res, claims[res.category], stats); err != nil {
			return nil, err
		}
	}

	if err := idx.removeVanished(ctx, tx, files, existing, config.Categories, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	if err := idx.updateSnapshotStats(ctx, tx, snapshot, stats.Duration); err != nil {
		return nil, fmt.Errorf("failed to update snapshot stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.logger.Info("indexing complete",
		zap.String("root", rootPath),
		zap.Int("indexed", stats.FilesIndexed),
		zap.Int("skipped", stats.FilesSkipped),
		zap.Int("failed", stats.FilesFailed),
		zap.Int("removed", stats.FilesRemoved),
		zap.Int("entries", stats.EntriesStored),
		zap.Duration("duration", stats.Duration),
	)

	return stats, nil
}

// ResolveSearchDir finds the directory holding the searchData files. It
// tries <root>/search, <root>/html/search and <root> itself, in that order.
func ResolveSearchDir(root string) (string, error) {
	candidates := []string{
		filepath.Join(root, "search"),
		filepath.Join(root, "html", "search"),
		root,
	}
	for _, dir := range candidates {
		files, err := discoverFiles(dir, nil)
		if err == nil && len(files) > 0 {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w under %s", ErrNoSearchData, root)
}

// discoverFiles lists the searchData files in dir, ordered by category
// and then section
func discoverFiles(dir string, categories []types.Category) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !parser.IsSearchDataFile(de.Name()) {
			continue
		}
		category, _, _ := parser.SplitFileName(de.Name())
		if !wantCategory(categories, category) {
			continue
		}
		files = append(files, de.Name())
	}
	sort.Slice(files, func(i, j int) bool {
		ci, si, _ := parser.SplitFileName(files[i])
		cj, sj, _ := parser.SplitFileName(files[j])
		if ci != cj {
			return ci < cj
		}
		if si != sj {
			return si < sj
		}
		return files[i] < files[j]
	})
	return files, nil
}

func wantCategory(categories []types.Category, category types.Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// getOrCreateSnapshot retrieves the snapshot for root or creates one. With
// force an existing snapshot is dropped first.
func (idx *Indexer) getOrCreateSnapshot(ctx context.Context, store storage.Storage, rootPath, searchDir string, force bool) (*storage.Snapshot, error) {
	snapshot, err := store.GetSnapshot(ctx, rootPath)
	switch {
	case err == nil && !force:
		return snapshot, nil
	case err == nil:
		idx.logger.Debug("dropping snapshot for rebuild", zap.Int64("snapshot_id", snapshot.ID))
		if err := store.DeleteSnapshot(ctx, snapshot.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	snapshot = &storage.Snapshot{
		RootPath:     rootPath,
		SearchDir:    searchDir,
		IndexVersion: storage.CurrentSchemaVersion,
	}
	if err := store.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// processFiles hashes and parses files concurrently. Results come back in
// the order of files. Only cancellation aborts the run; per-file problems
// are carried in the results.
func (idx *Indexer) processFiles(ctx context.Context, searchDir string, files []string,
	known map[string]*storage.SourceFile, workers int) ([]fileResult, error) {

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = idx.processFile(searchDir, name, known[name])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processFile reads one file and parses it unless its hash is unchanged
func (idx *Indexer) processFile(searchDir, name string, stored *storage.SourceFile) fileResult {
	category, section, _ := parser.SplitFileName(name)
	res := fileResult{relPath: name, category: category, section: section}

	path := filepath.Join(searchDir, name)
	content, info, err := readFile(path)
	if err != nil {
		res.readErr = err
		return res
	}
	res.hash = sha256.Sum256(content)
	res.modTime = info.ModTime()
	res.size = info.Size()

	if stored != nil && stored.ContentHash == res.hash {
		res.skipped = true
		return res
	}

	res.parsed, res.parseErr = idx.parser.Parse(bytes.NewReader(content), path)
	return res
}

func readFile(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return content, info, nil
}

// retainedKeys returns, per category touched by this run, the keys held by
// stored files that keep their entries: unchanged files and files that
// could not be read. Keys of files about to be rewritten are free again.
func retainedKeys(ctx context.Context, store storage.Storage, snapshotID int64, results []fileResult) (map[types.Category]map[string]string, error) {
	retained := make(map[string]bool)
	rewritten := make(map[types.Category]bool)
	for _, res := range results {
		if res.skipped || res.readErr != nil {
			retained[res.relPath] = true
			continue
		}
		rewritten[res.category] = true
	}

	claims := make(map[types.Category]map[string]string, len(rewritten))
	for category := range rewritten {
		keys, err := store.EntryKeys(ctx, snapshotID, category)
		if err != nil {
			return nil, err
		}
		for key, filePath := range keys {
			if !retained[filePath] {
				delete(keys, key)
			}
		}
		claims[category] = keys
	}
	return claims, nil
}

// dropClaimedKeys removes entries whose key is already held by another
// entry of the category and records the survivors in claimed
func dropClaimedKeys(entries []types.SearchEntry, claimed map[string]string, relPath string) ([]types.SearchEntry, []string) {
	kept := make([]types.SearchEntry, 0, len(entries))
	var problems []string
	for _, e := range entries {
		if owner, ok := claimed[e.Key]; ok {
			problems = append(problems, fmt.Sprintf("%v %q, already in %s", types.ErrDuplicateKey, e.Key, owner))
			continue
		}
		claimed[e.Key] = relPath
		kept = append(kept, e)
	}
	return kept, problems
}

// storeResult writes one processed file into the transaction. claimed holds
// the keys of the file's category stored so far.
func (idx *Indexer) storeResult(ctx context.Context, store storage.Storage, snapshotID int64,
	stored *storage.SourceFile, res fileResult, claimed map[string]string, stats *Statistics) error {

	log := idx.logger.With(zap.String("file", res.relPath))

	switch {
	case res.readErr != nil:
		stats.FilesFailed++
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", res.relPath, res.readErr))
		log.Warn("failed to read file", zap.Error(res.readErr))
		return nil
	case res.skipped:
		stats.FilesSkipped++
		log.Debug("unchanged, skipping")
		return nil
	}

	file := &storage.SourceFile{
		SnapshotID:  snapshotID,
		FilePath:    res.relPath,
		Category:    res.category,
		Section:     res.section,
		ContentHash: res.hash,
		ModTime:     res.modTime,
		SizeBytes:   res.size,
	}

	var entries []types.SearchEntry
	switch {
	case res.parseErr != nil:
		msg := res.parseErr.Error()
		file.ParseError = &msg
		stats.FilesFailed++
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", res.relPath, res.parseErr))
		log.Warn("failed to parse file", zap.Error(res.parseErr))
	default:
		problems := make([]string, 0, len(res.parsed.Errors))
		for _, pe := range res.parsed.Errors {
			problems = append(problems, fmt.Sprintf("%d:%d: %s", pe.Line, pe.Column, pe.Message))
		}
		var clashes []string
		entries, clashes = dropClaimedKeys(res.parsed.Entries, claimed, res.relPath)
		problems = append(problems, clashes...)

		if len(problems) > 0 {
			msg := fmt.Sprintf("%d entries skipped; first: %s", len(problems), problems[0])
			file.ParseError = &msg
			for _, p := range problems {
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %s", res.relPath, p))
			}
			log.Warn("skipped entries",
				zap.Int("malformed", len(res.parsed.Errors)),
				zap.Int("duplicate_keys", len(clashes)),
			)
		}
		stats.FilesIndexed++
		stats.EntriesStored += len(entries)
	}

	if err := store.UpsertFile(ctx, file); err != nil {
		return err
	}

	// Replace whatever the previous version of the file contributed
	if stored != nil {
		if err := store.DeleteEntriesByFile(ctx, file.ID); err != nil {
			return fmt.Errorf("failed to delete old entries: %w", err)
		}
	}

	if err := store.InsertEntries(ctx, file.ID, entries); err != nil {
		return fmt.Errorf("failed to store entries of %s: %w", res.relPath, err)
	}

	log.Debug("indexed", zap.Int("entries", len(entries)))
	return nil
}

// removeVanished deletes stored files that are no longer on disk. Files of
// categories outside the filter are left alone.
func (idx *Indexer) removeVanished(ctx context.Context, store storage.Storage, files []string,
	existing []*storage.SourceFile, categories []types.Category, stats *Statistics) error {

	present := make(map[string]bool, len(files))
	for _, name := range files {
		present[name] = true
	}

	for _, f := range existing {
		if present[f.FilePath] || !wantCategory(categories, f.Category) {
			continue
		}
		if err := store.DeleteFile(ctx, f.ID); err != nil {
			return fmt.Errorf("failed to remove %s: %w", f.FilePath, err)
		}
		stats.FilesRemoved++
		idx.logger.Debug("removed vanished file", zap.String("file", f.FilePath))
	}
	return nil
}

// updateSnapshotStats refreshes the snapshot totals
func (idx *Indexer) updateSnapshotStats(ctx context.Context, store storage.Storage, snapshot *storage.Snapshot, duration time.Duration) error {
	files, err := store.ListFiles(ctx, snapshot.ID)
	if err != nil {
		return err
	}

	counts, err := store.CategoryCounts(ctx, snapshot.ID)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	snapshot.TotalFiles = len(files)
	snapshot.TotalEntries = total
	snapshot.IndexVersion = storage.CurrentSchemaVersion
	snapshot.IndexDuration = duration
	snapshot.LastIndexedAt = time.Now()

	return store.UpdateSnapshot(ctx, snapshot)
}
