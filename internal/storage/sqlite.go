package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Snapshot operations

const snapshotColumns = `id, root_path, search_dir, total_files, total_entries,
	index_version, index_duration_ms, last_indexed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snapshot Snapshot
	var durationMS int64
	var lastIndexedAt sql.NullTime
	err := row.Scan(
		&snapshot.ID, &snapshot.RootPath, &snapshot.SearchDir,
		&snapshot.TotalFiles, &snapshot.TotalEntries, &snapshot.IndexVersion,
		&durationMS, &lastIndexedAt, &snapshot.CreatedAt, &snapshot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	snapshot.IndexDuration = time.Duration(durationMS) * time.Millisecond
	if lastIndexedAt.Valid {
		snapshot.LastIndexedAt = lastIndexedAt.Time
	}
	return &snapshot, nil
}

// createSnapshotWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createSnapshotWithQuerier(ctx context.Context, q querier, snapshot *Snapshot) error {
	query := `
		INSERT INTO snapshots (root_path, search_dir, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		snapshot.RootPath, snapshot.SearchDir, snapshot.IndexVersion, now, now)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	snapshot.ID = id
	snapshot.CreatedAt = now
	snapshot.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateSnapshot(ctx context.Context, snapshot *Snapshot) error {
	return s.createSnapshotWithQuerier(ctx, s.querier(), snapshot)
}

// getSnapshotWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getSnapshotWithQuerier(ctx context.Context, q querier, rootPath string) (*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE root_path = ?`
	snapshot, err := scanSnapshot(q.QueryRowContext(ctx, query, rootPath))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *SQLiteStorage) GetSnapshot(ctx context.Context, rootPath string) (*Snapshot, error) {
	return s.getSnapshotWithQuerier(ctx, s.querier(), rootPath)
}

// getSnapshotByIDWithQuerier retrieves a snapshot by ID
func (s *SQLiteStorage) getSnapshotByIDWithQuerier(ctx context.Context, q querier, snapshotID int64) (*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`
	snapshot, err := scanSnapshot(q.QueryRowContext(ctx, query, snapshotID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// updateSnapshotWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateSnapshotWithQuerier(ctx context.Context, q querier, snapshot *Snapshot) error {
	query := `
		UPDATE snapshots
		SET search_dir = ?, total_files = ?, total_entries = ?, index_version = ?,
		    index_duration_ms = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		snapshot.SearchDir, snapshot.TotalFiles, snapshot.TotalEntries, snapshot.IndexVersion,
		snapshot.IndexDuration.Milliseconds(), snapshot.LastIndexedAt, now, snapshot.ID)
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	snapshot.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateSnapshot(ctx context.Context, snapshot *Snapshot) error {
	return s.updateSnapshotWithQuerier(ctx, s.querier(), snapshot)
}

// deleteSnapshotWithQuerier removes a snapshot; files, entries and
// occurrences go with it through cascading deletes
func (s *SQLiteStorage) deleteSnapshotWithQuerier(ctx context.Context, q querier, snapshotID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, snapshotID)
	return err
}

func (s *SQLiteStorage) DeleteSnapshot(ctx context.Context, snapshotID int64) error {
	return s.deleteSnapshotWithQuerier(ctx, s.querier(), snapshotID)
}

// listSnapshotsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listSnapshotsWithQuerier(ctx context.Context, q querier) ([]*Snapshot, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY root_path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	snapshots := make([]*Snapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStorage) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	return s.listSnapshotsWithQuerier(ctx, s.querier())
}

// Source file operations

const fileColumns = `id, snapshot_id, file_path, category, section, content_hash, mod_time,
	size_bytes, parse_error, last_indexed_at, created_at, updated_at`

func scanFile(row rowScanner) (*SourceFile, error) {
	var file SourceFile
	var hash []byte
	var parseError sql.NullString
	err := row.Scan(
		&file.ID, &file.SnapshotID, &file.FilePath, &file.Category, &file.Section,
		&hash, &file.ModTime, &file.SizeBytes, &parseError,
		&file.LastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(file.ContentHash[:], hash)
	if parseError.Valid {
		file.ParseError = &parseError.String
	}
	return &file, nil
}

// upsertFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *SourceFile) error {
	query := `
		INSERT INTO source_files (snapshot_id, file_path, category, section, content_hash, mod_time, size_bytes, parse_error, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id, file_path) DO UPDATE SET
			category = excluded.category,
			section = excluded.section,
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			parse_error = excluded.parse_error,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		file.SnapshotID, file.FilePath, string(file.Category), file.Section, file.ContentHash[:],
		file.ModTime, file.SizeBytes, file.ParseError, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	file.LastIndexedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *SourceFile) error {
	return s.upsertFileWithQuerier(ctx, s.querier(), file)
}

// getFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, snapshotID int64, filePath string) (*SourceFile, error) {
	query := `SELECT ` + fileColumns + ` FROM source_files WHERE snapshot_id = ? AND file_path = ?`
	file, err := scanFile(q.QueryRowContext(ctx, query, snapshotID, filePath))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *SQLiteStorage) GetFile(ctx context.Context, snapshotID int64, filePath string) (*SourceFile, error) {
	return s.getFileWithQuerier(ctx, s.querier(), snapshotID, filePath)
}

// listFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier, snapshotID int64) ([]*SourceFile, error) {
	query := `SELECT ` + fileColumns + ` FROM source_files WHERE snapshot_id = ? ORDER BY file_path`
	rows, err := q.QueryContext(ctx, query, snapshotID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*SourceFile, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, snapshotID int64) ([]*SourceFile, error) {
	return s.listFilesWithQuerier(ctx, s.querier(), snapshotID)
}

// deleteFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM source_files WHERE id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	return s.deleteFileWithQuerier(ctx, s.querier(), fileID)
}

// Entry operations

// insertEntriesWithQuerier stores entries in slice order. Positions are
// recorded so ListEntries can restore insertion order.
func (s *SQLiteStorage) insertEntriesWithQuerier(ctx context.Context, q querier, fileID int64, entries []types.SearchEntry) error {
	entryQuery := `
		INSERT INTO entries (file_id, position, entry_key, display_name)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	occQuery := `
		INSERT INTO occurrences (entry_id, position, anchor, link_flag, owner)
		VALUES (?, ?, ?, ?, ?)
	`

	for i := range entries {
		entry := &entries[i]
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("invalid entry %d: %w", i, err)
		}

		var entryID int64
		err := q.QueryRowContext(ctx, entryQuery, fileID, i, entry.Key, entry.DisplayName).Scan(&entryID)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entry.Key, err)
		}

		for j, occ := range entry.Occurrences {
			if _, err := q.ExecContext(ctx, occQuery, entryID, j, occ.Anchor, occ.LinkFlag, occ.Owner); err != nil {
				return fmt.Errorf("failed to insert occurrence %d of %s: %w", j, entry.Key, err)
			}
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertEntries(ctx context.Context, fileID int64, entries []types.SearchEntry) error {
	return s.insertEntriesWithQuerier(ctx, s.querier(), fileID, entries)
}

// listEntriesWithQuerier returns a category's entries in generator order:
// by section, then file, then position within the file
func (s *SQLiteStorage) listEntriesWithQuerier(ctx context.Context, q querier, snapshotID int64, category types.Category) ([]types.SearchEntry, error) {
	query := `
		SELECT e.id, e.entry_key, e.display_name, o.anchor, o.link_flag, o.owner
		FROM entries e
		JOIN source_files f ON f.id = e.file_id
		JOIN occurrences o ON o.entry_id = e.id
		WHERE f.snapshot_id = ? AND f.category = ?
		ORDER BY f.section, f.file_path, e.position, o.position
	`
	rows, err := q.QueryContext(ctx, query, snapshotID, string(category))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]types.SearchEntry, 0)
	lastID := int64(-1)
	for rows.Next() {
		var id int64
		var key, name string
		var occ types.Occurrence
		if err := rows.Scan(&id, &key, &name, &occ.Anchor, &occ.LinkFlag, &occ.Owner); err != nil {
			return nil, err
		}
		if id != lastID {
			entries = append(entries, types.SearchEntry{Key: key, DisplayName: name})
			lastID = id
		}
		last := &entries[len(entries)-1]
		last.Occurrences = append(last.Occurrences, occ)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorage) ListEntries(ctx context.Context, snapshotID int64, category types.Category) ([]types.SearchEntry, error) {
	return s.listEntriesWithQuerier(ctx, s.querier(), snapshotID, category)
}

// deleteEntriesByFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEntriesByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM entries WHERE file_id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteEntriesByFile(ctx context.Context, fileID int64) error {
	return s.deleteEntriesByFileWithQuerier(ctx, s.querier(), fileID)
}

// entryKeysWithQuerier maps each stored key of a category to the file
// holding it. When a key is stored twice the earlier file wins.
func (s *SQLiteStorage) entryKeysWithQuerier(ctx context.Context, q querier, snapshotID int64, category types.Category) (map[string]string, error) {
	query := `
		SELECT e.entry_key, f.file_path
		FROM source_files f
		JOIN entries e ON e.file_id = f.id
		WHERE f.snapshot_id = ? AND f.category = ?
		ORDER BY f.section, f.file_path, e.position
	`
	rows, err := q.QueryContext(ctx, query, snapshotID, string(category))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]string)
	for rows.Next() {
		var key, filePath string
		if err := rows.Scan(&key, &filePath); err != nil {
			return nil, err
		}
		if _, ok := keys[key]; !ok {
			keys[key] = filePath
		}
	}
	return keys, rows.Err()
}

func (s *SQLiteStorage) EntryKeys(ctx context.Context, snapshotID int64, category types.Category) (map[string]string, error) {
	return s.entryKeysWithQuerier(ctx, s.querier(), snapshotID, category)
}

// categoryCountsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) categoryCountsWithQuerier(ctx context.Context, q querier, snapshotID int64) (map[types.Category]int, error) {
	query := `
		SELECT f.category, COUNT(e.id)
		FROM source_files f
		JOIN entries e ON e.file_id = f.id
		WHERE f.snapshot_id = ?
		GROUP BY f.category
	`
	rows, err := q.QueryContext(ctx, query, snapshotID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[types.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[types.Category(category)] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteStorage) CategoryCounts(ctx context.Context, snapshotID int64) (map[types.Category]int, error) {
	return s.categoryCountsWithQuerier(ctx, s.querier(), snapshotID)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, snapshotID int64) (*SnapshotStatus, error) {
	snapshot, err := s.getSnapshotByIDWithQuerier(ctx, q, snapshotID)
	if err != nil {
		return nil, err
	}

	status := &SnapshotStatus{
		Snapshot:      snapshot,
		LastIndexedAt: snapshot.LastIndexedAt,
		IndexDuration: snapshot.IndexDuration,
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(parse_error)
		FROM source_files
		WHERE snapshot_id = ?
	`, snapshotID).Scan(&status.FilesCount, &status.FailedFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM occurrences o
		JOIN entries e ON e.id = o.entry_id
		JOIN source_files f ON f.id = e.file_id
		WHERE f.snapshot_id = ?
	`, snapshotID).Scan(&status.OccurrencesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count occurrences: %w", err)
	}

	status.Categories, err = s.categoryCountsWithQuerier(ctx, q, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	for _, n := range status.Categories {
		status.EntriesCount += n
	}

	// Calculate database size
	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeBytes = pageCount * pageSize
	}

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		HasEntries:         status.EntriesCount > 0,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, snapshotID int64) (*SnapshotStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), snapshotID)
}

// Transaction implementations run every operation on the transaction so a
// single-connection pool never waits on itself

func (t *sqliteTx) CreateSnapshot(ctx context.Context, snapshot *Snapshot) error {
	return t.storage.createSnapshotWithQuerier(ctx, t.querier(), snapshot)
}

func (t *sqliteTx) GetSnapshot(ctx context.Context, rootPath string) (*Snapshot, error) {
	return t.storage.getSnapshotWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) UpdateSnapshot(ctx context.Context, snapshot *Snapshot) error {
	return t.storage.updateSnapshotWithQuerier(ctx, t.querier(), snapshot)
}

func (t *sqliteTx) DeleteSnapshot(ctx context.Context, snapshotID int64) error {
	return t.storage.deleteSnapshotWithQuerier(ctx, t.querier(), snapshotID)
}

func (t *sqliteTx) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	return t.storage.listSnapshotsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) UpsertFile(ctx context.Context, file *SourceFile) error {
	return t.storage.upsertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetFile(ctx context.Context, snapshotID int64, filePath string) (*SourceFile, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), snapshotID, filePath)
}

func (t *sqliteTx) ListFiles(ctx context.Context, snapshotID int64) ([]*SourceFile, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier(), snapshotID)
}

func (t *sqliteTx) DeleteFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) InsertEntries(ctx context.Context, fileID int64, entries []types.SearchEntry) error {
	return t.storage.insertEntriesWithQuerier(ctx, t.querier(), fileID, entries)
}

func (t *sqliteTx) ListEntries(ctx context.Context, snapshotID int64, category types.Category) ([]types.SearchEntry, error) {
	return t.storage.listEntriesWithQuerier(ctx, t.querier(), snapshotID, category)
}

func (t *sqliteTx) DeleteEntriesByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteEntriesByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) EntryKeys(ctx context.Context, snapshotID int64, category types.Category) (map[string]string, error) {
	return t.storage.entryKeysWithQuerier(ctx, t.querier(), snapshotID, category)
}

func (t *sqliteTx) CategoryCounts(ctx context.Context, snapshotID int64) (map[types.Category]int, error) {
	return t.storage.categoryCountsWithQuerier(ctx, t.querier(), snapshotID)
}

func (t *sqliteTx) GetStatus(ctx context.Context, snapshotID int64) (*SnapshotStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), snapshotID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
