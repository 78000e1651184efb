package storage

import (
	"context"
	"time"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// Storage defines the interface for persisting and querying indexed search data
type Storage interface {
	// Snapshot operations
	CreateSnapshot(ctx context.Context, snapshot *Snapshot) error
	GetSnapshot(ctx context.Context, rootPath string) (*Snapshot, error)
	UpdateSnapshot(ctx context.Context, snapshot *Snapshot) error
	DeleteSnapshot(ctx context.Context, snapshotID int64) error
	ListSnapshots(ctx context.Context) ([]*Snapshot, error)

	// Source file operations
	UpsertFile(ctx context.Context, file *SourceFile) error
	GetFile(ctx context.Context, snapshotID int64, filePath string) (*SourceFile, error)
	ListFiles(ctx context.Context, snapshotID int64) ([]*SourceFile, error)
	DeleteFile(ctx context.Context, fileID int64) error

	// Entry operations
	InsertEntries(ctx context.Context, fileID int64, entries []types.SearchEntry) error
	ListEntries(ctx context.Context, snapshotID int64, category types.Category) ([]types.SearchEntry, error)
	DeleteEntriesByFile(ctx context.Context, fileID int64) error
	EntryKeys(ctx context.Context, snapshotID int64, category types.Category) (map[string]string, error)
	CategoryCounts(ctx context.Context, snapshotID int64) (map[types.Category]int, error)

	// Status operations
	GetStatus(ctx context.Context, snapshotID int64) (*SnapshotStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Snapshot represents one indexed documentation tree
type Snapshot struct {
	ID            int64
	RootPath      string // Absolute docs root, unique
	SearchDir     string // Directory the searchData files were read from
	TotalFiles    int
	TotalEntries  int
	IndexVersion  string
	IndexDuration time.Duration
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SourceFile represents a tracked searchData file
type SourceFile struct {
	ID            int64
	SnapshotID    int64
	FilePath      string // Relative to the search dir
	Category      types.Category
	Section       int
	ContentHash   [32]byte
	ModTime       time.Time
	SizeBytes     int64
	ParseError    *string // Nullable
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SnapshotStatus contains statistics about an indexed snapshot
type SnapshotStatus struct {
	Snapshot         *Snapshot
	FilesCount       int
	FailedFiles      int
	EntriesCount     int
	OccurrencesCount int
	Categories       map[types.Category]int
	IndexSizeBytes   int64
	LastIndexedAt    time.Time
	IndexDuration    time.Duration
	Health           HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	HasEntries         bool
}
