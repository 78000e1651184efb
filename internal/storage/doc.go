// Package storage provides SQLite-based persistence for indexed search data.
//
// The storage layer manages:
//   - Snapshot metadata, one per documentation tree
//   - searchData files and their content hashes
//   - Search entries and their occurrences, in generator order
//
// # Database Schema
//
// Tables:
//   - snapshots: docs root, search dir, totals and timing of the last run
//   - source_files: relative path, category, section and SHA-256 hash
//   - entries: key and display name, with the position inside the file
//   - occurrences: anchor, link flag and owner, with the position inside the entry
//
// Deleting a snapshot or file cascades to everything below it.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.docsearch/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	snapshot, err := db.GetSnapshot(ctx, "/abs/path/to/docs")
//	entries, err := db.ListEntries(ctx, snapshot.ID, types.CategoryFunctions)
//
// # Transactions
//
// Use transactions for atomic operations:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if err := tx.UpsertFile(ctx, file); err != nil {
//	    return err
//	}
//	if err := tx.DeleteEntriesByFile(ctx, file.ID); err != nil {
//	    return err
//	}
//	if err := tx.InsertEntries(ctx, file.ID, result.Entries); err != nil {
//	    return err
//	}
//
//	return tx.Commit()
//
// Every Tx method runs on the transaction itself. The pool holds a single
// connection, so mixing Tx and non-Tx calls while a transaction is open
// blocks until it ends.
//
// # Ordering
//
// ListEntries orders rows by file section, then file path, then position,
// which reproduces the order the generator wrote them in.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
