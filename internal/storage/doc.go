// Package storage provides SQLite-based persistence for chunk manifests.
//
// A manifest records, per source file, the outcome of its last successful
// chunking run: the content hash of the source, the strategy parameters,
// the output directory and one row per chunk file with its line range,
// offset, size and SHA-256 hash. The splitter uses it to skip sources
// whose content and strategy have not changed since the last run.
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migrations
//   - sources: One row per chunked source file
//   - chunks: One row per chunk file, cascading on source delete
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.filechunk/manifest.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	source, err := db.GetSource(ctx, "/data/access.log")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // never chunked
//	}
//
// # Transactions
//
// A run replaces the chunk rows of a source atomically:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if _, err := tx.DeleteChunksBySource(ctx, source.ID); err != nil {
//	    return err
//	}
//	if err := tx.UpsertSource(ctx, source); err != nil {
//	    return err
//	}
//	for _, c := range chunks {
//	    if err := tx.InsertChunk(ctx, c); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Build Tags
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo"
package storage
