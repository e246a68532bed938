package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/filechunk/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
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

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Source operations

const sourceColumns = `
	id, path, run_id, content_hash, size_bytes, mod_time, mode, max_lines, max_bytes,
	oversized, output_dir, chunk_count, last_chunked_at, created_at, updated_at
`

func scanSource(row rowScanner) (*Source, error) {
	var source Source
	var hash []byte
	var mode string
	var modTime, lastChunkedAt sql.NullTime

	err := row.Scan(
		&source.ID, &source.Path, &source.RunID, &hash, &source.SizeBytes, &modTime,
		&mode, &source.MaxLines, &source.MaxBytes, &source.Oversized, &source.OutputDir,
		&source.ChunkCount, &lastChunkedAt, &source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	copy(source.ContentHash[:], hash)
	source.Mode = types.ChunkMode(mode)
	if modTime.Valid {
		source.ModTime = modTime.Time
	}
	if lastChunkedAt.Valid {
		source.LastChunkedAt = lastChunkedAt.Time
	}
	return &source, nil
}

// upsertSourceWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertSourceWithQuerier(ctx context.Context, q querier, source *Source) error {
	query := `
		INSERT INTO sources (
			path, run_id, content_hash, size_bytes, mod_time, mode, max_lines, max_bytes,
			oversized, output_dir, chunk_count, last_chunked_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			run_id = excluded.run_id,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			mod_time = excluded.mod_time,
			mode = excluded.mode,
			max_lines = excluded.max_lines,
			max_bytes = excluded.max_bytes,
			oversized = excluded.oversized,
			output_dir = excluded.output_dir,
			chunk_count = excluded.chunk_count,
			last_chunked_at = excluded.last_chunked_at,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		source.Path, source.RunID, source.ContentHash[:], source.SizeBytes, source.ModTime,
		string(source.Mode), source.MaxLines, source.MaxBytes, source.Oversized,
		source.OutputDir, source.ChunkCount, source.LastChunkedAt, now, now,
	).Scan(&source.ID, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertSource(ctx context.Context, source *Source) error {
	return s.upsertSourceWithQuerier(ctx, s.querier(), source)
}

// getSourceWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getSourceWithQuerier(ctx context.Context, q querier, path string) (*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE path = ?`
	source, err := scanSource(q.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (s *SQLiteStorage) GetSource(ctx context.Context, path string) (*Source, error) {
	return s.getSourceWithQuerier(ctx, s.querier(), path)
}

// getSourceByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getSourceByIDWithQuerier(ctx context.Context, q querier, sourceID int64) (*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = ?`
	source, err := scanSource(q.QueryRowContext(ctx, query, sourceID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (s *SQLiteStorage) GetSourceByID(ctx context.Context, sourceID int64) (*Source, error) {
	return s.getSourceByIDWithQuerier(ctx, s.querier(), sourceID)
}

// listSourcesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listSourcesWithQuerier(ctx context.Context, q querier) ([]*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY path`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (s *SQLiteStorage) ListSources(ctx context.Context) ([]*Source, error) {
	return s.listSourcesWithQuerier(ctx, s.querier())
}

// deleteSourceWithQuerier is the internal implementation that uses a querier.
// Chunk rows are removed by the foreign key cascade.
func (s *SQLiteStorage) deleteSourceWithQuerier(ctx context.Context, q querier, sourceID int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteSource(ctx context.Context, sourceID int64) error {
	return s.deleteSourceWithQuerier(ctx, s.querier(), sourceID)
}

// Chunk operations

// insertChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	query := `
		INSERT INTO chunks (
			source_id, sequence, output_path, line_start, line_end,
			byte_offset, size_bytes, content_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		chunk.SourceID, chunk.Sequence, chunk.OutputPath, chunk.LineStart, chunk.LineEnd,
		chunk.Offset, chunk.SizeBytes, chunk.ContentHash[:], now,
	).Scan(&chunk.ID, &chunk.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) InsertChunk(ctx context.Context, chunk *Chunk) error {
	return s.insertChunkWithQuerier(ctx, s.querier(), chunk)
}

// listChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunksWithQuerier(ctx context.Context, q querier, sourceID int64) ([]*Chunk, error) {
	query := `
		SELECT id, source_id, sequence, output_path, line_start, line_end,
		       byte_offset, size_bytes, content_hash, created_at
		FROM chunks
		WHERE source_id = ?
		ORDER BY sequence
	`
	rows, err := q.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		var chunk Chunk
		var hash []byte

		err := rows.Scan(
			&chunk.ID, &chunk.SourceID, &chunk.Sequence, &chunk.OutputPath,
			&chunk.LineStart, &chunk.LineEnd, &chunk.Offset, &chunk.SizeBytes,
			&hash, &chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		copy(chunk.ContentHash[:], hash)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunks(ctx context.Context, sourceID int64) ([]*Chunk, error) {
	return s.listChunksWithQuerier(ctx, s.querier(), sourceID)
}

// deleteChunksBySourceWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteChunksBySourceWithQuerier(ctx context.Context, q querier, sourceID int64) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) DeleteChunksBySource(ctx context.Context, sourceID int64) (int, error) {
	return s.deleteChunksBySourceWithQuerier(ctx, s.querier(), sourceID)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{}

	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&status.SourcesCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM chunks").
		Scan(&status.ChunksCount, &status.ChunkBytes)
	if err != nil {
		return nil, err
	}

	// MAX() drops the declared column type, so order and take the row instead
	var lastChunkedAt sql.NullTime
	err = q.QueryRowContext(ctx, "SELECT last_chunked_at FROM sources ORDER BY last_chunked_at DESC LIMIT 1").
		Scan(&lastChunkedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastChunkedAt.Valid {
		status.LastChunkedAt = lastChunkedAt.Time
	}

	// Calculate database size
	var pageCount, pageSize int
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DBSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations

func (t *sqliteTx) UpsertSource(ctx context.Context, source *Source) error {
	return t.storage.upsertSourceWithQuerier(ctx, t.querier(), source)
}

func (t *sqliteTx) GetSource(ctx context.Context, path string) (*Source, error) {
	return t.storage.getSourceWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) GetSourceByID(ctx context.Context, sourceID int64) (*Source, error) {
	return t.storage.getSourceByIDWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) ListSources(ctx context.Context) ([]*Source, error) {
	return t.storage.listSourcesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteSource(ctx context.Context, sourceID int64) error {
	return t.storage.deleteSourceWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) InsertChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.insertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) ListChunks(ctx context.Context, sourceID int64) ([]*Chunk, error) {
	return t.storage.listChunksWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) DeleteChunksBySource(ctx context.Context, sourceID int64) (int, error) {
	return t.storage.deleteChunksBySourceWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
