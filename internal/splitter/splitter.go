package splitter

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/filechunk/internal/chunker"
	"github.com/dshills/filechunk/internal/storage"
	"github.com/dshills/filechunk/pkg/types"
)

// ErrNotChunked is returned when a source has no manifest entry
var ErrNotChunked = errors.New("source has not been chunked")

// Splitter coordinates the chunking pipeline: hash -> check -> chunk -> record
type Splitter struct {
	chunker *chunker.Chunker
	storage storage.Storage

	// Worker pool configuration
	workers int
}

// Config contains configuration for a splitter run
type Config struct {
	Workers int  // Number of sources chunked concurrently (default: runtime.NumCPU())
	Force   bool // Re-chunk even when the manifest says the output is current
}

// Result describes the outcome for one source
type Result struct {
	Source  *storage.Source
	Chunks  []*types.Chunk
	Skipped bool // Output was already current, nothing was rewritten
}

// Statistics contains statistics about a multi-source run
type Statistics struct {
	SourcesSplit   int
	SourcesSkipped int
	SourcesFailed  int
	ChunksCreated  int
	BytesWritten   int64
	Duration       time.Duration
	ErrorMessages  []string
}

// New creates a new Splitter instance
func New(store storage.Storage) *Splitter {
	return &Splitter{
		chunker: chunker.New(),
		storage: store,
		workers: runtime.NumCPU(),
	}
}

// SplitFile chunks one source into outputDir, which must exist, and records
// the run in the manifest. Unless force is set, a source whose content,
// strategy and output are unchanged since its last run is not rewritten.
// The manifest is only updated when every chunk has been written.
func (s *Splitter) SplitFile(ctx context.Context, sourcePath, outputDir string, strategy chunker.Strategy, force bool) (*Result, error) {
	if strategy == nil {
		return nil, types.InvalidConfigf("no chunking strategy")
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output dir: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Compute source hash
	hash, modTime, sizeBytes, err := computeFileHash(absSource)
	if err != nil {
		return nil, &types.ChunkError{Op: "hash source", Path: absSource, Kind: types.ErrSourceOpen, Err: err}
	}

	source := newSource(absSource, absOutput, strategy)
	source.ContentHash = hash
	source.ModTime = modTime
	source.SizeBytes = sizeBytes

	existing, err := s.storage.GetSource(ctx, absSource)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	// Check if the previous output can be reused
	if existing != nil && !force {
		chunks, current, err := s.checkUnchanged(ctx, existing, source)
		if err != nil {
			return nil, err
		}
		if current {
			return &Result{Source: existing, Chunks: chunks, Skipped: true}, nil
		}
	}

	// Create chunks
	chunks, err := s.chunker.ChunkFile(absSource, absOutput, strategy)
	if err != nil {
		return nil, err
	}

	source.RunID = uuid.NewString()
	source.ChunkCount = len(chunks)
	source.LastChunkedAt = time.Now()

	if err := s.record(ctx, source, chunks); err != nil {
		return nil, err
	}

	if existing != nil {
		removeStaleChunks(ctx, existing, absOutput, len(chunks))
	}

	return &Result{Source: source, Chunks: chunks}, nil
}

// SplitMany chunks independent sources concurrently. Each source is written
// into its own directory, outputRoot/<base name of source>, which is created
// if needed. Per-source failures are collected in the statistics; the returned
// error is reserved for invalid input and cancellation.
func (s *Splitter) SplitMany(ctx context.Context, sources []string, outputRoot string, strategy chunker.Strategy, config *Config) (*Statistics, error) {
	if config == nil {
		config = &Config{}
	}
	workers := s.workers
	if config.Workers > 0 {
		workers = config.Workers
	}

	if strategy == nil {
		return nil, types.InvalidConfigf("no chunking strategy")
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	// Sources sharing a base name would write into the same directory
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		base := filepath.Base(src)
		if prev, ok := seen[base]; ok && prev != src {
			return nil, types.InvalidConfigf("sources %s and %s share output directory %q", prev, src, base)
		}
		seen[base] = src
	}

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	var (
		split   int32
		skipped int32
		failed  int32
		chunks  int32
		written int64
	)
	var mu sync.Mutex // Protect stats.ErrorMessages

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, src := range uniq(sources) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			outDir := filepath.Join(outputRoot, filepath.Base(src))
			result, err := s.splitInto(gctx, src, outDir, strategy, config.Force)
			if err != nil {
				// Cancellation stops the whole run; anything else is per source
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", src, err))
				mu.Unlock()
				return nil
			}

			if result.Skipped {
				atomic.AddInt32(&skipped, 1)
				return nil
			}
			atomic.AddInt32(&split, 1)
			atomic.AddInt32(&chunks, int32(len(result.Chunks)))
			for _, c := range result.Chunks {
				atomic.AddInt64(&written, c.Size)
			}
			return nil
		})
	}

	// Wait for all goroutines to complete
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.SourcesSplit = int(split)
	stats.SourcesSkipped = int(skipped)
	stats.SourcesFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	stats.BytesWritten = written
	stats.Duration = time.Since(startTime)
	return stats, nil
}

// Chunks returns the manifest entry of a source and the descriptors of the
// chunks its last run produced.
func (s *Splitter) Chunks(ctx context.Context, sourcePath string) (*storage.Source, []*types.Chunk, error) {
	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve source path: %w", err)
	}

	source, err := s.storage.GetSource(ctx, absSource)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, fmt.Errorf("%s: %w", absSource, ErrNotChunked)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.storage.ListChunks(ctx, source.ID)
	if err != nil {
		return nil, nil, err
	}

	chunks := make([]*types.Chunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, row.ToTypesChunk(source))
	}
	return source, chunks, nil
}

// splitInto creates outDir and chunks src into it
func (s *Splitter) splitInto(ctx context.Context, src, outDir string, strategy chunker.Strategy, force bool) (*Result, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, &types.ChunkError{Op: "create output dir", Path: outDir, Kind: types.ErrChunkCreate, Err: err}
	}
	return s.SplitFile(ctx, src, outDir, strategy, force)
}

// checkUnchanged reports whether the recorded run for a source still holds:
// same content, same strategy, same output dir and every chunk file present
// at its recorded size.
func (s *Splitter) checkUnchanged(ctx context.Context, existing, current *storage.Source) ([]*types.Chunk, bool, error) {
	if existing.ContentHash != current.ContentHash ||
		existing.Mode != current.Mode ||
		existing.MaxLines != current.MaxLines ||
		existing.MaxBytes != current.MaxBytes ||
		existing.Oversized != current.Oversized ||
		existing.OutputDir != current.OutputDir {
		return nil, false, nil
	}

	rows, err := s.storage.ListChunks(ctx, existing.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load manifest chunks: %w", err)
	}
	if len(rows) != existing.ChunkCount {
		return nil, false, nil
	}

	chunks := make([]*types.Chunk, 0, len(rows))
	for _, row := range rows {
		info, err := os.Stat(row.OutputPath)
		if err != nil || !info.Mode().IsRegular() || info.Size() != row.SizeBytes {
			return nil, false, nil
		}
		chunks = append(chunks, row.ToTypesChunk(existing))
	}
	return chunks, true, nil
}

// record replaces the manifest entry of a source in one transaction
func (s *Splitter) record(ctx context.Context, source *storage.Source, chunks []*types.Chunk) error {
	// Hash chunk files before taking the write transaction
	hashes := make([][32]byte, len(chunks))
	for i, c := range chunks {
		hash, _, _, err := computeFileHash(c.OutputPath)
		if err != nil {
			return &types.ChunkError{Op: "hash chunk", Path: c.OutputPath, Kind: types.ErrChunkUnreadable, Err: err}
		}
		hashes[i] = hash
	}

	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.UpsertSource(ctx, source); err != nil {
		return err
	}

	if _, err := tx.DeleteChunksBySource(ctx, source.ID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	for i, c := range chunks {
		if err := tx.InsertChunk(ctx, storage.FromTypesChunk(c, source.ID, hashes[i])); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// removeStaleChunks deletes chunk files a previous run wrote into the same
// directory past the end of the current run. Only paths the manifest
// recorded are touched.
func removeStaleChunks(ctx context.Context, previous *storage.Source, outputDir string, count int) {
	if previous.OutputDir != outputDir || previous.ChunkCount <= count {
		return
	}
	for seq := count; seq < previous.ChunkCount; seq++ {
		if ctx.Err() != nil {
			return
		}
		_ = os.Remove(filepath.Join(outputDir, strconv.Itoa(seq)))
	}
}

// newSource builds the manifest entry for a run of strategy over sourcePath
func newSource(sourcePath, outputDir string, strategy chunker.Strategy) *storage.Source {
	source := &storage.Source{
		Path:      sourcePath,
		Mode:      strategy.Mode(),
		OutputDir: outputDir,
	}
	switch st := strategy.(type) {
	case chunker.LineBounded:
		source.MaxLines = st.MaxLines
	case chunker.ByteBoundedWordSafe:
		source.MaxBytes = st.MaxBytes
		source.Oversized = st.Oversized.String()
	}
	return source
}

// uniq drops repeated paths, keeping the first occurrence
func uniq(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, time.Time, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}
	defer func() { _ = file.Close() }()

	// Get file info
	info, err := file.Stat()
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}
	if info.IsDir() {
		return [32]byte{}, time.Time{}, 0, fmt.Errorf("is a directory")
	}

	// Compute hash
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))

	return result, info.ModTime(), info.Size(), nil
}
