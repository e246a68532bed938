package storage

import (
	"context"
	"time"

	"github.com/dshills/filechunk/pkg/types"
)

// Storage defines the interface for persisting chunk manifests
type Storage interface {
	// Source operations
	UpsertSource(ctx context.Context, source *Source) error
	GetSource(ctx context.Context, path string) (*Source, error)
	GetSourceByID(ctx context.Context, sourceID int64) (*Source, error)
	ListSources(ctx context.Context) ([]*Source, error)
	DeleteSource(ctx context.Context, sourceID int64) error

	// Chunk operations
	InsertChunk(ctx context.Context, chunk *Chunk) error
	ListChunks(ctx context.Context, sourceID int64) ([]*Chunk, error)
	DeleteChunksBySource(ctx context.Context, sourceID int64) (deletedCount int, err error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

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

// Source is the manifest record of the last successful run over one file
type Source struct {
	ID            int64
	Path          string // Absolute path of the source file
	RunID         string // UUID of the run that produced the chunks
	ContentHash   [32]byte
	SizeBytes     int64
	ModTime       time.Time
	Mode          types.ChunkMode
	MaxLines      int
	MaxBytes      int
	Oversized     string // Oversized token policy, byte mode only
	OutputDir     string
	ChunkCount    int
	LastChunkedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is the manifest record of one chunk file
type Chunk struct {
	ID          int64
	SourceID    int64
	Sequence    int
	OutputPath  string
	LineStart   int
	LineEnd     int
	Offset      int64
	SizeBytes   int64
	ContentHash [32]byte
	CreatedAt   time.Time
}

// Status contains manifest-wide statistics
type Status struct {
	SourcesCount  int
	ChunksCount   int
	ChunkBytes    int64
	DBSizeMB      float64
	LastChunkedAt time.Time
}

// ToTypesChunk converts a manifest Chunk to a types.Chunk descriptor
func (c *Chunk) ToTypesChunk(source *Source) *types.Chunk {
	return &types.Chunk{
		SourcePath: source.Path,
		OutputPath: c.OutputPath,
		Sequence:   c.Sequence,
		Mode:       source.Mode,
		LineStart:  c.LineStart,
		LineEnd:    c.LineEnd,
		Offset:     c.Offset,
		Size:       c.SizeBytes,
	}
}

// FromTypesChunk converts a types.Chunk descriptor to a manifest Chunk
func FromTypesChunk(c *types.Chunk, sourceID int64, contentHash [32]byte) *Chunk {
	return &Chunk{
		SourceID:    sourceID,
		Sequence:    c.Sequence,
		OutputPath:  c.OutputPath,
		LineStart:   c.LineStart,
		LineEnd:     c.LineEnd,
		Offset:      c.Offset,
		SizeBytes:   c.Size,
		ContentHash: contentHash,
	}
}
