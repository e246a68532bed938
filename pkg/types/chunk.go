package types

import (
	"errors"
	"io/fs"
	"os"
)

// ChunkMode identifies the boundary policy that produced a chunk
type ChunkMode string

const (
	ModeLines ChunkMode = "lines"
	ModeBytes ChunkMode = "bytes"
)

// Chunk describes one chunk file produced from a source file.
// A Chunk is created once its file has been flushed and closed and is never
// modified afterwards; the file itself belongs to the caller.
type Chunk struct {
	// Identification
	SourcePath string
	OutputPath string
	Sequence   int // Zero-based, file order

	Mode ChunkMode

	// Location (line mode only, half-open, zero-based)
	LineStart int
	LineEnd   int

	// Offset is the position of this chunk within the concatenation of all
	// chunk files of the run. In byte mode it equals the source offset.
	Offset int64
	Size   int64
}

// LineCount returns the number of lines in the chunk
func (c *Chunk) LineCount() int {
	return c.LineEnd - c.LineStart
}

// End returns the offset just past the last byte of the chunk
func (c *Chunk) End() int64 {
	return c.Offset + c.Size
}

// Open opens the chunk file for reading. The caller must close it.
func (c *Chunk) Open() (*os.File, error) {
	f, err := os.Open(c.OutputPath)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ChunkError{Op: "open chunk", Path: c.OutputPath, Kind: ErrChunkNotFound, Err: err}
	}
	return nil, &ChunkError{Op: "open chunk", Path: c.OutputPath, Kind: ErrChunkUnreadable, Err: err}
}

// Validate checks the descriptor for internal consistency
func (c *Chunk) Validate() error {
	if c.SourcePath == "" || c.OutputPath == "" {
		return errors.New("source and output paths are required")
	}

	if c.Sequence < 0 {
		return errors.New("sequence must be non-negative")
	}

	if c.Offset < 0 || c.Size <= 0 {
		return errors.New("chunk must have a non-negative offset and a positive size")
	}

	switch c.Mode {
	case ModeLines:
		if c.LineStart < 0 || c.LineEnd <= c.LineStart {
			return errors.New("line range must be non-empty")
		}
	case ModeBytes:
		if c.LineStart != 0 || c.LineEnd != 0 {
			return errors.New("byte mode chunks carry no line range")
		}
	default:
		return errors.New("invalid chunk mode")
	}

	return nil
}
