package chunker

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dshills/filechunk/pkg/types"
)

const (
	// DefaultReadBufferSize is the size of the buffered reader over the source
	DefaultReadBufferSize = 64 * 1024
)

// Strategy is a chunk boundary policy. The set of strategies is closed:
// LineBounded and ByteBoundedWordSafe.
type Strategy interface {
	// Mode reports the kind of descriptors the strategy produces
	Mode() types.ChunkMode
	// Validate checks the policy parameters
	Validate() error

	newBoundary(src *bufio.Reader) boundary
}

// boundary is the per-run state of a strategy. fill writes the next chunk
// into cc and reports whether the source may hold more data.
type boundary interface {
	fill(cc *chunkContext) (more bool, err error)
}

// NewStrategy selects a strategy from mutually exclusive limits.
// Exactly one of maxLines and maxBytes must be positive.
func NewStrategy(maxLines, maxBytes int, oversized OversizedPolicy) (Strategy, error) {
	switch {
	case maxLines > 0 && maxBytes > 0:
		return nil, types.InvalidConfigf("max_lines and max_bytes are mutually exclusive")
	case maxLines > 0:
		return LineBounded{MaxLines: maxLines}, nil
	case maxBytes > 0:
		return ByteBoundedWordSafe{MaxBytes: maxBytes, Oversized: oversized}, nil
	default:
		return nil, types.InvalidConfigf("one of max_lines or max_bytes must be positive")
	}
}

// Chunker splits source files into chunk files
type Chunker struct {
	readBufferSize int
}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{readBufferSize: DefaultReadBufferSize}
}

// ChunkFile splits the file at sourcePath into chunk files named by sequence
// index under outputDir, which must already exist. Chunks are returned in
// file order. On failure no descriptors are returned and any chunk files
// already written are left in place.
func (c *Chunker) ChunkFile(sourcePath, outputDir string, strategy Strategy) ([]*types.Chunk, error) {
	if strategy == nil {
		return nil, types.InvalidConfigf("no chunking strategy")
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	if err := checkOutputDir(outputDir); err != nil {
		return nil, err
	}

	src, err := openSource(sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	b := strategy.newBoundary(bufio.NewReaderSize(src, c.readBufferSize))

	chunks := make([]*types.Chunk, 0)
	var (
		lineStart int
		offset    int64
	)
	for seq := 0; ; seq++ {
		cc := newChunkContext(sourcePath, filepath.Join(outputDir, strconv.Itoa(seq)), seq, lineStart, offset)

		more, err := b.fill(cc)
		if err != nil {
			cc.abort()
			return nil, err
		}

		// A chunk that received no bytes never created its file
		if !cc.empty() {
			chunk, err := cc.finalize(strategy.Mode())
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, chunk)
			lineStart = chunk.LineEnd
			offset = chunk.End()
		}

		if !more {
			return chunks, nil
		}
	}
}

// openSource opens a regular file for sequential reading
func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.ChunkError{Op: "open source", Path: path, Kind: types.ErrSourceOpen, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &types.ChunkError{Op: "open source", Path: path, Kind: types.ErrSourceOpen, Err: err}
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, &types.ChunkError{Op: "open source", Path: path, Kind: types.ErrSourceOpen, Err: fmt.Errorf("is a directory")}
	}

	return f, nil
}

// checkOutputDir verifies that the destination exists and is a directory
func checkOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &types.ChunkError{Op: "check output dir", Path: dir, Kind: types.ErrChunkCreate, Err: err}
	}
	if !info.IsDir() {
		return &types.ChunkError{Op: "check output dir", Path: dir, Kind: types.ErrChunkCreate, Err: fmt.Errorf("not a directory")}
	}
	return nil
}
