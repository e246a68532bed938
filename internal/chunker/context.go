package chunker

import (
	"bufio"
	"os"

	"github.com/dshills/filechunk/pkg/types"
)

// chunkContext holds the state of the chunk under construction. The output
// file is created on the first write so that a chunk which never receives
// data leaves nothing behind.
type chunkContext struct {
	sourcePath string
	outputPath string
	sequence   int
	lineStart  int
	offset     int64

	lines int
	bytes int64

	file *os.File
	w    *bufio.Writer
}

func newChunkContext(sourcePath, outputPath string, sequence, lineStart int, offset int64) *chunkContext {
	return &chunkContext{
		sourcePath: sourcePath,
		outputPath: outputPath,
		sequence:   sequence,
		lineStart:  lineStart,
		offset:     offset,
	}
}

// empty reports whether nothing has been written yet
func (cc *chunkContext) empty() bool {
	return cc.file == nil
}

func (cc *chunkContext) create() error {
	f, err := os.Create(cc.outputPath)
	if err != nil {
		return &types.ChunkError{Op: "create chunk", Path: cc.outputPath, Kind: types.ErrChunkCreate, Err: err}
	}
	cc.file = f
	cc.w = bufio.NewWriter(f)
	return nil
}

// write appends p to the chunk file
func (cc *chunkContext) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if cc.file == nil {
		if err := cc.create(); err != nil {
			return err
		}
	}

	n, err := cc.w.Write(p)
	cc.bytes += int64(n)
	if err != nil {
		return &types.ChunkError{Op: "write chunk", Path: cc.outputPath, Kind: types.ErrChunkWrite, Err: err}
	}
	return nil
}

// writeLine appends one line followed by a newline
func (cc *chunkContext) writeLine(line []byte) error {
	if err := cc.write(line); err != nil {
		return err
	}
	if err := cc.write(newline); err != nil {
		return err
	}
	cc.lines++
	return nil
}

// finalize flushes and closes the chunk file and returns its descriptor
func (cc *chunkContext) finalize(mode types.ChunkMode) (*types.Chunk, error) {
	if err := cc.w.Flush(); err != nil {
		_ = cc.file.Close()
		return nil, &types.ChunkError{Op: "flush chunk", Path: cc.outputPath, Kind: types.ErrChunkWrite, Err: err}
	}
	if err := cc.file.Close(); err != nil {
		return nil, &types.ChunkError{Op: "close chunk", Path: cc.outputPath, Kind: types.ErrChunkWrite, Err: err}
	}

	chunk := &types.Chunk{
		SourcePath: cc.sourcePath,
		OutputPath: cc.outputPath,
		Sequence:   cc.sequence,
		Mode:       mode,
		Offset:     cc.offset,
		Size:       cc.bytes,
	}
	if mode == types.ModeLines {
		chunk.LineStart = cc.lineStart
		chunk.LineEnd = cc.lineStart + cc.lines
	}
	return chunk, nil
}

// abort closes the chunk file without reporting errors. The partial file is
// left on disk.
func (cc *chunkContext) abort() {
	if cc.file == nil {
		return
	}
	_ = cc.w.Flush()
	_ = cc.file.Close()
}
