package chunker

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dshills/filechunk/pkg/types"
)

var newline = []byte{'\n'}

// LineBounded closes a chunk after MaxLines lines. Lines end at "\n" or
// "\r\n" and are written back terminated by "\n"; a trailing line without
// a terminator still counts as a line.
type LineBounded struct {
	MaxLines int
}

// Mode implements Strategy
func (LineBounded) Mode() types.ChunkMode {
	return types.ModeLines
}

// Validate implements Strategy
func (s LineBounded) Validate() error {
	if s.MaxLines < 1 {
		return types.InvalidConfigf("max_lines must be >= 1, got %d", s.MaxLines)
	}
	return nil
}

func (s LineBounded) newBoundary(src *bufio.Reader) boundary {
	return &lineBoundary{src: src, maxLines: s.MaxLines}
}

type lineBoundary struct {
	src      *bufio.Reader
	maxLines int
	line     int // source line number of the next line
}

func (b *lineBoundary) fill(cc *chunkContext) (bool, error) {
	for cc.lines < b.maxLines {
		raw, err := b.src.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return false, &types.ChunkError{Op: "read line", Path: cc.sourcePath, Kind: types.ErrSourceRead, Err: err}
		}
		if len(raw) == 0 {
			return false, nil
		}

		line := trimTerminator(raw)
		if !utf8.Valid(line) {
			return false, &types.ChunkError{
				Op:   "decode line",
				Path: cc.sourcePath,
				Kind: types.ErrLineDecode,
				Err:  fmt.Errorf("line %d", b.line),
			}
		}

		if err := cc.writeLine(line); err != nil {
			return false, err
		}
		b.line++

		if err == io.EOF {
			return false, nil
		}
	}
	return true, nil
}

// trimTerminator strips a trailing "\n" or "\r\n"
func trimTerminator(raw []byte) []byte {
	line, ok := bytes.CutSuffix(raw, newline)
	if !ok {
		return raw
	}
	line, _ = bytes.CutSuffix(line, []byte{'\r'})
	return line
}
