package chunker

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/dshills/filechunk/pkg/types"
)

// OversizedPolicy decides what happens when a full buffer holds no whitespace,
// that is when a single token is longer than MaxBytes
type OversizedPolicy int

const (
	// OversizedFail aborts the run with types.ErrTokenTooLarge
	OversizedFail OversizedPolicy = iota
	// OversizedSplit cuts the token at the buffer boundary. This is the only
	// case in which a chunk may end in the middle of a word.
	OversizedSplit
)

// String returns the policy name
func (p OversizedPolicy) String() string {
	switch p {
	case OversizedFail:
		return "fail"
	case OversizedSplit:
		return "split"
	default:
		return fmt.Sprintf("OversizedPolicy(%d)", int(p))
	}
}

// ParseOversizedPolicy parses "fail" or "split". An empty string means fail.
func ParseOversizedPolicy(s string) (OversizedPolicy, error) {
	switch s {
	case "", "fail":
		return OversizedFail, nil
	case "split":
		return OversizedSplit, nil
	default:
		return OversizedFail, types.InvalidConfigf("unknown oversized token policy %q", s)
	}
}

// ByteBoundedWordSafe fills chunks up to MaxBytes and moves each boundary back
// to just after the last ASCII whitespace byte, so no token straddles two
// chunk files. The bytes past the boundary are carried into the next chunk.
// Memory use is one buffer of MaxBytes.
type ByteBoundedWordSafe struct {
	MaxBytes  int
	Oversized OversizedPolicy
}

// Mode implements Strategy
func (ByteBoundedWordSafe) Mode() types.ChunkMode {
	return types.ModeBytes
}

// Validate implements Strategy
func (s ByteBoundedWordSafe) Validate() error {
	if s.MaxBytes < 1 {
		return types.InvalidConfigf("max_bytes must be >= 1, got %d", s.MaxBytes)
	}
	if s.Oversized != OversizedFail && s.Oversized != OversizedSplit {
		return types.InvalidConfigf("unknown oversized token policy %d", int(s.Oversized))
	}
	return nil
}

func (s ByteBoundedWordSafe) newBoundary(src *bufio.Reader) boundary {
	return &byteBoundary{
		src:       src,
		buf:       make([]byte, s.MaxBytes),
		oversized: s.Oversized,
	}
}

type byteBoundary struct {
	src       io.Reader
	buf       []byte
	rem       int   // length of the carried remainder at the front of buf
	offset    int64 // source offset of buf[0]
	oversized OversizedPolicy
}

func (b *byteBoundary) fill(cc *chunkContext) (bool, error) {
	// rem < len(buf) always holds, so there is room to read
	n, err := io.ReadFull(b.src, b.buf[b.rem:])
	exhausted := false
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		exhausted = true
	case err != nil:
		return false, &types.ChunkError{Op: "read source", Path: cc.sourcePath, Kind: types.ErrSourceRead, Err: err}
	}

	filled := b.rem + n
	if filled == 0 {
		return false, nil
	}

	// End of source is always a valid boundary
	if exhausted {
		if err := cc.write(b.buf[:filled]); err != nil {
			return false, err
		}
		b.rem = 0
		b.offset += int64(filled)
		return false, nil
	}

	cut := lastWhitespace(b.buf[:filled])
	if cut < 0 {
		if b.oversized != OversizedSplit {
			return false, &types.ChunkError{
				Op:   "split source",
				Path: cc.sourcePath,
				Kind: types.ErrTokenTooLarge,
				Err:  fmt.Errorf("no whitespace in %d bytes at offset %d", filled, b.offset),
			}
		}
		cut = filled - 1
	}

	if err := cc.write(b.buf[:cut+1]); err != nil {
		return false, err
	}
	b.rem = copy(b.buf, b.buf[cut+1:filled])
	b.offset += int64(cut + 1)
	return true, nil
}

// lastWhitespace returns the index of the last ASCII whitespace byte in p,
// or -1 if there is none
func lastWhitespace(p []byte) int {
	for i := len(p) - 1; i >= 0; i-- {
		if isASCIISpace(p[i]) {
			return i
		}
	}
	return -1
}

// isASCIISpace matches space, tab, line feed, form feed and carriage return
func isASCIISpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}
