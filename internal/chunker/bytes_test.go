package chunker

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/filechunk/pkg/types"
)

// chunkContents returns the content of every chunk file as a string
func chunkContents(t testing.TB, chunks []*types.Chunk) []string {
	t.Helper()
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		data, err := os.ReadFile(chunk.OutputPath)
		require.NoError(t, err)
		out = append(out, string(data))
	}
	return out
}

// randomText builds words of 1..maxWord letters separated by runs of whitespace
func randomText(rng *rand.Rand, size, maxWord int) []byte {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	const spaces = " \t\n\r\f"

	var buf bytes.Buffer
	for buf.Len() < size {
		n := 1 + rng.Intn(maxWord)
		for i := 0; i < n; i++ {
			buf.WriteByte(letters[rng.Intn(len(letters))])
		}
		gap := 1 + rng.Intn(3)
		for i := 0; i < gap; i++ {
			buf.WriteByte(spaces[rng.Intn(len(spaces))])
		}
	}
	return buf.Bytes()
}

func TestByteBounded_ExactDivision(t *testing.T) {
	tmpDir := t.TempDir()
	content := bytes.Repeat([]byte("1\n"), 32) // 64 bytes
	src := writeSource(t, tmpDir, content)
	out := outputDir(t, tmpDir)

	chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: 32})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	for i, chunk := range chunks {
		assert.Equal(t, int64(32), chunk.Size)
		assert.Equal(t, int64(32*i), chunk.Offset)
		assert.Equal(t, types.ModeBytes, chunk.Mode)
		assert.Zero(t, chunk.LineCount())
		assert.NoError(t, chunk.Validate())
	}
	assert.Equal(t, content, concatChunks(t, chunks))
}

func TestByteBounded_TrailingRemainder(t *testing.T) {
	tmpDir := t.TempDir()
	content := bytes.Repeat([]byte("1\n"), 34) // 68 bytes
	src := writeSource(t, tmpDir, content)
	out := outputDir(t, tmpDir)

	chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: 32})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, int64(32), chunks[0].Size)
	assert.Equal(t, int64(32), chunks[1].Size)
	assert.Equal(t, int64(4), chunks[2].Size)
	assert.Equal(t, content, concatChunks(t, chunks))
}

func TestByteBounded_WalksBackToWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		maxBytes int
		want     []string
	}{
		{
			name:     "carry partial words forward",
			content:  "aaa bbb ccc",
			maxBytes: 6,
			want:     []string{"aaa ", "bbb ", "ccc"},
		},
		{
			name:     "multi-digit records",
			content:  "10\n20\n30\n40\n50\n",
			maxBytes: 7,
			want:     []string{"10\n20\n", "30\n40\n", "50\n"},
		},
		{
			name:     "full buffer ending mid word",
			content:  "abc def",
			maxBytes: 7,
			want:     []string{"abc ", "def"},
		},
		{
			name:     "buffer ends on whitespace",
			content:  "abc def ",
			maxBytes: 4,
			want:     []string{"abc ", "def "},
		},
		{
			name:     "whitespace only",
			content:  "   \n\n\t  ",
			maxBytes: 3,
			want:     []string{"   ", "\n\n\t", "  "},
		},
		{
			name:     "source smaller than budget",
			content:  "hello world",
			maxBytes: 1024,
			want:     []string{"hello world"},
		},
		{
			name:     "single whitespace budget",
			content:  " \n ",
			maxBytes: 1,
			want:     []string{" ", "\n", " "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			src := writeSource(t, tmpDir, []byte(tt.content))
			out := outputDir(t, tmpDir)

			chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: tt.maxBytes})
			require.NoError(t, err)
			assert.Equal(t, tt.want, chunkContents(t, chunks))
		})
	}
}

func TestByteBounded_EmptySource(t *testing.T) {
	tmpDir := t.TempDir()
	src := writeSource(t, tmpDir, nil)
	out := outputDir(t, tmpDir)

	chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: 16})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestByteBounded_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(6824))

	for _, maxBytes := range []int{8, 9, 13, 64, 1000, 4096} {
		for _, size := range []int{1, 100, 5000} {
			t.Run(fmt.Sprintf("max=%d/size=%d", maxBytes, size), func(t *testing.T) {
				tmpDir := t.TempDir()
				// Words shorter than the budget always leave a whitespace in a full buffer
				content := randomText(rng, size, 7)
				src := writeSource(t, tmpDir, content)
				out := outputDir(t, tmpDir)

				chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: maxBytes})
				require.NoError(t, err)
				require.NotEmpty(t, chunks)

				assert.Equal(t, content, concatChunks(t, chunks), "concatenation reproduces the source")

				for i, data := range chunkContents(t, chunks) {
					assert.LessOrEqual(t, len(data), maxBytes)
					assert.NotEmpty(t, data)
					if i < len(chunks)-1 {
						assert.True(t, isASCIISpace(data[len(data)-1]), "chunk %d ends mid word", i)
					}
				}
			})
		}
	}
}

func TestByteBounded_OversizedToken(t *testing.T) {
	content := []byte("abcdefghij klm")

	t.Run("fail", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := writeSource(t, tmpDir, content)
		out := outputDir(t, tmpDir)

		chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: 4})
		require.Error(t, err)
		assert.Nil(t, chunks)
		assert.ErrorIs(t, err, types.ErrTokenTooLarge)
		assert.Contains(t, err.Error(), src)
	})

	t.Run("fail after earlier chunks", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := writeSource(t, tmpDir, []byte("ab cd abcdefgh"))
		out := outputDir(t, tmpDir)

		_, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: 4})
		require.ErrorIs(t, err, types.ErrTokenTooLarge)
		assert.Contains(t, err.Error(), "offset 6")

		entries, err := os.ReadDir(out)
		require.NoError(t, err)
		assert.Len(t, entries, 2, "earlier chunks stay on disk")
	})

	t.Run("split", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := writeSource(t, tmpDir, content)
		out := outputDir(t, tmpDir)

		chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: 4, Oversized: OversizedSplit})
		require.NoError(t, err)
		assert.Equal(t, []string{"abcd", "efgh", "ij ", "klm"}, chunkContents(t, chunks))
		assert.Equal(t, content, concatChunks(t, chunks))
	})

	t.Run("split with single byte budget", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := writeSource(t, tmpDir, []byte("ab c"))
		out := outputDir(t, tmpDir)

		chunks, err := New().ChunkFile(src, out, ByteBoundedWordSafe{MaxBytes: 1, Oversized: OversizedSplit})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", " ", "c"}, chunkContents(t, chunks))
	})
}

func TestParseOversizedPolicy(t *testing.T) {
	p, err := ParseOversizedPolicy("")
	require.NoError(t, err)
	assert.Equal(t, OversizedFail, p)

	p, err = ParseOversizedPolicy("split")
	require.NoError(t, err)
	assert.Equal(t, OversizedSplit, p)
	assert.Equal(t, "split", p.String())

	_, err = ParseOversizedPolicy("truncate")
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestLastWhitespace(t *testing.T) {
	assert.Equal(t, -1, lastWhitespace(nil))
	assert.Equal(t, -1, lastWhitespace([]byte("abc")))
	assert.Equal(t, 3, lastWhitespace([]byte("abc def")))
	assert.Equal(t, 6, lastWhitespace([]byte("abc de\n")))
	// Vertical tab is not ASCII whitespace
	assert.Equal(t, -1, lastWhitespace([]byte("ab\vcd")))
}
