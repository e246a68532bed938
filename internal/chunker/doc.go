// Package chunker splits large flat files into bounded-size chunk files for
// downstream batch stages.
//
// A run makes a single forward pass over the source and never holds more than
// one chunk's worth of data in memory. Chunk files are written under an
// existing output directory and named by their zero-based sequence index
// ("0", "1", "2", ...).
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks, err := c.ChunkFile("/data/corpus.txt", "/data/corpus.chunks",
//	    chunker.LineBounded{MaxLines: 150_000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, chunk := range chunks {
//	    fmt.Printf("%s: lines %d-%d\n", chunk.OutputPath, chunk.LineStart, chunk.LineEnd)
//	}
//
// # Boundary Strategies
//
// LineBounded closes a chunk every MaxLines lines. A source of L lines yields
// ceil(L/MaxLines) chunks and never an empty trailing chunk.
//
// ByteBoundedWordSafe fills a buffer of MaxBytes and scans backward for the
// last whitespace byte. Everything up to and including that byte becomes the
// chunk; the rest is carried into the next buffer. Chunks are therefore at
// most MaxBytes long and concatenating them reproduces the source exactly.
//
// A buffer with no whitespace at all holds a token longer than MaxBytes. The
// Oversized policy decides the outcome:
//
//	chunker.ByteBoundedWordSafe{MaxBytes: 32 << 20}                            // fails with types.ErrTokenTooLarge
//	chunker.ByteBoundedWordSafe{MaxBytes: 32 << 20, Oversized: chunker.OversizedSplit} // cuts the token
//
// # Errors
//
// Every error is a *types.ChunkError. Nothing is retried and chunk files
// written before a failure stay on disk; they are not valid unless the run
// succeeded.
package chunker
