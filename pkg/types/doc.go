// Package types provides shared type definitions for filechunk.
//
// The central type is Chunk, the descriptor of one chunk file produced from a
// source file:
//
//	chunk := &types.Chunk{
//	    SourcePath: "/data/corpus.txt",
//	    OutputPath: "/data/corpus.chunks/3",
//	    Sequence:   3,
//	    Mode:       types.ModeLines,
//	    LineStart:  3000,
//	    LineEnd:    4000,
//	}
//
//	fmt.Println(chunk.LineCount()) // 1000
//
// # Reading Chunks
//
// Open returns a read handle on the chunk file:
//
//	f, err := chunk.Open()
//	if err != nil {
//	    // errors.Is(err, types.ErrChunkNotFound) when the file is gone
//	}
//	defer f.Close()
//
// # Errors
//
// Chunking failures are reported as *ChunkError values carrying the failing
// operation, the path involved and one sentinel kind:
//
//	if errors.Is(err, types.ErrTokenTooLarge) {
//	    // raise max_bytes or allow oversized tokens to be split
//	}
package types
