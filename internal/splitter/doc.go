// Package splitter runs the chunking engine over source files and keeps the
// chunk manifest in step with what is on disk.
//
// # Basic Usage
//
//	s := splitter.New(store)
//
//	result, err := s.SplitFile(ctx, "/data/access.log", "/data/chunks",
//	    chunker.LineBounded{MaxLines: 10000}, false)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%d chunks (skipped: %v)\n", len(result.Chunks), result.Skipped)
//
// # Incremental Runs
//
// Every run hashes the source with SHA-256. A source is re-chunked only when
// one of these differs from its manifest entry:
//
//   - the content hash
//   - the strategy and its limits
//   - the output directory
//   - the presence or size of any recorded chunk file
//
// Pass force to re-chunk regardless. When a re-run produces fewer chunks
// than the previous run in the same directory, the surplus chunk files are
// removed.
//
// # Many Sources
//
// SplitMany fans independent sources out over a bounded worker pool. Each
// source is still read and written strictly in order by a single goroutine;
// parallelism only exists across sources. Each source gets its own
// directory named after its base name under the output root.
//
//	stats, err := s.SplitMany(ctx, paths, "/data/chunks", strategy,
//	    &splitter.Config{Workers: 4})
//
// # Run Lock
//
// RunLock is a non-blocking try-lock used by long-lived callers such as the
// MCP server to reject a run while another is in progress.
package splitter
