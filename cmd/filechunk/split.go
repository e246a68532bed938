package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/filechunk/internal/chunker"
	"github.com/dshills/filechunk/internal/config"
	"github.com/dshills/filechunk/internal/splitter"
)

var (
	flagOut            string
	flagMaxLines       int
	flagMaxBytes       string
	flagSplitOversized bool
	flagForce          bool
	flagWorkers        int
)

var splitCmd = &cobra.Command{
	Use:   "split <source>...",
	Short: "Split one or more files into chunk files",
	Long: `Split writes chunk files named 0, 1, 2, ... into --out.

With one source the chunks go directly into --out. With several, each source
gets its own directory under --out named after its base name, and sources are
processed concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := strategyFromFlags(cmd)
		if err != nil {
			return err
		}

		out, err := filepath.Abs(flagOut)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(out, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		s := splitter.New(store)
		start := time.Now()

		if len(args) == 1 {
			result, err := s.SplitFile(cmd.Context(), args[0], out, strategy, flagForce)
			if err != nil {
				return err
			}
			if result.Skipped {
				fmt.Printf("%s is unchanged, %d chunks in %s\n", result.Source.Path, len(result.Chunks), out)
				return nil
			}
			var size int64
			for _, c := range result.Chunks {
				size += c.Size
			}
			fmt.Printf("%s: %d chunks, %s in %s\n", result.Source.Path, len(result.Chunks),
				humanize.Bytes(uint64(size)), time.Since(start).Round(time.Millisecond))
			return nil
		}

		workers := cfg.Workers
		if cmd.Flags().Changed("workers") {
			workers = flagWorkers
		}
		stats, err := s.SplitMany(cmd.Context(), args, out, strategy, &splitter.Config{
			Workers: workers,
			Force:   flagForce,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Done in %s\n", stats.Duration.Round(time.Millisecond))
		fmt.Printf("  Sources: %d split, %d skipped, %d failed\n",
			stats.SourcesSplit, stats.SourcesSkipped, stats.SourcesFailed)
		fmt.Printf("  Chunks:  %d (%s)\n", stats.ChunksCreated, humanize.Bytes(uint64(stats.BytesWritten)))
		for _, msg := range stats.ErrorMessages {
			log.Printf("error: %s", msg)
		}
		if stats.SourcesFailed > 0 {
			return fmt.Errorf("%d of %d sources failed", stats.SourcesFailed, len(args))
		}
		return nil
	},
}

// strategyFromFlags builds the strategy from --max-lines / --max-bytes,
// falling back to the configured default when neither is set
func strategyFromFlags(cmd *cobra.Command) (chunker.Strategy, error) {
	oversized := cfg.Oversized
	if cmd.Flags().Changed("split-oversized") {
		oversized = chunker.OversizedFail
		if flagSplitOversized {
			oversized = chunker.OversizedSplit
		}
	}

	linesSet := cmd.Flags().Changed("max-lines")
	bytesSet := cmd.Flags().Changed("max-bytes")
	if !linesSet && !bytesSet {
		return cfg.DefaultStrategy()
	}

	maxBytes := 0
	if bytesSet {
		n, err := config.ParseSize(flagMaxBytes)
		if err != nil {
			return nil, err
		}
		maxBytes = n
	}
	return chunker.NewStrategy(flagMaxLines, maxBytes, oversized)
}

func init() {
	splitCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output directory")
	splitCmd.Flags().IntVar(&flagMaxLines, "max-lines", 0, "maximum lines per chunk")
	splitCmd.Flags().StringVar(&flagMaxBytes, "max-bytes", "", "maximum bytes per chunk, e.g. 4096, 150k, 32MB")
	splitCmd.Flags().BoolVar(&flagSplitOversized, "split-oversized", false, "split tokens longer than --max-bytes instead of failing")
	splitCmd.Flags().BoolVar(&flagForce, "force", false, "re-chunk even if the output is current")
	splitCmd.Flags().IntVar(&flagWorkers, "workers", 0, "sources processed concurrently (default $FILECHUNK_WORKERS or NumCPU)")
	splitCmd.MarkFlagsMutuallyExclusive("max-lines", "max-bytes")
	_ = splitCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(splitCmd)
}
