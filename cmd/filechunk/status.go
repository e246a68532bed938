package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show manifest statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		status, err := store.GetStatus(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Manifest: %s (%.2f MB)\n", cfg.DBFile(), status.DBSizeMB)
		fmt.Printf("  Sources: %d\n", status.SourcesCount)
		fmt.Printf("  Chunks:  %d (%s)\n", status.ChunksCount, humanize.Bytes(uint64(status.ChunkBytes)))
		if !status.LastChunkedAt.IsZero() {
			fmt.Printf("  Last run: %s (%s)\n", status.LastChunkedAt.Format(time.RFC3339), humanize.Time(status.LastChunkedAt))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
