package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/filechunk/internal/splitter"
	"github.com/dshills/filechunk/pkg/types"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks <source>",
	Short: "List the chunks of the last split of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		source, chunks, err := splitter.New(store).Chunks(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s mode, run %s, %s)\n", source.Path, source.Mode, source.RunID,
			humanize.Time(source.LastChunkedAt))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		if source.Mode == types.ModeLines {
			fmt.Fprintln(w, "SEQ\tLINES\tOFFSET\tSIZE\tPATH")
		} else {
			fmt.Fprintln(w, "SEQ\tOFFSET\tSIZE\tPATH")
		}
		for _, c := range chunks {
			if c.Mode == types.ModeLines {
				fmt.Fprintf(w, "%d\t%d-%d\t%d\t%s\t%s\n", c.Sequence, c.LineStart, c.LineEnd, c.Offset,
					humanize.Bytes(uint64(c.Size)), c.OutputPath)
			} else {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", c.Sequence, c.Offset, humanize.Bytes(uint64(c.Size)), c.OutputPath)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(chunksCmd)
}
