package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"neomentor/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List locally executed runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyDir)
		if err != nil {
			return err
		}
		defer store.Close()
		entries, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		return printHistory(cmd.OutOrStdout(), entries)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries, 0 for all")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func printHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tRUN\tSTATUS\tSEGMENTS\tTOPIC\tVIDEO")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.FinishedAt.Local().Format(time.DateTime),
			shortID(e.RunID),
			e.Status,
			e.SegmentsMerged, e.SegmentCount,
			e.Topic,
			e.FinalVideo,
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
