package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scour-dl/scour/internal/config"
	"github.com/scour-dl/scour/internal/engine/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past download sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := state.Open(config.GetHistoryPath())
		if err != nil {
			return err
		}
		defer hist.Close()

		sessions, err := hist.ListSessions(historyLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			cmd.Println("no sessions recorded yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "WHEN\tSITE\tURL\tDONE\tSKIP\tFAIL\tSIZE")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%s\n",
				humanize.Time(s.StartedAt), s.Site, s.EntryURL,
				s.Completed, s.Discovered, s.Skipped, s.Failed,
				humanize.Bytes(uint64(s.Bytes)))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum sessions to list")
	rootCmd.AddCommand(historyCmd)
}
