// cmd/history.go
package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pathfinder/internal/observability"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cfg.Database().URL == "" {
				return errors.New("no journal configured; set database.url")
			}

			c := &components{logger: observability.GetLogger()}
			if err := c.openJournal(ctx, cfg.Database()); err != nil {
				return err
			}
			defer c.Shutdown()

			runs, err := c.Journal.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTATUS\tSTEPS\tFINISHED\tGOAL")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.RunID, r.Status, r.Steps, r.FinishedAt.Local().Format(time.DateTime), r.Goal)
			}
			return w.Flush()
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return historyCmd
}
