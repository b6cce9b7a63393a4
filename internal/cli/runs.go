package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewRunsCmd creates the 'runs' command for listing recorded runs.
func NewRunsCmd() *cobra.Command {
	var flags commonFlags
	var limit, pruneDays int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long:  `Display the most recent runs recorded in the history database (~/.history-suits/runs.db).`,
		Example: `  history-suits runs
  history-suits runs --limit 5 --json
  history-suits runs --prune-days 30  # drop runs and cached interpretations older than 30 days`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			store := e.openStorage()
			defer store.Close()
			out := cmd.OutOrStdout()

			if !store.Enabled() {
				fmt.Fprintln(out, "Run history is disabled.")
				return nil
			}

			if pruneDays > 0 {
				if err := store.Cleanup(time.Duration(pruneDays) * 24 * time.Hour); err != nil {
					return fmt.Errorf("failed to prune runs: %w", err)
				}
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				fmt.Fprintln(out, "Run 'history-suits run --input <file>' to record one.")
				return nil
			}

			fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(runs))
			for _, r := range runs {
				status := r.Status
				if r.Degraded {
					status += ", degraded"
				}
				fmt.Fprintf(out, "  %s\n", r.RunID)
				fmt.Fprintf(out, "    Started: %s\n", r.StartedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "    Input:   %s\n", r.Input)
				fmt.Fprintf(out, "    Suits:   %d (%s)\n", r.Suits, status)
				fmt.Fprintf(out, "    Events:  %d (%d dropped)\n", r.Events, r.Dropped)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete runs older than this many days before listing")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
