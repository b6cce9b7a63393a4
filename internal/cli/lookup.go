package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khanglvm/history-suits/internal/search"
	"github.com/khanglvm/history-suits/internal/storage"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/spf13/cobra"
)

// NewLookupCmd creates the 'lookup' command.
func NewLookupCmd() *cobra.Command {
	var flags commonFlags
	var input, runID, kind string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "lookup <text>",
		Short: "Find which suit a query or domain landed in",
		Long: `Search the evidence of a run for a query or domain and report the suit and
evidence list (primary or secondary) each match belongs to.

Evidence comes from a fresh grounded run over --input, from the run named
by --run, or from the most recent recorded run.`,
		Example: `  history-suits lookup "kitchen island"
  history-suits lookup ikea --kind domain
  history-suits lookup rome --input history.jsonl --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			ss, err := lookupSuits(cmd, e, input, runID)
			if err != nil {
				return err
			}

			idx, err := search.NewIndexer(e.logger)
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.IndexSuits(ss); err != nil {
				return err
			}

			text := strings.Join(args, " ")
			var hits []search.Hit
			if kind != "" {
				hits, err = idx.SearchKind(text, kind, limit)
			} else {
				hits, err = idx.Lookup(text, limit, search.DefaultFusionConfig)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), hits)
			}
			printHits(cmd, text, hits)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Browsing history file to run before searching")
	cmd.Flags().StringVar(&runID, "run", "", "Recorded run id (default: most recent run)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only match evidence of this kind: query or domain")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum matches")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// lookupSuits returns the suits to search, from a fresh run or the store.
func lookupSuits(cmd *cobra.Command, e *env, input, runID string) ([]*suits.Suit, error) {
	if input != "" {
		batch, err := e.loadBatch(cmd.Context(), input)
		if err != nil {
			return nil, err
		}
		res, err := e.runner(nil).Run(cmd.Context(), batch)
		if err != nil {
			return nil, err
		}
		return res.Suits, nil
	}

	store := e.openStorage()
	defer store.Close()
	if !store.Enabled() {
		return nil, fmt.Errorf("run history is disabled; pass --input")
	}

	if runID == "" {
		runs, err := store.ListRuns(1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no recorded runs; run 'history-suits run --input <file>' first")
		}
		runID = runs[0].RunID
	}

	records, err := store.GetRunSuits(runID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("run %s has no suits", runID)
	}
	return decodeSuits(records)
}

func decodeSuits(records []storage.SuitRecord) ([]*suits.Suit, error) {
	out := make([]*suits.Suit, 0, len(records))
	for _, r := range records {
		var s suits.Suit
		if err := json.Unmarshal(r.Payload, &s); err != nil {
			return nil, fmt.Errorf("failed to decode suit %d of run %s: %w", r.SuitID, r.RunID, err)
		}
		out = append(out, &s)
	}
	return out, nil
}

func printHits(cmd *cobra.Command, text string, hits []search.Hit) {
	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintf(out, "No evidence matches %q.\n", text)
		return
	}
	fmt.Fprintf(out, "Matches for %q (%d):\n\n", text, len(hits))
	for _, h := range hits {
		fmt.Fprintf(out, "  %s (%s)\n", h.Text, h.Kind)
		fmt.Fprintf(out, "    Suit:  #%d %s\n", h.Suit, h.SuitLabel)
		fmt.Fprintf(out, "    List:  %s (similarity %.2f, score %.2f)\n", h.List, h.Similarity, h.Score)
	}
}
