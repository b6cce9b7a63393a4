package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/khanglvm/history-suits/internal/expand"
	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/pipeline"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRunCmd creates the 'run' command that executes the full pipeline.
func NewRunCmd() *cobra.Command {
	var flags commonFlags
	var input, output string
	var noStore bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover suits from a browsing history file",
		Long: `Run the full pipeline on a browsing history file and emit the result as JSON.

The pipeline scores queries, builds the session/domain/query graph, detects
communities, seeds and expands suits, then composes a profile snapshot. The
optional interpreter refines labels and prose; when it is unavailable the
grounded output is emitted unchanged and the result is marked degraded.

Input: a JSON array or JSONL file of
  {"time", "session_id", "domain", "query", "title", "url"}`,
		Example: `  # Emit to stdout
  history-suits run --input history.jsonl

  # Write an artifact and tighten the session gate
  history-suits run --input history.jsonl --out suits.json --session-gate-sim 0.3

  # Use an interpreter
  ANTHROPIC_API_KEY=... history-suits run --input history.jsonl --provider anthropic`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, &flags, input, output, noStore)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Browsing history file (JSON or JSONL)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record the run in the history database")

	seed := suits.DefaultOptions()
	exp := expand.DefaultOptions()
	cmd.Flags().Int("workers", 0, "Worker goroutines for vectorization and expansion (0 = GOMAXPROCS)")
	cmd.Flags().Int("max-suits", seed.MaxSuits, "Maximum number of suits")
	cmd.Flags().Float64("sim-threshold", seed.SimThreshold, "Seed clustering similarity threshold")
	cmd.Flags().Float64("seed-psignal-min", seed.SeedPSignalMin, "Minimum psignal for seed queries")
	cmd.Flags().Float64("session-gate-sim", exp.SessionGateSim, "Session context similarity gate")
	cmd.Flags().Int("primary-cap", exp.PrimaryCap, "Maximum primary evidence per suit")
	cmd.Flags().Int("secondary-cap", exp.SecondaryCap, "Maximum secondary evidence per suit")
	cmd.Flags().Float64("hub-downweight", graph.DefaultHubDownweight, "Weight multiplier for hub domains")
	cmd.Flags().String("provider", "none", "Interpreter: none, anthropic or openai")
	cmd.Flags().String("model", "", "Interpreter model (default: provider default)")
	cmd.Flags().Int("timeout", 30, "Interpreter timeout in seconds")

	return cmd
}

func runPipeline(cmd *cobra.Command, flags *commonFlags, input, output string, noStore bool) error {
	e, err := setup(cmd, flags)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	if noStore {
		e.cfg.Storage.Enabled = false
	}

	ctx := cmd.Context()
	startedAt := time.Now()

	batch, err := e.loadBatch(ctx, input)
	if err != nil {
		return err
	}

	store := e.openStorage()
	defer store.Close()

	interp, err := e.interpreter(store)
	if err != nil {
		return err
	}

	res, err := e.runner(interp).Run(ctx, batch)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoEvents) {
			return fmt.Errorf("%w (%d malformed rows skipped)", err, batch.Dropped)
		}
		return err
	}
	e.record(store, res, input, startedAt)

	if res.Degraded {
		e.logger.Warn("interpreter unavailable, grounded output emitted", zap.String("run_id", res.RunID))
	}

	if output == "" {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	if err := writeArtifact(output, res); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d suits to %s (run %s)\n", len(res.Suits), output, res.RunID)
	return nil
}

