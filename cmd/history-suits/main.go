/*
Package main is the entry point for the history-suits CLI.

history-suits turns a browsing history export into a handful of "suits":
coherent interest themes, each backed by primary and secondary evidence
from the queries and domains in the history, plus a short profile snapshot.

Usage:
  history-suits [command]

Available Commands:
  run          Discover suits from a browsing history file
  communities  Show the communities detected in a history file
  stats        Show graph statistics for a history file
  lookup       Find which suit a query or domain landed in
  runs         List recorded runs
  config       Manage the configuration file
  version      Show version information

Examples:
  # Discover suits and write them to a file
  history-suits run --input history.jsonl --out suits.json

  # Where did "kitchen island" end up?
  history-suits lookup "kitchen island"
*/
package main

import (
	"fmt"
	"os"

	"github.com/khanglvm/history-suits/internal/cli"
	"github.com/khanglvm/history-suits/internal/version"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	ver    = "dev"
	commit = "none"
	date   = "unknown"
)

func main() {
	if ver != "dev" {
		version.Version, version.Commit, version.Date = ver, commit, date
	}

	rootCmd := &cobra.Command{
		Use:   "history-suits",
		Short: "Discover interest themes in browsing history",
		Long: `history-suits builds a graph of sessions, domains and search queries from a
browsing history export, detects communities in it, and turns the strongest
themes into suits with grounded evidence.

Every label, evidence item and summary is derived from the history itself.
An optional interpreter (Anthropic or OpenAI) may refine labels and write
prose, but it can only keep or drop evidence, never add it. When the
interpreter is unavailable the grounded output is emitted as is.`,
		Version:       version.FormatVersion(version.GetVersionComponents()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewRunCmd())
	rootCmd.AddCommand(cli.NewCommunitiesCmd())
	rootCmd.AddCommand(cli.NewStatsCmd())
	rootCmd.AddCommand(cli.NewLookupCmd())
	rootCmd.AddCommand(cli.NewRunsCmd())
	rootCmd.AddCommand(cli.NewConfigCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
