package cli

import (
	"fmt"
	"strings"

	"github.com/khanglvm/history-suits/internal/community"
	"github.com/spf13/cobra"
)

// communityReport is the JSON shape of the 'communities' command.
type communityReport struct {
	Modularity  float64               `json:"modularity"`
	Levels      int                   `json:"levels"`
	NodeCount   int                   `json:"node_count"`
	EdgeCount   int                   `json:"edge_count"`
	Communities []community.Community `json:"communities"`
}

// NewCommunitiesCmd creates the 'communities' command.
func NewCommunitiesCmd() *cobra.Command {
	var flags commonFlags
	var input string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "communities",
		Short: "Show the communities detected in a history file",
		Long: `Score, build the graph and run community detection, then summarize
each community by its strongest domains and queries. Hub domains never
appear in the projection the communities are detected on.`,
		Example: `  history-suits communities --input history.jsonl
  history-suits communities --input history.jsonl --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			a, err := e.analyze(cmd.Context(), input)
			if err != nil {
				return err
			}
			report := communityReport{
				Modularity:  a.Communities.Modularity,
				Levels:      a.Communities.Levels,
				NodeCount:   a.Communities.NodeCount,
				EdgeCount:   a.Communities.EdgeCount,
				Communities: a.Communities.Communities,
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printCommunities(cmd, report)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Browsing history file (JSON or JSONL)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func printCommunities(cmd *cobra.Command, r communityReport) {
	out := cmd.OutOrStdout()
	if len(r.Communities) == 0 {
		fmt.Fprintln(out, "No communities found.")
		return
	}
	fmt.Fprintf(out, "Communities (%d, modularity %.3f):\n\n", len(r.Communities), r.Modularity)
	for _, c := range r.Communities {
		fmt.Fprintf(out, "  #%d  %d members\n", c.ID, len(c.Members))
		if len(c.TopDomains) > 0 {
			fmt.Fprintf(out, "    Domains: %s\n", memberKeys(c.TopDomains))
		}
		if len(c.TopQueries) > 0 {
			fmt.Fprintf(out, "    Queries: %s\n", memberKeys(c.TopQueries))
		}
		fmt.Fprintln(out)
	}
}

func memberKeys(ms []community.Member) string {
	keys := make([]string, len(ms))
	for i, m := range ms {
		keys[i] = m.ID.Key()
	}
	return strings.Join(keys, ", ")
}

// NewStatsCmd creates the 'stats' command.
func NewStatsCmd() *cobra.Command {
	var flags commonFlags
	var input string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph statistics for a history file",
		Long:  `Report event, session, node and edge counts of the evidence graph and its projection as JSON.`,
		Example: `  history-suits stats --input history.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			a, err := e.analyze(cmd.Context(), input)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.Stats)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Browsing history file (JSON or JSONL)")

	return cmd
}
