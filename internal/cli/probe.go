package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/probe"
)

func newProbeCommand(_ *rootOptions) *cobra.Command {
	cfg := &probe.Config{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Send randomized queries to a running server and verify them",
		Long: `Checks /healthz, then sends randomized /leaderboard queries from a pool of
workers and verifies every response: ranks, ordering, limits, thresholds and
year bounds. A prefix of the queries is re-sent to check determinism.

Exits non-zero when any query fails or any check is violated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := probe.Run(cmd.Context(), cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%d/%d queries ok, %d entries checked, %d violations, %d repeat mismatches in %s\n",
					stats.QueriesSucceeded, stats.QueriesSent, stats.EntriesChecked,
					stats.Violations, stats.RepeatMismatches, stats.Duration)
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&cfg.BaseURL, "url", probe.DefaultBaseURL, "base URL of the phstats server")
	fs.IntVar(&cfg.Queries, "queries", probe.DefaultQueries, "number of randomized queries")
	fs.IntVar(&cfg.Repeats, "repeats", probe.DefaultRepeats, "queries re-sent to check determinism")
	fs.IntVar(&cfg.Limit, "limit", probe.DefaultLimit, "leaderboard limit per query")
	fs.IntVar(&cfg.Workers, "workers", 0, "concurrent workers (0 = 2 x CPUs)")
	fs.DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "per-request timeout")
	fs.Uint64Var(&cfg.Seed, "seed", 1, "query generation seed")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log every violation")
	return cmd
}
