package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/leaderboard"
)

const defaultCLILimit = 25

type leaderboardOptions struct {
	spec   specFlags
	sort   string
	order  string
	limit  int
	asJSON bool
}

func newLeaderboardCommand(root *rootOptions) *cobra.Command {
	o := &leaderboardOptions{}
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank songs by WAR or another metric",
		Long: `Loads the performance store, scores every performance and prints the
ranked leaderboard for the given filters.

Example:
  phstats leaderboard --year-from 1997 --year-to 1999 --set-split set2 --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLeaderboard(cmd, root, o)
		},
	}
	o.spec.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&o.sort, "sort", string(leaderboard.DefaultSortField), "sort field")
	fs.StringVar(&o.order, "order", string(leaderboard.Desc), "asc or desc")
	fs.IntVar(&o.limit, "limit", defaultCLILimit, "maximum entries (0 = all)")
	fs.BoolVar(&o.asJSON, "json", false, "print the result as JSON")
	return cmd
}

func runLeaderboard(cmd *cobra.Command, root *rootOptions, o *leaderboardOptions) error {
	spec, err := o.spec.spec()
	if err != nil {
		return err
	}
	field, err := leaderboard.ParseSortField(o.sort)
	if err != nil {
		return err
	}
	if o.limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", o.limit)
	}

	ctx := cmd.Context()
	engine, closeStore, err := root.openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	defer engine.Stop()

	res, err := engine.Leaderboard(ctx, service.Query{
		Spec:  spec,
		Sort:  field,
		Order: leaderboard.ParseOrder(o.order),
		Limit: o.limit,
	})
	if err != nil {
		return err
	}

	if o.asJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return writeTable(cmd.OutOrStdout(), res, spec.Normalized().Aggregation)
}
