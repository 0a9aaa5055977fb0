package cli

import (
	"github.com/spf13/cobra"
)

type songOptions struct {
	spec   specFlags
	asJSON bool
}

func newSongCommand(root *rootOptions) *cobra.Command {
	o := &songOptions{}
	cmd := &cobra.Command{
		Use:   "song [name]",
		Short: "Show the entries of one song",
		Long: `Prints the leaderboard entries of a single song under the given filters.
With --aggregation by_year or by_tour the song has one row per year or tour.

Example:
  phstats song "Tweezer" --aggregation by_year`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := o.spec.spec()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine, closeStore, err := root.openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			defer engine.Stop()

			res, err := engine.Song(ctx, args[0], spec)
			if err != nil {
				return err
			}
			if o.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writeTable(cmd.OutOrStdout(), res, spec.Normalized().Aggregation)
		},
	}
	o.spec.register(cmd)
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the result as JSON")
	return cmd
}
