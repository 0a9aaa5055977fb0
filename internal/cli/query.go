package cli

import (
	"github.com/spf13/cobra"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
)

// specFlags mirrors the HTTP query parameters of /leaderboard and /songs.
type specFlags struct {
	yearFrom         int
	yearTo           int
	setSplit         string
	minTimesPlayed   int
	minShowsAppeared int
	minJamchartCount int
	venue            string
	state            string
	country          string
	runPosition      string
	aggregation      string
}

func (f *specFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.yearFrom, "year-from", 0, "first year, inclusive (0 = open)")
	fs.IntVar(&f.yearTo, "year-to", 0, "last year, inclusive (0 = open)")
	fs.StringVar(&f.setSplit, "set-split", string(filter.SplitAll), "all, set1, set2, set3, encore, encore2, opener or closer")
	fs.IntVar(&f.minTimesPlayed, "min-times-played", 0, "minimum qualifying performances")
	fs.IntVar(&f.minShowsAppeared, "min-shows-appeared", 0, "minimum distinct shows")
	fs.IntVar(&f.minJamchartCount, "min-jamchart-count", 0, "minimum jamchart selections")
	fs.StringVar(&f.venue, "venue", "", "exact venue name")
	fs.StringVar(&f.state, "state", "", "state or province code")
	fs.StringVar(&f.country, "country", string(filter.CountryAll), "all, us or international")
	fs.StringVar(&f.runPosition, "run-position", filter.RunAll, "all, none, opener, n1..n5 or closer")
	fs.StringVar(&f.aggregation, "aggregation", string(filter.Career), "career, by_year or by_tour")
}

// spec validates the flags into a filter spec.
func (f *specFlags) spec() (filter.Spec, error) {
	spec := filter.Spec{
		YearFrom:         f.yearFrom,
		YearTo:           f.yearTo,
		MinTimesPlayed:   f.minTimesPlayed,
		MinShowsAppeared: f.minShowsAppeared,
		MinJamchartCount: f.minJamchartCount,
		Venue:            f.venue,
		State:            f.state,
	}

	var err error
	if spec.SetSplit, err = filter.ParseSetSplit(f.setSplit); err != nil {
		return filter.Spec{}, err
	}
	if spec.Country, err = filter.ParseCountry(f.country); err != nil {
		return filter.Spec{}, err
	}
	if spec.RunPosition, err = filter.ParseRunPosition(f.runPosition); err != nil {
		return filter.Spec{}, err
	}
	if spec.Aggregation, err = filter.ParseAggregation(f.aggregation); err != nil {
		return filter.Spec{}, err
	}
	return spec, spec.Validate()
}
