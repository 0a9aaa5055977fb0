package probe

import (
	"math/rand/v2"
	"net/url"
	"strconv"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/leaderboard"
)

// Query parameter names understood by GET /leaderboard.
const (
	paramYearFrom         = "year_from"
	paramYearTo           = "year_to"
	paramSetSplit         = "set_split"
	paramMinTimesPlayed   = "min_times_played"
	paramMinShowsAppeared = "min_shows_appeared"
	paramMinJamchartCount = "min_jamchart_count"
	paramCountry          = "country"
	paramRunPosition      = "run_position"
	paramAggregation      = "aggregation"
	paramSort             = "sort"
	paramOrder            = "order"
	paramLimit            = "limit"
)

var (
	aggregations = []filter.Aggregation{filter.Career, filter.ByYear, filter.ByTour}
	setSplits    = []filter.SetSplit{filter.SplitAll, filter.SplitSet1, filter.SplitSet2, filter.SplitEncore, filter.SplitOpener, filter.SplitCloser}
	countries    = []filter.Country{filter.CountryAll, filter.CountryUS, filter.CountryInternational}
	runPositions = []string{filter.RunAll, "none", "opener", "n2", "closer"}
	orders       = []leaderboard.Order{leaderboard.Desc, leaderboard.Asc}
)

// yearRange bounds generated year filters. Zero values disable them.
type yearRange struct {
	first, last int
}

// generateQueries builds n reproducible queries from seed. Roughly half of
// the queries leave each optional filter unset so the default paths are
// covered too.
func generateQueries(n int, seed uint64, limit int, years yearRange) []Query {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	fields := leaderboard.Fields()

	out := make([]Query, n)
	for i := range out {
		p := url.Values{}
		p.Set(paramAggregation, string(aggregations[rng.IntN(len(aggregations))]))
		p.Set(paramSort, string(fields[rng.IntN(len(fields))]))
		p.Set(paramOrder, string(orders[rng.IntN(len(orders))]))
		p.Set(paramLimit, strconv.Itoa(limit))

		if rng.IntN(2) == 0 {
			p.Set(paramSetSplit, string(setSplits[rng.IntN(len(setSplits))]))
		}
		if rng.IntN(3) == 0 {
			p.Set(paramCountry, string(countries[rng.IntN(len(countries))]))
		}
		if rng.IntN(4) == 0 {
			p.Set(paramRunPosition, runPositions[rng.IntN(len(runPositions))])
		}
		if rng.IntN(2) == 0 {
			p.Set(paramMinTimesPlayed, strconv.Itoa(rng.IntN(6)))
		}
		if rng.IntN(3) == 0 {
			p.Set(paramMinShowsAppeared, strconv.Itoa(rng.IntN(4)))
		}
		if rng.IntN(4) == 0 {
			p.Set(paramMinJamchartCount, strconv.Itoa(rng.IntN(3)))
		}
		if years.first > 0 && years.last >= years.first && rng.IntN(2) == 0 {
			from := years.first + rng.IntN(years.last-years.first+1)
			to := from + rng.IntN(years.last-from+1)
			p.Set(paramYearFrom, strconv.Itoa(from))
			p.Set(paramYearTo, strconv.Itoa(to))
		}

		out[i] = Query{ID: i, Params: p}
	}
	return out
}
