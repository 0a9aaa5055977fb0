package probe

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/leaderboard"
)

const (
	jisMin = 0.0
	jisMax = 100.0
	// epsilon absorbs float noise from the JSON round trip.
	epsilon = 1e-9
)

// verifyResult checks one leaderboard response against the query that
// produced it and returns every violation found.
func verifyResult(params url.Values, res *service.Result) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if limit := intParam(params, paramLimit); limit > 0 && len(res.Entries) > limit {
		add("%d entries exceed limit %d", len(res.Entries), limit)
	}
	if res.Scale <= 0 {
		add("non-positive war scale %v", res.Scale)
	}

	field, err := leaderboard.ParseSortField(params.Get(paramSort))
	if err != nil {
		add("query used unknown sort field: %v", err)
		return errs
	}
	order := leaderboard.ParseOrder(params.Get(paramOrder))

	minPlayed := intParam(params, paramMinTimesPlayed)
	minShows := intParam(params, paramMinShowsAppeared)
	minJamcharts := intParam(params, paramMinJamchartCount)

	for i, e := range res.Entries {
		if e.Rank != i+1 {
			add("entry %d (%s) has rank %d", i, e.SongName, e.Rank)
		}
		if e.Counting.TimesPlayed < minPlayed {
			add("%s played %d times, below threshold %d", e.SongName, e.Counting.TimesPlayed, minPlayed)
		}
		if e.Counting.ShowsAppeared < minShows {
			add("%s appeared at %d shows, below threshold %d", e.SongName, e.Counting.ShowsAppeared, minShows)
		}
		if e.Counting.JamchartCount < minJamcharts {
			add("%s has %d jamcharts, below threshold %d", e.SongName, e.Counting.JamchartCount, minJamcharts)
		}
		if e.WAR.Career < 0 || math.IsNaN(e.WAR.Career) {
			add("%s has invalid career WAR %v", e.SongName, e.WAR.Career)
		}
		for _, v := range []float64{e.JIS.Avg, e.JIS.Peak} {
			if v < jisMin-epsilon || v > jisMax+epsilon || math.IsNaN(v) {
				add("%s has JIS %v outside [%v, %v]", e.SongName, v, jisMin, jisMax)
			}
		}
		if e.JIS.Peak+epsilon < e.JIS.Avg {
			add("%s peak JIS %v below average %v", e.SongName, e.JIS.Peak, e.JIS.Avg)
		}
		if e.Counting.JamchartCount > e.Counting.TimesPlayed {
			add("%s has more jamcharts than plays", e.SongName)
		}

		if i == 0 {
			continue
		}
		prev, _ := leaderboard.Value(res.Entries[i-1], field)
		cur, _ := leaderboard.Value(e, field)
		if order == leaderboard.Desc && cur > prev+epsilon {
			add("entries %d and %d out of %s desc order", i-1, i, field)
		}
		if order == leaderboard.Asc && cur+epsilon < prev {
			add("entries %d and %d out of %s asc order", i-1, i, field)
		}
	}
	return errs
}

func intParam(params url.Values, name string) int {
	n, err := strconv.Atoi(params.Get(name))
	if err != nil {
		return 0
	}
	return n
}
