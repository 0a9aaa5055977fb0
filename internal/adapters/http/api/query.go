package api

import (
	"fmt"
	"net/url"
	"strings"

	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/leaderboard"
)

// Query parameter names.
const (
	paramYearFrom         = "year_from"
	paramYearTo           = "year_to"
	paramSetSplit         = "set_split"
	paramMinTimesPlayed   = "min_times_played"
	paramMinShowsAppeared = "min_shows_appeared"
	paramMinJamchartCount = "min_jamchart_count"
	paramVenue            = "venue"
	paramState            = "state"
	paramCountry          = "country"
	paramRunPosition      = "run_position"
	paramAggregation      = "aggregation"
	paramSort             = "sort"
	paramOrder            = "order"
	paramLimit            = "limit"
)

// parseSpec reads a filter spec from query parameters. Absent parameters
// keep their defaults.
func parseSpec(q url.Values) (filter.Spec, error) {
	spec := filter.Default()
	var err error

	ints := []struct {
		name string
		dst  *int
	}{
		{paramYearFrom, &spec.YearFrom},
		{paramYearTo, &spec.YearTo},
		{paramMinTimesPlayed, &spec.MinTimesPlayed},
		{paramMinShowsAppeared, &spec.MinShowsAppeared},
		{paramMinJamchartCount, &spec.MinJamchartCount},
	}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			if *p.dst, err = filter.ParseNonNegative(p.name, v); err != nil {
				return filter.Spec{}, err
			}
		}
	}

	if v := q.Get(paramSetSplit); v != "" {
		if spec.SetSplit, err = filter.ParseSetSplit(v); err != nil {
			return filter.Spec{}, err
		}
	}
	if v := q.Get(paramCountry); v != "" {
		if spec.Country, err = filter.ParseCountry(v); err != nil {
			return filter.Spec{}, err
		}
	}
	if v := q.Get(paramRunPosition); v != "" {
		if spec.RunPosition, err = filter.ParseRunPosition(v); err != nil {
			return filter.Spec{}, err
		}
	}
	if v := q.Get(paramAggregation); v != "" {
		if spec.Aggregation, err = filter.ParseAggregation(v); err != nil {
			return filter.Spec{}, err
		}
	}
	spec.Venue = strings.TrimSpace(q.Get(paramVenue))
	spec.State = strings.TrimSpace(q.Get(paramState))

	return spec, spec.Validate()
}

// parseQuery reads a full leaderboard query. A missing limit means maxLimit.
func parseQuery(q url.Values, maxLimit int) (service.Query, error) {
	spec, err := parseSpec(q)
	if err != nil {
		return service.Query{}, err
	}
	out := service.Query{
		Spec:  spec,
		Sort:  leaderboard.DefaultSortField,
		Order: leaderboard.ParseOrder(q.Get(paramOrder)),
		Limit: maxLimit,
	}
	if v := q.Get(paramSort); v != "" {
		if out.Sort, err = leaderboard.ParseSortField(v); err != nil {
			return service.Query{}, err
		}
	}
	if v := q.Get(paramLimit); v != "" {
		n, err := filter.ParseNonNegative(paramLimit, v)
		if err != nil || n < 1 {
			return service.Query{}, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
		}
		if n > maxLimit {
			return service.Query{}, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, n, maxLimit)
		}
		out.Limit = n
	}
	return out, nil
}
