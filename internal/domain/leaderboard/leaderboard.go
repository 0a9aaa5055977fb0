// Package leaderboard turns aggregation units into qualified leaderboard entries.
package leaderboard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/types"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/war"
)

// ErrUnknownField is returned for an unsupported sort field.
var ErrUnknownField = errors.New("unknown sort field")

// Build drops units below the filter's qualification thresholds and maps the
// rest to entries. Entries keep the units' key order; ranking is left to Sort.
func Build(units []war.Unit, spec filter.Spec) []types.Entry {
	out := make([]types.Entry, 0, len(units))
	for _, u := range units {
		if !qualifies(u, spec) {
			continue
		}
		out = append(out, toEntry(u))
	}
	return out
}

func qualifies(u war.Unit, spec filter.Spec) bool {
	return u.TimesPlayed >= spec.MinTimesPlayed &&
		u.JamchartCount >= spec.MinJamchartCount &&
		u.ShowsAppeared >= spec.MinShowsAppeared
}

func toEntry(u war.Unit) types.Entry {
	byYear := make(map[int]float64, len(u.WARByYear))
	for y, w := range u.WARByYear {
		byYear[y] = w
	}
	var peak *int
	if u.PeakWARYear != nil {
		y := *u.PeakWARYear
		peak = &y
	}
	return types.Entry{
		SongName: u.Key.SongName,
		Key: types.AggregationKey{
			SongName:  u.Key.SongName,
			Year:      u.Key.Year,
			TourID:    u.Key.TourID,
			TourLabel: u.Key.TourLabel,
		},
		Counting: types.Counting{
			TimesPlayed:   u.TimesPlayed,
			JamchartCount: u.JamchartCount,
			ShowsAppeared: u.ShowsAppeared,
		},
		Rates: types.Rates{
			JamRate: float64(u.JamchartCount) / float64(u.TimesPlayed),
		},
		JIS: types.JIS{
			Avg:        u.AvgJIS,
			Peak:       u.PeakJIS,
			Volatility: u.JISVolatility,
		},
		WAR: types.WAR{
			Career:      u.CareerWAR,
			PerPlay:     u.WARPerPlay,
			PerShow:     u.WARPerShow,
			ByYear:      byYear,
			PeakWARYear: peak,
		},
	}
}

// SortField names a numeric entry field.
type SortField string

// Sortable fields.
const (
	FieldTimesPlayed   SortField = "times_played"
	FieldJamchartCount SortField = "jamchart_count"
	FieldShowsAppeared SortField = "shows_appeared"
	FieldJamRate       SortField = "jam_rate"
	FieldAvgJIS        SortField = "avg_jis"
	FieldPeakJIS       SortField = "peak_jis"
	FieldJISVolatility SortField = "jis_volatility"
	FieldCareerWAR     SortField = "career_war"
	FieldWARPerPlay    SortField = "war_per_play"
	FieldWARPerShow    SortField = "war_per_show"
)

// DefaultSortField is used when the caller does not pick one.
const DefaultSortField = FieldCareerWAR

var fieldValues = map[SortField]func(e types.Entry) float64{
	FieldTimesPlayed:   func(e types.Entry) float64 { return float64(e.Counting.TimesPlayed) },
	FieldJamchartCount: func(e types.Entry) float64 { return float64(e.Counting.JamchartCount) },
	FieldShowsAppeared: func(e types.Entry) float64 { return float64(e.Counting.ShowsAppeared) },
	FieldJamRate:       func(e types.Entry) float64 { return e.Rates.JamRate },
	FieldAvgJIS:        func(e types.Entry) float64 { return e.JIS.Avg },
	FieldPeakJIS:       func(e types.Entry) float64 { return e.JIS.Peak },
	FieldJISVolatility: func(e types.Entry) float64 { return e.JIS.Volatility },
	FieldCareerWAR:     func(e types.Entry) float64 { return e.WAR.Career },
	FieldWARPerPlay:    func(e types.Entry) float64 { return e.WAR.PerPlay },
	FieldWARPerShow:    func(e types.Entry) float64 { return e.WAR.PerShow },
}

// Fields lists the sortable field names in a stable order.
func Fields() []SortField {
	out := make([]SortField, 0, len(fieldValues))
	for f := range fieldValues {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseSortField validates a field name. Empty input selects DefaultSortField.
func ParseSortField(v string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(v)))
	if f == "" {
		return DefaultSortField, nil
	}
	if _, ok := fieldValues[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, v)
	}
	return f, nil
}

// Value returns the numeric value of field on e.
func Value(e types.Entry, field SortField) (float64, bool) {
	f, ok := fieldValues[field]
	if !ok {
		return 0, false
	}
	return f(e), true
}

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Desc Order = "desc"
	Asc  Order = "asc"
)

// ParseOrder parses a sort direction, defaulting to descending.
func ParseOrder(v string) Order {
	if strings.EqualFold(strings.TrimSpace(v), string(Asc)) {
		return Asc
	}
	return Desc
}

// Sort orders entries in place by field and assigns ranks from 1. Ties are
// broken by jamchart count descending, then song name and key ascending,
// independent of order.
func Sort(entries []types.Entry, field SortField, order Order) {
	value, ok := fieldValues[field]
	if !ok {
		value = fieldValues[DefaultSortField]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if va, vb := value(a), value(b); va != vb {
			if order == Asc {
				return va < vb
			}
			return va > vb
		}
		if a.Counting.JamchartCount != b.Counting.JamchartCount {
			return a.Counting.JamchartCount > b.Counting.JamchartCount
		}
		if a.SongName != b.SongName {
			return a.SongName < b.SongName
		}
		if a.Key.Year != b.Key.Year {
			return a.Key.Year < b.Key.Year
		}
		return a.Key.TourID < b.Key.TourID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// Top returns at most n entries. Non-positive n returns all of them.
func Top(entries []types.Entry, n int) []types.Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
