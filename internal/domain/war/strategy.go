// Package war groups scored performances into aggregation units and derives
// the WAR family of metrics against a replacement-level baseline.
package war

import (
	"fmt"
	"strconv"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
)

// Key identifies an aggregation unit. Year is set only under by_year and the
// tour fields only under by_tour.
type Key struct {
	SongName  string `json:"song_name"`
	Year      int    `json:"year,omitempty"`
	TourID    string `json:"tour_id,omitempty"`
	TourLabel string `json:"tour_label,omitempty"`
}

// String renders the key for logs and cache keys.
func (k Key) String() string {
	switch {
	case k.Year != 0:
		return fmt.Sprintf("%s@%d", k.SongName, k.Year)
	case k.TourID != "":
		return fmt.Sprintf("%s@%s", k.SongName, k.TourID)
	}
	return k.SongName
}

// less orders keys by song, then year, then tour.
func (k Key) less(o Key) bool {
	if k.SongName != o.SongName {
		return k.SongName < o.SongName
	}
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.TourID != o.TourID {
		return k.TourID < o.TourID
	}
	return k.TourLabel < o.TourLabel
}

// Strategy defines one aggregation granularity: how records map to units and
// which population a record's replacement baseline is drawn from.
type Strategy struct {
	Mode        filter.Aggregation
	KeyFor      func(r model.PerformanceRecord) Key
	BaselineFor func(r model.PerformanceRecord) string
}

// globalBucket is the single baseline bucket under career aggregation.
const globalBucket = "all"

// Strategies is the table of supported aggregation modes.
var Strategies = map[filter.Aggregation]Strategy{
	filter.Career: {
		Mode:        filter.Career,
		KeyFor:      func(r model.PerformanceRecord) Key { return Key{SongName: r.SongName} },
		BaselineFor: func(model.PerformanceRecord) string { return globalBucket },
	},
	filter.ByYear: {
		Mode:        filter.ByYear,
		KeyFor:      func(r model.PerformanceRecord) Key { return Key{SongName: r.SongName, Year: r.Year} },
		BaselineFor: func(r model.PerformanceRecord) string { return "year:" + strconv.Itoa(r.Year) },
	},
	filter.ByTour: {
		Mode: filter.ByTour,
		KeyFor: func(r model.PerformanceRecord) Key {
			return Key{SongName: r.SongName, TourID: r.TourID, TourLabel: r.TourLabel}
		},
		BaselineFor: func(r model.PerformanceRecord) string { return "tour:" + r.TourID },
	},
}

// StrategyFor returns the strategy for mode, falling back to career.
func StrategyFor(mode filter.Aggregation) Strategy {
	if s, ok := Strategies[mode]; ok {
		return s
	}
	return Strategies[filter.Career]
}
