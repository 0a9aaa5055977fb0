// Package filter projects the record store into the qualified subset for a query.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
)

// ErrInvalidSpec is returned when a user supplied filter value is unknown.
var ErrInvalidSpec = errors.New("invalid filter spec")

// SetSplit restricts records by set or by show placement.
type SetSplit string

// Set splits.
const (
	SplitAll     SetSplit = "all"
	SplitSet1    SetSplit = "set1"
	SplitSet2    SetSplit = "set2"
	SplitSet3    SetSplit = "set3"
	SplitEncore  SetSplit = "encore"
	SplitEncore2 SetSplit = "encore2"
	SplitOpener  SetSplit = "opener"
	SplitCloser  SetSplit = "closer"
)

var splitSets = map[SetSplit]model.SetLabel{
	SplitSet1:    model.Set1,
	SplitSet2:    model.Set2,
	SplitSet3:    model.Set3,
	SplitEncore:  model.Encore,
	SplitEncore2: model.Encore2,
}

// Country restricts records by domestic or international shows.
type Country string

// Country filters.
const (
	CountryAll           Country = "all"
	CountryUS            Country = "us"
	CountryInternational Country = "international"
)

// RunAll disables run position filtering.
const RunAll = "all"

// Aggregation selects the unit of aggregation.
type Aggregation string

// Aggregation modes.
const (
	Career Aggregation = "career"
	ByYear Aggregation = "by_year"
	ByTour Aggregation = "by_tour"
)

// Spec describes a single leaderboard query. The zero value of YearFrom and
// YearTo means an open bound; empty Venue and State mean no filter.
type Spec struct {
	YearFrom int `json:"year_from"`
	YearTo   int `json:"year_to"`

	SetSplit SetSplit `json:"set_split"`

	MinTimesPlayed   int `json:"min_times_played"`
	MinShowsAppeared int `json:"min_shows_appeared"`
	MinJamchartCount int `json:"min_jamchart_count"`

	Venue       string  `json:"venue,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     Country `json:"country"`
	RunPosition string  `json:"run_position"`

	Aggregation Aggregation `json:"aggregation"`
}

// Default returns a spec that qualifies every record under career aggregation.
func Default() Spec {
	return Spec{
		SetSplit:    SplitAll,
		Country:     CountryAll,
		RunPosition: RunAll,
		Aggregation: Career,
	}
}

// Normalized fills empty enum fields with their defaults.
func (s Spec) Normalized() Spec {
	if s.SetSplit == "" {
		s.SetSplit = SplitAll
	}
	if s.Country == "" {
		s.Country = CountryAll
	}
	if s.RunPosition == "" {
		s.RunPosition = RunAll
	}
	if s.Aggregation == "" {
		s.Aggregation = Career
	}
	return s
}

// Key returns a canonical representation of the normalized spec, suitable as
// a cache key.
func (s Spec) Key() string {
	n := s.Normalized()
	var b strings.Builder
	fmt.Fprintf(&b, "y=%d-%d;set=%s;mp=%d;ms=%d;mj=%d;v=%q;st=%q;c=%s;run=%s;agg=%s",
		n.YearFrom, n.YearTo, n.SetSplit,
		n.MinTimesPlayed, n.MinShowsAppeared, n.MinJamchartCount,
		n.Venue, n.State, n.Country, n.RunPosition, n.Aggregation)
	return b.String()
}

// Validate checks enum fields and year bounds.
func (s Spec) Validate() error {
	n := s.Normalized()
	if _, err := ParseSetSplit(string(n.SetSplit)); err != nil {
		return err
	}
	if _, err := ParseCountry(string(n.Country)); err != nil {
		return err
	}
	if _, err := ParseRunPosition(n.RunPosition); err != nil {
		return err
	}
	if _, err := ParseAggregation(string(n.Aggregation)); err != nil {
		return err
	}
	if n.YearFrom != 0 && n.YearTo != 0 && n.YearFrom > n.YearTo {
		return fmt.Errorf("%w: year_from %d after year_to %d", ErrInvalidSpec, n.YearFrom, n.YearTo)
	}
	if n.MinTimesPlayed < 0 || n.MinShowsAppeared < 0 || n.MinJamchartCount < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidSpec)
	}
	return nil
}

// ParseSetSplit parses a set split name. Empty input means all.
func ParseSetSplit(v string) (SetSplit, error) {
	s := SetSplit(strings.ToLower(strings.TrimSpace(v)))
	switch s {
	case "":
		return SplitAll, nil
	case SplitAll, SplitOpener, SplitCloser:
		return s, nil
	}
	if _, ok := splitSets[s]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown set split %q", ErrInvalidSpec, v)
}

// ParseCountry parses a country filter. Empty input means all.
func ParseCountry(v string) (Country, error) {
	switch c := Country(strings.ToLower(strings.TrimSpace(v))); c {
	case "":
		return CountryAll, nil
	case CountryAll, CountryUS, CountryInternational:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown country %q", ErrInvalidSpec, v)
}

// ParseRunPosition parses a run position filter. Empty input means all.
func ParseRunPosition(v string) (string, error) {
	r := strings.ToLower(strings.TrimSpace(v))
	if r == "" || r == RunAll {
		return RunAll, nil
	}
	if !model.RunPosition(r).Valid() {
		return "", fmt.Errorf("%w: unknown run position %q", ErrInvalidSpec, v)
	}
	return r, nil
}

// ParseAggregation parses an aggregation mode. Empty input means career.
func ParseAggregation(v string) (Aggregation, error) {
	switch a := Aggregation(strings.ToLower(strings.TrimSpace(v))); a {
	case "":
		return Career, nil
	case Career, ByYear, ByTour:
		return a, nil
	case "year":
		return ByYear, nil
	case "tour":
		return ByTour, nil
	}
	return "", fmt.Errorf("%w: unknown aggregation %q", ErrInvalidSpec, v)
}

// ParseNonNegative parses an optional non-negative integer parameter.
func ParseNonNegative(name, v string) (int, error) {
	if strings.TrimSpace(v) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidSpec, name)
	}
	return n, nil
}
