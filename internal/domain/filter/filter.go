package filter

import "github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"

// Apply returns the records that qualify under spec, preserving input order.
// Count thresholds are not applied here; they gate aggregation units.
func Apply(records []model.PerformanceRecord, spec Spec) []model.PerformanceRecord {
	s := spec.Normalized()
	out := make([]model.PerformanceRecord, 0, len(records))
	for _, r := range records {
		if Matches(r, s) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record qualifies under a normalized spec.
func Matches(r model.PerformanceRecord, s Spec) bool {
	if s.YearFrom != 0 && r.Year < s.YearFrom {
		return false
	}
	if s.YearTo != 0 && r.Year > s.YearTo {
		return false
	}
	if !matchesSplit(r, s.SetSplit) {
		return false
	}
	if s.Venue != "" && r.Venue != s.Venue {
		return false
	}
	if s.State != "" && r.State != s.State {
		return false
	}
	switch s.Country {
	case CountryUS:
		if r.Country != model.CountryUSA {
			return false
		}
	case CountryInternational:
		if r.Country == model.CountryUSA {
			return false
		}
	}
	if s.RunPosition != RunAll && string(r.RunPosition) != s.RunPosition {
		return false
	}
	return true
}

func matchesSplit(r model.PerformanceRecord, split SetSplit) bool {
	switch split {
	case SplitAll:
		return true
	case SplitOpener:
		return r.IsOpener
	case SplitCloser:
		return r.IsCloser
	}
	set, ok := splitSets[split]
	return ok && r.Set == set
}
