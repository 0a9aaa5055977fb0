package service

import (
	"time"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/cache"
)

// Stats summarizes the engine state for monitoring.
type Stats struct {
	Loaded          bool           `json:"loaded"`
	Version         string         `json:"version,omitempty"`
	LoadedAt        time.Time      `json:"loaded_at"`
	RawRows         int            `json:"raw_rows"`
	Records         int            `json:"records"`
	Dropped         int            `json:"dropped"`
	DroppedByReason map[string]int `json:"dropped_by_reason,omitempty"`
	Songs           int            `json:"songs"`
	Shows           int            `json:"shows"`
	FirstYear       int            `json:"first_year,omitempty"`
	LastYear        int            `json:"last_year,omitempty"`
	Cache           cache.Stats    `json:"cache"`
	WARScale        float64        `json:"war_scale"`
}

// GetStats returns engine statistics for monitoring.
func (e *Engine) GetStats() Stats {
	st := Stats{
		Cache:    e.results.Stats(),
		WARScale: e.aggregator.Scale(),
	}

	snap := e.Snapshot()
	if snap == nil {
		return st
	}

	st.Loaded = true
	st.Version = snap.Version
	st.LoadedAt = snap.LoadedAt
	st.RawRows = snap.RawCount
	st.Records = len(snap.Records)
	st.Dropped = snap.Report.Dropped
	if len(snap.Report.ByReason) > 0 {
		st.DroppedByReason = make(map[string]int, len(snap.Report.ByReason))
		for reason, n := range snap.Report.ByReason {
			st.DroppedByReason[string(reason)] = n
		}
	}

	songs := make(map[string]struct{})
	shows := make(map[string]struct{})
	for i, r := range snap.Records {
		songs[r.SongName] = struct{}{}
		shows[r.ShowKey()] = struct{}{}
		if i == 0 || r.Year < st.FirstYear {
			st.FirstYear = r.Year
		}
		if r.Year > st.LastYear {
			st.LastYear = r.Year
		}
	}
	st.Songs = len(songs)
	st.Shows = len(shows)
	return st
}
