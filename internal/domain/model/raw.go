package model

import (
	"strings"
	"time"
)

// RawRecord is an unvalidated performance row as supplied by ingestion.
// Fields mirror the performances table.
type RawRecord struct {
	SongName    string `db:"song_name"`
	ShowDate    string `db:"show_date"` // YYYY-MM-DD
	TourID      string `db:"tour_id"`
	TourLabel   string `db:"tour_label"`
	SetLabel    string `db:"set_label"`
	Position    int    `db:"position"`
	IsOpener    bool   `db:"is_opener"`
	IsCloser    bool   `db:"is_closer"`
	RunPosition string `db:"run_position"`
	Venue       string `db:"venue"`
	State       string `db:"state"`
	Country     string `db:"country"`
	DurationMs  *int   `db:"duration_ms"` // nil = unknown
	Likes       int    `db:"likes"`
	IsJamchart  bool   `db:"is_jamchart"`
	JamNotes    string `db:"jam_notes"`
}

// DropReason names why a raw row was rejected.
type DropReason string

// Drop reasons reported by Sanitize.
const (
	DropMissingSong      DropReason = "missing_song"
	DropBadDate          DropReason = "bad_date"
	DropBadSet           DropReason = "bad_set"
	DropNegativeDuration DropReason = "negative_duration"
	DropNegativeLikes    DropReason = "negative_likes"
)

// SanitizeReport counts dropped rows by reason.
type SanitizeReport struct {
	Dropped  int
	ByReason map[DropReason]int
}

// Sanitize converts raw rows into performance records. Malformed rows are
// dropped and counted, never returned as errors.
func Sanitize(rows []RawRecord) ([]PerformanceRecord, SanitizeReport) {
	out := make([]PerformanceRecord, 0, len(rows))
	report := SanitizeReport{ByReason: make(map[DropReason]int)}

	for _, row := range rows {
		rec, reason, ok := convert(row)
		if !ok {
			report.Dropped++
			report.ByReason[reason]++
			continue
		}
		out = append(out, rec)
	}
	return out, report
}

func convert(row RawRecord) (PerformanceRecord, DropReason, bool) {
	name := strings.TrimSpace(row.SongName)
	if name == "" {
		return PerformanceRecord{}, DropMissingSong, false
	}
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(row.ShowDate))
	if err != nil {
		return PerformanceRecord{}, DropBadDate, false
	}
	set := SetLabel(row.SetLabel)
	if !set.Valid() {
		return PerformanceRecord{}, DropBadSet, false
	}
	duration := 0
	if row.DurationMs != nil {
		if *row.DurationMs < 0 {
			return PerformanceRecord{}, DropNegativeDuration, false
		}
		duration = *row.DurationMs
	}
	if row.Likes < 0 {
		return PerformanceRecord{}, DropNegativeLikes, false
	}

	// Unknown run positions are not fatal; the show is treated as standalone.
	run := RunPosition(strings.ToLower(row.RunPosition))
	if !run.Valid() {
		run = RunNone
	}

	return PerformanceRecord{
		SongName:    name,
		ShowDate:    date,
		Year:        date.Year(),
		TourID:      row.TourID,
		TourLabel:   row.TourLabel,
		Set:         set,
		Position:    row.Position,
		IsOpener:    row.IsOpener,
		IsCloser:    row.IsCloser,
		RunPosition: run,
		Venue:       row.Venue,
		State:       row.State,
		Country:     row.Country,
		DurationMs:  duration,
		Likes:       row.Likes,
		IsJamchart:  row.IsJamchart,
		JamNotes:    row.JamNotes,
	}, "", true
}
