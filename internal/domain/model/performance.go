// Package model contains domain models passed between layers.
package model

import "time"

// SetLabel identifies which set of a show a performance belongs to.
type SetLabel string

// Known set labels.
const (
	Set1    SetLabel = "Set1"
	Set2    SetLabel = "Set2"
	Set3    SetLabel = "Set3"
	Encore  SetLabel = "Encore"
	Encore2 SetLabel = "Encore2"
)

// Valid reports whether s is one of the known set labels.
func (s SetLabel) Valid() bool {
	switch s {
	case Set1, Set2, Set3, Encore, Encore2:
		return true
	}
	return false
}

// RunPosition is the position of a show within a multi-night run at one venue.
type RunPosition string

// Known run positions. RunNone marks a standalone show.
const (
	RunNone   RunPosition = "none"
	RunOpener RunPosition = "opener"
	RunN1     RunPosition = "n1"
	RunN2     RunPosition = "n2"
	RunN3     RunPosition = "n3"
	RunN4     RunPosition = "n4"
	RunN5     RunPosition = "n5"
	RunCloser RunPosition = "closer"
)

// Valid reports whether r is one of the known run positions.
func (r RunPosition) Valid() bool {
	switch r {
	case RunNone, RunOpener, RunN1, RunN2, RunN3, RunN4, RunN5, RunCloser:
		return true
	}
	return false
}

// CountryUSA is the country value that marks a domestic show.
const CountryUSA = "USA"

// PerformanceRecord is one song performed at one show. Records are loaded once
// and never mutated; (SongName, ShowDate, Set, Position) is unique.
type PerformanceRecord struct {
	SongName  string
	ShowDate  time.Time
	Year      int // derived from ShowDate
	TourID    string
	TourLabel string

	Set      SetLabel
	Position int // 1-based within its set

	IsOpener bool // first song of the show
	IsCloser bool // last song of the show

	RunPosition RunPosition

	Venue   string
	State   string // empty when unknown or outside the US
	Country string

	DurationMs int // 0 = unknown
	Likes      int
	IsJamchart bool
	JamNotes   string
}

// ShowKey identifies the show a performance belongs to.
func (p PerformanceRecord) ShowKey() string {
	return p.ShowDate.Format(time.DateOnly) + "|" + p.Venue
}

// HasDuration reports whether the duration of the performance is known.
func (p PerformanceRecord) HasDuration() bool {
	return p.DurationMs > 0
}
