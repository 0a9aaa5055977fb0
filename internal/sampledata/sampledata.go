// Package sampledata generates synthetic but plausible setlist data for
// seeding a database and for demos. Output is deterministic for a seed.
package sampledata

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
)

// Generation defaults.
const (
	defaultShows     = 120
	defaultSeed      = 1983
	defaultStartYear = 2015
	defaultEndYear   = 2019

	unknownDurationRate = 0.04
	runProbability      = 0.35
	maxRunNights        = 3
	maxAttemptsPerShow  = 50
	msPerMinute         = 60_000
)

// Song is a catalogue entry. Vehicles stretch out and chart more often.
type Song struct {
	Name           string
	TypicalMinutes float64
	Vehicle        bool
}

// Venue is a place shows are played.
type Venue struct {
	Name    string
	State   string
	Country string
}

// DefaultCatalogue is the song pool used when none is supplied.
var DefaultCatalogue = []Song{
	{Name: "Tweezer", TypicalMinutes: 16, Vehicle: true},
	{Name: "Ghost", TypicalMinutes: 14, Vehicle: true},
	{Name: "Down with Disease", TypicalMinutes: 15, Vehicle: true},
	{Name: "Carini", TypicalMinutes: 12, Vehicle: true},
	{Name: "Simple", TypicalMinutes: 11, Vehicle: true},
	{Name: "Harry Hood", TypicalMinutes: 14, Vehicle: true},
	{Name: "Light", TypicalMinutes: 13, Vehicle: true},
	{Name: "Fluffhead", TypicalMinutes: 15},
	{Name: "Reba", TypicalMinutes: 13},
	{Name: "Divided Sky", TypicalMinutes: 14},
	{Name: "Stash", TypicalMinutes: 11},
	{Name: "Bathtub Gin", TypicalMinutes: 11, Vehicle: true},
	{Name: "Wolfman's Brother", TypicalMinutes: 10},
	{Name: "Chalk Dust Torture", TypicalMinutes: 9},
	{Name: "Possum", TypicalMinutes: 9},
	{Name: "Sample in a Jar", TypicalMinutes: 5},
	{Name: "Bouncing Around the Room", TypicalMinutes: 4},
	{Name: "Waste", TypicalMinutes: 5},
	{Name: "Wilson", TypicalMinutes: 6},
	{Name: "Character Zero", TypicalMinutes: 7},
	{Name: "Cavern", TypicalMinutes: 5},
	{Name: "Julius", TypicalMinutes: 7},
	{Name: "Backwards Down the Number Line", TypicalMinutes: 8},
	{Name: "Slave to the Traffic Light", TypicalMinutes: 11},
	{Name: "Tweezer Reprise", TypicalMinutes: 4},
	{Name: "Golgi Apparatus", TypicalMinutes: 5},
}

// DefaultVenues is the venue pool used when none is supplied.
var DefaultVenues = []Venue{
	{Name: "Madison Square Garden", State: "NY", Country: model.CountryUSA},
	{Name: "Dick's Sporting Goods Park", State: "CO", Country: model.CountryUSA},
	{Name: "The Gorge Amphitheatre", State: "WA", Country: model.CountryUSA},
	{Name: "Alpine Valley Music Theatre", State: "WI", Country: model.CountryUSA},
	{Name: "Hampton Coliseum", State: "VA", Country: model.CountryUSA},
	{Name: "MGM Grand Garden Arena", State: "NV", Country: model.CountryUSA},
	{Name: "Saratoga Performing Arts Center", State: "NY", Country: model.CountryUSA},
	{Name: "Moon Palace", State: "", Country: "Mexico"},
	{Name: "Royal Albert Hall", State: "", Country: "England"},
	{Name: "Molson Amphitheatre", State: "", Country: "Canada"},
}

type tour struct {
	id, label  string
	startMonth time.Month
	months     int
}

var tours = []tour{
	{id: "spring", label: "Spring Tour", startMonth: time.April, months: 2},
	{id: "summer", label: "Summer Tour", startMonth: time.June, months: 3},
	{id: "fall", label: "Fall Tour", startMonth: time.October, months: 2},
	{id: "nye", label: "NYE Run", startMonth: time.December, months: 1},
}

// Config controls generation.
type Config struct {
	Shows      int
	Seed       uint64
	StartYear  int
	EndYear    int
	Catalogue  []Song
	Venues     []Venue
	DefectRate float64 // share of rows deliberately malformed
}

// Option adjusts a Config.
type Option func(*Config)

// WithShows sets the number of shows to generate.
func WithShows(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Shows = n
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithYears sets the inclusive year range shows are spread over.
func WithYears(from, to int) Option {
	return func(c *Config) {
		if from > 0 && to >= from {
			c.StartYear, c.EndYear = from, to
		}
	}
}

// WithCatalogue replaces the song pool.
func WithCatalogue(songs []Song) Option {
	return func(c *Config) {
		if len(songs) > 0 {
			c.Catalogue = songs
		}
	}
}

// WithVenues replaces the venue pool.
func WithVenues(venues []Venue) Option {
	return func(c *Config) {
		if len(venues) > 0 {
			c.Venues = venues
		}
	}
}

// WithDefectRate sets the share of rows that are deliberately malformed,
// for exercising the load-time sanitizer.
func WithDefectRate(rate float64) Option {
	return func(c *Config) {
		if rate >= 0 && rate <= 1 {
			c.DefectRate = rate
		}
	}
}

// Stats describes one generation run.
type Stats struct {
	Shows   int
	Rows    int
	Defects int
}

// Generate produces raw performance rows for cfg.Shows shows.
func Generate(ctx context.Context, opts ...Option) ([]model.RawRecord, Stats, error) {
	cfg := Config{
		Shows:     defaultShows,
		Seed:      defaultSeed,
		StartYear: defaultStartYear,
		EndYear:   defaultEndYear,
		Catalogue: DefaultCatalogue,
		Venues:    DefaultVenues,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Catalogue) < setlistLength() {
		return nil, Stats{}, fmt.Errorf("catalogue of %d songs is too small", len(cfg.Catalogue))
	}

	g := &generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	return g.run(ctx)
}

type generator struct {
	cfg   Config
	rng   *rand.Rand
	stats Stats
}

type show struct {
	date  time.Time
	tour  tour
	venue Venue
	run   model.RunPosition
}

func (g *generator) run(ctx context.Context) ([]model.RawRecord, Stats, error) {
	var rows []model.RawRecord
	for _, s := range g.schedule() {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, fmt.Errorf("generation cancelled: %w", err)
		}
		rows = append(rows, g.setlist(s)...)
		g.stats.Shows++
	}
	if g.stats.Shows < g.cfg.Shows {
		return nil, Stats{}, fmt.Errorf("only %d of %d shows fit in %d-%d",
			g.stats.Shows, g.cfg.Shows, g.cfg.StartYear, g.cfg.EndYear)
	}
	g.stats.Rows = len(rows)
	return rows, g.stats, nil
}

// schedule lays out shows across years and tours. Some venues host
// multi-night runs.
func (g *generator) schedule() []show {
	years := g.cfg.EndYear - g.cfg.StartYear + 1
	shows := make([]show, 0, g.cfg.Shows)
	used := make(map[string]struct{})

	for attempts := 0; len(shows) < g.cfg.Shows && attempts < g.cfg.Shows*maxAttemptsPerShow; attempts++ {
		year := g.cfg.StartYear + g.rng.IntN(years)
		t := tours[g.rng.IntN(len(tours))]
		venue := g.cfg.Venues[g.rng.IntN(len(g.cfg.Venues))]
		first := time.Date(year, t.startMonth, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, g.rng.IntN(t.months*28))

		nights := 1
		if g.rng.Float64() < runProbability {
			nights = 2 + g.rng.IntN(maxRunNights-1)
		}
		if remaining := g.cfg.Shows - len(shows); nights > remaining {
			nights = remaining
		}

		for n := 0; n < nights; n++ {
			date := first.AddDate(0, 0, n)
			key := date.Format(time.DateOnly)
			if _, dup := used[key]; dup {
				break
			}
			used[key] = struct{}{}
			shows = append(shows, show{date: date, tour: t, venue: venue, run: runPosition(n, nights)})
		}
	}
	return shows
}

func runPosition(night, nights int) model.RunPosition {
	switch {
	case nights == 1:
		return model.RunNone
	case night == 0:
		return model.RunOpener
	case night == nights-1:
		return model.RunCloser
	default:
		return model.RunPosition(fmt.Sprintf("n%d", night+1))
	}
}

var setShape = []struct {
	label model.SetLabel
	songs int
}{
	{model.Set1, 8},
	{model.Set2, 6},
	{model.Encore, 2},
}

func setlistLength() int {
	n := 0
	for _, s := range setShape {
		n += s.songs
	}
	return n
}

func (g *generator) setlist(s show) []model.RawRecord {
	order := g.rng.Perm(len(g.cfg.Catalogue))
	total := setlistLength()
	rows := make([]model.RawRecord, 0, total)

	slot := 0
	for _, set := range setShape {
		for pos := 1; pos <= set.songs; pos++ {
			song := g.cfg.Catalogue[order[slot]]
			rows = append(rows, g.performance(s, song, set.label, pos, slot == 0, slot == total-1))
			slot++
		}
	}
	return rows
}

func (g *generator) performance(s show, song Song, set model.SetLabel, pos int, opener, closer bool) model.RawRecord {
	// Second-set vehicles stretch out.
	stretch := 1.0
	if song.Vehicle && set == model.Set2 {
		stretch = 1.4
	}
	minutes := song.TypicalMinutes * stretch * math.Exp(g.rng.NormFloat64()*0.3)
	duration := int(minutes * msPerMinute)

	jamOdds := 0.03
	if song.Vehicle {
		jamOdds = 0.08 + 0.25*math.Max(0, minutes/song.TypicalMinutes-1)
	}
	jamchart := g.rng.Float64() < jamOdds

	likes := int(minutes*2 + g.rng.Float64()*10)
	if jamchart {
		likes += 20 + g.rng.IntN(40)
	}

	year := s.date.Year()
	row := model.RawRecord{
		SongName:    song.Name,
		ShowDate:    s.date.Format(time.DateOnly),
		TourID:      fmt.Sprintf("%s-%d", s.tour.id, year),
		TourLabel:   fmt.Sprintf("%s %d", s.tour.label, year),
		SetLabel:    string(set),
		Position:    pos,
		IsOpener:    opener,
		IsCloser:    closer,
		RunPosition: string(s.run),
		Venue:       s.venue.Name,
		State:       s.venue.State,
		Country:     s.venue.Country,
		DurationMs:  &duration,
		Likes:       likes,
		IsJamchart:  jamchart,
	}
	if jamchart {
		row.JamNotes = "Type II exploration"
	}
	if g.rng.Float64() < unknownDurationRate {
		row.DurationMs = nil
	}
	if g.cfg.DefectRate > 0 && g.rng.Float64() < g.cfg.DefectRate {
		g.corrupt(&row)
		g.stats.Defects++
	}
	return row
}

// corrupt introduces one defect the sanitizer is expected to drop.
func (g *generator) corrupt(row *model.RawRecord) {
	switch g.rng.IntN(4) {
	case 0:
		bad := -1
		row.DurationMs = &bad
	case 1:
		row.Likes = -1
	case 2:
		// Day-first dates are a common export mistake and stay unique per show.
		if d, err := time.Parse(time.DateOnly, row.ShowDate); err == nil {
			row.ShowDate = d.Format("02/01/2006")
		} else {
			row.ShowDate = ""
		}
	default:
		row.SetLabel = "Soundcheck"
	}
}
