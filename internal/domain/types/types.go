// Package types contains common types used across the application
package types

// AggregationKey identifies the unit an entry was aggregated over. Year is set
// under by_year aggregation and the tour fields under by_tour.
type AggregationKey struct {
	SongName  string `json:"song_name"`
	Year      int    `json:"year,omitempty"`
	TourID    string `json:"tour_id,omitempty"`
	TourLabel string `json:"tour_label,omitempty"`
}

// Counting holds raw counts for a unit.
type Counting struct {
	TimesPlayed   int `json:"times_played"`
	JamchartCount int `json:"jamchart_count"`
	ShowsAppeared int `json:"shows_appeared"`
}

// Rates holds ratios derived from counts.
type Rates struct {
	JamRate float64 `json:"jam_rate"`
}

// JIS summarizes the Jam Intensity Scores of a unit.
type JIS struct {
	Avg        float64 `json:"avg"`
	Peak       float64 `json:"peak"`
	Volatility float64 `json:"volatility"`
}

// WAR holds the value-over-replacement metrics of a unit.
type WAR struct {
	Career      float64         `json:"career"`
	PerPlay     float64         `json:"per_play"`
	PerShow     float64         `json:"per_show"`
	ByYear      map[int]float64 `json:"by_year"`
	PeakWARYear *int            `json:"peak_year"`
}

// Entry represents a leaderboard entry. Entries are derived per query and
// never persisted. Rank is assigned only once a caller sorts the entries.
type Entry struct {
	Rank     int            `json:"rank,omitempty"`
	SongName string         `json:"song_name"`
	Key      AggregationKey `json:"key"`
	Counting Counting       `json:"counting"`
	Rates    Rates          `json:"rates"`
	JIS      JIS            `json:"jis"`
	WAR      WAR            `json:"war"`
}
