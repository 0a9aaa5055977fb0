// Package probe exercises a running phstats server with randomized
// leaderboard queries and checks every response against the ranking
// invariants.
package probe

import (
	"net/url"
	"time"
)

// Default configuration constants.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultQueries = 200
	DefaultLimit   = 50
	DefaultTimeout = 30 * time.Second
	DefaultRepeats = 10
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL string        // Base URL of the service
	Queries int           // Number of randomized queries to send
	Repeats int           // Queries re-sent to check determinism
	Limit   int           // Leaderboard limit per query
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Seed    uint64        // Seed for query generation
	Verbose bool          // Log every violation
}

// Query is one generated leaderboard request.
type Query struct {
	ID     int
	Params url.Values
}

// Stats holds probe statistics.
type Stats struct {
	QueriesGenerated int
	QueriesSent      int
	QueriesSucceeded int
	QueriesFailed    int
	CachedResponses  int
	EntriesChecked   int
	EmptyResults     int
	Violations       int
	RepeatsChecked   int
	RepeatMismatches int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
