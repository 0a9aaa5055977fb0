package probe

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"

	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	percentageMultiplier    = 100
	maxLoggedViolations     = 20
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Queries <= 0 {
		out.Queries = DefaultQueries
	}
	if out.Repeats < 0 {
		out.Repeats = 0
	}
	if out.Repeats > out.Queries {
		out.Repeats = out.Queries
	}
	if out.Limit <= 0 {
		out.Limit = DefaultLimit
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU() * workerChannelMultiplier
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

// outcome is the result of one query.
type outcome struct {
	result     *service.Result
	err        error
	violations []error
}

// Run executes the complete probe and returns its statistics. It fails
// with ErrVerification when any response breaks an invariant.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := config.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting phstats probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("queries", cfg.Queries),
		logger.Int("workers", cfg.Workers),
		logger.Int("limit", cfg.Limit),
		logger.Int64("seed", int64(cfg.Seed)),
	)

	// Step 1: check service health and learn the corpus span
	years, err := checkService(ctx, client)
	if err != nil {
		return stats, err
	}

	// Step 2: generate queries
	queries := generateQueries(cfg.Queries, cfg.Seed, cfg.Limit, years)
	stats.QueriesGenerated = len(queries)

	// Step 3: send them concurrently
	outcomes := runQueries(ctx, client, cfg.Workers, queries)
	collect(ctx, log, cfg.Verbose, queries, outcomes, stats)

	// Step 4: repeat a prefix and compare
	if cfg.Repeats > 0 {
		repeats := runQueries(ctx, client, cfg.Workers, queries[:cfg.Repeats])
		compareRepeats(ctx, log, queries[:cfg.Repeats], outcomes, repeats, stats)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("probe interrupted: %w", err)
	}
	if stats.Violations > 0 || stats.RepeatMismatches > 0 || stats.QueriesFailed > 0 {
		return stats, fmt.Errorf("%w: %d violations, %d repeat mismatches, %d failed queries",
			ErrVerification, stats.Violations, stats.RepeatMismatches, stats.QueriesFailed)
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkService verifies the service is ready and returns the year span of
// its corpus.
func checkService(ctx context.Context, client *HTTPClient) (yearRange, error) {
	if err := client.getJSON(ctx, "/healthz", nil, nil); err != nil {
		return yearRange{}, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	var st service.Stats
	if err := client.getJSON(ctx, "/stats", nil, &st); err != nil {
		return yearRange{}, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return yearRange{first: st.FirstYear, last: st.LastYear}, nil
}

// runQueries fans queries out to a fixed set of workers. Outcomes are
// indexed like queries.
func runQueries(ctx context.Context, client *HTTPClient, workers int, queries []Query) []outcome {
	outcomes := make([]outcome, len(queries))
	indexes := make(chan int, workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				if ctx.Err() != nil {
					outcomes[idx] = outcome{err: ctx.Err()}
					continue
				}
				var res service.Result
				if err := client.getJSON(ctx, "/leaderboard", queries[idx].Params, &res); err != nil {
					outcomes[idx] = outcome{err: err}
					continue
				}
				outcomes[idx] = outcome{
					result:     &res,
					violations: verifyResult(queries[idx].Params, &res),
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range queries {
			select {
			case <-ctx.Done():
				// Workers still mark the rest as cancelled.
				for j := i; j < len(queries); j++ {
					indexes <- j
				}
				return
			case indexes <- i:
			}
		}
	}()

	wg.Wait()
	return outcomes
}

func collect(ctx context.Context, log logger.Logger, verbose bool, queries []Query, outcomes []outcome, stats *Stats) {
	logged := 0
	for i, o := range outcomes {
		stats.QueriesSent++
		if o.err != nil {
			stats.QueriesFailed++
			log.Warn(ctx, "query failed",
				logger.Int("query", queries[i].ID),
				logger.String("params", queries[i].Params.Encode()),
				logger.Error(o.err),
			)
			continue
		}
		stats.QueriesSucceeded++
		stats.EntriesChecked += len(o.result.Entries)
		if len(o.result.Entries) == 0 {
			stats.EmptyResults++
		}
		if o.result.Cached {
			stats.CachedResponses++
		}
		stats.Violations += len(o.violations)
		for _, v := range o.violations {
			if !verbose && logged >= maxLoggedViolations {
				break
			}
			logged++
			log.Error(ctx, "invariant violated",
				logger.Int("query", queries[i].ID),
				logger.String("params", queries[i].Params.Encode()),
				logger.Error(v),
			)
		}
	}
}

// compareRepeats checks that re-sending a query against the same snapshot
// returns identical entries.
func compareRepeats(ctx context.Context, log logger.Logger, queries []Query, first, second []outcome, stats *Stats) {
	for i := range queries {
		a, b := first[i], second[i]
		if a.err != nil || b.err != nil {
			continue
		}
		if a.result.Version != b.result.Version {
			// A reload happened in between; nothing to compare.
			continue
		}
		stats.RepeatsChecked++
		if diff := cmp.Diff(a.result.Entries, b.result.Entries); diff != "" {
			stats.RepeatMismatches++
			log.Error(ctx, "repeated query returned different entries",
				logger.Int("query", queries[i].ID),
				logger.String("diff", diff),
			)
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, queriesPerSecond float64
	if stats.QueriesSent > 0 {
		successRate = float64(stats.QueriesSucceeded) / float64(stats.QueriesSent) * percentageMultiplier
	}
	if stats.Duration > 0 {
		queriesPerSecond = float64(stats.QueriesSent+stats.RepeatsChecked) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("queriesGenerated", stats.QueriesGenerated),
		logger.Int("queriesSent", stats.QueriesSent),
		logger.Int("queriesSucceeded", stats.QueriesSucceeded),
		logger.Int("queriesFailed", stats.QueriesFailed),
		logger.Int("cachedResponses", stats.CachedResponses),
		logger.Int("entriesChecked", stats.EntriesChecked),
		logger.Int("emptyResults", stats.EmptyResults),
		logger.Int("violations", stats.Violations),
		logger.Int("repeatsChecked", stats.RepeatsChecked),
		logger.Int("repeatMismatches", stats.RepeatMismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("queriesPerSecond", queriesPerSecond),
	)
}
