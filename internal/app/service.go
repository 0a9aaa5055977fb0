// Package service provides the analytics engine behind the HTTP API and CLI:
// it owns the loaded performance snapshot and answers leaderboard queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/cache"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/leaderboard"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/scoring"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/types"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/war"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/metrics"
)

const (
	defaultCacheSize = 256
	reloadFlightKey  = "\x00reload"
)

// Snapshot is an immutable, versioned view of the sanitized corpus.
type Snapshot struct {
	Version  string
	LoadedAt time.Time
	Records  []model.PerformanceRecord
	RawCount int
	Report   model.SanitizeReport
}

// Result is the answer to one leaderboard query.
type Result struct {
	Entries        []types.Entry  `json:"entries"`
	Baselines      []war.Baseline `json:"baselines"`
	DroppedCount   int            `json:"dropped_count"`
	QualifiedCount int            `json:"qualified_count"`
	Scale          float64        `json:"war_scale"`
	Version        string         `json:"version"`
	Cached         bool           `json:"cached"`
}

// Query is a leaderboard request: a filter spec plus presentation controls.
type Query struct {
	Spec  filter.Spec
	Sort  leaderboard.SortField
	Order leaderboard.Order
	// Limit caps the number of entries; zero means all.
	Limit int
}

// Engine answers leaderboard queries over the current snapshot.
type Engine struct {
	mu       sync.RWMutex
	snapshot *Snapshot

	source     repository.Source
	scorer     scoring.Scorer
	aggregator *war.Aggregator
	results    cache.Cache[*Result]
	flight     singleflight.Group

	// Configuration
	cacheSize         int
	weights           *scoring.Weights
	parallelThreshold int
	scale             float64

	logger logger.Logger
}

// New constructs an Engine. Call Start or Reload before querying.
func New(opts ...Option) *Engine {
	e := &Engine{
		cacheSize: defaultCacheSize,
		scale:     war.DefaultScale,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	if e.scorer == nil {
		var sopts []scoring.Option
		if e.weights != nil {
			sopts = append(sopts, scoring.WithWeights(e.weights.Duration, e.weights.Curation, e.weights.Approval))
		}
		if e.parallelThreshold > 0 {
			sopts = append(sopts, scoring.WithParallelThreshold(e.parallelThreshold))
		}
		e.scorer = scoring.NewJISScorer(sopts...)
	}
	e.aggregator = war.NewAggregator(war.WithScale(e.scale))
	e.results = cache.NewLRU[*Result](cache.WithMaxEntries(e.cacheSize))

	return e
}

// Start performs the initial load from the configured source.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info(ctx, "starting analytics engine",
		logger.Int("cacheSize", e.cacheSize),
		logger.Float64("warScale", e.aggregator.Scale()),
	)
	return e.Reload(ctx)
}

// Stop drops cached results. The snapshot stays readable.
func (e *Engine) Stop() {
	e.results.Purge(context.Background())
	e.logger.Info(context.Background(), "analytics engine stopped")
}

// Reload reads the source, sanitizes it and atomically publishes a new
// snapshot. Concurrent reloads share one load.
func (e *Engine) Reload(ctx context.Context) error {
	if e.source == nil {
		return ErrNoSource
	}
	_, err, _ := e.flight.Do(reloadFlightKey, func() (any, error) {
		start := time.Now()
		rows, err := e.source.Load(ctx)
		if err != nil {
			metrics.RecordSnapshotReloadError()
			metrics.RecordErrorLatency("engine", "load", msSince(start))
			e.logger.Error(ctx, "failed to load performance records", logger.Error(err))
			return nil, fmt.Errorf("reload: %w", err)
		}
		snap := e.Publish(ctx, rows)
		e.logger.Info(ctx, "performance snapshot published",
			logger.String("version", snap.Version),
			logger.Int("records", len(snap.Records)),
			logger.Int("dropped", snap.Report.Dropped),
			logger.Duration("took", time.Since(start)),
		)
		return snap, nil
	})
	return err
}

// Publish sanitizes rows and installs them as the current snapshot,
// invalidating every cached result.
func (e *Engine) Publish(ctx context.Context, rows []model.RawRecord) *Snapshot {
	start := time.Now()
	records, report := model.Sanitize(rows)
	snap := &Snapshot{
		Version:  uuid.NewString(),
		LoadedAt: time.Now().UTC(),
		Records:  records,
		RawCount: len(rows),
		Report:   report,
	}

	if report.Dropped > 0 {
		fields := []logger.Field{logger.Int("dropped", report.Dropped)}
		for reason, n := range report.ByReason {
			fields = append(fields, logger.Int(string(reason), n))
		}
		e.logger.Warn(ctx, "dropped malformed performance rows", fields...)
	}

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()
	e.results.Purge(ctx)

	metrics.UpdateRecordsLoaded(len(records))
	for reason, n := range report.ByReason {
		metrics.UpdateRecordsDropped(string(reason), n)
	}
	metrics.RecordSnapshotReload(msSince(start))
	return snap
}

// Snapshot returns the current snapshot, or nil before the first load.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Compute runs filter, scoring, WAR aggregation and leaderboard build for
// spec. Entries are in canonical key order without ranks. The returned
// Result shares its entries with the cache and must not be mutated.
func (e *Engine) Compute(ctx context.Context, spec filter.Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		metrics.RecordInvalidQuery()
		return nil, err
	}
	spec = spec.Normalized()

	snap := e.Snapshot()
	if snap == nil {
		return nil, ErrNotLoaded
	}

	metrics.RecordQuery(string(spec.Aggregation))
	start := time.Now()
	key := snap.Version + "|" + spec.Key()

	if res, ok := e.results.Get(ctx, key); ok {
		metrics.RecordCacheHit()
		metrics.RecordQueryLatency(msSince(start))
		hit := *res
		hit.Cached = true
		return &hit, nil
	}
	metrics.RecordCacheMiss()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Waiters share one computation, so it must not die with the first caller.
	v, err, shared := e.flight.Do(key, func() (any, error) {
		res, err := e.compute(context.WithoutCancel(ctx), snap, spec)
		if err != nil {
			return nil, err
		}
		e.results.Put(ctx, key, res)
		return res, nil
	})
	if shared {
		metrics.RecordCoalescedQuery()
	}
	if err != nil {
		metrics.RecordErrorByComponent("engine", errorType(err))
		metrics.RecordErrorLatency("engine", errorType(err), msSince(start))
		return nil, err
	}

	metrics.RecordQueryLatency(msSince(start))
	return v.(*Result), nil
}

func (e *Engine) compute(ctx context.Context, snap *Snapshot, spec filter.Spec) (*Result, error) {
	qualified := filter.Apply(snap.Records, spec)

	scoreStart := time.Now()
	scored, err := e.scorer.Score(ctx, qualified)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	metrics.RecordScoringLatency(msSince(scoreStart))

	aggStart := time.Now()
	agg := e.aggregator.Aggregate(scored, spec)
	metrics.RecordAggregateLatency(msSince(aggStart))

	degenerate := 0
	for _, b := range agg.Baselines {
		if b.Degenerate {
			degenerate++
		}
	}
	metrics.RecordDegenerateBaselines(degenerate)

	entries := leaderboard.Build(agg.Units, spec)
	metrics.UpdateLeaderboardSize(len(entries))

	e.logger.Debug(ctx, "leaderboard computed",
		logger.String("spec", spec.Key()),
		logger.Int("qualified", agg.Qualified),
		logger.Int("units", len(agg.Units)),
		logger.Int("entries", len(entries)),
	)

	return &Result{
		Entries:        entries,
		Baselines:      agg.Baselines,
		DroppedCount:   snap.Report.Dropped,
		QualifiedCount: agg.Qualified,
		Scale:          agg.Scale,
		Version:        snap.Version,
	}, nil
}

// Leaderboard answers q: the computed entries sorted, ranked and truncated.
func (e *Engine) Leaderboard(ctx context.Context, q Query) (*Result, error) {
	res, err := e.Compute(ctx, q.Spec)
	if err != nil {
		return nil, err
	}

	field := q.Sort
	if field == "" {
		field = leaderboard.DefaultSortField
	}
	if _, err := leaderboard.ParseSortField(string(field)); err != nil {
		return nil, err
	}
	order := q.Order
	if order == "" {
		order = leaderboard.Desc
	}

	out := *res
	out.Entries = make([]types.Entry, len(res.Entries))
	copy(out.Entries, res.Entries)
	leaderboard.Sort(out.Entries, field, order)
	if q.Limit > 0 {
		out.Entries = leaderboard.Top(out.Entries, q.Limit)
	}
	return &out, nil
}

// Song returns the entries of one song under spec. Under by_year or by_tour
// aggregation a song has one entry per year or tour, in key order.
func (e *Engine) Song(ctx context.Context, name string, spec filter.Spec) (*Result, error) {
	res, err := e.Compute(ctx, spec)
	if err != nil {
		return nil, err
	}

	out := *res
	out.Entries = nil
	for _, entry := range res.Entries {
		if entry.SongName == name {
			out.Entries = append(out.Entries, entry)
		}
	}
	if len(out.Entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSongNotFound, name)
	}
	return &out, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, filter.ErrInvalidSpec):
		return "invalid_spec"
	default:
		return "internal"
	}
}
