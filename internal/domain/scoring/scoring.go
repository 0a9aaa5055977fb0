// Package scoring computes the Jam Intensity Score (JIS) of individual performances.
//
// Each performance is scored against the other qualified performances of the
// same song, never against the global population: a ten minute version of a
// two minute song is exceptional, the same length for a fifteen minute song is not.
package scoring

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// Default JIS weights. They are normalized to sum to 1 before use.
const (
	DefaultDurationWeight = 0.25
	DefaultCurationWeight = 0.55
	DefaultApprovalWeight = 0.20
)

// Signal bounds and constants.
const (
	MaxScore                 = 100.0
	NeutralSignal            = 50.0
	zClamp                   = 3.0
	minDurations             = 2
	midRankHalf              = 0.5
	defaultParallelThreshold = 2048
)

// Option applies a configuration option to the JISScorer.
type Option func(*JISScorer)

// WithWeights overrides the signal weights. Negative weights are ignored and
// an all-zero set keeps the defaults.
func WithWeights(duration, curation, approval float64) Option {
	return func(s *JISScorer) {
		if duration < 0 || curation < 0 || approval < 0 {
			return
		}
		if duration+curation+approval <= 0 {
			return
		}
		s.weights = Weights{Duration: duration, Curation: curation, Approval: approval}
	}
}

// WithParallelThreshold sets the qualified record count from which songs are
// scored concurrently. Zero or negative disables parallel scoring.
func WithParallelThreshold(n int) Option {
	return func(s *JISScorer) {
		s.parallelThreshold = n
	}
}

// WithConcurrency caps the number of songs scored at once.
func WithConcurrency(n int) Option {
	return func(s *JISScorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Weights holds the relative weight of each JIS signal.
type Weights struct {
	Duration float64 `json:"duration"`
	Curation float64 `json:"curation"`
	Approval float64 `json:"approval"`
}

// Normalized scales the weights so they sum to 1.
func (w Weights) Normalized() Weights {
	sum := w.Duration + w.Curation + w.Approval
	if sum <= 0 {
		return Weights{Duration: DefaultDurationWeight, Curation: DefaultCurationWeight, Approval: DefaultApprovalWeight}
	}
	return Weights{Duration: w.Duration / sum, Curation: w.Curation / sum, Approval: w.Approval / sum}
}

// Signals are the three normalized sub-scores, each in [0, 100].
type Signals struct {
	Duration float64 `json:"duration"`
	Curation float64 `json:"curation"`
	Approval float64 `json:"approval"`
}

// Scored is a qualified performance with its JIS.
type Scored struct {
	Record  model.PerformanceRecord
	JIS     float64
	Signals Signals
}

// Scorer computes JIS for a qualified record set.
type Scorer interface {
	// Score returns one Scored per input record, in input order.
	Score(ctx context.Context, records []model.PerformanceRecord) ([]Scored, error)
}

// JISScorer implements Scorer with the closed-form weighted JIS formula.
type JISScorer struct {
	weights           Weights
	parallelThreshold int
	concurrency       int
}

// NewJISScorer creates a scorer with the default weights.
func NewJISScorer(opts ...Option) *JISScorer {
	s := &JISScorer{
		weights: Weights{
			Duration: DefaultDurationWeight,
			Curation: DefaultCurationWeight,
			Approval: DefaultApprovalWeight,
		},
		parallelThreshold: defaultParallelThreshold,
		concurrency:       runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the normalized weights in use.
func (s *JISScorer) Weights() Weights {
	return s.weights.Normalized()
}

// Score computes JIS for every record. The context is checked between songs.
func (s *JISScorer) Score(ctx context.Context, records []model.PerformanceRecord) ([]Scored, error) {
	out := make([]Scored, len(records))
	groups := groupBySong(records)
	w := s.weights.Normalized()

	if s.parallelThreshold <= 0 || len(records) < s.parallelThreshold {
		for _, idx := range groups {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("score cancelled: %w", err)
			}
			scoreSong(records, idx, w, out)
		}
		return out, nil
	}

	// Songs are independent; each goroutine writes a disjoint set of indices.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, idx := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scoreSong(records, idx, w, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score cancelled: %w", err)
	}
	return out, nil
}

// groupBySong returns record indices per song in first-seen order.
func groupBySong(records []model.PerformanceRecord) [][]int {
	pos := make(map[string]int)
	var groups [][]int
	for i, r := range records {
		g, ok := pos[r.SongName]
		if !ok {
			g = len(groups)
			pos[r.SongName] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// songBaseline holds the local distribution of one song.
type songBaseline struct {
	durations []int // known durations, sorted
	median    float64
	mad       float64
	likes     []int // sorted
}

func newSongBaseline(records []model.PerformanceRecord, idx []int) songBaseline {
	b := songBaseline{likes: make([]int, 0, len(idx))}
	for _, i := range idx {
		r := records[i]
		if r.HasDuration() {
			b.durations = append(b.durations, r.DurationMs)
		}
		b.likes = append(b.likes, r.Likes)
	}
	sort.Ints(b.durations)
	sort.Ints(b.likes)

	if len(b.durations) >= minDurations {
		b.median = medianInts(b.durations)
		dev := make([]float64, len(b.durations))
		for i, d := range b.durations {
			dev[i] = math.Abs(float64(d) - b.median)
		}
		sort.Float64s(dev)
		b.mad = medianFloats(dev)
	}
	return b
}

func scoreSong(records []model.PerformanceRecord, idx []int, w Weights, out []Scored) {
	base := newSongBaseline(records, idx)
	for _, i := range idx {
		r := records[i]
		sig := Signals{
			Duration: base.durationSignal(r.DurationMs),
			Curation: curationSignal(r.IsJamchart),
			Approval: base.approvalSignal(r.Likes),
		}
		out[i] = Scored{Record: r, JIS: combine(sig, w), Signals: sig}
	}
}

// durationSignal maps the robust z-score of d within the song to [0, 100].
func (b songBaseline) durationSignal(d int) float64 {
	if d <= 0 || len(b.durations) < minDurations {
		return NeutralSignal
	}
	var z float64
	diff := float64(d) - b.median
	switch {
	case b.mad > 0:
		z = diff / b.mad
	case diff > 0:
		z = zClamp
	case diff < 0:
		z = -zClamp
	}
	z = math.Max(-zClamp, math.Min(zClamp, z))
	return (z + zClamp) / (2 * zClamp) * MaxScore
}

// approvalSignal is the mid-rank percentile of likes within the song.
func (b songBaseline) approvalSignal(likes int) float64 {
	n := len(b.likes)
	if n == 0 {
		return NeutralSignal
	}
	less := sort.SearchInts(b.likes, likes)
	lessOrEqual := sort.SearchInts(b.likes, likes+1)
	equal := lessOrEqual - less
	return (float64(less) + midRankHalf*float64(equal)) / float64(n) * MaxScore
}

func curationSignal(jamchart bool) float64 {
	if jamchart {
		return MaxScore
	}
	return 0
}

func combine(sig Signals, w Weights) float64 {
	jis := w.Duration*sig.Duration + w.Curation*sig.Curation + w.Approval*sig.Approval
	return math.Max(0, math.Min(MaxScore, jis))
}

func medianInts(sorted []int) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
}

func medianFloats(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
