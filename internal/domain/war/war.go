package war

import (
	"math"
	"sort"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/scoring"
)

// DefaultScale is the number of JIS points above baseline worth one WAR. It
// approximates one standard deviation of JIS over a full catalogue, where the
// binary curation signal dominates the spread.
const DefaultScale = 20.0

// minPopulation is the smallest qualified population with a meaningful baseline.
const minPopulation = 2

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithScale sets the WAR scale factor. Non-positive values are ignored.
func WithScale(scale float64) Option {
	return func(a *Aggregator) {
		if scale > 0 {
			a.scale = scale
		}
	}
}

// Unit holds the derived metrics of one aggregation unit.
type Unit struct {
	Key Key

	TimesPlayed   int
	JamchartCount int
	ShowsAppeared int

	AvgJIS        float64
	PeakJIS       float64
	JISVolatility float64

	CareerWAR   float64
	WARPerPlay  float64
	WARPerShow  float64
	WARByYear   map[int]float64
	PeakWARYear *int
}

// Baseline describes the replacement level of one baseline bucket.
type Baseline struct {
	Bucket       string  `json:"bucket"`
	Mean         float64 `json:"mean"`
	Performances int     `json:"performances"`
	Songs        int     `json:"songs"`
	// Degenerate buckets have no peers to compare against and yield zero WAR.
	Degenerate bool `json:"degenerate"`
}

// Result is the output of one aggregation pass.
type Result struct {
	Units     []Unit
	Baselines []Baseline
	Qualified int
	Scale     float64
}

// Aggregator computes WAR metrics over scored performances.
type Aggregator struct {
	scale float64
}

// NewAggregator creates an aggregator with the default scale.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{scale: DefaultScale}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Scale returns the configured WAR scale.
func (a *Aggregator) Scale() float64 { return a.scale }

// PerformanceWAR is the value of one performance above its baseline.
func PerformanceWAR(jis, baseline, scale float64) float64 {
	return math.Max(0, jis-baseline) / scale
}

type bucketAcc struct {
	sum   float64
	count int
	songs map[string]struct{}
}

type unitAcc struct {
	key       Key
	jis       []float64
	jamcharts int
	shows     map[string]struct{}
	war       float64
	warByYear map[int]float64
}

// Aggregate groups scored performances by the unit key of spec's aggregation
// mode. Baselines are computed over the whole qualified population before any
// WAR value is derived. Units are returned in key order.
func (a *Aggregator) Aggregate(scored []scoring.Scored, spec filter.Spec) Result {
	strategy := StrategyFor(spec.Normalized().Aggregation)

	// Pass 1: replacement baselines.
	buckets := make(map[string]*bucketAcc)
	for _, s := range scored {
		name := strategy.BaselineFor(s.Record)
		b, ok := buckets[name]
		if !ok {
			b = &bucketAcc{songs: make(map[string]struct{})}
			buckets[name] = b
		}
		b.sum += s.JIS
		b.count++
		b.songs[s.Record.SongName] = struct{}{}
	}

	populationTooSmall := len(scored) < minPopulation
	baselines := make(map[string]Baseline, len(buckets))
	for name, b := range buckets {
		baselines[name] = Baseline{
			Bucket:       name,
			Mean:         b.sum / float64(b.count),
			Performances: b.count,
			Songs:        len(b.songs),
			Degenerate:   populationTooSmall || len(b.songs) < 2,
		}
	}

	// Pass 2: units.
	units := make(map[Key]*unitAcc)
	for _, s := range scored {
		k := strategy.KeyFor(s.Record)
		u, ok := units[k]
		if !ok {
			u = &unitAcc{key: k, shows: make(map[string]struct{}), warByYear: make(map[int]float64)}
			units[k] = u
		}
		u.jis = append(u.jis, s.JIS)
		if s.Record.IsJamchart {
			u.jamcharts++
		}
		u.shows[s.Record.ShowKey()] = struct{}{}

		var w float64
		if base := baselines[strategy.BaselineFor(s.Record)]; !base.Degenerate {
			w = PerformanceWAR(s.JIS, base.Mean, a.scale)
		}
		u.war += w
		u.warByYear[s.Record.Year] += w
	}

	res := Result{
		Units:     make([]Unit, 0, len(units)),
		Baselines: make([]Baseline, 0, len(baselines)),
		Qualified: len(scored),
		Scale:     a.scale,
	}
	for _, u := range units {
		res.Units = append(res.Units, u.finish())
	}
	sort.Slice(res.Units, func(i, j int) bool { return res.Units[i].Key.less(res.Units[j].Key) })

	for _, b := range baselines {
		res.Baselines = append(res.Baselines, b)
	}
	sort.Slice(res.Baselines, func(i, j int) bool { return res.Baselines[i].Bucket < res.Baselines[j].Bucket })

	return res
}

func (u *unitAcc) finish() Unit {
	n := len(u.jis)
	out := Unit{
		Key:           u.key,
		TimesPlayed:   n,
		JamchartCount: u.jamcharts,
		ShowsAppeared: len(u.shows),
		CareerWAR:     u.war,
		WARByYear:     u.warByYear,
	}

	var sum float64
	out.PeakJIS = u.jis[0]
	for _, j := range u.jis {
		sum += j
		if j > out.PeakJIS {
			out.PeakJIS = j
		}
	}
	out.AvgJIS = sum / float64(n)
	out.JISVolatility = stddev(u.jis, out.AvgJIS)

	// Units come from non-empty groupings, so both divisors are positive.
	out.WARPerPlay = u.war / float64(n)
	out.WARPerShow = u.war / float64(out.ShowsAppeared)
	out.PeakWARYear = peakYear(u.warByYear)
	return out
}

// stddev is the population standard deviation, 0 below two samples.
func stddev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// peakYear returns the year with the highest WAR, the earliest on ties.
func peakYear(byYear map[int]float64) *int {
	if len(byYear) == 0 {
		return nil
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	best := years[0]
	for _, y := range years[1:] {
		if byYear[y] > byYear[best] {
			best = y
		}
	}
	return &best
}
