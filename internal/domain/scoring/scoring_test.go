package scoring_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	scoring "github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-9

func perf(song string, duration, likes int, jamchart bool) model.PerformanceRecord {
	d := time.Date(2019, time.July, 14, 0, 0, 0, 0, time.UTC)
	return model.PerformanceRecord{
		SongName:   song,
		ShowDate:   d,
		Year:       d.Year(),
		Set:        model.Set2,
		Position:   1,
		Country:    model.CountryUSA,
		DurationMs: duration,
		Likes:      likes,
		IsJamchart: jamchart,
	}
}

func scenario() []model.PerformanceRecord {
	return []model.PerformanceRecord{
		perf("Tweezer", 1_200_000, 50, true),
		perf("Tweezer", 600_000, 10, false),
		perf("Fluffhead", 800_000, 5, false),
	}
}

func TestJISScorer_Score(t *testing.T) {
	Convey("Given a JIS scorer with default weights", t, func() {
		scorer := scoring.NewJISScorer()
		ctx := context.Background()

		Convey("When scoring the Tweezer and Fluffhead scenario", func() {
			scored, err := scorer.Score(ctx, scenario())
			So(err, ShouldBeNil)
			So(scored, ShouldHaveLength, 3)

			Convey("Then results should keep input order", func() {
				So(scored[0].Record.SongName, ShouldEqual, "Tweezer")
				So(scored[2].Record.SongName, ShouldEqual, "Fluffhead")
			})

			Convey("And the long jamchart Tweezer should outscore the short one", func() {
				So(scored[0].JIS, ShouldBeGreaterThan, scored[1].JIS)
			})

			Convey("And duration should be scored against the song's own median", func() {
				// median 900000, MAD 300000 -> z = +1 and -1
				So(scored[0].Signals.Duration, ShouldAlmostEqual, 400.0/6, tolerance)
				So(scored[1].Signals.Duration, ShouldAlmostEqual, 200.0/6, tolerance)
			})

			Convey("And approval should be a mid-rank percentile within the song", func() {
				So(scored[0].Signals.Approval, ShouldAlmostEqual, 75.0, tolerance)
				So(scored[1].Signals.Approval, ShouldAlmostEqual, 25.0, tolerance)
			})

			Convey("And curation should be binary", func() {
				So(scored[0].Signals.Curation, ShouldEqual, 100.0)
				So(scored[1].Signals.Curation, ShouldEqual, 0.0)
			})

			Convey("And the combined scores should follow the weighted formula", func() {
				So(scored[0].JIS, ShouldAlmostEqual, 0.25*400.0/6+55+0.2*75, tolerance)
				So(scored[1].JIS, ShouldAlmostEqual, 0.25*200.0/6+0.2*25, tolerance)
			})

			Convey("And a song with a single known duration should get a neutral duration signal", func() {
				So(scored[2].Signals.Duration, ShouldEqual, scoring.NeutralSignal)
				So(scored[2].JIS, ShouldAlmostEqual, 0.25*50+0.2*50, tolerance)
			})
		})

		Convey("When a performance has an unknown duration", func() {
			recs := []model.PerformanceRecord{
				perf("Ghost", 900_000, 1, false),
				perf("Ghost", 1_500_000, 2, false),
				perf("Ghost", 0, 3, false),
			}
			scored, err := scorer.Score(ctx, recs)
			So(err, ShouldBeNil)

			Convey("Then its duration signal should be neutral", func() {
				So(scored[2].Signals.Duration, ShouldEqual, scoring.NeutralSignal)
			})
		})

		Convey("When every known duration of a song is identical", func() {
			recs := []model.PerformanceRecord{
				perf("Lawn Boy", 300_000, 1, false),
				perf("Lawn Boy", 300_000, 1, false),
				perf("Lawn Boy", 600_000, 1, false),
			}
			scored, err := scorer.Score(ctx, recs)
			So(err, ShouldBeNil)

			Convey("Then a zero MAD should pin outliers to the clamp", func() {
				So(scored[0].Signals.Duration, ShouldEqual, 50.0)
				So(scored[2].Signals.Duration, ShouldEqual, 100.0)
			})
		})

		Convey("When a duration is far outside the song's spread", func() {
			recs := []model.PerformanceRecord{
				perf("Bathtub Gin", 500_000, 0, false),
				perf("Bathtub Gin", 520_000, 0, false),
				perf("Bathtub Gin", 540_000, 0, false),
				perf("Bathtub Gin", 3_000_000, 0, false),
			}
			scored, err := scorer.Score(ctx, recs)
			So(err, ShouldBeNil)

			Convey("Then the signal should clamp at 100", func() {
				So(scored[3].Signals.Duration, ShouldEqual, 100.0)
			})
		})
	})
}

func TestJISScorer_Bounds(t *testing.T) {
	Convey("Given a varied qualified population", t, func() {
		var recs []model.PerformanceRecord
		for i := 0; i < 200; i++ {
			recs = append(recs, perf(fmt.Sprintf("song-%d", i%7), (i*37_000)%2_000_000, (i*13)%97, i%5 == 0))
		}

		Convey("When scoring with default weights", func() {
			scored, err := scoring.NewJISScorer().Score(context.Background(), recs)
			So(err, ShouldBeNil)

			Convey("Then every JIS should be within [0, 100]", func() {
				for _, s := range scored {
					So(s.JIS, ShouldBeBetweenOrEqual, 0.0, 100.0)
				}
			})
		})

		Convey("When scoring with un-normalized custom weights", func() {
			scorer := scoring.NewJISScorer(scoring.WithWeights(2, 2, 6))
			scored, err := scorer.Score(context.Background(), recs)
			So(err, ShouldBeNil)

			Convey("Then weights should be normalized and bounds preserved", func() {
				w := scorer.Weights()
				So(w.Duration+w.Curation+w.Approval, ShouldAlmostEqual, 1.0, tolerance)
				for _, s := range scored {
					So(s.JIS, ShouldBeBetweenOrEqual, 0.0, 100.0)
				}
			})
		})

		Convey("When scoring in parallel", func() {
			serial, err := scoring.NewJISScorer(scoring.WithParallelThreshold(0)).Score(context.Background(), recs)
			So(err, ShouldBeNil)
			parallel, err := scoring.NewJISScorer(scoring.WithParallelThreshold(1), scoring.WithConcurrency(4)).Score(context.Background(), recs)
			So(err, ShouldBeNil)

			Convey("Then the output should equal the serial output", func() {
				So(parallel, ShouldResemble, serial)
			})
		})
	})
}

func TestJISScorer_Options(t *testing.T) {
	Convey("Given invalid weight options", t, func() {
		Convey("When a weight is negative", func() {
			s := scoring.NewJISScorer(scoring.WithWeights(-1, 1, 1))

			Convey("Then the defaults should be kept", func() {
				So(s.Weights().Curation, ShouldAlmostEqual, scoring.DefaultCurationWeight, tolerance)
			})
		})

		Convey("When all weights are zero", func() {
			s := scoring.NewJISScorer(scoring.WithWeights(0, 0, 0))

			Convey("Then the defaults should be kept", func() {
				So(s.Weights().Duration, ShouldAlmostEqual, scoring.DefaultDurationWeight, tolerance)
			})
		})
	})
}

func TestJISScorer_Cancelled(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When scoring serially", func() {
			scored, err := scoring.NewJISScorer().Score(ctx, scenario())

			Convey("Then it should return the context error", func() {
				So(err, ShouldNotBeNil)
				So(scored, ShouldBeNil)
			})
		})
	})
}
