package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/leaderboard"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/ingest"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/sampledata"
)

func TestEngine_SQLiteIntegration(t *testing.T) {
	Convey("Given sample data ingested into SQLite", t, func() {
		ctx := context.Background()
		rows, gen, err := sampledata.Generate(ctx,
			sampledata.WithShows(80),
			sampledata.WithSeed(11),
			sampledata.WithYears(1997, 2000),
			sampledata.WithDefectRate(0.02),
		)
		So(err, ShouldBeNil)

		store, err := repository.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "phstats.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		_, err = ingest.Run(ctx, rows, store, ingest.WithBatchSize(250))
		So(err, ShouldBeNil)

		engine := service.New(service.WithSource(store))
		So(engine.Start(ctx), ShouldBeNil)

		Convey("Then defects should be dropped at load", func() {
			st := engine.GetStats()
			So(st.Dropped, ShouldEqual, gen.Defects)
			So(st.Records, ShouldEqual, st.RawRows-gen.Defects)
			So(st.FirstYear, ShouldBeGreaterThanOrEqualTo, 1997)
			So(st.LastYear, ShouldBeLessThanOrEqualTo, 2000)
		})

		Convey("Then the SQLite engine should agree with an in-memory one", func() {
			mem := service.New(service.WithSource(repository.NewMemorySource(rows)))
			So(mem.Start(ctx), ShouldBeNil)

			for _, mode := range []filter.Aggregation{filter.Career, filter.ByYear, filter.ByTour} {
				spec := filter.Default()
				spec.Aggregation = mode
				// Integer sort keys keep the order independent of float summation order.
				q := service.Query{Spec: spec, Sort: leaderboard.FieldTimesPlayed, Limit: 20}

				a, err := engine.Leaderboard(ctx, q)
				So(err, ShouldBeNil)
				b, err := mem.Leaderboard(ctx, q)
				So(err, ShouldBeNil)
				So(cmp.Diff(a.Entries, b.Entries, cmpopts.EquateApprox(0, 1e-9)), ShouldBeEmpty)
			}
		})

		Convey("Then tighter filters should never add entries", func() {
			loose, err := engine.Compute(ctx, filter.Default())
			So(err, ShouldBeNil)

			spec := filter.Default()
			spec.SetSplit = filter.SplitSet2
			spec.MinTimesPlayed = 3
			tight, err := engine.Compute(ctx, spec)
			So(err, ShouldBeNil)

			So(len(tight.Entries), ShouldBeLessThanOrEqualTo, len(loose.Entries))
			So(tight.QualifiedCount, ShouldBeLessThanOrEqualTo, loose.QualifiedCount)
		})
	})
}
