package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
)

func intPtr(v int) *int { return &v }

func sampleRows() []model.RawRecord {
	return []model.RawRecord{
		{
			SongName: "Tweezer", ShowDate: "1997-11-17", TourID: "fall97", TourLabel: "Fall Tour 1997",
			SetLabel: "Set2", Position: 1, RunPosition: "none", Venue: "McNichols Arena", State: "CO",
			Country: "USA", DurationMs: intPtr(1_800_000), Likes: 90, IsJamchart: true, JamNotes: "type II",
		},
		{
			SongName: "Fluffhead", ShowDate: "1997-11-17", TourID: "fall97", TourLabel: "Fall Tour 1997",
			SetLabel: "Set1", Position: 1, IsOpener: true, RunPosition: "none", Venue: "McNichols Arena",
			State: "CO", Country: "USA", DurationMs: nil, Likes: 5,
		},
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "phstats.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given an empty SQLite store", t, func() {
		ctx := context.Background()
		store := newTestStore(t)

		Convey("When nothing has been inserted", func() {
			rows, err := store.Load(ctx)

			Convey("Then Load returns no rows", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("When rows are inserted", func() {
			n, err := store.Insert(ctx, sampleRows())
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			rows, err := store.Load(ctx)
			So(err, ShouldBeNil)

			Convey("Then they round-trip in date, set and position order", func() {
				So(rows, ShouldHaveLength, 2)
				So(rows[0].SongName, ShouldEqual, "Fluffhead")
				So(rows[0].IsOpener, ShouldBeTrue)
				So(rows[0].DurationMs, ShouldBeNil)
				So(rows[1].SongName, ShouldEqual, "Tweezer")
				So(*rows[1].DurationMs, ShouldEqual, 1_800_000)
				So(rows[1].IsJamchart, ShouldBeTrue)
				So(rows[1].JamNotes, ShouldEqual, "type II")
			})

			Convey("Then re-inserting the same slot updates it in place", func() {
				again := sampleRows()[:1]
				again[0].Likes = 120
				_, err := store.Insert(ctx, again)
				So(err, ShouldBeNil)

				count, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 2)

				rows, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(rows[1].Likes, ShouldEqual, 120)
			})
		})

		Convey("When inserting an empty batch", func() {
			n, err := store.Insert(ctx, nil)

			Convey("Then nothing happens", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := store.Load(cctx)

			Convey("Then Load reports a load error", func() {
				So(errors.Is(err, ErrLoad), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStoreOpen(t *testing.T) {
	Convey("Given an unreachable database path", t, func() {
		_, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"))

		Convey("Then opening fails with ErrOpen", func() {
			So(errors.Is(err, ErrOpen), ShouldBeTrue)
		})
	})

	Convey("Given options", t, func() {
		s := &SQLiteStore{}
		WithBusyTimeout(0)(s)
		WithMaxOpenConns(-1)(s)
		So(s.busyTimeout, ShouldEqual, 0)
		So(s.maxOpenConns, ShouldEqual, 0)

		WithMaxOpenConns(4)(s)
		So(s.maxOpenConns, ShouldEqual, 4)
	})
}

func TestMemorySource(t *testing.T) {
	Convey("Given a memory source", t, func() {
		ctx := context.Background()
		src := NewMemorySource(sampleRows())

		Convey("Then Load returns a copy", func() {
			rows, err := src.Load(ctx)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)

			rows[0].SongName = "mutated"
			again, _ := src.Load(ctx)
			So(again[0].SongName, ShouldEqual, "Tweezer")
		})

		Convey("Then Insert appends and Set replaces", func() {
			n, err := src.Insert(ctx, sampleRows()[:1])
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			rows, _ := src.Load(ctx)
			So(rows, ShouldHaveLength, 3)

			src.Set(nil)
			rows, _ = src.Load(ctx)
			So(rows, ShouldBeEmpty)
		})

		Convey("Then a cancelled context is honored", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := src.Load(cctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
