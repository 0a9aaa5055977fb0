package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/http/api"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func ms(n int) *int { return &n }

func scenario() []model.RawRecord {
	base := model.RawRecord{
		ShowDate:  "2019-07-14",
		TourID:    "summer-2019",
		TourLabel: "Summer 2019",
		SetLabel:  "Set2",
		Venue:     "Alpine Valley",
		State:     "WI",
		Country:   model.CountryUSA,
	}
	tw1 := base
	tw1.SongName, tw1.Position, tw1.DurationMs, tw1.Likes, tw1.IsJamchart = "Tweezer", 1, ms(1_200_000), 50, true
	tw2 := base
	tw2.SongName, tw2.ShowDate, tw2.Position, tw2.DurationMs, tw2.Likes = "Tweezer", "2019-07-16", 1, ms(600_000), 10
	fh := base
	fh.SongName, fh.SetLabel, fh.Position, fh.DurationMs, fh.Likes = "Fluffhead", "Set1", 3, ms(800_000), 5
	return []model.RawRecord{tw1, tw2, fh}
}

func newEngine(ctx context.Context, rows []model.RawRecord) *service.Engine {
	engine := service.New(service.WithSource(repository.NewMemorySource(rows)))
	if err := engine.Start(ctx); err != nil {
		panic(err)
	}
	return engine
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeResult(rr *httptest.ResponseRecorder) service.Result {
	var res service.Result
	So(json.Unmarshal(rr.Body.Bytes(), &res), ShouldBeNil)
	return res
}

func decodeError(rr *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(rr.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given a server over the Tweezer and Fluffhead scenario", t, func() {
		ctx := context.Background()
		h := api.NewServer(newEngine(ctx, scenario()), api.WithMaxLimit(10)).Handler(ctx)

		Convey("When requesting the default leaderboard", func() {
			rr := get(h, "/leaderboard")

			Convey("Then both songs should be ranked", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(rr.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				res := decodeResult(rr)
				So(res.Entries, ShouldHaveLength, 2)
				So(res.Entries[0].Rank, ShouldEqual, 1)
				So(res.Entries[1].Rank, ShouldEqual, 2)
				So(res.QualifiedCount, ShouldEqual, 3)
			})
		})

		Convey("When requiring two plays", func() {
			res := decodeResult(get(h, "/leaderboard?min_times_played=2"))

			Convey("Then Fluffhead should be excluded", func() {
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].SongName, ShouldEqual, "Tweezer")
				So(res.Entries[0].Counting.TimesPlayed, ShouldEqual, 2)
				So(res.Entries[0].Counting.JamchartCount, ShouldEqual, 1)
				So(res.Entries[0].Rates.JamRate, ShouldEqual, 0.5)
			})
		})

		Convey("When no song qualifies", func() {
			rr := get(h, "/leaderboard?min_jamchart_count=2")

			Convey("Then an empty leaderboard should be returned", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(decodeResult(rr).Entries, ShouldBeEmpty)
			})
		})

		Convey("When sorting by times played ascending with a limit", func() {
			res := decodeResult(get(h, "/leaderboard?sort=times_played&order=asc&limit=1"))

			Convey("Then only the least played song should come back", func() {
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].SongName, ShouldEqual, "Fluffhead")
			})
		})

		Convey("When the limit exceeds the maximum", func() {
			rr := get(h, "/leaderboard?limit=11")

			Convey("Then the request should be rejected", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(rr)["code"], ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When sending invalid parameters", func() {
			cases := []string{
				"/leaderboard?limit=0",
				"/leaderboard?limit=abc",
				"/leaderboard?min_times_played=-1",
				"/leaderboard?set_split=set9",
				"/leaderboard?country=mars",
				"/leaderboard?run_position=n9",
				"/leaderboard?aggregation=decade",
				"/leaderboard?sort=vibes",
				"/leaderboard?year_from=2020&year_to=2019",
			}
			for _, target := range cases {
				rr := get(h, target)
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(rr)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When aggregating by year", func() {
			res := decodeResult(get(h, "/leaderboard?aggregation=by_year"))

			Convey("Then entries should carry the year in their key", func() {
				So(res.Entries, ShouldHaveLength, 2)
				for _, e := range res.Entries {
					So(e.Key.Year, ShouldEqual, 2019)
				}
			})
		})
	})
}

func TestSongEndpoint(t *testing.T) {
	Convey("Given a loaded server", t, func() {
		ctx := context.Background()
		h := api.NewServer(newEngine(ctx, scenario())).Handler(ctx)

		Convey("When requesting a known song", func() {
			rr := get(h, "/songs/Tweezer")

			Convey("Then its entry should be returned", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				res := decodeResult(rr)
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].SongName, ShouldEqual, "Tweezer")
			})
		})

		Convey("When requesting an unknown song", func() {
			rr := get(h, "/songs/Harpua")

			Convey("Then a not found error should be returned", func() {
				So(rr.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(rr)["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the song is filtered out", func() {
			rr := get(h, "/songs/Fluffhead?min_times_played=2")

			Convey("Then it should be reported as not found", func() {
				So(rr.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

type failingSource struct{}

func (failingSource) Load(context.Context) ([]model.RawRecord, error) {
	return nil, errors.New("database unavailable")
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given an engine that has not loaded yet", t, func() {
		ctx := context.Background()
		engine := service.New(service.WithSource(failingSource{}))
		h := api.NewServer(engine).Handler(ctx)

		Convey("Then health should report loading", func() {
			rr := get(h, "/healthz")
			So(rr.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decodeError(rr)["status"], ShouldEqual, "loading")
		})

		Convey("Then leaderboard queries should be unavailable", func() {
			rr := get(h, "/leaderboard")
			So(rr.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decodeError(rr)["code"], ShouldEqual, "not_loaded")
		})

		Convey("Then a reload should surface the source failure", func() {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reload", nil))
			So(rr.Code, ShouldEqual, http.StatusBadGateway)
			So(decodeError(rr)["code"], ShouldEqual, "reload_failed")
		})
	})

	Convey("Given a loaded server", t, func() {
		ctx := context.Background()
		engine := newEngine(ctx, scenario())
		h := api.NewServer(engine).Handler(ctx)

		Convey("Then health should be ok with the snapshot version", func() {
			rr := get(h, "/healthz")
			So(rr.Code, ShouldEqual, http.StatusOK)
			body := decodeError(rr)
			So(body["status"], ShouldEqual, "ok")
			So(body["version"], ShouldEqual, engine.Snapshot().Version)
		})

		Convey("Then stats should describe the corpus", func() {
			rr := get(h, "/stats")
			So(rr.Code, ShouldEqual, http.StatusOK)
			var st service.Stats
			So(json.Unmarshal(rr.Body.Bytes(), &st), ShouldBeNil)
			So(st.Loaded, ShouldBeTrue)
			So(st.Records, ShouldEqual, 3)
			So(st.Songs, ShouldEqual, 2)
		})

		Convey("Then reload should publish a new version", func() {
			before := engine.Snapshot().Version
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reload", nil))
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(engine.Snapshot().Version, ShouldNotEqual, before)
		})

		Convey("Then metrics should be exposed in Prometheus format", func() {
			_ = get(h, "/leaderboard")
			rr := get(h, "/metrics")
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, "phstats_")
		})

		Convey("Then unknown methods should be rejected by the router", func() {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/leaderboard", strings.NewReader("")))
			So(rr.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSpecDefaults(t *testing.T) {
	Convey("Given a request with no parameters", t, func() {
		ctx := context.Background()
		engine := newEngine(ctx, scenario())
		h := api.NewServer(engine).Handler(ctx)

		Convey("Then the response should match a default engine query", func() {
			res := decodeResult(get(h, "/leaderboard"))
			direct, err := engine.Leaderboard(ctx, service.Query{Spec: filter.Default()})
			So(err, ShouldBeNil)
			So(len(res.Entries), ShouldEqual, len(direct.Entries))
			for i := range direct.Entries {
				So(res.Entries[i].SongName, ShouldEqual, direct.Entries[i].SongName)
				So(res.Entries[i].WAR.Career, ShouldAlmostEqual, direct.Entries[i].WAR.Career, 1e-9)
			}
		})
	})
}
