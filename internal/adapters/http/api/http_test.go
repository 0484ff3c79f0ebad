package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/quizboard/internal/adapters/http/api"
	"github.com/okian/quizboard/internal/adapters/repository"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	store      *repository.MemoryStore
	result     *leaderboard.Result
	refreshErr error
	refreshes  int
}

func (m *mockDependencies) Latest() *leaderboard.Result { return m.result }

func (m *mockDependencies) Refresh(ctx context.Context) (*leaderboard.Result, error) {
	m.refreshes++
	if m.result == nil {
		return nil, m.refreshErr
	}
	return m.result, m.refreshErr
}

func (m *mockDependencies) QuizIDs(ctx context.Context) ([]string, error) {
	return m.store.QuizIDs(ctx)
}

func (m *mockDependencies) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return m.store.TopN(ctx, n)
}

func (m *mockDependencies) Rank(ctx context.Context, slug string) (repository.Entry, error) {
	return m.store.Rank(ctx, slug)
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func computedDeps() *mockDependencies {
	engine := leaderboard.New(
		leaderboard.WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }),
		leaderboard.WithIDGenerator(func() string { return "run-1" }),
	)
	res := engine.Run(model.Snapshot{
		QuizIDs: []string{"week-1", "week-2"},
		Quizzes: map[string]map[string]model.RawEntry{
			"week-1": {
				"u1": {Name: "Riaan K", Score: model.Score(100)},
				"u2": {Name: "Ann Lee", Score: model.Score(30)},
			},
			"week-2": {
				"u3": {Name: "Riaan Kotze", Score: model.Score(80)},
				"u4": {Name: "Ann Leigh", Score: model.Score(20)},
			},
		},
	})
	store := repository.NewMemoryStore()
	_ = store.Save(context.Background(), repository.NewRun(res.RunID, res.GeneratedAt, res.QuizIDs, res.Merged))
	return &mockDependencies{store: store, result: res}
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, 100)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a server over a computed leaderboard", t, func() {
		mux := newMux(computedDeps())

		Convey("Then health answers ok", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("Then metrics are exposed", func() {
			w := serve(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "quizboard_")
		})

		Convey("Then stats are served", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown paths are not found", func() {
			So(serve(mux, http.MethodGet, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a computed leaderboard", t, func() {
		mux := newMux(computedDeps())

		Convey("When the merged board is requested", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=10")
			var entries []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)

			Convey("Then Riaan's two names are one row", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].Slug, ShouldEqual, "riaan-kotze")
				So(entries[0].Total, ShouldEqual, 180)
				So(entries[0].QuizzesPlayed, ShouldEqual, 2)
				So(entries[0].Members, ShouldResemble, []string{"riaan-k", "riaan-kotze"})
			})

			Convey("Then quizzes a player skipped are explicit nulls", func() {
				So(entries[1].Slug, ShouldEqual, "ann-lee")
				So(entries[1].Quizzes, ShouldContainKey, "week-2")
				So(entries[1].Quizzes["week-2"], ShouldBeNil)
				So(*entries[1].Quizzes["week-1"], ShouldEqual, 30)
				So(w.Body.String(), ShouldContainSubstring, `"week-2":null`)
			})
		})

		Convey("When the limit is omitted", func() {
			w := serve(mux, http.MethodGet, "/leaderboard")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the limit is invalid", func() {
			So(serve(mux, http.MethodGet, "/leaderboard?limit=0").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/leaderboard?limit=abc").Code, ShouldEqual, http.StatusBadRequest)
			w := serve(mux, http.MethodGet, "/leaderboard?limit=101")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When the raw board is requested", func() {
			w := serve(mux, http.MethodGet, "/leaderboard/raw?limit=2")
			var entries []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)

			Convey("Then identities are listed before merging", func() {
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Slug, ShouldEqual, "riaan-k")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].Slug, ShouldEqual, "riaan-kotze")
				So(entries[0].Quizzes, ShouldHaveLength, 2)
				So(entries[0].Quizzes["week-2"], ShouldBeNil)
			})
		})

		Convey("When a non-GET method is used", func() {
			So(serve(mux, http.MethodPost, "/leaderboard").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given no run yet", t, func() {
		mux := newMux(&mockDependencies{store: repository.NewMemoryStore()})

		Convey("Then boards answer 503", func() {
			w := serve(mux, http.MethodGet, "/leaderboard")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decodeError(w)["code"], ShouldEqual, "not_ready")
			So(serve(mux, http.MethodGet, "/leaderboard/raw").Code, ShouldEqual, http.StatusServiceUnavailable)
			So(serve(mux, http.MethodGet, "/duplicates").Code, ShouldEqual, http.StatusServiceUnavailable)
			So(serve(mux, http.MethodGet, "/export/merged.csv").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestRankHandler(t *testing.T) {
	Convey("Given a computed leaderboard", t, func() {
		mux := newMux(computedDeps())

		Convey("Then a known slug is ranked", func() {
			w := serve(mux, http.MethodGet, "/rank/ann-lee")
			var e api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(e.Rank, ShouldEqual, 2)
			So(e.Total, ShouldEqual, 30)
		})

		Convey("Then an unknown slug is not found", func() {
			w := serve(mux, http.MethodGet, "/rank/nobody")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})

		Convey("Then a merged-away slug is not found", func() {
			So(serve(mux, http.MethodGet, "/rank/riaan-k").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then malformed paths are rejected", func() {
			So(serve(mux, http.MethodGet, "/rank/").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/rank/a/b").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestDuplicatesHandler(t *testing.T) {
	Convey("Given a computed leaderboard", t, func() {
		mux := newMux(computedDeps())

		Convey("Then the duplicate report lists the linked pair", func() {
			w := serve(mux, http.MethodGet, "/duplicates")
			var dupes []api.Duplicate
			So(json.Unmarshal(w.Body.Bytes(), &dupes), ShouldBeNil)
			So(dupes, ShouldHaveLength, 1)
			So(dupes[0].Method, ShouldContainSubstring, "last_initial_vs_lastname")
			So(dupes[0].Slug1, ShouldEqual, "riaan-k")
			So(dupes[0].Slug2, ShouldEqual, "riaan-kotze")
			So(dupes[0].SumTotals, ShouldEqual, 180)
			So(dupes[0].OverlapQuizzes, ShouldEqual, 0)
		})

		Convey("Then duplicates can be filtered by method", func() {
			var dupes []api.Duplicate
			w := serve(mux, http.MethodGet, "/duplicates?method=last_initial_vs_lastname")
			So(json.Unmarshal(w.Body.Bytes(), &dupes), ShouldBeNil)
			So(dupes, ShouldHaveLength, 1)

			w = serve(mux, http.MethodGet, "/duplicates?method=slug_similarity")
			So(json.Unmarshal(w.Body.Bytes(), &dupes), ShouldBeNil)
			So(dupes, ShouldBeEmpty)

			w = serve(mux, http.MethodGet, "/duplicates?method=soundex")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "unknown_method")
		})

		Convey("Then the advisory list is served", func() {
			w := serve(mux, http.MethodGet, "/duplicates/advisory")
			So(w.Code, ShouldEqual, http.StatusOK)
			var pairs []api.Advisory
			So(json.Unmarshal(w.Body.Bytes(), &pairs), ShouldBeNil)
			So(pairs, ShouldHaveLength, 2)
			So(pairs[0].Slug2, ShouldEqual, "riaan-kotze")
			So(pairs[1].Slug1, ShouldEqual, "ann-lee")
			So(pairs[1].Slug2, ShouldEqual, "ann-leigh")
			So(pairs[1].Similarity, ShouldAlmostEqual, 1-3.0/9, 1e-9)
		})
	})
}

func TestRefreshHandler(t *testing.T) {
	Convey("Given a service that refreshes", t, func() {
		deps := computedDeps()
		mux := newMux(deps)

		Convey("When POSTing a refresh", func() {
			w := serve(mux, http.MethodPost, "/refresh")

			Convey("Then the run is acknowledged", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.refreshes, ShouldEqual, 1)
				So(w.Body.String(), ShouldContainSubstring, `"run_id":"run-1"`)
			})
		})

		Convey("When the run is partial", func() {
			deps.refreshErr = errors.New("week-3: auth required")
			w := serve(mux, http.MethodPost, "/refresh")

			Convey("Then the warning is passed on", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "auth required")
			})
		})

		Convey("When GET is used", func() {
			So(serve(mux, http.MethodGet, "/refresh").Code, ShouldEqual, http.StatusNotFound)
			So(deps.refreshes, ShouldEqual, 0)
		})
	})

	Convey("Given a refresh that fails outright", t, func() {
		deps := &mockDependencies{store: repository.NewMemoryStore(), refreshErr: errors.New("boom")}
		w := serve(newMux(deps), http.MethodPost, "/refresh")

		So(w.Code, ShouldEqual, http.StatusBadGateway)
		So(decodeError(w)["code"], ShouldEqual, "refresh_failed")
	})
}

func TestExportHandler(t *testing.T) {
	Convey("Given a computed leaderboard", t, func() {
		mux := newMux(computedDeps())

		Convey("Then the merged CSV is downloadable", func() {
			w := serve(mux, http.MethodGet, "/export/merged.csv")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
			So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "merged.csv")
			lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
			So(lines[0], ShouldEqual, "Rank,Name,NameSlug,Total,W1,W2")
			So(lines[1], ShouldEqual, "1,Riaan Kotze,riaan-kotze,180,100,80")
		})

		Convey("Then the duplicates CSV has the report header", func() {
			w := serve(mux, http.MethodGet, "/export/duplicates.csv")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldStartWith, "Method,Score,Name1,")
		})

		Convey("Then the cumulative CSV lists every identity", func() {
			w := serve(mux, http.MethodGet, "/export/cumulative.csv")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.Count(strings.TrimSpace(w.Body.String()), "\n"), ShouldEqual, 4)
		})

		Convey("Then unknown exports are not found", func() {
			So(serve(mux, http.MethodGet, "/export/other.csv").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		cause := errors.New("disk")

		Convey("Then kinds and causes are both matchable", func() {
			err := api.WrapKind("api.op", api.ErrNotReady, cause)
			So(errors.Is(err, api.ErrNotReady), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: leaderboard not computed yet: disk")
		})

		Convey("Then nil stays nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(api.WrapKind("api.op", api.ErrBadRequest, nil), ShouldBeNil)
		})

		Convey("Then a bare kind renders with its op", func() {
			err := api.NewKind("api.op", api.ErrBadRequest)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request")
		})
	})
}

func TestDashboardHandler(t *testing.T) {
	Convey("Given a computed leaderboard", t, func() {
		mux := newMux(computedDeps())

		Convey("When the dashboard is requested", func() {
			w := serve(mux, http.MethodGet, "/dashboard")
			body := w.Body.String()

			Convey("Then merged players are listed best first", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
				So(body, ShouldContainSubstring, "March 1, 2026")
				So(body, ShouldContainSubstring, "Riaan Kotze")
				So(body, ShouldNotContainSubstring, ">Riaan K<")
				So(strings.Index(body, "Riaan Kotze"), ShouldBeLessThan, strings.Index(body, "Ann Lee"))
				So(strings.Index(body, "Ann Lee"), ShouldBeLessThan, strings.Index(body, "Ann Leigh"))
			})
		})

		Convey("When a non-GET method is used", func() {
			So(serve(mux, http.MethodPost, "/dashboard").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a large board with unsafe names and a missing quiz", t, func() {
		res := &leaderboard.Result{
			RunID:          "run-9",
			GeneratedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			QuizIDs:        []string{"week-1", "week-2"},
			MissingQuizzes: []string{"week-2"},
		}
		for i := 1; i <= 35; i++ {
			name := fmt.Sprintf("Player %02d", i)
			if i == 1 {
				name = "<b>Zed</b>"
			}
			score := float64(100 - i)
			res.Merged = append(res.Merged, model.MergedIdentity{
				DisplayName: name,
				Slug:        fmt.Sprintf("p%d", i),
				Quizzes:     map[string]float64{"week-1": score},
				Total:       score,
			})
		}
		res.Merged = append(res.Merged, model.MergedIdentity{Slug: "nameless", Total: 1000, Quizzes: map[string]float64{}})
		mux := newMux(&mockDependencies{store: repository.NewMemoryStore(), result: res})

		w := serve(mux, http.MethodGet, "/dashboard")
		body := w.Body.String()

		Convey("Then only the top 30 named rows are shown", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "Player 30")
			So(body, ShouldNotContainSubstring, "Player 31")
			So(strings.Count(body, "<li"), ShouldEqual, 30)
			So(strings.Count(body, "<ol>"), ShouldEqual, 3)
			So(body, ShouldNotContainSubstring, "1000")
		})

		Convey("Then names are escaped", func() {
			So(body, ShouldContainSubstring, "&lt;b&gt;Zed&lt;/b&gt;")
			So(body, ShouldNotContainSubstring, "<b>Zed")
		})

		Convey("Then the missing quiz is called out", func() {
			So(body, ShouldContainSubstring, "no data for week-2")
		})
	})

	Convey("Given no run yet", t, func() {
		mux := newMux(&mockDependencies{store: repository.NewMemoryStore()})
		So(serve(mux, http.MethodGet, "/dashboard").Code, ShouldEqual, http.StatusServiceUnavailable)
	})
}
