package leaderboard_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/okian/quizboard/internal/domain/aggregate"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func engine() *leaderboard.Engine {
	return leaderboard.New(
		leaderboard.WithClock(func() time.Time { return fixed }),
		leaderboard.WithIDGenerator(func() string { return "run-1" }),
	)
}

func TestRunEndToEnd(t *testing.T) {
	Convey("Given Bob Smith and Bob Smyth in different weeks", t, func() {
		snap := model.Snapshot{
			QuizIDs: []string{"w1", "w2"},
			Quizzes: map[string]map[string]model.RawEntry{
				"w1": {"u1": {Name: "Bob Smith", Score: model.Score(100)}},
				"w2": {"u2": {Name: "Bob Smyth", Score: model.Score(90)}},
			},
		}

		res := engine().Run(snap)

		Convey("Then both raw identities are ranked", func() {
			So(res.Ranked, ShouldHaveLength, 2)
			So(res.Ranked[0].Slug, ShouldEqual, "bob-smith")
			So(res.Ranked[1].Slug, ShouldEqual, "bob-smyth")
		})

		Convey("Then one slug similarity edge links them", func() {
			So(res.Edges, ShouldHaveLength, 1)
			So(res.Edges[0].Method, ShouldEqual, model.MethodSlugSimilarity)
			So(*res.Edges[0].Score, ShouldBeGreaterThanOrEqualTo, 0.85)
			So(res.Clusters, ShouldHaveLength, 1)
		})

		Convey("Then a single merged row sums both weeks", func() {
			So(res.Merged, ShouldHaveLength, 1)
			So(res.Merged[0].Total, ShouldEqual, 190)
			So(res.Merged[0].Quizzes, ShouldResemble, map[string]float64{"w1": 100, "w2": 90})
			So(res.Merged[0].Members, ShouldResemble, []string{"bob-smith", "bob-smyth"})
		})

		Convey("Then the duplicate report has no overlap", func() {
			So(res.Duplicates, ShouldHaveLength, 1)
			d := res.Duplicates[0]
			So(d.MergedTotal, ShouldEqual, 190)
			So(d.Overlaps, ShouldBeEmpty)
			So(d.OverlapDetails, ShouldEqual, "")
			So(leaderboard.FormatPercent(d.Score), ShouldEqual, "89%")
		})

		Convey("Then the run metadata comes from the engine options", func() {
			So(res.RunID, ShouldEqual, "run-1")
			So(res.GeneratedAt, ShouldEqual, fixed)
			So(res.Stats.Identities, ShouldEqual, 2)
			So(res.Stats.Merged, ShouldEqual, 1)
			So(res.Stats.MergedAway, ShouldEqual, 1)
			So(res.Stats.EdgesByMethod, ShouldResemble, map[string]int{"slug_similarity": 1})
		})
	})
}

func TestRunDeterminism(t *testing.T) {
	Convey("Given a snapshot with ties, gaps and a missing quiz", t, func() {
		snap := model.Snapshot{
			QuizIDs: []string{"week-1", "week-2", "week-3"},
			Quizzes: map[string]map[string]model.RawEntry{
				"week-1": {
					"a": {Name: "Riaan K", Score: model.Score(300)},
					"b": {Name: "Sam Lee", Score: model.Score(200)},
					"c": {Name: "Sam Lee!", NameSlug: "sam-lee-x", Score: model.Score(200)},
				},
				"week-2": {
					"d": {Name: "Riaan Koch", Score: model.Score(250)},
					"e": {Name: "", Score: model.Score(10)},
				},
			},
			Missing: []string{"week-3"},
		}

		first := engine().Run(snap)
		second := engine().Run(snap)

		Convey("Then two runs are identical", func() {
			So(cmp.Diff(first, second, cmpopts.IgnoreUnexported(model.Identity{})), ShouldBeEmpty)
		})

		Convey("Then output slugs are unique", func() {
			seen := map[string]bool{}
			for _, m := range first.Merged {
				So(seen[m.Slug], ShouldBeFalse)
				seen[m.Slug] = true
			}
		})

		Convey("Then merged totals equal the sum of merged quiz scores", func() {
			for _, m := range first.Merged {
				sum := 0.0
				for _, v := range m.Quizzes {
					sum += v
				}
				So(m.Total, ShouldEqual, sum)
			}
		})

		Convey("Then the missing quiz is reported", func() {
			So(first.MissingQuizzes, ShouldResemble, []string{"week-3"})
			So(first.Stats.MissingQuizzes, ShouldEqual, 1)
		})

		Convey("Then the nameless entry falls back to its source id", func() {
			So(first.Stats.FallbackKeys, ShouldEqual, 1)
		})

		Convey("Then Riaan K and Riaan Koch merge under the full name", func() {
			var found bool
			for _, m := range first.Merged {
				if m.DisplayName == "Riaan Koch" {
					found = true
					So(m.Slug, ShouldEqual, "riaan-koch")
					So(m.Total, ShouldEqual, 550)
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}

func TestDuplicates(t *testing.T) {
	Convey("Given edges of both kinds", t, func() {
		ids := []*model.Identity{}
		add := func(slug, name string, scores map[string]float64) {
			id := model.NewIdentity(slug, name)
			for q, s := range scores {
				id.Apply(model.RawEntry{QuizID: q, SourceID: slug, Name: name, Score: model.Score(s)})
			}
			ids = append(ids, id)
		}
		add("aa-bbbbbb", "Aa Bbbbbb", map[string]float64{"week-9-dns": 300})
		add("aa-bbbbbc", "Aa Bbbbbc", map[string]float64{"week-9-dns": 250})
		add("cc-dddddd", "Cc Dddddd", map[string]float64{"week-1": 5})
		add("cc-dddddx", "Cc Dddddx", map[string]float64{"week-1": 5})
		add("riaan-k", "Riaan K", map[string]float64{"week-1": 1})
		add("riaan-koch", "Riaan Koch", map[string]float64{"week-2": 1})

		r := &aggregate.Roster{Identities: map[string]*model.Identity{}, QuizIDs: []string{"week-1", "week-2", "week-9-dns"}}
		for _, id := range ids {
			r.Identities[id.Slug] = id
			r.Slugs = append(r.Slugs, id.Slug)
		}

		high, low := 0.95, 0.9
		edges := []model.SimilarityEdge{
			model.NewEdge(model.MethodSlugSimilarity, &low, "cc-dddddd", "cc-dddddx"),
			model.NewEdge(model.MethodSlugSimilarity, &high, "aa-bbbbbb", "aa-bbbbbc"),
			model.NewEdge(model.MethodLastInitial, nil, "riaan-k", "riaan-koch"),
		}

		rows := leaderboard.Duplicates(edges, r)

		Convey("Then name-rule rows come first, then by score", func() {
			So(rows[0].Slug1, ShouldEqual, "riaan-k")
			So(rows[1].Slug1, ShouldEqual, "aa-bbbbbb")
			So(rows[2].Slug1, ShouldEqual, "cc-dddddd")
		})

		Convey("Then overlaps are rendered with week labels", func() {
			So(rows[1].OverlapDetails, ShouldEqual, "W9:300/250->250")
			So(rows[1].MergedTotal, ShouldEqual, 250)
			So(rows[1].SumTotals(), ShouldEqual, 550)
			So(rows[1].SumMinusMerged(), ShouldEqual, 300)
		})

		Convey("When scores tie, the larger combined total wins", func() {
			same := 0.9
			tied := []model.SimilarityEdge{
				model.NewEdge(model.MethodSlugSimilarity, &same, "cc-dddddd", "cc-dddddx"),
				model.NewEdge(model.MethodSlugSimilarity, &same, "aa-bbbbbb", "aa-bbbbbc"),
			}
			rows := leaderboard.Duplicates(tied, r)
			So(rows[0].Slug1, ShouldEqual, "aa-bbbbbb")
		})

		Convey("When an edge names an unknown slug", func() {
			rows := leaderboard.Duplicates([]model.SimilarityEdge{
				model.NewEdge(model.MethodLastInitial, nil, "ghost", "riaan-k"),
			}, r)
			So(rows[0].Name1, ShouldEqual, "ghost")
			So(rows[0].MergedTotal, ShouldEqual, 1)
		})
	})
}

func TestLabels(t *testing.T) {
	Convey("Given quiz ids", t, func() {
		So(leaderboard.WeekLabel("week-12-compliance-dates"), ShouldEqual, "12")
		So(leaderboard.WeekLabel("bonus"), ShouldEqual, "?")
		So(leaderboard.ColumnLabel("week-3-protocols"), ShouldEqual, "W3-protocols")
		So(leaderboard.ColumnLabel("bonus"), ShouldEqual, "bonus")
		So(leaderboard.FormatNumber(100), ShouldEqual, "100")
		So(leaderboard.FormatNumber(92.5), ShouldEqual, "92.5")
		So(leaderboard.FormatPercent(nil), ShouldEqual, "")
	})
}
