package model_test

import (
	"math"
	"testing"

	"github.com/okian/quizboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestIdentityApply(t *testing.T) {
	convey.Convey("Given an empty identity", t, func() {
		id := model.NewIdentity("bob-smith", "Bob")

		convey.Convey("When submissions are applied", func() {
			id.Apply(model.RawEntry{QuizID: "week-1", SourceID: "u1", Name: "Bob Smith", Score: model.Score(10)})
			id.Apply(model.RawEntry{QuizID: "week-1", SourceID: "u2", Name: "Bob", Score: model.Score(7)})
			id.Apply(model.RawEntry{QuizID: "week-2", SourceID: "u1", Name: "Bob Smith", Score: nil})

			convey.Convey("Then the last score wins per quiz and the total keeps every score", func() {
				convey.So(id.Quizzes, convey.ShouldResemble, map[string]float64{"week-1": 7})
				convey.So(id.Total, convey.ShouldEqual, 17)
				convey.So(id.QuizCount(), convey.ShouldEqual, 1)
			})

			convey.Convey("Then the longest name is kept", func() {
				convey.So(id.DisplayName, convey.ShouldEqual, "Bob Smith")
			})

			convey.Convey("Then source ids are recorded once in arrival order", func() {
				convey.So(id.SourceIDs, convey.ShouldResemble, []string{"u1", "u2"})
			})

			convey.Convey("Then a quiz without a score is absent", func() {
				_, ok := id.QuizScore("week-2")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the score is not finite", func() {
			id.Apply(model.RawEntry{QuizID: "week-1", Score: model.Score(math.NaN())})
			convey.So(id.QuizCount(), convey.ShouldEqual, 0)
			convey.So(id.Total, convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given an identity without a name", t, func() {
		id := model.NewIdentity("u9", "")
		convey.So(id.Label(), convey.ShouldEqual, "u9")
	})
}

func TestMethod(t *testing.T) {
	convey.Convey("Given combined methods", t, func() {
		both := model.MethodSlugSimilarity | model.MethodLastInitial

		convey.So(both.String(), convey.ShouldEqual, "slug_similarity+last_initial_vs_lastname")
		convey.So(model.ParseMethod(both.String()), convey.ShouldEqual, both)
		convey.So(model.ParseMethod("bogus"), convey.ShouldEqual, model.Method(0))
		convey.So(both.Has(model.MethodLastInitial), convey.ShouldBeTrue)
		convey.So(model.MethodSlugSimilarity.Has(model.MethodLastInitial), convey.ShouldBeFalse)
	})

	convey.Convey("Given an edge built in reverse order", t, func() {
		e := model.NewEdge(model.MethodLastInitial, nil, "zed", "amy")
		convey.So(e.SlugA, convey.ShouldEqual, "amy")
		convey.So(e.Key(), convey.ShouldResemble, model.PairKey{A: "amy", B: "zed"})
	})
}

func TestSnapshot(t *testing.T) {
	convey.Convey("Given a snapshot with an unlisted quiz", t, func() {
		snap := model.Snapshot{
			QuizIDs: []string{"week-2", "week-1", "week-2"},
			Quizzes: map[string]map[string]model.RawEntry{
				"week-1": {"b": {Name: "B"}, "a": {Name: "A"}},
				"bonus":  {"c": {Name: "C"}},
			},
			Missing: []string{"week-2"},
		}

		convey.So(snap.QuizOrder(), convey.ShouldResemble, []string{"week-2", "week-1", "bonus"})
		convey.So(snap.EntryCount(), convey.ShouldEqual, 3)
		convey.So(snap.Complete(), convey.ShouldBeFalse)
		convey.So(snap.Acquired(), convey.ShouldBeTrue)
		convey.So(model.Snapshot{QuizIDs: []string{"week-1"}, Missing: []string{"week-1"}}.Acquired(), convey.ShouldBeFalse)

		entries := snap.Entries("week-1")
		convey.So(entries, convey.ShouldHaveLength, 2)
		convey.So(entries[0].SourceID, convey.ShouldEqual, "a")
		convey.So(entries[0].QuizID, convey.ShouldEqual, "week-1")
	})
}
