package report_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/okian/quizboard/internal/adapters/source"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/internal/report"
	. "github.com/smartystreets/goconvey/convey"
)

func snapshot() model.Snapshot {
	return model.Snapshot{
		QuizIDs: []string{"week-1-intro", "week-2-dns"},
		Quizzes: map[string]map[string]model.RawEntry{
			"week-1-intro": {
				"u1": {SourceID: "u1", Name: "Bob Smith", Score: model.Score(100)},
				"u2": {SourceID: "u2", Name: "Ann Lee", Score: model.Score(40)},
			},
			"week-2-dns": {
				"u3": {SourceID: "u3", Name: "Bob Smith", Score: model.Score(90)},
				"u4": {SourceID: "u4", Name: "Ann Leigh", Score: model.Score(35)},
			},
		},
	}
}

func TestRender(t *testing.T) {
	Convey("Given a computed result", t, func() {
		res := leaderboard.New().Run(snapshot())

		Convey("When rendered with the CSV section", func() {
			var buf bytes.Buffer
			So(report.New().Render(&buf, res), ShouldBeNil)
			out := buf.String()

			Convey("Then the totals are reported", func() {
				So(out, ShouldContainSubstring, "CUMULATIVE LEADERBOARD REPORT")
				So(out, ShouldContainSubstring, "Total unique players (by nameSlug): 3")
				So(out, ShouldContainSubstring, "Total quizzes: 2")
			})

			Convey("Then the table pads each column", func() {
				So(out, ShouldContainSubstring,
					"│   1 │ Bob Smith                  │     190 │ 2/2 quizzes                    │")
			})

			Convey("Then each player has a week breakdown", func() {
				So(out, ShouldContainSubstring, "1. Bob Smith (bob-smith)")
				So(out, ShouldContainSubstring, "   Total: 190 points across 2 quizzes")
				So(out, ShouldContainSubstring, "   W1:100 W2:90")
				So(out, ShouldContainSubstring, "   W1:40 W2:-")
				So(out, ShouldContainSubstring, "Multiple UIDs detected (2)")
			})

			Convey("Then similar names are listed", func() {
				So(out, ShouldContainSubstring, `"Ann Lee" ↔ "Ann Leigh" (67% similar)`)
				So(out, ShouldContainSubstring, "slugs: ann-lee / ann-leigh")
			})

			Convey("Then the CSV block closes the report", func() {
				So(out, ShouldContainSubstring, "Rank,Name,NameSlug,Total,W1-intro,W2-dns\n1,Bob Smith,bob-smith,190,100,90\n")
			})
		})

		Convey("When rendered without the CSV section", func() {
			var buf bytes.Buffer
			So(report.New(report.WithCSVSection(false)).Render(&buf, res), ShouldBeNil)
			So(buf.String(), ShouldNotContainSubstring, "CSV FORMAT")
		})
	})

	Convey("Given a very long display name", t, func() {
		snap := model.Snapshot{
			QuizIDs: []string{"week-1"},
			Quizzes: map[string]map[string]model.RawEntry{
				"week-1": {"u1": {Name: "Maximiliano Alexander Fitzgerald", Score: model.Score(5)}},
			},
		}
		var buf bytes.Buffer
		So(report.New().Render(&buf, leaderboard.New().Run(snap)), ShouldBeNil)

		So(buf.String(), ShouldContainSubstring, "│ Maximiliano Alexander Fitz │")
	})
}

func TestBreakdown(t *testing.T) {
	Convey("Given quiz ids without a week number", t, func() {
		id := model.NewIdentity("ann", "Ann")
		id.Apply(model.RawEntry{QuizID: "bonus", Score: model.Score(7.5)})

		So(report.Breakdown(id, []string{"bonus", "week-3"}), ShouldEqual, "W?:7.5 W3:-")
	})
}

func TestFetchSummary(t *testing.T) {
	Convey("Given a partial fetch", t, func() {
		snap := snapshot()
		snap.QuizIDs = append(snap.QuizIDs, "week-3", "week-4", "week-5")
		snap.Missing = []string{"week-3", "week-4", "week-5"}
		fetchErr := errors.Join(
			&source.QuizError{QuizID: "week-3", Err: fmt.Errorf("%w: HTTP 401", source.ErrAuthRequired)},
			&source.QuizError{QuizID: "week-4", Err: fmt.Errorf("%w: timeout", source.ErrFetch)},
		)

		var buf bytes.Buffer
		So(report.FetchSummary(&buf, snap, fetchErr), ShouldBeNil)
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

		Convey("Then every quiz has a status line", func() {
			So(lines, ShouldContain, "  week-1-intro... ✓ (2 entries)")
			So(lines, ShouldContain, "  week-3... ❌ (auth required)")
			So(lines, ShouldContain, "  week-4... ❌ (fetch failed: timeout)")
			So(lines, ShouldContain, "  week-5... ❌ (missing)")
		})

		Convey("Then auth guidance is warranted", func() {
			So(report.AuthRequired(fetchErr), ShouldBeTrue)
			So(report.AuthRequired(nil), ShouldBeFalse)
		})
	})
}
