// Package csvio writes the leaderboard exports and reads them back for display.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/model"
)

// DuplicatesHeader is the column set of the duplicate-candidate export.
var DuplicatesHeader = []string{ //nolint:gochecknoglobals // fixed schema
	"Method",
	"Score",
	"Name1",
	"NameSlug1",
	"Total1",
	"QuizzesPlayed1",
	"Name2",
	"NameSlug2",
	"Total2",
	"QuizzesPlayed2",
	"OverlapQuizzes",
	"MergedTotalLowestOverlap",
	"SumTotals",
	"SumMinusMerged",
	"OverlapDetails",
}

// LeaderboardHeader returns the header shared by the cumulative and merged exports.
func LeaderboardHeader(quizIDs []string) []string {
	h := make([]string, 0, 4+len(quizIDs))
	h = append(h, "Rank", "Name", "NameSlug", "Total")
	for _, q := range quizIDs {
		h = append(h, leaderboard.ColumnLabel(q))
	}
	return h
}

// WriteCumulative writes the unmerged ranked identities.
func WriteCumulative(w io.Writer, quizIDs []string, ranked []*model.Identity) error {
	rows := make([][]string, 0, len(ranked))
	for i, id := range ranked {
		rows = append(rows, leaderboardRow(i+1, id.DisplayName, id.Slug, id.Total, id.Quizzes, quizIDs))
	}
	return write(w, LeaderboardHeader(quizIDs), rows)
}

// WriteMerged writes the merged leaderboard. Absent quizzes are empty cells.
func WriteMerged(w io.Writer, quizIDs []string, merged []model.MergedIdentity) error {
	rows := make([][]string, 0, len(merged))
	for i, m := range merged {
		rows = append(rows, leaderboardRow(i+1, m.DisplayName, m.Slug, m.Total, m.Quizzes, quizIDs))
	}
	return write(w, LeaderboardHeader(quizIDs), rows)
}

// WriteDuplicates writes the duplicate-candidate report in the given order.
func WriteDuplicates(w io.Writer, dupes []model.DuplicateCandidate) error {
	rows := make([][]string, 0, len(dupes))
	for _, d := range dupes {
		rows = append(rows, []string{
			d.Method.String(),
			leaderboard.FormatPercent(d.Score),
			d.Name1,
			d.Slug1,
			leaderboard.FormatNumber(d.Total1),
			strconv.Itoa(d.Quizzes1),
			d.Name2,
			d.Slug2,
			leaderboard.FormatNumber(d.Total2),
			strconv.Itoa(d.Quizzes2),
			strconv.Itoa(len(d.Overlaps)),
			leaderboard.FormatNumber(d.MergedTotal),
			leaderboard.FormatNumber(d.SumTotals()),
			leaderboard.FormatNumber(d.SumMinusMerged()),
			d.OverlapDetails,
		})
	}
	return write(w, DuplicatesHeader, rows)
}

func leaderboardRow(rank int, name, slug string, total float64, quizzes map[string]float64, quizIDs []string) []string {
	row := make([]string, 0, 4+len(quizIDs))
	row = append(row, strconv.Itoa(rank), name, slug, leaderboard.FormatNumber(total))
	for _, q := range quizIDs {
		if v, ok := quizzes[q]; ok {
			row = append(row, leaderboard.FormatNumber(v))
		} else {
			row = append(row, "")
		}
	}
	return row
}

func write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
