package api

import (
	"github.com/okian/quizboard/internal/adapters/repository"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/model"
)

// Entry is one leaderboard row as served over HTTP.
type Entry struct {
	Rank          int                 `json:"rank"`
	Slug          string              `json:"slug"`
	Name          string              `json:"name"`
	Total         float64             `json:"total"`
	QuizzesPlayed int                 `json:"quizzes_played"`
	Quizzes       map[string]*float64 `json:"quizzes"` // every quiz of the run; null when not played
	Members       []string            `json:"members,omitempty"`
}

func fromStored(e repository.Entry, quizIDs []string) Entry {
	return Entry{
		Rank:          e.Rank,
		Slug:          e.Slug,
		Name:          e.DisplayName,
		Total:         e.Total,
		QuizzesPlayed: e.QuizCount(),
		Quizzes:       quizScores(quizIDs, e.Quizzes),
		Members:       e.Members,
	}
}

func fromIdentity(rank int, id *model.Identity, quizIDs []string) Entry {
	return Entry{
		Rank:          rank,
		Slug:          id.Slug,
		Name:          id.DisplayName,
		Total:         id.Total,
		QuizzesPlayed: id.QuizCount(),
		Quizzes:       quizScores(quizIDs, id.Quizzes),
	}
}

func quizScores(quizIDs []string, scores map[string]float64) map[string]*float64 {
	out := make(map[string]*float64, len(quizIDs)+len(scores))
	for _, q := range quizIDs {
		out[q] = nil
	}
	for q, v := range scores {
		out[q] = &v
	}
	return out
}

// Duplicate is one potential duplicate pair.
type Duplicate struct {
	Method         string   `json:"method"`
	Score          *float64 `json:"score"`
	ScorePercent   string   `json:"score_percent,omitempty"`
	Name1          string   `json:"name1"`
	Slug1          string   `json:"slug1"`
	Total1         float64  `json:"total1"`
	QuizzesPlayed1 int      `json:"quizzes_played1"`
	Name2          string   `json:"name2"`
	Slug2          string   `json:"slug2"`
	Total2         float64  `json:"total2"`
	QuizzesPlayed2 int      `json:"quizzes_played2"`
	OverlapQuizzes int      `json:"overlap_quizzes"`
	MergedTotal    float64  `json:"merged_total_lowest_overlap"`
	SumTotals      float64  `json:"sum_totals"`
	SumMinusMerged float64  `json:"sum_minus_merged"`
	OverlapDetails string   `json:"overlap_details,omitempty"`
}

func fromCandidate(d model.DuplicateCandidate) Duplicate {
	return Duplicate{
		Method:         d.Method.String(),
		Score:          d.Score,
		ScorePercent:   leaderboard.FormatPercent(d.Score),
		Name1:          d.Name1,
		Slug1:          d.Slug1,
		Total1:         d.Total1,
		QuizzesPlayed1: d.Quizzes1,
		Name2:          d.Name2,
		Slug2:          d.Slug2,
		Total2:         d.Total2,
		QuizzesPlayed2: d.Quizzes2,
		OverlapQuizzes: len(d.Overlaps),
		MergedTotal:    d.MergedTotal,
		SumTotals:      d.SumTotals(),
		SumMinusMerged: d.SumMinusMerged(),
		OverlapDetails: d.OverlapDetails,
	}
}

// Advisory is a pair that looked alike but was not merged.
type Advisory struct {
	Name1      string  `json:"name1"`
	Slug1      string  `json:"slug1"`
	Name2      string  `json:"name2"`
	Slug2      string  `json:"slug2"`
	Similarity float64 `json:"similarity"`
}

// RefreshResponse acknowledges a pipeline run.
type RefreshResponse struct {
	RunID          string   `json:"run_id"`
	GeneratedAt    string   `json:"generated_at"`
	Identities     int      `json:"identities"`
	Merged         int      `json:"merged"`
	MissingQuizzes []string `json:"missing_quizzes,omitempty"`
	Warning        string   `json:"warning,omitempty"`
}
