// Package repository keeps the history of leaderboard runs.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/pkg/logger"
)

// Entry represents a merged leaderboard row.
type Entry struct {
	Rank        int
	Slug        string
	DisplayName string
	Total       float64
	Quizzes     map[string]float64
	Members     []string
}

// QuizCount returns the number of quizzes with a recorded score.
func (e Entry) QuizCount() int { return len(e.Quizzes) }

// Run is one persisted pipeline result.
type Run struct {
	ID          string
	GeneratedAt time.Time
	QuizIDs     []string
	Entries     []Entry // rank order
}

// NewRun builds a run from merged identities, assigning ranks.
func NewRun(id string, generatedAt time.Time, quizIDs []string, merged []model.MergedIdentity) Run {
	entries := make([]Entry, 0, len(merged))
	for _, m := range merged {
		entries = append(entries, Entry{
			Slug:        m.Slug,
			DisplayName: m.DisplayName,
			Total:       m.Total,
			Quizzes:     m.Quizzes,
			Members:     m.Members,
		})
	}
	sortEntries(entries)
	assignRanksWithTies(entries)
	return Run{
		ID:          id,
		GeneratedAt: generatedAt,
		QuizIDs:     append([]string(nil), quizIDs...),
		Entries:     entries,
	}
}

// Store provides read/write access to the run history.
type Store interface {
	// Save persists run and makes it the latest.
	Save(ctx context.Context, run Run) error

	// Latest returns the most recent run. Returns ErrNoRun if nothing was saved.
	Latest(ctx context.Context) (Run, error)

	// QuizIDs returns the quiz columns of the latest run. Returns ErrNoRun if nothing was saved.
	QuizIDs(ctx context.Context) ([]string, error)

	// TopN returns the top-N entries of the latest run.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Rank returns the entry for slug in the latest run.
	// Returns ErrNotFound if the slug is unknown.
	Rank(ctx context.Context, slug string) (Entry, error)

	// Count returns the number of entries in the latest run.
	Count(ctx context.Context) int

	Close() error
}

// sortEntries orders by total desc. Equal totals keep their input order.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
}

// assignRanksWithTies gives equal totals the same rank; the next distinct total
// skips the positions the tie consumed (1, 2, 2, 4).
func assignRanksWithTies(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Total == entries[i-1].Total {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

func loggerRunFields(run Run) []logger.Field {
	return []logger.Field{logger.String("run_id", run.ID), logger.Int("entries", len(run.Entries))}
}
