// Package model contains domain models passed between layers.
package model

import (
	"math"
	"sort"
)

// RawEntry is one submission read from a quiz leaderboard.
type RawEntry struct {
	QuizID   string   // quiz the submission belongs to
	SourceID string   // opaque per-submission id (device/user id in the source store)
	Name     string   // free-text display name as typed by the player
	NameSlug string   // optional slug stored alongside the name
	Score    *float64 // nil when missing or not a finite number
}

// HasScore reports whether the entry carries a usable numeric score.
func (e RawEntry) HasScore() bool {
	return e.Score != nil && !math.IsNaN(*e.Score) && !math.IsInf(*e.Score, 0)
}

// ScoreOrZero returns the score, or 0 when the entry has none.
func (e RawEntry) ScoreOrZero() float64 {
	if !e.HasScore() {
		return 0
	}
	return *e.Score
}

// Score is a small helper for building entries in code and tests.
func Score(v float64) *float64 { return &v }

// Snapshot is the complete input of one merge run: quiz id -> submission id -> entry.
type Snapshot struct {
	// QuizIDs fixes the order quizzes are visited in and the column order of reports.
	QuizIDs []string
	Quizzes map[string]map[string]RawEntry
	// Missing lists quizzes whose data could not be acquired. The engine treats them
	// as contributing no entries; callers surface the incompleteness.
	Missing []string
}

// QuizOrder returns the configured quiz ids followed by any extra quiz present in the
// snapshot, the latter in lexical order. Duplicates are dropped.
func (s Snapshot) QuizOrder() []string {
	seen := make(map[string]struct{}, len(s.QuizIDs)+len(s.Quizzes))
	out := make([]string, 0, len(s.QuizIDs)+len(s.Quizzes))
	for _, id := range s.QuizIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	extra := make([]string, 0)
	for id := range s.Quizzes {
		if _, ok := seen[id]; !ok {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Entries returns the submissions of one quiz ordered by source id.
func (s Snapshot) Entries(quizID string) []RawEntry {
	subs := s.Quizzes[quizID]
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]RawEntry, 0, len(ids))
	for _, id := range ids {
		e := subs[id]
		e.QuizID = quizID
		if e.SourceID == "" {
			e.SourceID = id
		}
		out = append(out, e)
	}
	return out
}

// EntryCount returns the number of submissions across all quizzes.
func (s Snapshot) EntryCount() int {
	n := 0
	for _, subs := range s.Quizzes {
		n += len(subs)
	}
	return n
}

// Acquired reports whether at least one quiz board was obtained, even an empty one.
func (s Snapshot) Acquired() bool { return len(s.Quizzes) > 0 }

// Complete reports whether every configured quiz was acquired.
func (s Snapshot) Complete() bool { return len(s.Missing) == 0 }
