package model

import "unicode/utf8"

// Identity is the aggregated record of every submission sharing one slug.
type Identity struct {
	Slug        string
	DisplayName string
	Quizzes     map[string]float64
	Total       float64
	SourceIDs   []string

	sources map[string]struct{}
}

// NewIdentity creates an empty identity for slug with an initial display name.
func NewIdentity(slug, displayName string) *Identity {
	return &Identity{
		Slug:        slug,
		DisplayName: displayName,
		Quizzes:     make(map[string]float64),
		sources:     make(map[string]struct{}),
	}
}

// Apply folds one submission into the identity.
//
// A numeric score overwrites the quiz entry (last write wins); the running total grows by
// the score, or by nothing when the score is missing. The display name is replaced only by
// a strictly longer name.
func (i *Identity) Apply(e RawEntry) {
	if e.HasScore() {
		i.Quizzes[e.QuizID] = *e.Score
	}
	i.Total += e.ScoreOrZero()

	if e.SourceID != "" {
		if i.sources == nil {
			i.sources = make(map[string]struct{})
		}
		if _, ok := i.sources[e.SourceID]; !ok {
			i.sources[e.SourceID] = struct{}{}
			i.SourceIDs = append(i.SourceIDs, e.SourceID)
		}
	}

	if utf8.RuneCountInString(e.Name) > utf8.RuneCountInString(i.DisplayName) {
		i.DisplayName = e.Name
	}
}

// QuizCount returns the number of quizzes with a recorded score.
func (i *Identity) QuizCount() int { return len(i.Quizzes) }

// QuizScore returns the score for quizID and whether one is recorded.
func (i *Identity) QuizScore(quizID string) (float64, bool) {
	v, ok := i.Quizzes[quizID]
	return v, ok
}

// Label returns the display name, or the slug when the name is empty.
func (i *Identity) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Slug
}
