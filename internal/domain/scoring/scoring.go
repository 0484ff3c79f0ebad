// Package scoring picks the display name of a merged cluster and computes its merged scores.
package scoring

import (
	"strconv"
	"unicode/utf8"

	"github.com/okian/quizboard/internal/domain/aggregate"
	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/internal/domain/names"
)

// Default canonical-name weights.
const (
	defaultFullLastNameWeight = 1000
	defaultTokenWeight        = 10
	defaultNameLengthWeight   = 1
	defaultQuizWeight         = 2
	defaultTotalDivisor       = 1000
)

// Weights is the table used to rate how "complete" a display name looks.
type Weights struct {
	FullLastName float64 // awarded when the name has two or more tokens and a full last name
	TokenCount   float64 // per token
	NameLength   float64 // per character
	QuizCount    float64 // per quiz with a recorded score
	TotalDivisor float64 // total is divided by this; zero drops the term
}

// DefaultWeights returns the stock weight table.
func DefaultWeights() Weights {
	return Weights{
		FullLastName: defaultFullLastNameWeight,
		TokenCount:   defaultTokenWeight,
		NameLength:   defaultNameLengthWeight,
		QuizCount:    defaultQuizWeight,
		TotalDivisor: defaultTotalDivisor,
	}
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithWeights overrides the weight table.
func WithWeights(w Weights) Option {
	return func(s *Selector) {
		s.weights = w
	}
}

// WithNormalizer sets the normalizer used for name parts and output slugs.
func WithNormalizer(n *names.Normalizer) Option {
	return func(s *Selector) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// Selector chooses canonical names and merges clusters.
type Selector struct {
	weights    Weights
	normalizer *names.Normalizer
}

// New creates a Selector with the default weights.
func New(opts ...Option) *Selector {
	s := &Selector{
		weights:    DefaultWeights(),
		normalizer: names.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the active weight table.
func (s *Selector) Weights() Weights { return s.weights }

// Score rates an identity's display name.
func (s *Selector) Score(id *model.Identity) float64 {
	parts := s.normalizer.ParseNameParts(id.DisplayName)
	tokens := len(parts.Tokens)
	w := s.weights

	score := w.TokenCount*float64(tokens) +
		w.NameLength*float64(utf8.RuneCountInString(id.DisplayName)) +
		w.QuizCount*float64(id.QuizCount())
	if tokens >= 2 && !parts.IsLastInitial && utf8.RuneCountInString(parts.Last) >= 2 {
		score += w.FullLastName
	}
	if w.TotalDivisor != 0 {
		score += id.Total / w.TotalDivisor
	}
	return score
}

// CanonicalName returns the display name of the best-rated member. Ties keep the first
// member; an empty name never replaces the current choice, which starts as the first
// member's label.
func (s *Selector) CanonicalName(members []*model.Identity) string {
	if len(members) == 0 {
		return ""
	}
	best := members[0].Label()
	var (
		bestScore float64
		scored    bool
	)
	for _, m := range members {
		sc := s.Score(m)
		if scored && sc <= bestScore {
			continue
		}
		scored = true
		bestScore = sc
		if m.DisplayName != "" {
			best = m.DisplayName
		}
	}
	return best
}

// Merge folds every cluster into one output row. Per quiz the lowest member score is kept
// and the total is the sum of the kept scores. Output slugs are unique across the call.
func (s *Selector) Merge(clusters []model.Cluster, r *aggregate.Roster) []model.MergedIdentity {
	used := make(map[string]struct{}, len(clusters))
	out := make([]model.MergedIdentity, 0, len(clusters))

	for _, c := range clusters {
		members := r.Members(c.Members)
		if len(members) == 0 {
			continue
		}

		name := s.CanonicalName(members)
		m := model.MergedIdentity{
			DisplayName: name,
			Quizzes:     make(map[string]float64),
			Members:     make([]string, 0, len(members)),
		}
		for _, id := range members {
			m.Members = append(m.Members, id.Slug)
		}

		for _, q := range r.QuizIDs {
			var (
				kept  float64
				found bool
			)
			for _, id := range members {
				v, ok := id.QuizScore(q)
				if !ok {
					continue
				}
				if !found || v < kept {
					kept = v
				}
				found = true
			}
			if found {
				m.Quizzes[q] = kept
				m.Total += kept
			}
		}

		base := s.normalizer.Slugify(name)
		if base == "" {
			base = members[0].Slug
		}
		m.Slug = uniqueSlug(base, used)
		out = append(out, m)
	}
	return out
}

func uniqueSlug(base string, used map[string]struct{}) string {
	slug := base
	for n := 2; ; n++ {
		if _, taken := used[slug]; !taken {
			break
		}
		slug = base + "-" + strconv.Itoa(n)
	}
	used[slug] = struct{}{}
	return slug
}
