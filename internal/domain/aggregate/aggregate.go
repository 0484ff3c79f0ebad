// Package aggregate folds raw quiz submissions into one identity per detected slug.
package aggregate

import (
	"sort"

	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/internal/domain/names"
)

// Stats counts the recoveries made while aggregating.
type Stats struct {
	Entries       int // submissions folded
	MissingScores int // submissions without a numeric score
	FallbackKeys  int // submissions keyed by their source id because no name was usable
}

// Roster is the identity map built from one snapshot.
type Roster struct {
	Identities map[string]*model.Identity
	Slugs      []string // encounter order
	QuizIDs    []string // visit order; also the column order of every report
	Stats      Stats
}

// Get returns the identity for slug, or nil.
func (r *Roster) Get(slug string) *model.Identity {
	return r.Identities[slug]
}

// Members resolves slugs to identities, skipping unknown ones.
func (r *Roster) Members(slugs []string) []*model.Identity {
	out := make([]*model.Identity, 0, len(slugs))
	for _, s := range slugs {
		if id := r.Identities[s]; id != nil {
			out = append(out, id)
		}
	}
	return out
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithNormalizer sets the normalizer used to derive slugs from names.
func WithNormalizer(n *names.Normalizer) Option {
	return func(a *Aggregator) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// Aggregator builds rosters.
type Aggregator struct {
	normalizer *names.Normalizer
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{normalizer: names.Default}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key resolves the identity key of an entry: the stored slug, else the slug of the
// name, else the source id.
func (a *Aggregator) Key(e model.RawEntry) (key string, fallback bool) {
	if e.NameSlug != "" {
		return e.NameSlug, false
	}
	if s := a.normalizer.Slugify(e.Name); s != "" {
		return s, false
	}
	return e.SourceID, true
}

// Aggregate folds every entry of the snapshot. Quizzes are visited in QuizOrder and the
// submissions of one quiz in source-id order, so the result is deterministic.
func (a *Aggregator) Aggregate(snap model.Snapshot) *Roster {
	r := &Roster{
		Identities: make(map[string]*model.Identity),
		QuizIDs:    snap.QuizOrder(),
	}

	for _, quizID := range r.QuizIDs {
		for _, e := range snap.Entries(quizID) {
			key, fallback := a.Key(e)
			if key == "" {
				// no slug, no name and no source id: nothing can identify it
				continue
			}
			if fallback {
				r.Stats.FallbackKeys++
			}
			if !e.HasScore() {
				r.Stats.MissingScores++
			}

			id, ok := r.Identities[key]
			if !ok {
				id = model.NewIdentity(key, e.Name)
				r.Identities[key] = id
				r.Slugs = append(r.Slugs, key)
			}
			id.Apply(e)
			r.Stats.Entries++
		}
	}
	return r
}

// Ranked returns the identities sorted by total descending; ties keep encounter order.
func Ranked(r *Roster) []*model.Identity {
	out := r.Members(r.Slugs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}
