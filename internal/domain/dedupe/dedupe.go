// Package dedupe finds pairs of identities that probably belong to the same player.
package dedupe

import (
	"unicode/utf8"

	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/internal/domain/names"
	"github.com/okian/quizboard/internal/domain/similarity"
)

// Default detection thresholds.
const (
	DefaultHighThreshold      = 0.85
	DefaultAdvisoryThreshold  = 0.6
	DefaultFirstNameThreshold = 0.8
	DefaultMinFirstNameLength = 4
	DefaultMinLastNameLength  = 2
)

// Detector runs the pairwise duplicate heuristics over a roster.
type Detector struct {
	high         float64
	advisory     float64
	firstName    float64
	minFirstName int
	minLastName  int
	normalizer   *names.Normalizer
}

// New creates a Detector with the default thresholds.
func New(opts ...Option) *Detector {
	d := &Detector{
		high:         DefaultHighThreshold,
		advisory:     DefaultAdvisoryThreshold,
		firstName:    DefaultFirstNameThreshold,
		minFirstName: DefaultMinFirstNameLength,
		minLastName:  DefaultMinLastNameLength,
		normalizer:   names.Default,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Findings is the outcome of one scan.
type Findings struct {
	Edges    []model.SimilarityEdge    // first-discovery order, one per slug pair
	Advisory []model.PossibleDuplicate // informational only, never clustered
}

// Scan runs both rules and the advisory listing in one pass over the identities.
func (d *Detector) Scan(ids []*model.Identity) Findings {
	return d.scan(ids, true)
}

// Detect returns the deduplicated edges produced by both rules.
func (d *Detector) Detect(ids []*model.Identity) []model.SimilarityEdge {
	return d.scan(ids, false).Edges
}

// Advisory lists pairs whose slugs are similar enough to warn about.
func (d *Detector) Advisory(ids []*model.Identity) []model.PossibleDuplicate {
	var out []model.PossibleDuplicate
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if p, ok := d.advise(ids[i], ids[j], similarity.Similarity(ids[i].Slug, ids[j].Slug)); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

func (d *Detector) scan(ids []*model.Identity, withAdvisory bool) Findings {
	var f Findings
	edges := newEdgeSet()

	// rule A: slug similarity
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if a.Slug == b.Slug {
				continue
			}
			sim := similarity.Similarity(a.Slug, b.Slug)
			if sim >= d.high && sim < 1 {
				score := sim
				edges.add(model.NewEdge(model.MethodSlugSimilarity, &score, a.Slug, b.Slug))
			}
			if withAdvisory {
				if p, ok := d.advise(a, b, sim); ok {
					f.Advisory = append(f.Advisory, p)
				}
			}
		}
	}

	// rule B: "First L" vs "First Lastname"
	parts := make([]names.NameParts, len(ids))
	for i, id := range ids {
		parts[i] = d.normalizer.ParseNameParts(id.DisplayName)
	}
	for i := 0; i < len(ids); i++ {
		if ids[i].DisplayName == "" {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			if ids[j].DisplayName == "" || ids[i].Slug == ids[j].Slug {
				continue
			}
			if d.lastInitialMatch(parts[i], parts[j]) {
				edges.add(model.NewEdge(model.MethodLastInitial, nil, ids[i].Slug, ids[j].Slug))
			}
		}
	}

	f.Edges = edges.list()
	return f
}

func (d *Detector) advise(a, b *model.Identity, sim float64) (model.PossibleDuplicate, bool) {
	if a.Slug == b.Slug || sim < d.advisory || sim >= 1 {
		return model.PossibleDuplicate{}, false
	}
	return model.PossibleDuplicate{
		Name1:      a.Label(),
		Slug1:      a.Slug,
		Name2:      b.Label(),
		Slug2:      b.Slug,
		Similarity: sim,
	}, true
}

// IsLikelyLastInitialVsLastName reports whether one name looks like "First L" and the other
// like "First Lastname" for the same first name. The result does not depend on argument order.
func (d *Detector) IsLikelyLastInitialVsLastName(nameA, nameB string) bool {
	return d.lastInitialMatch(d.normalizer.ParseNameParts(nameA), d.normalizer.ParseNameParts(nameB))
}

func (d *Detector) lastInitialMatch(a, b names.NameParts) bool {
	if a.First == "" || a.Last == "" || b.First == "" || b.Last == "" {
		return false
	}
	if !d.firstNamesMatch(a.First, b.First) {
		return false
	}
	if a.IsLastInitial == b.IsLastInitial {
		return false
	}

	initial, full := a, b
	if b.IsLastInitial {
		initial, full = b, a
	}
	if utf8.RuneCountInString(full.Last) < d.minLastName {
		return false
	}
	return full.Last[0] == initial.Last[0]
}

func (d *Detector) firstNamesMatch(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < d.minFirstName || utf8.RuneCountInString(b) < d.minFirstName {
		return false
	}
	return similarity.Similarity(a, b) >= d.firstName
}

// IsLikelyLastInitialVsLastName applies the default detector.
func IsLikelyLastInitialVsLastName(nameA, nameB string) bool {
	return New().IsLikelyLastInitialVsLastName(nameA, nameB)
}

// PairwiseMergedTotal projects the total two identities would have if merged: the lower score
// on quizzes both took, the single score otherwise. Overlaps are returned in quizIDs order.
func PairwiseMergedTotal(a, b *model.Identity, quizIDs []string) (float64, []model.Overlap) {
	var (
		total    float64
		overlaps []model.Overlap
	)
	for _, q := range quizIDs {
		s1, ok1 := a.QuizScore(q)
		s2, ok2 := b.QuizScore(q)
		switch {
		case ok1 && ok2:
			kept := min(s1, s2)
			overlaps = append(overlaps, model.Overlap{QuizID: q, Score1: s1, Score2: s2, Kept: kept})
			total += kept
		case ok1:
			total += s1
		case ok2:
			total += s2
		}
	}
	return total, overlaps
}

// edgeSet keeps one edge per unordered slug pair in first-discovery order.
type edgeSet struct {
	index map[model.PairKey]int
	edges []model.SimilarityEdge
}

func newEdgeSet() *edgeSet {
	return &edgeSet{index: make(map[model.PairKey]int)}
}

// add folds e into the set. Method tags are unioned; a numeric score beats nil and the
// higher numeric score wins, so the outcome does not depend on arrival order.
func (s *edgeSet) add(e model.SimilarityEdge) {
	i, ok := s.index[e.Key()]
	if !ok {
		s.index[e.Key()] = len(s.edges)
		s.edges = append(s.edges, e)
		return
	}
	cur := &s.edges[i]
	cur.Method |= e.Method
	switch {
	case e.Score == nil:
	case cur.Score == nil || *e.Score > *cur.Score:
		v := *e.Score
		cur.Score = &v
	}
}

func (s *edgeSet) list() []model.SimilarityEdge {
	return s.edges
}
