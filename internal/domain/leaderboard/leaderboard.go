// Package leaderboard runs the identity resolution pipeline over one snapshot.
package leaderboard

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/quizboard/internal/domain/aggregate"
	"github.com/okian/quizboard/internal/domain/cluster"
	"github.com/okian/quizboard/internal/domain/dedupe"
	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/internal/domain/scoring"
)

// Stats summarizes one run.
type Stats struct {
	Quizzes        int
	MissingQuizzes int
	Entries        int
	MissingScores  int
	FallbackKeys   int
	Identities     int
	Edges          int
	EdgesByMethod  map[string]int
	Advisory       int
	Clusters       int
	Merged         int
	MergedAway     int // identities folded into another row
}

// Result is everything one run produces. It is never mutated after Run returns.
type Result struct {
	RunID          string
	GeneratedAt    time.Time
	QuizIDs        []string
	MissingQuizzes []string

	Ranked     []*model.Identity
	Edges      []model.SimilarityEdge
	Clusters   []model.Cluster
	Duplicates []model.DuplicateCandidate
	Advisory   []model.PossibleDuplicate
	Merged     []model.MergedIdentity
	Stats      Stats
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAggregator sets the score aggregator.
func WithAggregator(a *aggregate.Aggregator) Option {
	return func(e *Engine) {
		if a != nil {
			e.aggregator = a
		}
	}
}

// WithDetector sets the duplicate detector.
func WithDetector(d *dedupe.Detector) Option {
	return func(e *Engine) {
		if d != nil {
			e.detector = d
		}
	}
}

// WithSelector sets the canonical identity selector.
func WithSelector(s *scoring.Selector) Option {
	return func(e *Engine) {
		if s != nil {
			e.selector = s
		}
	}
}

// WithClock sets the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// Engine wires the pipeline stages. It holds no per-run state, so Run may be called
// concurrently.
type Engine struct {
	aggregator *aggregate.Aggregator
	detector   *dedupe.Detector
	selector   *scoring.Selector
	now        func() time.Time
	newID      func() string
}

// New creates an Engine with default stages.
func New(opts ...Option) *Engine {
	e := &Engine{
		aggregator: aggregate.New(),
		detector:   dedupe.New(),
		selector:   scoring.New(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run resolves identities in snap and builds every report.
func (e *Engine) Run(snap model.Snapshot) *Result {
	roster := e.aggregator.Aggregate(snap)
	members := roster.Members(roster.Slugs)

	findings := e.detector.Scan(members)
	clusters := cluster.Components(findings.Edges, roster.Slugs)

	merged := e.selector.Merge(clusters, roster)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Total > merged[j].Total
	})

	res := &Result{
		RunID:          e.newID(),
		GeneratedAt:    e.now().UTC(),
		QuizIDs:        roster.QuizIDs,
		MissingQuizzes: append([]string(nil), snap.Missing...),
		Ranked:         aggregate.Ranked(roster),
		Edges:          findings.Edges,
		Clusters:       clusters,
		Duplicates:     Duplicates(findings.Edges, roster),
		Advisory:       findings.Advisory,
		Merged:         merged,
	}
	res.Stats = Stats{
		Quizzes:        len(roster.QuizIDs),
		MissingQuizzes: len(snap.Missing),
		Entries:        roster.Stats.Entries,
		MissingScores:  roster.Stats.MissingScores,
		FallbackKeys:   roster.Stats.FallbackKeys,
		Identities:     len(roster.Slugs),
		Edges:          len(findings.Edges),
		EdgesByMethod:  countMethods(findings.Edges),
		Advisory:       len(findings.Advisory),
		Clusters:       len(clusters),
		Merged:         len(merged),
		MergedAway:     len(roster.Slugs) - len(merged),
	}
	return res
}

func countMethods(edges []model.SimilarityEdge) map[string]int {
	out := make(map[string]int)
	for _, e := range edges {
		out[e.Method.String()]++
	}
	return out
}

// Duplicates builds one report row per edge and orders them: name-rule rows first, then by
// similarity descending (no score counts as -1), then by combined total descending.
func Duplicates(edges []model.SimilarityEdge, r *aggregate.Roster) []model.DuplicateCandidate {
	out := make([]model.DuplicateCandidate, 0, len(edges))
	for _, e := range edges {
		d := model.DuplicateCandidate{
			Method: e.Method,
			Score:  e.Score,
			Name1:  e.SlugA,
			Slug1:  e.SlugA,
			Name2:  e.SlugB,
			Slug2:  e.SlugB,
		}
		p1, p2 := r.Get(e.SlugA), r.Get(e.SlugB)
		if p1 != nil {
			d.Name1, d.Total1, d.Quizzes1 = p1.Label(), p1.Total, p1.QuizCount()
		} else {
			p1 = model.NewIdentity(e.SlugA, "")
		}
		if p2 != nil {
			d.Name2, d.Total2, d.Quizzes2 = p2.Label(), p2.Total, p2.QuizCount()
		} else {
			p2 = model.NewIdentity(e.SlugB, "")
		}
		d.MergedTotal, d.Overlaps = dedupe.PairwiseMergedTotal(p1, p2, r.QuizIDs)
		d.OverlapDetails = OverlapDetails(d.Overlaps)
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		an, bn := a.Method.Has(model.MethodLastInitial), b.Method.Has(model.MethodLastInitial)
		if an != bn {
			return an
		}
		if as, bs := scoreOrNeg(a.Score), scoreOrNeg(b.Score); as != bs {
			return as > bs
		}
		return a.SumTotals() > b.SumTotals()
	})
	return out
}

func scoreOrNeg(s *float64) float64 {
	if s == nil {
		return -1
	}
	return *s
}

// OverlapDetails renders overlaps as "W9:300/250->250" joined by " | ".
func OverlapDetails(overlaps []model.Overlap) string {
	parts := make([]string, 0, len(overlaps))
	for _, o := range overlaps {
		parts = append(parts, "W"+WeekLabel(o.QuizID)+":"+
			FormatNumber(o.Score1)+"/"+FormatNumber(o.Score2)+"->"+FormatNumber(o.Kept))
	}
	return strings.Join(parts, " | ")
}
