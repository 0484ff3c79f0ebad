package model

import "strings"

// Method is the set of heuristics that linked two identities.
type Method uint8

const (
	// MethodSlugSimilarity marks pairs whose slugs are close in edit distance.
	MethodSlugSimilarity Method = 1 << iota
	// MethodLastInitial marks "First L" vs "First Lastname" pairs.
	MethodLastInitial
)

var methodTags = []struct {
	m   Method
	tag string
}{
	{MethodSlugSimilarity, "slug_similarity"},
	{MethodLastInitial, "last_initial_vs_lastname"},
}

// Has reports whether every tag of other is present in m.
func (m Method) Has(other Method) bool { return m&other == other && other != 0 }

// String renders the tags joined by "+".
func (m Method) String() string {
	parts := make([]string, 0, len(methodTags))
	for _, t := range methodTags {
		if m&t.m != 0 {
			parts = append(parts, t.tag)
		}
	}
	return strings.Join(parts, "+")
}

// ParseMethod is the inverse of Method.String. Unknown tags are ignored.
func ParseMethod(s string) Method {
	var m Method
	for _, part := range strings.Split(s, "+") {
		for _, t := range methodTags {
			if part == t.tag {
				m |= t.m
			}
		}
	}
	return m
}

// SimilarityEdge links two identities believed to be the same person.
// SlugA < SlugB always holds.
type SimilarityEdge struct {
	Method Method
	Score  *float64 // slug similarity; nil when only name heuristics fired
	SlugA  string
	SlugB  string
}

// NewEdge builds an edge with the slug pair in canonical order.
func NewEdge(method Method, score *float64, a, b string) SimilarityEdge {
	if b < a {
		a, b = b, a
	}
	return SimilarityEdge{Method: method, Score: score, SlugA: a, SlugB: b}
}

// Key identifies the unordered slug pair.
func (e SimilarityEdge) Key() PairKey { return PairKey{A: e.SlugA, B: e.SlugB} }

// PairKey is an unordered slug pair in canonical order.
type PairKey struct {
	A string
	B string
}
