// Package cluster groups identities into connected components of the duplicate graph.
package cluster

import "github.com/okian/quizboard/internal/domain/model"

// UnionFind is a disjoint-set forest over string keys. Keys are mapped once to compact
// indexes; parent and rank live in flat slices.
type UnionFind struct {
	index  map[string]int
	keys   []string
	parent []int
	rank   []uint8
}

// New creates a forest with every key in its own set.
func New(keys []string) *UnionFind {
	u := &UnionFind{
		index:  make(map[string]int, len(keys)),
		keys:   make([]string, 0, len(keys)),
		parent: make([]int, 0, len(keys)),
		rank:   make([]uint8, 0, len(keys)),
	}
	for _, k := range keys {
		u.register(k)
	}
	return u
}

func (u *UnionFind) register(key string) int {
	if i, ok := u.index[key]; ok {
		return i
	}
	i := len(u.keys)
	u.index[key] = i
	u.keys = append(u.keys, key)
	u.parent = append(u.parent, i)
	u.rank = append(u.rank, 0)
	return i
}

// Len returns the number of registered keys.
func (u *UnionFind) Len() int { return len(u.keys) }

// Contains reports whether key is registered.
func (u *UnionFind) Contains(key string) bool {
	_, ok := u.index[key]
	return ok
}

// Find returns the root key of the set containing key. An unseen key is registered as a
// singleton first.
func (u *UnionFind) Find(key string) string {
	return u.keys[u.find(u.register(key))]
}

func (u *UnionFind) find(i int) int {
	root := i
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[i] != root {
		next := u.parent[i]
		u.parent[i] = root
		i = next
	}
	return root
}

// Union merges the sets containing a and b. It is a no-op when they already share a set.
func (u *UnionFind) Union(a, b string) {
	ra := u.find(u.register(a))
	rb := u.find(u.register(b))
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// Components folds every edge into a forest seeded with keys and returns the sets.
// Clusters appear in the order their first member appears in keys, members in key order.
// Edge endpoints missing from keys become members too.
func Components(edges []model.SimilarityEdge, keys []string) []model.Cluster {
	u := New(keys)
	for _, e := range edges {
		u.Union(e.SlugA, e.SlugB)
	}

	pos := make(map[string]int)
	var out []model.Cluster
	for _, k := range u.keys {
		root := u.Find(k)
		i, ok := pos[root]
		if !ok {
			i = len(out)
			pos[root] = i
			out = append(out, model.Cluster{Root: root})
		}
		out[i].Members = append(out[i].Members, k)
	}
	return out
}
