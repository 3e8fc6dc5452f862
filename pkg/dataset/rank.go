package dataset

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// PageRank parameters.
const (
	DefaultDamping = 0.85
	maxIterations  = 100
	tolerance      = 1e-6
)

func linkWeight(l graph.Link) float64 {
	if l.Weight > 0 {
		return l.Weight
	}
	return 1
}

// PageRank computes weighted PageRank over the undirected graph in s. Each
// node spreads its rank over its links in proportion to their weight; rank
// of nodes without links is spread uniformly. Scores sum to 1.
func PageRank(s *graph.Store, damping float64) map[graph.ID]float64 {
	ids := s.IDs()
	n := len(ids)
	rank := make(map[graph.ID]float64, n)
	if n == 0 {
		return rank
	}

	out := make(map[graph.ID]float64, n)
	for _, id := range ids {
		rank[id] = 1 / float64(n)
		for _, l := range s.Incident(id) {
			out[id] += linkWeight(l)
		}
	}

	for range maxIterations {
		prev := rank
		rank = make(map[graph.ID]float64, n)

		dangling := 0.0
		for _, id := range ids {
			if out[id] == 0 {
				dangling += prev[id]
			}
		}
		base := (1-damping)/float64(n) + damping*dangling/float64(n)
		for _, id := range ids {
			rank[id] += base
		}
		for _, id := range ids {
			if out[id] == 0 {
				continue
			}
			share := damping * prev[id] / out[id]
			for _, l := range s.Incident(id) {
				other, _ := l.Other(id)
				rank[other] += share * linkWeight(l)
			}
		}

		diff := 0.0
		for _, id := range ids {
			diff += math.Abs(rank[id] - prev[id])
		}
		if diff < float64(n)*tolerance {
			break
		}
	}
	return rank
}

// DetectCommunities partitions s by weighted label propagation and returns
// a community index per node. Nodes are visited in insertion order; a node
// adopts the label with the largest link weight among its neighbours,
// keeping its own on a tie and otherwise preferring the smallest label.
// Communities are numbered by decreasing size, ties broken by their
// earliest member.
func DetectCommunities(s *graph.Store) map[graph.ID]int {
	ids := s.IDs()
	label := make(map[graph.ID]int, len(ids))
	for i, id := range ids {
		label[id] = i
	}

	for range maxIterations {
		changed := false
		for _, id := range ids {
			score := map[int]float64{}
			for _, l := range s.Incident(id) {
				other, _ := l.Other(id)
				if other == id {
					continue
				}
				score[label[other]] += linkWeight(l)
			}
			if len(score) == 0 {
				continue
			}
			best, bestScore := label[id], score[label[id]]
			for lbl, sc := range score {
				if sc > bestScore || (sc == bestScore && best != label[id] && lbl < best) {
					best, bestScore = lbl, sc
				}
			}
			if best != label[id] {
				label[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	type group struct {
		label, first, size int
	}
	groups := map[int]*group{}
	for i, id := range ids {
		g, ok := groups[label[id]]
		if !ok {
			g = &group{label: label[id], first: i}
			groups[label[id]] = g
		}
		g.size++
	}
	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	slices.SortFunc(ordered, func(a, b *group) int {
		if c := cmp.Compare(b.size, a.size); c != 0 {
			return c
		}
		return cmp.Compare(a.first, b.first)
	})
	index := make(map[int]int, len(ordered))
	for i, g := range ordered {
		index[g.label] = i
	}

	out := make(map[graph.ID]int, len(ids))
	for _, id := range ids {
		out[id] = index[label[id]]
	}
	return out
}
