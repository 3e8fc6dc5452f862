// Package analytics computes per-node metrics over a [graph.Store].
//
// Every function is pure and recomputed on demand; nothing is cached on
// the store or the nodes. Community-based scores use [graph.Node.Group],
// so a graph colored by species works the same way as one colored by
// community.
package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// BridgeThreshold is the fraction of the maximum bridge score a node must
// reach to be flagged as a bridge.
const BridgeThreshold = 0.6

// =============================================================================
// Degree
// =============================================================================

// Degree counts the links touching id. A self-loop counts twice.
func Degree(s *graph.Store, id graph.ID) int {
	d := 0
	for _, l := range s.Incident(id) {
		if l.SelfLoop() {
			d += 2
		} else {
			d++
		}
	}
	return d
}

// Degrees returns the degree of every stored node.
func Degrees(s *graph.Store) map[graph.ID]int {
	out := make(map[graph.ID]int, s.NodeCount())
	for _, id := range s.IDs() {
		out[id] = Degree(s, id)
	}
	return out
}

// =============================================================================
// Relation Histogram
// =============================================================================

// Bucket is one relation type in a [Histogram].
type Bucket struct {
	Type    string  `json:"type"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"` // share of Total, one decimal
}

// Histogram buckets the links touching a node by relation type.
type Histogram struct {
	Node    graph.ID `json:"node"`
	Total   int      `json:"total"`
	Buckets []Bucket `json:"buckets"`
}

// RelationHistogram buckets the links touching id by relation type. Links
// without a type fall into [graph.UnknownRelation]. Buckets are ordered by
// count, then type. A node without links yields an empty histogram.
func RelationHistogram(s *graph.Store, id graph.ID) Histogram {
	h := Histogram{Node: id}
	counts := make(map[string]int)
	for _, l := range s.Incident(id) {
		counts[l.RelationType()]++
		h.Total++
	}
	if h.Total == 0 {
		return h
	}
	for typ, n := range counts {
		h.Buckets = append(h.Buckets, Bucket{
			Type:    typ,
			Count:   n,
			Percent: round1(float64(n) * 100 / float64(h.Total)),
		})
	}
	slices.SortFunc(h.Buckets, func(a, b Bucket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return h
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// =============================================================================
// Community Scores
// =============================================================================

// BridgeScore counts the links from id to nodes of a different group.
func BridgeScore(s *graph.Store, id graph.ID) int {
	return groupScore(s, id, false)
}

// LeaderScore counts the links from id to nodes of the same group.
// A self-loop counts once.
func LeaderScore(s *graph.Store, id graph.ID) int {
	return groupScore(s, id, true)
}

func groupScore(s *graph.Store, id graph.ID, same bool) int {
	n, ok := s.Node(id)
	if !ok {
		return 0
	}
	score := 0
	for _, l := range s.Incident(id) {
		otherID, _ := l.Other(id)
		other, ok := s.Node(otherID)
		if !ok {
			continue
		}
		if (other.Group() == n.Group()) == same {
			score++
		}
	}
	return score
}

// BridgeScores returns the bridge score of every stored node.
func BridgeScores(s *graph.Store) map[graph.ID]int {
	out := make(map[graph.ID]int, s.NodeCount())
	for _, id := range s.IDs() {
		out[id] = BridgeScore(s, id)
	}
	return out
}

// LeaderScores returns the leader score of every stored node.
func LeaderScores(s *graph.Store) map[graph.ID]int {
	out := make(map[graph.ID]int, s.NodeCount())
	for _, id := range s.IDs() {
		out[id] = LeaderScore(s, id)
	}
	return out
}

// Bridges returns the nodes whose bridge score is at least
// [BridgeThreshold] of the maximum. When no node has a cross-group link,
// nothing is flagged.
func Bridges(s *graph.Store) map[graph.ID]bool {
	return BridgesFrom(BridgeScores(s))
}

// BridgesFrom applies the bridge threshold to precomputed scores.
func BridgesFrom(scores map[graph.ID]int) map[graph.ID]bool {
	maxScore := 0
	for _, v := range scores {
		maxScore = max(maxScore, v)
	}
	out := make(map[graph.ID]bool)
	if maxScore == 0 {
		return out
	}
	threshold := float64(maxScore) * BridgeThreshold
	for id, v := range scores {
		if float64(v) >= threshold {
			out[id] = true
		}
	}
	return out
}

// CommunityLeaders returns, per group, the node with the highest leader
// score. Ties go to the smallest id in [graph.CompareIDs] order.
func CommunityLeaders(s *graph.Store) map[graph.Category]graph.ID {
	ids := s.IDs()
	slices.SortFunc(ids, graph.CompareIDs)

	best := make(map[graph.Category]int)
	out := make(map[graph.Category]graph.ID)
	for _, id := range ids {
		n, _ := s.Node(id)
		g := n.Group()
		score := LeaderScore(s, id)
		if cur, ok := best[g]; !ok || score > cur {
			best[g] = score
			out[g] = id
		}
	}
	return out
}

// Leaders returns the set of community leaders.
func Leaders(s *graph.Store) map[graph.ID]bool {
	out := make(map[graph.ID]bool)
	for _, id := range CommunityLeaders(s) {
		out[id] = true
	}
	return out
}

// =============================================================================
// Ranking
// =============================================================================

// Score pairs a node with a metric value for ranked listings.
type Score struct {
	ID    graph.ID
	Value int
}

// Ranked sorts scores descending by value, then ascending by id, and keeps
// at most limit entries (all when limit <= 0).
func Ranked(scores map[graph.ID]int, limit int) []Score {
	out := make([]Score, 0, len(scores))
	for id, v := range scores {
		out = append(out, Score{ID: id, Value: v})
	}
	slices.SortFunc(out, func(a, b Score) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return graph.CompareIDs(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
