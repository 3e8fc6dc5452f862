package analytics

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/graph"
)

// DefaultRingSize is the number of characters compared by the ring view.
const DefaultRingSize = 6

// =============================================================================
// Ring View
// =============================================================================

// RingSlice is one character of the outer ring.
type RingSlice struct {
	ID     graph.ID `json:"id"`
	Name   string   `json:"name"`
	Degree int      `json:"degree"`
}

// RingSummary feeds the ring chart: the degree of each selected character
// on the outer ring and the relation histogram of the first one inside.
type RingSummary struct {
	Outer []RingSlice `json:"outer"`
	Inner Histogram   `json:"inner"`
}

// Ring validates a selection of characters and summarizes it. Every name
// must be non-empty, known to the store and distinct.
func Ring(s *graph.Store, names []string) (RingSummary, error) {
	if len(names) == 0 {
		return RingSummary{}, errors.New(errors.ErrCodeInvalidInput, "no characters selected")
	}

	seen := make(map[string]int, len(names))
	var dups []string
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return RingSummary{}, errors.New(errors.ErrCodeInvalidInput, "selection %d is empty", i+1)
		}
		if seen[name] == 1 {
			dups = append(dups, name)
		}
		seen[name]++
	}
	if len(dups) > 0 {
		return RingSummary{}, errors.New(errors.ErrCodeInvalidInput,
			"characters must be distinct, repeated: %s", strings.Join(dups, ", "))
	}

	var out RingSummary
	for _, name := range names {
		n, ok := s.FindByName(strings.TrimSpace(name))
		if !ok {
			return RingSummary{}, errors.New(errors.ErrCodeNotFound, "unknown character %q", name)
		}
		out.Outer = append(out.Outer, RingSlice{ID: n.ID, Name: n.DisplayName(), Degree: Degree(s, n.ID)})
	}
	out.Inner = RelationHistogram(s, out.Outer[0].ID)
	return out, nil
}

// =============================================================================
// Timeline View
// =============================================================================

// Appearance is a character's screen time in one movie.
type Appearance struct {
	Movie      graph.Movie `json:"movie"`
	ScreenTime float64     `json:"screenTime"`
}

// Appearances estimates a character's screen time per movie. Movies
// released before the character's first appearance get zero. Otherwise the
// time is a share between 20% and 100% of screenTime/15, boosted by 20% for
// characters with pagerank above 5. The share is drawn from a generator
// seeded by the node and movie ids, so repeated calls agree.
func Appearances(n *graph.Node, movies []graph.Movie) []Appearance {
	out := make([]Appearance, len(movies))
	base := n.ScreenTime / 15
	for i, m := range movies {
		out[i].Movie = m
		if m.Year < n.FirstAppearance {
			continue
		}
		r := rand.New(rand.NewPCG(seed(n.ID), seed(m.ID)))
		t := r.Float64()*base*0.8 + base*0.2
		if n.PageRank > 5 {
			t *= 1.2
		}
		out[i].ScreenTime = t
	}
	return out
}

func seed(id graph.ID) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}
