package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// MinRadius keeps zero-valued nodes visible.
const MinRadius = 3.0

// SizeMode selects the metric that drives node radii.
type SizeMode string

// Size modes.
const (
	SizePageRank   SizeMode = "pagerank"
	SizeDegree     SizeMode = "degree"
	SizeScreenTime SizeMode = "time"
)

// SizeModes lists the supported modes.
var SizeModes = []SizeMode{SizePageRank, SizeDegree, SizeScreenTime}

// ParseSizeMode resolves a mode by name. "screentime" is accepted as an
// alias of "time".
func ParseSizeMode(s string) (SizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pagerank":
		return SizePageRank, nil
	case "degree":
		return SizeDegree, nil
	case "time", "screentime":
		return SizeScreenTime, nil
	}
	return "", fmt.Errorf("unknown size mode %q (want pagerank, degree or time)", s)
}

// Radius returns the node radius: an affine function of the metric with a
// floor of [MinRadius].
func (m SizeMode) Radius(n *graph.Node) float64 {
	var r float64
	switch m {
	case SizeDegree:
		r = 3 + 0.8*float64(n.Degree)
	case SizeScreenTime:
		r = 3 + n.ScreenTime/80
	default:
		r = 4 + 1.5*n.PageRank
	}
	if math.IsNaN(r) {
		return MinRadius
	}
	return math.Max(MinRadius, r)
}

// Next cycles through [SizeModes].
func (m SizeMode) Next() SizeMode {
	for i, mode := range SizeModes {
		if mode == m {
			return SizeModes[(i+1)%len(SizeModes)]
		}
	}
	return SizePageRank
}
