package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// Forces parameterizes the simulator. Link forces depend on the link
// weight; collision radii depend on the node-size function.
type Forces struct {
	LinkDistance      float64 // distance at weight 0
	DistancePerWeight float64 // distance removed per unit of weight
	MinLinkDistance   float64
	StrengthPerWeight float64 // 0 means a constant strength of 1

	Charge            float64 // many-body strength, negative repels
	ChargeDistanceMax float64

	Center         graph.Point
	CenterStrength float64

	CollidePadding  float64 // added to the node radius
	CollideRadius   float64 // fixed radius, overrides size-based radii when > 0
	CollideStrength float64

	AlphaDecay float64
	AlphaMin   float64
}

// DefaultForces is the social-network analysis preset.
func DefaultForces() Forces {
	return Forces{
		LinkDistance:      70,
		DistancePerWeight: 3,
		MinLinkDistance:   10,
		StrengthPerWeight: 0.04,
		Charge:            -120,
		ChargeDistanceMax: 250,
		CenterStrength:    0.06,
		CollidePadding:    6,
		CollideStrength:   0.9,
		AlphaDecay:        0.02,
		AlphaMin:          0.001,
	}
}

// CompactForces pulls the graph together.
func CompactForces() Forces {
	f := DefaultForces()
	f.Charge = -30
	return f
}

// SpreadForces pushes nodes apart.
func SpreadForces() Forces {
	f := DefaultForces()
	f.Charge = -300
	return f
}

// InteractiveForces is the expansion view preset: unweighted links and a
// fixed collision radius.
func InteractiveForces() Forces {
	f := DefaultForces()
	f.LinkDistance = 100
	f.DistancePerWeight = 0
	f.StrengthPerWeight = 0
	f.Charge = -300
	f.ChargeDistanceMax = 0
	f.CollideRadius = 30
	f.CollidePadding = 0
	return f
}

// PathForces is the shortest-path view preset.
func PathForces() Forces {
	f := InteractiveForces()
	f.LinkDistance = 80
	f.Charge = -200
	return f
}

// ParseForces resolves a preset by name.
func ParseForces(name string) (Forces, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultForces(), nil
	case "compact":
		return CompactForces(), nil
	case "spread":
		return SpreadForces(), nil
	case "interactive":
		return InteractiveForces(), nil
	case "path":
		return PathForces(), nil
	}
	return Forces{}, fmt.Errorf("unknown force preset %q", name)
}

// Distance returns the target length of a link with the given weight.
func (f Forces) Distance(weight float64) float64 {
	return math.Max(f.MinLinkDistance, f.LinkDistance-f.DistancePerWeight*weight)
}

// Strength returns the attraction of a link with the given weight.
func (f Forces) Strength(weight float64) float64 {
	if f.StrengthPerWeight == 0 {
		return 1
	}
	return math.Min(1, f.StrengthPerWeight*math.Max(weight, 1))
}

// Collide returns the collision radius for a node drawn with radius r.
func (f Forces) Collide(r float64) float64 {
	if f.CollideRadius > 0 {
		return f.CollideRadius
	}
	return r + f.CollidePadding
}
