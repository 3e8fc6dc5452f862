// Package layouttest provides a deterministic [layout.Simulator] for tests.
package layouttest

import (
	"context"

	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
)

// Link records the parameters of a registered link.
type Link struct {
	Distance, Strength float64
}

// Simulator moves every free node by Drift on each step and decays alpha
// the way the engine's forces describe. It records every call so tests can
// assert on how the engine drives it.
type Simulator struct {
	Drift graph.Point

	Positions map[graph.ID]graph.Point
	Radii     map[graph.ID]float64
	Links     map[graph.EdgeKey]Link
	Pinned    map[graph.ID]bool
	Forces    layout.Forces
	Steps     int
	Err       error // returned by Step when set

	alpha, target float64
}

// New creates a stub that drifts free nodes by (1, 0) per step.
func New() *Simulator {
	return &Simulator{
		Drift:     graph.Point{X: 1},
		Positions: make(map[graph.ID]graph.Point),
		Radii:     make(map[graph.ID]float64),
		Links:     make(map[graph.EdgeKey]Link),
		Pinned:    make(map[graph.ID]bool),
	}
}

func (s *Simulator) AddNode(id graph.ID, p graph.Point, radius float64) {
	if _, ok := s.Positions[id]; ok {
		return
	}
	s.Positions[id] = p
	s.Radii[id] = radius
}

func (s *Simulator) AddLink(source, target graph.ID, distance, strength float64) {
	s.Links[graph.NewEdgeKey(source, target)] = Link{Distance: distance, Strength: strength}
}

func (s *Simulator) SetRadius(id graph.ID, radius float64) { s.Radii[id] = radius }
func (s *Simulator) SetForces(f layout.Forces)            { s.Forces = f }

func (s *Simulator) Pin(id graph.ID, p graph.Point) {
	s.Pinned[id] = true
	s.Positions[id] = p
}

func (s *Simulator) Unpin(id graph.ID) { delete(s.Pinned, id) }

func (s *Simulator) Step(ctx context.Context) error {
	if s.Err != nil {
		return s.Err
	}
	s.Steps++
	for id, p := range s.Positions {
		if s.Pinned[id] {
			continue
		}
		s.Positions[id] = graph.Point{X: p.X + s.Drift.X, Y: p.Y + s.Drift.Y}
	}
	decay := s.Forces.AlphaDecay
	if decay == 0 {
		decay = 0.02
	}
	s.alpha += (s.target - s.alpha) * decay
	return nil
}

func (s *Simulator) PositionOf(id graph.ID) (graph.Point, bool) {
	p, ok := s.Positions[id]
	return p, ok
}

func (s *Simulator) Alpha() float64           { return s.alpha }
func (s *Simulator) SetAlpha(alpha float64)   { s.alpha = alpha }
func (s *Simulator) SetAlphaTarget(t float64) { s.target = t }

var _ layout.Simulator = (*Simulator)(nil)
