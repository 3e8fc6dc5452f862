// Package overlay holds the highlighted shortest path and its animated flow
// particles.
//
// A path edge matches a stored link in either direction. Each path edge owns
// a fixed number of particles whose offsets advance on every [Overlay.Tick]
// and wrap modulo 1, so the flow never resets visibly.
package overlay

import (
	"errors"
	"math"
	"time"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// Defaults for the particle animation.
const (
	DefaultStep             = 0.015
	DefaultParticlesPerEdge = 2
	Interval                = 30 * time.Millisecond
)

// ErrEmptyPath is returned by [Overlay.Set] for a path without nodes.
var ErrEmptyPath = errors.New("empty path")

// Path is an ordered list of nodes and the links joining consecutive nodes.
type Path struct {
	Nodes []graph.Node `json:"nodes"`
	Links []graph.Link `json:"rels"`
}

// Len returns the number of edges on the path.
func (p Path) Len() int {
	if len(p.Links) > 0 {
		return len(p.Links)
	}
	return max(len(p.Nodes)-1, 0)
}

// IDs returns the node ids in path order.
func (p Path) IDs() []graph.ID {
	out := make([]graph.ID, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.ID
	}
	return out
}

// Particle is a flow marker on a path edge. Offset is the fractional
// position from Link.Source to Link.Target, in [0,1).
type Particle struct {
	Link   graph.Link
	Offset float64
}

// Overlay holds the current path. The zero value is not usable; create one
// with [New].
type Overlay struct {
	step    float64
	perEdge int

	path      Path
	keys      map[graph.EdgeKey]bool
	nodes     map[graph.ID]bool
	particles []Particle
}

// Option configures an [Overlay].
type Option func(*Overlay)

// WithStep sets the offset advance per tick.
func WithStep(step float64) Option {
	return func(o *Overlay) {
		if step > 0 {
			o.step = step
		}
	}
}

// WithParticlesPerEdge sets how many particles each path edge carries.
func WithParticlesPerEdge(n int) Option {
	return func(o *Overlay) {
		if n > 0 {
			o.perEdge = n
		}
	}
}

// New creates an inactive overlay.
func New(opts ...Option) *Overlay {
	o := &Overlay{step: DefaultStep, perEdge: DefaultParticlesPerEdge}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Set replaces the current path and seeds its particles at evenly spaced
// offsets. Links missing from p are derived from consecutive nodes.
func (o *Overlay) Set(p Path) error {
	if len(p.Nodes) == 0 {
		o.Clear()
		return ErrEmptyPath
	}
	if len(p.Links) == 0 {
		for i := 1; i < len(p.Nodes); i++ {
			p.Links = append(p.Links, graph.Link{Source: p.Nodes[i-1].ID, Target: p.Nodes[i].ID})
		}
	}

	o.path = p
	o.keys = make(map[graph.EdgeKey]bool, len(p.Links))
	o.nodes = make(map[graph.ID]bool, len(p.Nodes))
	o.particles = o.particles[:0]
	for _, n := range p.Nodes {
		o.nodes[n.ID] = true
	}
	for _, l := range p.Links {
		o.keys[l.Key()] = true
		for i := 0; i < o.perEdge; i++ {
			o.particles = append(o.particles, Particle{Link: l, Offset: float64(i) / float64(o.perEdge)})
		}
	}
	return nil
}

// Clear removes the path and all particles.
func (o *Overlay) Clear() {
	o.path = Path{}
	o.keys = nil
	o.nodes = nil
	o.particles = nil
}

// Active reports whether a path is set.
func (o *Overlay) Active() bool { return len(o.path.Nodes) > 0 }

// Path returns the current path.
func (o *Overlay) Path() Path { return o.path }

// Len returns the current path length in edges.
func (o *Overlay) Len() int { return o.path.Len() }

// Start returns the first node of the path.
func (o *Overlay) Start() (graph.ID, bool) {
	if !o.Active() {
		return "", false
	}
	return o.path.Nodes[0].ID, true
}

// End returns the last node of the path.
func (o *Overlay) End() (graph.ID, bool) {
	if !o.Active() {
		return "", false
	}
	return o.path.Nodes[len(o.path.Nodes)-1].ID, true
}

// HasLink reports whether l is a path edge, in either direction.
func (o *Overlay) HasLink(l graph.Link) bool { return o.keys[l.Key()] }

// HasNode reports whether id is on the path.
func (o *Overlay) HasNode(id graph.ID) bool { return o.nodes[id] }

// Tick advances every particle by the step, wrapping into [0,1).
func (o *Overlay) Tick() {
	for i := range o.particles {
		off := math.Mod(o.particles[i].Offset+o.step, 1)
		if off < 0 {
			off += 1
		}
		o.particles[i].Offset = off
	}
}

// Particles returns a copy of the current particles.
func (o *Overlay) Particles() []Particle {
	out := make([]Particle, len(o.particles))
	copy(out, o.particles)
	return out
}

// ParticlePositions interpolates every particle between the current
// positions of its link endpoints. Particles whose endpoints have no
// position are skipped.
func (o *Overlay) ParticlePositions(pos func(graph.ID) (graph.Point, bool)) []graph.Point {
	out := make([]graph.Point, 0, len(o.particles))
	for _, p := range o.particles {
		a, ok := pos(p.Link.Source)
		if !ok {
			continue
		}
		b, ok := pos(p.Link.Target)
		if !ok {
			continue
		}
		out = append(out, graph.Point{
			X: a.X + (b.X-a.X)*p.Offset,
			Y: a.Y + (b.Y-a.Y)*p.Offset,
		})
	}
	return out
}
