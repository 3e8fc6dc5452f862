// Package layout wraps a force-directed simulator for the character graph.
//
// The numeric integrator itself is a black box behind [Simulator]. The
// [Engine] parameterizes it (link distance and strength from the link
// weight, many-body charge, centering, collision radius from the selected
// [SizeMode]), feeds it nodes and links as the store grows, and copies the
// integrated positions back into the store after every tick.
//
// Re-parameterizing never moves nodes directly: it reheats the simulation
// so positions change continuously.
//
// The fdp subpackage provides a Graphviz-backed simulator; layouttest
// provides a deterministic one for tests.
package layout

import (
	"context"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// Reheat levels.
const (
	AlphaRestart   = 1.0 // new data, force preset change, view reset
	AlphaResize    = 0.3 // size mode change
	AlphaDragging  = 0.3 // alpha target while a node is dragged
	maxSettleTicks = 1000
)

// Simulator is the numeric integrator driven by an [Engine].
//
// AddNode registers a node once; AddLink inserts or updates the link
// between two nodes. While a node is pinned, PositionOf returns the pin and
// Step must not move it. Unpin releases the node where it was pinned.
type Simulator interface {
	AddNode(id graph.ID, p graph.Point, radius float64)
	AddLink(source, target graph.ID, distance, strength float64)
	SetRadius(id graph.ID, radius float64)
	SetForces(f Forces)
	Pin(id graph.ID, p graph.Point)
	Unpin(id graph.ID)
	Step(ctx context.Context) error
	PositionOf(id graph.ID) (graph.Point, bool)
	Alpha() float64
	SetAlpha(alpha float64)
	SetAlphaTarget(target float64)
}

// Settler is implemented by simulators that can run a layout to completion
// in one call.
type Settler interface {
	Settle(ctx context.Context) error
}

// Engine drives a [Simulator] over a [graph.Store].
type Engine struct {
	store  *graph.Store
	sim    Simulator
	forces Forces
	size   SizeMode
	target float64

	nodes map[graph.ID]bool
	links map[graph.EdgeKey]bool
}

// Option configures an [Engine].
type Option func(*Engine)

// WithForces sets the initial force preset.
func WithForces(f Forces) Option {
	return func(e *Engine) { e.forces = f }
}

// WithSizeMode sets the initial node-size function.
func WithSizeMode(m SizeMode) Option {
	return func(e *Engine) { e.size = m }
}

// NewEngine creates an engine for s and registers its current contents.
func NewEngine(s *graph.Store, sim Simulator, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		sim:    sim,
		forces: DefaultForces(),
		size:   SizePageRank,
		nodes:  make(map[graph.ID]bool),
		links:  make(map[graph.EdgeKey]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	sim.SetForces(e.forces)
	e.Sync()
	return e
}

// Store returns the store the engine lays out.
func (e *Engine) Store() *graph.Store { return e.store }

// Forces returns the current force parameters.
func (e *Engine) Forces() Forces { return e.forces }

// SizeMode returns the current node-size function.
func (e *Engine) SizeMode() SizeMode { return e.size }

// Radius returns the drawn radius of n under the current size mode.
func (e *Engine) Radius(n *graph.Node) float64 { return e.size.Radius(n) }

// Sync registers nodes and links added to the store since the last call
// and reheats the simulation when anything was added. New nodes start at
// their stored position.
func (e *Engine) Sync() int {
	added := 0
	for _, n := range e.store.Nodes() {
		if e.nodes[n.ID] {
			continue
		}
		e.sim.AddNode(n.ID, n.Position(), e.forces.Collide(e.size.Radius(n)))
		if n.Pinned() {
			e.sim.Pin(n.ID, n.Position())
		}
		e.nodes[n.ID] = true
		added++
	}
	for _, l := range e.store.Links() {
		key := l.Key()
		if e.links[key] {
			continue
		}
		e.sim.AddLink(l.Source, l.Target, e.forces.Distance(l.Weight), e.forces.Strength(l.Weight))
		e.links[key] = true
		added++
	}
	if added > 0 {
		e.Reheat(AlphaRestart)
	}
	return added
}

// Cooled reports whether the simulation has come to rest.
func (e *Engine) Cooled() bool {
	return e.target == 0 && e.sim.Alpha() < e.forces.AlphaMin
}

// Tick advances the simulator one step and copies positions of free nodes
// back into the store. It does nothing once the simulation has cooled.
func (e *Engine) Tick(ctx context.Context) error {
	if e.Cooled() {
		return nil
	}
	if err := e.sim.Step(ctx); err != nil {
		return err
	}
	e.writeBack()
	return nil
}

// Settle runs the simulation until it cools.
func (e *Engine) Settle(ctx context.Context) error {
	if s, ok := e.sim.(Settler); ok {
		if err := s.Settle(ctx); err != nil {
			return err
		}
		e.writeBack()
		return nil
	}
	for i := 0; i < maxSettleTicks && !e.Cooled(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeBack() {
	for id := range e.nodes {
		if p, ok := e.sim.PositionOf(id); ok {
			_ = e.store.SetPosition(id, p)
		}
	}
}

// Position returns the current position of a node: the pin while pinned,
// otherwise the last integrated position.
func (e *Engine) Position(id graph.ID) (graph.Point, bool) {
	if n, ok := e.store.Node(id); ok && n.Pinned() {
		return n.Position(), true
	}
	if p, ok := e.sim.PositionOf(id); ok {
		return p, true
	}
	if n, ok := e.store.Node(id); ok {
		return n.Position(), true
	}
	return graph.Point{}, false
}

// Reheat raises the simulation energy so it keeps moving.
func (e *Engine) Reheat(alpha float64) {
	if alpha > e.sim.Alpha() {
		e.sim.SetAlpha(alpha)
	}
}

// SetSizeMode switches the node-size function, updates collision radii and
// reheats.
func (e *Engine) SetSizeMode(m SizeMode) {
	e.size = m
	e.resize()
	e.Reheat(AlphaResize)
}

// SetForces switches the force preset, re-derives link parameters and
// restarts the simulation.
func (e *Engine) SetForces(f Forces) {
	e.forces = f
	e.sim.SetForces(f)
	for _, l := range e.store.Links() {
		if e.links[l.Key()] {
			e.sim.AddLink(l.Source, l.Target, f.Distance(l.Weight), f.Strength(l.Weight))
		}
	}
	e.resize()
	e.Reheat(AlphaRestart)
}

// Recenter moves the centering force to c and restarts the simulation.
func (e *Engine) Recenter(c graph.Point) {
	f := e.forces
	f.Center = c
	e.SetForces(f)
}

func (e *Engine) resize() {
	for _, n := range e.store.Nodes() {
		if e.nodes[n.ID] {
			e.sim.SetRadius(n.ID, e.forces.Collide(e.size.Radius(n)))
		}
	}
}

// =============================================================================
// Pinning and Dragging
// =============================================================================

// Pin fixes a node at p until [Engine.Unpin].
func (e *Engine) Pin(id graph.ID, p graph.Point) error {
	if err := e.store.Pin(id, p); err != nil {
		return err
	}
	e.sim.Pin(id, p)
	return nil
}

// Unpin releases a node at its pinned position.
func (e *Engine) Unpin(id graph.ID) error {
	if err := e.store.Unpin(id); err != nil {
		return err
	}
	e.sim.Unpin(id)
	return nil
}

// DragStart pins a node where it currently is and keeps the simulation
// warm for the duration of the drag.
func (e *Engine) DragStart(id graph.ID) error {
	p, ok := e.Position(id)
	if !ok {
		return graph.ErrUnknownNode
	}
	if err := e.Pin(id, p); err != nil {
		return err
	}
	e.target = AlphaDragging
	e.sim.SetAlphaTarget(AlphaDragging)
	e.Reheat(AlphaDragging)
	return nil
}

// DragMove moves the pinned node to p.
func (e *Engine) DragMove(id graph.ID, p graph.Point) error {
	return e.Pin(id, p)
}

// DragEnd releases the node at its drop point and lets the simulation cool.
func (e *Engine) DragEnd(id graph.ID) error {
	e.target = 0
	e.sim.SetAlphaTarget(0)
	return e.Unpin(id)
}
