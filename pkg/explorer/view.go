package explorer

import (
	"slices"

	"github.com/matzehuels/castgraph/pkg/analytics"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/overlay"
	"github.com/matzehuels/castgraph/pkg/selection"
)

// Details is the detail-panel view of one node.
type Details struct {
	Node        graph.Node
	Degree      int
	BridgeScore int
	LeaderScore int
	Bridge      bool
	Leader      bool
	Relations   analytics.Histogram
	Neighbors   []graph.ID
}

// displayed returns the store the views draw: the path subgraph in
// path-only mode, otherwise the whole store. The caller holds a lock.
func (s *Session) displayed() *graph.Store {
	if s.pathOnly && s.overlay.Active() {
		return s.store.Subgraph(s.overlay.Path().IDs())
	}
	return s.store
}

// Snapshot returns a copy of the displayed nodes and links, with current
// positions, and the movie list.
func (s *Session) Snapshot() graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.displayed().Snapshot()
	g.Movies = slices.Clone(s.movies)
	return g
}

// Analyze runs fn against the full store under the read lock. fn must not
// retain the store.
func (s *Session) Analyze(fn func(*graph.Store)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.store)
}

// Position returns the current position of a node.
func (s *Session) Position(id graph.ID) (graph.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Position(id)
}

// Radius returns the drawn radius of a node under the current size mode.
func (s *Session) Radius(id graph.ID) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.store.Node(id); ok {
		return s.engine.Radius(n)
	}
	return layout.MinRadius
}

// Mode returns the current highlight mode.
func (s *Session) Mode() selection.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel.Mode()
}

// SizeMode returns the current node-size function.
func (s *Session) SizeMode() layout.SizeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.SizeMode()
}

// Assignment returns the style of every displayed node and link.
func (s *Session) Assignment() selection.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel.Assign(s.displayed(), s.overlay)
}

// PathActive reports whether a path is highlighted.
func (s *Session) PathActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay.Active()
}

// Path returns the highlighted path.
func (s *Session) Path() (overlay.Path, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay.Path(), s.overlay.Active()
}

// Particles returns the current particle positions along the path.
func (s *Session) Particles() []graph.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay.ParticlePositions(s.engine.Position)
}

// Characters returns the cached character names.
func (s *Session) Characters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.names)
}

// Timeline returns the movie appearances of a node.
func (s *Session) Timeline(id graph.ID) ([]analytics.Appearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.store.Node(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "unknown character %q", id)
	}
	return analytics.Appearances(n, s.movies), nil
}

// Details returns the analytics of a node over the full store.
func (s *Session) Details(id graph.ID) (Details, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.store.Node(id)
	if !ok {
		return Details{}, errors.New(errors.ErrCodeNotFound, "unknown character %q", id)
	}
	d := Details{
		Node:        *n,
		Degree:      analytics.Degree(s.store, id),
		BridgeScore: analytics.BridgeScore(s.store, id),
		LeaderScore: analytics.LeaderScore(s.store, id),
		Bridge:      analytics.Bridges(s.store)[id],
		Leader:      analytics.Leaders(s.store)[id],
		Relations:   analytics.RelationHistogram(s.store, id),
		Neighbors:   s.store.Neighbors(id),
	}
	if n.Pinned() {
		d.Node.FX, d.Node.FY = nil, nil
		d.Node.X, d.Node.Y = *n.FX, *n.FY
	}
	return d, nil
}

// Find resolves a character by id or name.
func (s *Session) Find(ref string) (graph.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store.HasNode(graph.ID(ref)) {
		return graph.ID(ref), true
	}
	if n, ok := s.store.FindByName(ref); ok {
		return n.ID, true
	}
	return "", false
}
