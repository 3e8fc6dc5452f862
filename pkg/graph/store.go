package graph

import (
	"errors"
	"slices"
	"strings"
)

// ErrUnknownNode is returned by position and pin mutators when the id is
// not in the store.
var ErrUnknownNode = errors.New("unknown node")

// Store is the canonical, deduplicated node/link collection.
//
// Nodes are kept in insertion order and indexed by id. Links are indexed by
// their undirected [EdgeKey], so a store never holds both (a,b) and (b,a).
// Every stored link references stored nodes.
//
// The zero value is not usable; create stores with [NewStore].
type Store struct {
	nodes map[ID]*Node
	order []ID

	links    []Link
	keys     map[EdgeKey]int
	incident map[ID][]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:    make(map[ID]*Node),
		keys:     make(map[EdgeKey]int),
		incident: make(map[ID][]int),
	}
}

// MergeResult reports what a [Store.Merge] call changed.
type MergeResult struct {
	AddedNodes   int
	AddedLinks   int
	DroppedLinks int // links with an endpoint missing after the node pass
}

// Empty reports whether the merge added nothing.
func (r MergeResult) Empty() bool { return r.AddedNodes == 0 && r.AddedLinks == 0 }

// MergeOption configures a single merge call.
type MergeOption func(*mergeOptions)

type mergeOptions struct {
	seed *Point
}

// SeedAt places nodes added by the merge that carry no layout state at p.
// Expansions pass the parent's last known position so the layout does not
// pull new nodes in from the origin.
func SeedAt(p Point) MergeOption {
	return func(o *mergeOptions) { o.seed = &p }
}

// Merge adds nodes and links that are not yet stored.
//
// Nodes are processed first: an id that already exists is skipped and the
// stored copy, including its layout state, is kept. Links are processed
// second: a link whose endpoints are not both stored is dropped, and a link
// whose undirected key is already stored (in either direction) is skipped.
//
// Merge never fails. Calling it twice with the same input adds nothing the
// second time.
func (s *Store) Merge(nodes []Node, links []Link, opts ...MergeOption) MergeResult {
	var o mergeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var res MergeResult
	for i := range nodes {
		n := nodes[i]
		if n.ID == "" {
			continue
		}
		if _, ok := s.nodes[n.ID]; ok {
			continue
		}
		stored := n.clone()
		if o.seed != nil && !stored.hasPosition() {
			stored.X, stored.Y = o.seed.X, o.seed.Y
		}
		s.nodes[n.ID] = &stored
		s.order = append(s.order, n.ID)
		res.AddedNodes++
	}

	for _, l := range links {
		if !s.HasNode(l.Source) || !s.HasNode(l.Target) {
			res.DroppedLinks++
			continue
		}
		key := l.Key()
		if _, ok := s.keys[key]; ok {
			continue
		}
		idx := len(s.links)
		s.links = append(s.links, l)
		s.keys[key] = idx
		s.incident[l.Source] = append(s.incident[l.Source], idx)
		if !l.SelfLoop() {
			s.incident[l.Target] = append(s.incident[l.Target], idx)
		}
		res.AddedLinks++
	}
	return res
}

// =============================================================================
// Accessors
// =============================================================================

// Node returns the stored node. The pointer is owned by the store; callers
// may read it but must mutate layout state through the store's mutators.
func (s *Store) Node(id ID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// HasNode reports whether id is stored.
func (s *Store) HasNode(id ID) bool {
	_, ok := s.nodes[id]
	return ok
}

// Nodes returns the stored nodes in insertion order.
func (s *Store) Nodes() []*Node {
	out := make([]*Node, len(s.order))
	for i, id := range s.order {
		out[i] = s.nodes[id]
	}
	return out
}

// IDs returns the stored ids in insertion order.
func (s *Store) IDs() []ID { return slices.Clone(s.order) }

// Links returns a copy of the stored links in insertion order.
func (s *Store) Links() []Link { return slices.Clone(s.links) }

// NodeCount returns the number of stored nodes.
func (s *Store) NodeCount() int { return len(s.order) }

// LinkCount returns the number of stored links.
func (s *Store) LinkCount() int { return len(s.links) }

// HasLink reports whether a link between a and b exists in either direction.
func (s *Store) HasLink(a, b ID) bool {
	_, ok := s.keys[NewEdgeKey(a, b)]
	return ok
}

// Link returns the stored link between a and b in either direction.
func (s *Store) Link(a, b ID) (Link, bool) {
	idx, ok := s.keys[NewEdgeKey(a, b)]
	if !ok {
		return Link{}, false
	}
	return s.links[idx], true
}

// Incident returns the links touching id. A self-loop appears once.
func (s *Store) Incident(id ID) []Link {
	idx := s.incident[id]
	out := make([]Link, len(idx))
	for i, j := range idx {
		out[i] = s.links[j]
	}
	return out
}

// Neighbors returns the distinct ids adjacent to id, in link order.
func (s *Store) Neighbors(id ID) []ID {
	var out []ID
	seen := make(map[ID]bool)
	for _, j := range s.incident[id] {
		other, _ := s.links[j].Other(id)
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

// FindByName returns the node with the given name, preferring an exact
// match over a case-insensitive one.
func (s *Store) FindByName(name string) (*Node, bool) {
	var fold *Node
	for _, id := range s.order {
		n := s.nodes[id]
		if n.Name == name {
			return n, true
		}
		if fold == nil && strings.EqualFold(n.Name, name) {
			fold = n
		}
	}
	return fold, fold != nil
}

// =============================================================================
// Layout State
// =============================================================================

// SetPosition updates the free position of a node. Pinned nodes keep their
// x/y; the call is ignored for them.
func (s *Store) SetPosition(id ID, p Point) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if n.Pinned() {
		return nil
	}
	n.X, n.Y = p.X, p.Y
	return nil
}

// Pin fixes a node at p.
func (s *Store) Pin(id ID, p Point) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	x, y := p.X, p.Y
	n.FX, n.FY = &x, &y
	return nil
}

// Unpin releases a pinned node at its pinned position so it resumes free
// movement from where it was dropped.
func (s *Store) Unpin(id ID) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if n.Pinned() {
		n.X, n.Y = *n.FX, *n.FY
	}
	n.FX, n.FY = nil, nil
	return nil
}

// =============================================================================
// Views
// =============================================================================

// Subgraph returns a new store holding copies of the listed nodes and the
// links among them. Unknown ids are ignored and s is not modified.
func (s *Store) Subgraph(ids []ID) *Store {
	keep := make(map[ID]bool, len(ids))
	var nodes []Node
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok && !keep[id] {
			keep[id] = true
			nodes = append(nodes, n.clone())
		}
	}
	var links []Link
	for _, l := range s.links {
		if keep[l.Source] && keep[l.Target] {
			links = append(links, l)
		}
	}
	sub := NewStore()
	sub.Merge(nodes, links)
	return sub
}

// Snapshot returns a deep copy of the store as a [Graph].
func (s *Store) Snapshot() Graph {
	g := Graph{
		Nodes: make([]Node, len(s.order)),
		Links: append([]Link{}, s.links...),
	}
	for i, id := range s.order {
		g.Nodes[i] = s.nodes[id].clone()
	}
	return g
}

// FromGraph builds a store from a payload.
func FromGraph(g Graph) *Store {
	s := NewStore()
	s.Merge(g.Nodes, g.Links)
	return s
}
