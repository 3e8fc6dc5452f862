// Package dataset builds the character graph served by the reference data
// service.
//
// Raw relation rows are loaded from a [Source] (CSV files, SQLite or
// MongoDB) and turned into a [Dataset] by [Build]: names get sequential ids
// in first-seen order, duplicate pairs are folded into a weight, and every
// node carries degree, PageRank, a community index and simulated screen-time
// fields. The query methods produce the payloads of the service endpoints.
package dataset

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/castgraph/pkg/analytics"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/overlay"
)

var (
	// ErrUnknownCharacter is returned when a name or id is not in the dataset.
	ErrUnknownCharacter = errors.New("character does not exist")

	// ErrNoPath is returned when two characters are not connected.
	ErrNoPath = errors.New("no path")
)

// Communities is the number of distinct community indices. Detected
// communities beyond it wrap around.
const Communities = 10

// Relation is one row of the relation table.
type Relation struct {
	Subject string `bson:"subject"`
	Object  string `bson:"object"`
	Type    string `bson:"relation"`
}

// Character is one row of the optional character table.
type Character struct {
	ID      string `bson:"id"`
	Name    string `bson:"name"`
	Status  string `bson:"status"`
	Species string `bson:"species"`
}

// Raw is the unprocessed content of a source.
type Raw struct {
	Relations  []Relation
	Characters []Character
}

// Source loads raw rows.
type Source interface {
	Load(ctx context.Context) (*Raw, error)
}

// Movies is the fixed timeline of the social-network view.
var Movies = []graph.Movie{
	{ID: "1", Name: "Iron Man", Year: 2008},
	{ID: "2", Name: "Thor", Year: 2011},
	{ID: "3", Name: "The Avengers", Year: 2012},
	{ID: "4", Name: "Guardians of the Galaxy", Year: 2014},
	{ID: "5", Name: "Avengers: Age of Ultron", Year: 2015},
	{ID: "6", Name: "Captain America: Civil War", Year: 2016},
	{ID: "7", Name: "Avengers: Infinity War", Year: 2018},
	{ID: "8", Name: "Avengers: Endgame", Year: 2019},
}

// =============================================================================
// Dataset
// =============================================================================

// Dataset is an immutable, analysed character graph. It is safe for
// concurrent reads.
type Dataset struct {
	store  *graph.Store
	byName map[string]graph.ID
	adj    map[graph.ID][]graph.ID
}

// Option configures [Build].
type Option func(*buildConfig)

type buildConfig struct {
	seed uint64
}

// WithSeed sets the seed of the simulated screen-time fields.
func WithSeed(seed uint64) Option {
	return func(c *buildConfig) { c.seed = seed }
}

type pair struct{ a, b string }

func newPair(s, t string) pair {
	if s > t {
		s, t = t, s
	}
	return pair{s, t}
}

// Build analyses raw rows. Rows with an empty subject or object are
// skipped. The first relation type seen for a pair is kept.
func Build(raw *Raw, opts ...Option) *Dataset {
	cfg := buildConfig{seed: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	ids := map[string]graph.ID{}
	var names []string
	addName := func(name string) {
		if _, ok := ids[name]; !ok {
			names = append(names, name)
			ids[name] = graph.ID(strconv.Itoa(len(names)))
		}
	}

	var pairs []pair
	weights := map[pair]int{}
	types := map[pair]string{}
	for _, r := range raw.Relations {
		s, t := clean(r.Subject), clean(r.Object)
		if s == "" || t == "" {
			continue
		}
		addName(s)
		addName(t)
		p := newPair(s, t)
		if _, ok := weights[p]; !ok {
			pairs = append(pairs, p)
			types[p] = clean(r.Type)
		}
		weights[p]++
	}

	details := map[string]Character{}
	for _, c := range raw.Characters {
		if name := clean(c.Name); name != "" {
			details[name] = c
		}
	}

	nodes := make([]graph.Node, len(names))
	for i, name := range names {
		c := details[name]
		nodes[i] = graph.Node{
			ID:      ids[name],
			Name:    name,
			Status:  graph.Status(strings.ToLower(clean(c.Status))),
			Species: graph.Category(clean(c.Species)),
		}
	}
	links := make([]graph.Link, len(pairs))
	for i, p := range pairs {
		links[i] = graph.Link{
			Source: ids[p.a],
			Target: ids[p.b],
			Weight: float64(weights[p]),
			Type:   types[p],
		}
	}

	store := graph.NewStore()
	store.Merge(nodes, links)

	rank := PageRank(store, DefaultDamping)
	comm := DetectCommunities(store)
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15))
	for _, n := range store.Nodes() {
		d := analytics.Degree(store, n.ID)
		n.Degree = d
		n.PageRank = rank[n.ID] * 1000
		n.Community = graph.Category(strconv.Itoa(comm[n.ID] % Communities))
		n.ScreenTime = float64(d*15 + 10 + rng.IntN(41))
		n.FirstAppearance = 2008 + rng.IntN(16)
	}

	ds := &Dataset{
		store:  store,
		byName: ids,
		adj:    make(map[graph.ID][]graph.ID, len(names)),
	}
	for _, id := range store.IDs() {
		ds.adj[id] = store.Neighbors(id)
	}
	return ds
}

// Load reads src and builds a dataset from it.
func Load(ctx context.Context, src Source, opts ...Option) (*Dataset, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Build(raw, opts...), nil
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// =============================================================================
// Queries
// =============================================================================

// Len returns the number of characters.
func (d *Dataset) Len() int { return d.store.NodeCount() }

// Lookup resolves a reference that is either an id or a name.
func (d *Dataset) Lookup(ref string) (*graph.Node, bool) {
	ref = strings.TrimSpace(ref)
	if n, ok := d.store.Node(graph.ID(ref)); ok {
		return n, true
	}
	if id, ok := d.byName[ref]; ok {
		return d.store.Node(id)
	}
	return nil, false
}

// Init returns the seed payload: the referenced node alone.
func (d *Dataset) Init(ref string) (graph.Graph, error) {
	n, ok := d.Lookup(ref)
	if !ok {
		return graph.Graph{}, ErrUnknownCharacter
	}
	return graph.Graph{Nodes: []graph.Node{brief(n)}, Links: []graph.Link{}}, nil
}

// Expand returns the neighbours of ref and the links to them. An unknown
// reference yields an empty payload.
func (d *Dataset) Expand(ref string) graph.Graph {
	out := graph.Graph{Nodes: []graph.Node{}, Links: []graph.Link{}}
	n, ok := d.Lookup(ref)
	if !ok {
		return out
	}
	for _, l := range d.store.Incident(n.ID) {
		other, _ := l.Other(n.ID)
		out.Links = append(out.Links, graph.Link{Source: n.ID, Target: other, Type: l.Type})
		if other == n.ID {
			continue
		}
		nb, _ := d.store.Node(other)
		out.Nodes = append(out.Nodes, brief(nb))
	}
	return out
}

// Names returns every character name, sorted.
func (d *Dataset) Names() []string {
	out := make([]string, 0, len(d.byName))
	for name := range d.byName {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Nodes returns every character as id and name.
func (d *Dataset) Nodes() []graph.Node {
	nodes := d.store.Nodes()
	out := make([]graph.Node, len(nodes))
	for i, n := range nodes {
		out[i] = graph.Node{ID: n.ID, Name: n.Name}
	}
	return out
}

// Links returns every relationship with its type.
func (d *Dataset) Links() []graph.Link {
	links := d.store.Links()
	for i := range links {
		links[i].Weight = 0
	}
	return links
}

// Network returns the social-network payload: analysed nodes, weighted
// links and the movie timeline.
func (d *Dataset) Network() graph.Graph {
	g := d.store.Snapshot()
	if g.Nodes == nil {
		g.Nodes = []graph.Node{}
	}
	if g.Links == nil {
		g.Links = []graph.Link{}
	}
	g.Movies = slices.Clone(Movies)
	return g
}

// ShortestPath finds a shortest path between two characters by name or id
// using breadth-first search.
func (d *Dataset) ShortestPath(start, end string) (overlay.Path, error) {
	from, ok := d.Lookup(start)
	if !ok {
		return overlay.Path{}, ErrUnknownCharacter
	}
	to, ok := d.Lookup(end)
	if !ok {
		return overlay.Path{}, ErrUnknownCharacter
	}

	prev := map[graph.ID]graph.ID{from.ID: from.ID}
	queue := []graph.ID{from.ID}
	for len(queue) > 0 && !hasKey(prev, to.ID) {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range d.adj[cur] {
			if _, seen := prev[nb]; seen {
				continue
			}
			prev[nb] = cur
			queue = append(queue, nb)
		}
	}
	if !hasKey(prev, to.ID) {
		return overlay.Path{}, ErrNoPath
	}

	ids := []graph.ID{to.ID}
	for id := to.ID; id != from.ID; {
		id = prev[id]
		ids = append(ids, id)
	}
	slices.Reverse(ids)

	var p overlay.Path
	p.Links = []graph.Link{}
	for i, id := range ids {
		n, _ := d.store.Node(id)
		p.Nodes = append(p.Nodes, brief(n))
		if i > 0 {
			l, _ := d.store.Link(ids[i-1], id)
			p.Links = append(p.Links, graph.Link{Source: ids[i-1], Target: id, Type: l.Type})
		}
	}
	return p, nil
}

func hasKey(m map[graph.ID]graph.ID, k graph.ID) bool {
	_, ok := m[k]
	return ok
}

// brief strips analysis fields for the exploration endpoints.
func brief(n *graph.Node) graph.Node {
	return graph.Node{
		ID:      n.ID,
		Name:    n.Name,
		Status:  n.Status,
		Species: n.Species,
	}
}
