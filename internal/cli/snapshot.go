package cli

import (
	"context"
	"slices"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/overlay"
)

// snapshotService serves a saved graph snapshot in place of the data
// service. Shortest paths are computed by the service only, so path queries
// are unsupported offline.
type snapshotService struct {
	g     graph.Graph
	store *graph.Store
}

var _ explorer.DataService = (*snapshotService)(nil)

// openSnapshot reads a snapshot written by "render -o FILE.json".
func openSnapshot(path string) (*snapshotService, error) {
	g, err := graph.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read snapshot")
	}
	store := graph.FromGraph(g)
	if store.NodeCount() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyDataset, "snapshot %s has no characters", path)
	}
	return &snapshotService{g: g, store: store}, nil
}

func (s *snapshotService) lookup(ref string) (*graph.Node, bool) {
	if n, ok := s.store.Node(graph.ID(ref)); ok {
		return n, true
	}
	return s.store.FindByName(ref)
}

func (s *snapshotService) InitialGraph(_ context.Context, seed string) (graph.Graph, error) {
	if seed == "" {
		return graph.Graph{Nodes: []graph.Node{*s.store.Nodes()[0]}}, nil
	}
	n, ok := s.lookup(seed)
	if !ok {
		return graph.Graph{}, errors.New(errors.ErrCodeNotFound, "unknown character %q", seed)
	}
	return graph.Graph{Nodes: []graph.Node{*n}}, nil
}

func (s *snapshotService) Expansion(_ context.Context, id graph.ID) (graph.Graph, error) {
	var g graph.Graph
	for _, nb := range s.store.Neighbors(id) {
		if n, ok := s.store.Node(nb); ok {
			g.Nodes = append(g.Nodes, *n)
		}
	}
	g.Links = s.store.Incident(id)
	return g, nil
}

func (s *snapshotService) AllNodes(context.Context) ([]graph.Node, error) {
	return s.g.Nodes, nil
}

func (s *snapshotService) AllLinks(context.Context) ([]graph.Link, error) {
	return s.g.Links, nil
}

func (s *snapshotService) Characters(context.Context) ([]string, error) {
	names := make([]string, 0, len(s.g.Nodes))
	for i := range s.g.Nodes {
		names = append(names, s.g.Nodes[i].DisplayName())
	}
	slices.Sort(names)
	return names, nil
}

func (s *snapshotService) ShortestPath(context.Context, string, string) (overlay.Path, error) {
	return overlay.Path{}, errors.New(errors.ErrCodeUnsupported, "shortest paths need a data service; drop --from")
}

func (s *snapshotService) NetworkData(context.Context) (graph.Graph, error) {
	return s.g, nil
}
