package explorer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/observability"
)

// Operation names used in events, logs and metrics.
const (
	OpInit    = "init"
	OpAll     = "all"
	OpNetwork = "network"
	OpExpand  = "expand"
	OpPath    = "path"
	OpNames   = "characters"
)

// Each operation is split into a fetch, which runs without the lock, and
// the apply closure it returns, which runs under the lock. The synchronous
// methods run both in the caller's goroutine; Run runs the fetch in a
// goroutine and applies the result on the loop.

// LoadInitial fetches the seed's graph and pins the seed at the layout
// centre. A response without nodes fails with EMPTY_DATASET and leaves the
// session untouched.
func (s *Session) LoadInitial(ctx context.Context, seed string) error {
	return s.locked(s.fetchInitial(ctx, seed))
}

// LoadAll fetches every node and link.
func (s *Session) LoadAll(ctx context.Context) error {
	return s.locked(s.fetchAll(ctx))
}

// LoadNetwork fetches the social-network payload, including the movie list
// used by timelines.
func (s *Session) LoadNetwork(ctx context.Context) error {
	return s.locked(s.fetchNetwork(ctx))
}

// Expand fetches the neighbours of id and merges them. New nodes start at
// the parent's position; a pinned parent is released.
func (s *Session) Expand(ctx context.Context, id graph.ID) error {
	return s.locked(s.fetchExpansion(ctx, id))
}

// QueryPath asks the data service for the shortest path between two
// characters and highlights it.
//
// Identical endpoints are rejected with INVALID_PATH_QUERY before any call.
// A PATH_NOT_FOUND failure clears the previous path; a network failure
// leaves it in place.
func (s *Session) QueryPath(ctx context.Context, start, end string) error {
	id, err := s.beginPath(start, end)
	if err != nil {
		return err
	}
	return s.locked(s.fetchPath(ctx, id, start, end))
}

// LoadCharacters fetches and caches the list of character names.
func (s *Session) LoadCharacters(ctx context.Context) ([]string, error) {
	if err := s.locked(s.fetchNames(ctx)); err != nil {
		return nil, err
	}
	return s.Characters(), nil
}

// ClearPath removes the highlighted path and returns to the full graph.
func (s *Session) ClearPath() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPath()
}

// ShowPathOnly restricts the displayed graph to the current path.
func (s *Session) ShowPathOnly() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.overlay.Active() {
		return errors.New(errors.ErrCodeNotFound, "no path to show")
	}
	s.pathOnly = true
	s.engine.Reheat(layout.AlphaRestart)
	return nil
}

// ShowAll displays the whole stored graph again.
func (s *Session) ShowAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pathOnly = false
	s.engine.Reheat(layout.AlphaRestart)
}

// =============================================================================
// Fetch and apply
// =============================================================================

func (s *Session) fetchInitial(ctx context.Context, seed string) func() error {
	start := time.Now()
	g, err := s.svc.InitialGraph(ctx, seed)
	observability.Explorer().OnFetch(ctx, OpInit, time.Since(start), err)
	return func() error {
		if err != nil {
			return s.fail(OpInit, fetchError(OpInit, err))
		}
		if len(g.Nodes) == 0 {
			return s.fail(OpInit, errors.New(errors.ErrCodeEmptyDataset, "no characters found for %q", seed))
		}
		res := s.merge(ctx, OpInit, g.Nodes, g.Links)
		root := g.Nodes[0].ID
		if err := s.engine.Pin(root, s.engine.Forces().Center); err != nil {
			s.logger.Warn("pin seed", "id", root, "error", err)
		}
		s.logger.Info("loaded seed", "seed", seed, "nodes", res.AddedNodes, "links", res.AddedLinks)
		return nil
	}
}

func (s *Session) fetchAll(ctx context.Context) func() error {
	start := time.Now()
	nodes, err := s.svc.AllNodes(ctx)
	var links []graph.Link
	if err == nil {
		links, err = s.svc.AllLinks(ctx)
	}
	observability.Explorer().OnFetch(ctx, OpAll, time.Since(start), err)
	return func() error {
		if err != nil {
			return s.fail(OpAll, fetchError(OpAll, err))
		}
		if len(nodes) == 0 {
			return s.fail(OpAll, errors.New(errors.ErrCodeEmptyDataset, "the data service returned no characters"))
		}
		s.merge(ctx, OpAll, nodes, links)
		return nil
	}
}

func (s *Session) fetchNetwork(ctx context.Context) func() error {
	start := time.Now()
	g, err := s.svc.NetworkData(ctx)
	observability.Explorer().OnFetch(ctx, OpNetwork, time.Since(start), err)
	return func() error {
		if err != nil {
			return s.fail(OpNetwork, fetchError(OpNetwork, err))
		}
		if len(g.Nodes) == 0 {
			return s.fail(OpNetwork, errors.New(errors.ErrCodeEmptyDataset, "the social network is empty"))
		}
		s.merge(ctx, OpNetwork, g.Nodes, g.Links)
		if len(g.Movies) > 0 {
			s.movies = g.Movies
		}
		return nil
	}
}

func (s *Session) fetchExpansion(ctx context.Context, id graph.ID) func() error {
	start := time.Now()
	g, err := s.svc.Expansion(ctx, id)
	observability.Explorer().OnFetch(ctx, OpExpand, time.Since(start), err)
	return func() error {
		if err != nil {
			return s.fail(OpExpand, fetchError(OpExpand, err))
		}
		var opts []graph.MergeOption
		if p, ok := s.engine.Position(id); ok {
			opts = append(opts, graph.SeedAt(p))
		}
		res := s.merge(ctx, OpExpand, g.Nodes, g.Links, opts...)
		if n, ok := s.store.Node(id); ok && n.Pinned() && s.dragging != id {
			if err := s.engine.Unpin(id); err != nil {
				s.logger.Warn("unpin", "id", id, "error", err)
			}
		}
		s.logger.Debug("expanded", "id", id, "nodes", res.AddedNodes, "links", res.AddedLinks)
		return nil
	}
}

// beginPath validates a path query and registers it as the latest one.
// Rejected queries clear the current path.
func (s *Session) beginPath(start, end string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := errors.ValidatePathQuery(start, end); err != nil {
		s.query = uuid.Nil
		s.clearPath()
		observability.Explorer().OnPathQuery(context.Background(), -1, 0)
		return uuid.Nil, s.fail(OpPath, err)
	}
	s.query = uuid.New()
	return s.query, nil
}

func (s *Session) fetchPath(ctx context.Context, id uuid.UUID, from, to string) func() error {
	start := time.Now()
	p, err := s.svc.ShortestPath(ctx, from, to)
	elapsed := time.Since(start)
	observability.Explorer().OnFetch(ctx, OpPath, elapsed, err)
	if err == nil && len(p.Nodes) == 0 {
		err = errors.New(errors.ErrCodePathNotFound, "no path between %q and %q", from, to)
	}
	return func() error {
		if id != s.query {
			s.logger.Debug("discarding stale path response", "query", id)
			return nil
		}
		if err != nil {
			observability.Explorer().OnPathQuery(ctx, -1, elapsed)
			err = fetchError(OpPath, err)
			if errors.Is(err, errors.ErrCodePathNotFound) {
				s.clearPath()
			}
			return s.fail(OpPath, err)
		}
		s.merge(ctx, OpPath, p.Nodes, p.Links)
		if err := s.overlay.Set(p); err != nil {
			return s.fail(OpPath, errors.Wrap(errors.ErrCodePathNotFound, err, "no path between %q and %q", from, to))
		}
		observability.Explorer().OnPathQuery(ctx, p.Len(), elapsed)
		s.logger.Info("path", "start", from, "end", to, "length", p.Len())
		s.emit(PathChanged{Query: id, Active: true, Length: p.Len()})
		return nil
	}
}

func (s *Session) fetchNames(ctx context.Context) func() error {
	start := time.Now()
	names, err := s.svc.Characters(ctx)
	observability.Explorer().OnFetch(ctx, OpNames, time.Since(start), err)
	return func() error {
		if err != nil {
			return s.fail(OpNames, fetchError(OpNames, err))
		}
		s.names = names
		return nil
	}
}

// merge adds data to the store, registers it with the layout and reports
// the change. The caller holds the lock.
func (s *Session) merge(ctx context.Context, op string, nodes []graph.Node, links []graph.Link, opts ...graph.MergeOption) graph.MergeResult {
	res := s.store.Merge(nodes, links, opts...)
	if res.DroppedLinks > 0 {
		s.logger.Debug("dropped dangling links", "op", op, "count", res.DroppedLinks)
	}
	if !res.Empty() {
		s.engine.Sync()
	}
	observability.Explorer().OnMerge(ctx, op, res.AddedNodes, res.AddedLinks)
	s.emit(Merged{Op: op, Result: res})
	return res
}

func (s *Session) clearPath() {
	wasActive := s.overlay.Active()
	s.overlay.Clear()
	s.pathOnly = false
	if wasActive {
		s.emit(PathChanged{Query: s.query, Active: false})
	}
}

func (s *Session) fail(op string, err error) error {
	if errors.Dismissible(err) {
		s.logger.Warn(op+" failed", "error", errors.UserMessage(err))
	} else {
		s.logger.Error(op+" failed", "error", err)
	}
	s.emit(Failed{Op: op, Err: err})
	return err
}

// fetchError gives uncoded data-service failures the NETWORK_FAILURE code.
func fetchError(op string, err error) error {
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeNetworkFailure, err, "%s request failed", op)
}
