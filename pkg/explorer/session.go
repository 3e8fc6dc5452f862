// Package explorer owns the state of one graph exploration: the graph
// store, the layout engine, the path overlay and the highlight controller.
//
// A [Session] is the single context object every view works against.
// Nothing is global; the data service, simulator and logger are injected.
//
// There are two ways to drive a session. One-shot callers use the
// synchronous operations ([Session.LoadInitial], [Session.Expand],
// [Session.QueryPath], ...). Interactive callers start [Session.Run] and
// push typed intents with [Session.Send]; the loop owns all mutation,
// fetches run in goroutines and post their results back to it, and
// rendering reads state through the snapshot accessors and listens on
// [Session.Events].
package explorer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/overlay"
	"github.com/matzehuels/castgraph/pkg/selection"
)

// DataService provides the graph data a session explores.
//
// Expansion links reference their endpoints by raw id. ShortestPath fails
// with a PATH_NOT_FOUND error carrying the service's reason when no path
// exists.
type DataService interface {
	InitialGraph(ctx context.Context, seed string) (graph.Graph, error)
	Expansion(ctx context.Context, id graph.ID) (graph.Graph, error)
	AllNodes(ctx context.Context) ([]graph.Node, error)
	AllLinks(ctx context.Context) ([]graph.Link, error)
	Characters(ctx context.Context) ([]string, error)
	ShortestPath(ctx context.Context, start, end string) (overlay.Path, error)
	NetworkData(ctx context.Context) (graph.Graph, error)
}

// DefaultTickInterval is the layout tick period of [Session.Run].
const DefaultTickInterval = 16 * time.Millisecond

const (
	intentBuffer = 64
	eventBuffer  = 256
)

// Session is the exploration context object.
//
// All methods are safe for concurrent use. Mutations are serialized by the
// session; while [Session.Run] is active, prefer [Session.Send] so intents
// are applied in order by the loop.
type Session struct {
	svc    DataService
	logger *log.Logger

	mu       sync.RWMutex
	store    *graph.Store
	engine   *layout.Engine
	overlay  *overlay.Overlay
	sel      *selection.Controller
	movies   []graph.Movie
	names    []string
	pathOnly bool
	query    uuid.UUID
	dragging graph.ID

	tick    time.Duration
	intents chan Intent
	results chan func() error
	events  chan Event
	fetches sync.WaitGroup
}

// Option configures a [Session].
type Option func(*config)

type config struct {
	logger   *log.Logger
	forces   layout.Forces
	size     layout.SizeMode
	tick     time.Duration
	overlays []overlay.Option
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithForces sets the initial force preset.
func WithForces(f layout.Forces) Option {
	return func(c *config) { c.forces = f }
}

// WithSizeMode sets the initial node-size function.
func WithSizeMode(m layout.SizeMode) Option {
	return func(c *config) { c.size = m }
}

// WithTickInterval sets the layout tick period used by [Session.Run].
func WithTickInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.tick = d
		}
	}
}

// WithOverlayOptions configures the path overlay animation.
func WithOverlayOptions(opts ...overlay.Option) Option {
	return func(c *config) { c.overlays = append(c.overlays, opts...) }
}

// New creates an empty session over svc, laid out by sim.
func New(svc DataService, sim layout.Simulator, opts ...Option) *Session {
	cfg := config{
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		forces: layout.InteractiveForces(),
		size:   layout.SizePageRank,
		tick:   DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := graph.NewStore()
	return &Session{
		svc:     svc,
		logger:  cfg.logger,
		store:   store,
		engine:  layout.NewEngine(store, sim, layout.WithForces(cfg.forces), layout.WithSizeMode(cfg.size)),
		overlay: overlay.New(cfg.overlays...),
		sel:     selection.New(),
		tick:    cfg.tick,
		intents: make(chan Intent, intentBuffer),
		results: make(chan func() error),
		events:  make(chan Event, eventBuffer),
	}
}

// Events returns the notification channel. Sends never block; a consumer
// that falls behind misses events and should re-read state.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// locked runs apply while holding the write lock.
func (s *Session) locked(apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return apply()
}

// =============================================================================
// Layout parameters
// =============================================================================

// SetSizeMode switches the node-size function.
func (s *Session) SetSizeMode(m layout.SizeMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetSizeMode(m)
}

// SetForces switches the force preset.
func (s *Session) SetForces(f layout.Forces) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetForces(f)
}

// Recenter moves the centering force, typically after a viewport resize.
func (s *Session) Recenter(c graph.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Recenter(c)
}

// Settle runs the layout until it cools. One-shot renderers call it after
// loading.
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Settle(ctx)
}

// Pin fixes a node at p.
func (s *Session) Pin(id graph.ID, p graph.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Pin(id, p)
}

// Unpin releases a pinned node.
func (s *Session) Unpin(id graph.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Unpin(id)
}

// Highlight applies a selection intent and reports whether the mode
// changed.
func (s *Session) Highlight(in selection.Intent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlight(in)
}

func (s *Session) highlight(in selection.Intent) bool {
	if !s.sel.Apply(in) {
		return false
	}
	m := s.sel.Mode()
	s.logger.Debug("highlight", "mode", m)
	s.emit(ModeChanged{Mode: m})
	return true
}
