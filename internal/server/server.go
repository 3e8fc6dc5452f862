// Package server implements the reference character data service over a
// [dataset.Dataset].
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/castgraph/pkg/dataset"
	"github.com/matzehuels/castgraph/pkg/observability"
)

// Server serves one dataset. The dataset can be swapped while serving.
type Server struct {
	mu       sync.RWMutex
	ds       *dataset.Dataset
	logger   *log.Logger
	metrics  *observability.Prometheus
	validate *validator.Validate
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the access and reload logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records request metrics and exposes them on /metrics.
func WithMetrics(p *observability.Prometheus) Option {
	return func(s *Server) { s.metrics = p }
}

// New creates a server for ds.
func New(ds *dataset.Dataset, opts ...Option) *Server {
	s := &Server{
		ds:       ds,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dataset returns the dataset currently served.
func (s *Server) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// SetDataset replaces the served dataset. Requests in flight finish on the
// previous one.
func (s *Server) SetDataset(ds *dataset.Dataset) {
	s.mu.Lock()
	s.ds = ds
	s.mu.Unlock()
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.accessLog)
	if s.metrics != nil {
		r.Use(s.observe)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "characters": s.Dataset().Len()})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/social-network/data", s.network)
		r.Get("/init/{id}", s.initial)
		r.Get("/expand/{id}", s.expand)
		r.Get("/characters", s.characters)
		r.Get("/all-nodes", s.allNodes)
		r.Get("/all-rels", s.allLinks)
		r.Post("/shortest-path", s.shortestPath)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("serving", "addr", addr, "characters", s.Dataset().Len())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
