package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "castgraph"

// Prometheus implements every hook interface on a dedicated registry and
// also carries the server-side request metrics.
type Prometheus struct {
	registry *prometheus.Registry

	fetches      *prometheus.CounterVec
	fetchSeconds *prometheus.HistogramVec
	merged       *prometheus.CounterVec
	pathQueries  *prometheus.CounterVec
	pathLength   prometheus.Histogram

	cacheEvents *prometheus.CounterVec
	cacheBytes  prometheus.Counter

	clientRequests *prometheus.CounterVec
	clientSeconds  *prometheus.HistogramVec

	serverRequests *prometheus.CounterVec
	serverSeconds  *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg. A nil
// reg gets a fresh registry.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	p := &Prometheus{
		registry: reg,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Data-service operations by operation and outcome.",
		}, []string{"op", "status"}),
		fetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Data-service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		merged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_total",
			Help:      "Nodes and links added to the graph store.",
		}, []string{"op", "kind"}),
		pathQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_queries_total",
			Help:      "Shortest-path queries by outcome.",
		}, []string{"status"}),
		pathLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_length",
			Help:      "Length in edges of found shortest paths.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes by key type.",
		}, []string{"event", "key_type"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		clientRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_requests_total",
			Help:      "Outgoing data-service requests by path and status.",
		}, []string{"method", "path", "status"}),
		clientSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_request_duration_seconds",
			Help:      "Outgoing data-service request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		serverRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served by route and status.",
		}, []string{"method", "route", "status"}),
		serverSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request handling latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		p.fetches, p.fetchSeconds, p.merged, p.pathQueries, p.pathLength,
		p.cacheEvents, p.cacheBytes,
		p.clientRequests, p.clientSeconds,
		p.serverRequests, p.serverSeconds,
	)
	return p
}

// Registry returns the registry the collectors are registered with.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Register installs p as the explorer, cache and HTTP hooks.
func (p *Prometheus) Register() {
	SetExplorerHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

// WriteTextfile writes the current metrics to path in the text exposition
// format, for the node exporter's textfile collector.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

// ObserveRequest records a request handled by the server.
func (p *Prometheus) ObserveRequest(method, route string, status int, d time.Duration) {
	p.serverRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.serverSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// =============================================================================
// Hook implementations
// =============================================================================

var (
	_ ExplorerHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)

func (p *Prometheus) OnFetch(_ context.Context, op string, d time.Duration, err error) {
	p.fetches.WithLabelValues(op, outcome(err)).Inc()
	p.fetchSeconds.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) OnMerge(_ context.Context, op string, nodes, links int) {
	p.merged.WithLabelValues(op, "node").Add(float64(nodes))
	p.merged.WithLabelValues(op, "link").Add(float64(links))
}

func (p *Prometheus) OnPathQuery(_ context.Context, length int, _ time.Duration) {
	if length < 0 {
		p.pathQueries.WithLabelValues("not_found").Inc()
		return
	}
	p.pathQueries.WithLabelValues("found").Inc()
	p.pathLength.Observe(float64(length))
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues("hit", keyType).Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues("miss", keyType).Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues("set", keyType).Inc()
	p.cacheBytes.Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, _, path string, status int, d time.Duration) {
	p.clientRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.clientSeconds.WithLabelValues(method, path).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, method, _, path string, _ error) {
	p.clientRequests.WithLabelValues(method, path, "error").Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ ExplorerHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)
