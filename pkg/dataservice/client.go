// Package dataservice is the HTTP client of the character data service.
//
// A [Client] implements every read the explorer needs: the initial seed
// graph, node expansions, the full node and link lists, the character
// names, the social-network payload and shortest-path queries.
//
// # Errors
//
// Transport failures, non-success statuses and an open circuit breaker are
// reported as NETWORK_FAILURE. A failed shortest-path query whose response
// carries a {"detail": "..."} payload is reported as PATH_NOT_FOUND with the
// detail as message. Nothing is retried; the next user action issues a new
// request.
//
// # Caching
//
// With [WithCache] and a positive TTL, successful responses of the read
// endpoints are stored in a [cache.Cache]. Shortest-path answers are never
// cached.
package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/matzehuels/castgraph/pkg/cache"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/observability"
	"github.com/matzehuels/castgraph/pkg/overlay"
)

// Request paths of the data service.
const (
	PathInit        = "/api/init/"
	PathExpand      = "/api/expand/"
	PathAllNodes    = "/api/all-nodes"
	PathAllLinks    = "/api/all-rels"
	PathCharacters  = "/api/characters"
	PathShortest    = "/api/shortest-path"
	PathNetworkData = "/api/social-network/data"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// maxBody caps the size of a response body read into memory.
const maxBody = 64 << 20

// Client talks to one data service.
type Client struct {
	base    string
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithCache stores read responses in ch for ttl. Keys are scoped to the
// client's base URL. A nil cache or non-positive ttl disables caching.
func WithCache(ch cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = ch
		c.ttl = ttl
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// BreakerSettings configures the circuit breaker of [WithBreaker].
type BreakerSettings struct {
	// MinRequests is the number of requests in an interval before the
	// failure ratio is evaluated.
	MinRequests uint32
	// FailureRatio trips the breaker when reached.
	FailureRatio float64
	// Interval resets the counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
}

// DefaultBreakerSettings returns a breaker that opens after 80% of at least
// five requests fail and probes again after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  5,
		FailureRatio: 0.8,
		Interval:     30 * time.Second,
		Timeout:      30 * time.Second,
	}
}

// WithBreaker guards requests with a circuit breaker. Transport failures and
// 5xx responses count as failures; client errors such as an unknown
// character do not.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "dataservice",
			MaxRequests: 1,
			Interval:    s.Interval,
			Timeout:     s.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < s.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker", "name", name, "from", from.String(), "to", to.String())
			},
		})
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	c := &Client{
		base:   baseURL,
		http:   &http.Client{Timeout: DefaultTimeout},
		cache:  cache.NewNullCache(),
		keyer:  cache.NewServiceKeyer(baseURL),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.base }

// =============================================================================
// Endpoints
// =============================================================================

// InitialGraph fetches the seed node by id or name.
func (c *Client) InitialGraph(ctx context.Context, seed string) (graph.Graph, error) {
	var g graph.Graph
	if err := errors.ValidateName(seed); err != nil {
		return g, err
	}
	err := c.getJSON(ctx, PathInit+url.PathEscape(seed), &g)
	return g, err
}

// Expansion fetches the neighbours of id and the links to them.
func (c *Client) Expansion(ctx context.Context, id graph.ID) (graph.Graph, error) {
	var g graph.Graph
	if err := errors.ValidateName(string(id)); err != nil {
		return g, err
	}
	err := c.getJSON(ctx, PathExpand+url.PathEscape(string(id)), &g)
	return g, err
}

// AllNodes fetches every character.
func (c *Client) AllNodes(ctx context.Context) ([]graph.Node, error) {
	var nodes []graph.Node
	err := c.getJSON(ctx, PathAllNodes, &nodes)
	return nodes, err
}

// AllLinks fetches every relationship.
func (c *Client) AllLinks(ctx context.Context) ([]graph.Link, error) {
	var links []graph.Link
	err := c.getJSON(ctx, PathAllLinks, &links)
	return links, err
}

// Characters fetches the sorted character names.
func (c *Client) Characters(ctx context.Context) ([]string, error) {
	var names []string
	err := c.getJSON(ctx, PathCharacters, &names)
	return names, err
}

// NetworkData fetches the social-network payload with analytics fields and
// the movie list.
func (c *Client) NetworkData(ctx context.Context) (graph.Graph, error) {
	var g graph.Graph
	err := c.getJSON(ctx, PathNetworkData, &g)
	return g, err
}

type pathRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ShortestPath asks the service for a shortest path between two names.
func (c *Client) ShortestPath(ctx context.Context, start, end string) (overlay.Path, error) {
	resp, err := c.do(ctx, http.MethodPost, PathShortest, pathRequest{Start: start, End: end})
	if err != nil {
		return overlay.Path{}, err
	}
	if resp.status >= 400 && resp.status < 500 {
		if detail := resp.detail(); detail != "" {
			return overlay.Path{}, errors.New(errors.ErrCodePathNotFound, "%s", detail)
		}
	}
	if err := resp.check(http.MethodPost, PathShortest); err != nil {
		return overlay.Path{}, err
	}
	var p overlay.Path
	if err := json.Unmarshal(resp.body, &p); err != nil {
		return overlay.Path{}, errors.Wrap(errors.ErrCodeNetworkFailure, err, "decode %s", PathShortest)
	}
	return p, nil
}

// =============================================================================
// Transport
// =============================================================================

type response struct {
	status int
	body   []byte
}

// detail extracts the {"detail": "..."} message of an error payload.
func (r response) detail() string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(r.body, &payload) != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(payload.Detail, &s) == nil {
		return s
	}
	return string(payload.Detail)
}

func (r response) check(method, path string) error {
	if r.status >= 200 && r.status < 300 {
		return nil
	}
	if d := r.detail(); d != "" {
		return errors.New(errors.ErrCodeNetworkFailure, "%s %s: status %d: %s", method, path, r.status, d)
	}
	return errors.New(errors.ErrCodeNetworkFailure, "%s %s: status %d", method, path, r.status)
}

// statusError marks a 5xx response so the breaker counts it as a failure.
type statusError struct{ resp response }

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.resp.status) }

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	key := c.keyer.RequestKey(http.MethodGet, path)
	caching := c.ttl > 0
	if caching {
		data, hit, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("cache read failed", "path", path, "error", err)
		}
		if hit && json.Unmarshal(data, v) == nil {
			observability.Cache().OnCacheHit(ctx, "http")
			c.logger.Debug("cache hit", "path", path)
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := resp.check(http.MethodGet, path); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, v); err != nil {
		return errors.Wrap(errors.ErrCodeNetworkFailure, err, "decode %s", path)
	}

	if caching {
		if err := c.cache.Set(ctx, key, resp.body, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "path", path, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "http", len(resp.body))
		}
	}
	return nil
}

// do runs one request through the breaker. Transport failures, 5xx statuses
// and an open breaker come back as NETWORK_FAILURE; other statuses are
// returned for the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, body any) (response, error) {
	run := func() (any, error) {
		r, err := c.roundTrip(ctx, method, path, body)
		return r, err
	}

	var (
		v   any
		err error
	)
	if c.breaker != nil {
		v, err = c.breaker.Execute(run)
	} else {
		v, err = run()
	}

	var se *statusError
	switch {
	case err == nil:
		return v.(response), nil
	case stderrors.As(err, &se):
		return se.resp, se.resp.check(method, path)
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return response{}, errors.Wrap(errors.ErrCodeNetworkFailure, err, "%s %s: service unavailable", method, path)
	case errors.GetCode(err) != "":
		return response{}, err
	}
	return response{}, errors.Wrap(errors.ErrCodeNetworkFailure, err, "%s %s", method, path)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return response{}, errors.Wrap(errors.ErrCodeInternal, err, "encode request")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return response{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	host := req.URL.Host
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		return response{}, err
	}
	elapsed := time.Since(start)
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, elapsed)
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "duration", elapsed)

	out := response{status: resp.StatusCode, body: data}
	if resp.StatusCode >= 500 {
		return out, &statusError{resp: out}
	}
	return out, nil
}
