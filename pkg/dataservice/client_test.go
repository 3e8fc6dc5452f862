package dataservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/castgraph/pkg/cache"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
	"github.com/matzehuels/castgraph/pkg/graph"
)

var _ explorer.DataService = (*Client)(nil)

type fakeService struct {
	srv   *httptest.Server
	calls map[string]*atomic.Int32
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{calls: map[string]*atomic.Int32{}}
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		n := &atomic.Int32{}
		f.calls[pattern] = n
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			n.Add(1)
			h(w, r)
		})
	}
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	handle("GET /api/init/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "missing" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"nodes": []map[string]any{{"id": 1, "name": id}},
			"links": []any{},
		})
	})
	handle("GET /api/expand/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"nodes": []map[string]any{{"id": "2", "name": "B"}},
			"links": []map[string]any{{"source": r.PathValue("id"), "target": "2", "type": "friend"}},
		})
	})
	handle("GET /api/all-nodes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "1", "name": "A"}, {"id": "2", "name": "B"}})
	})
	handle("GET /api/all-rels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"source": "1", "target": "2", "type": nil}})
	})
	handle("GET /api/characters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []string{"A", "B"})
	})
	handle("GET /api/social-network/data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"nodes":  []map[string]any{{"id": 0, "name": "A", "community": 3, "pagerank": 12.5}},
			"links":  []map[string]any{},
			"movies": []map[string]any{{"id": 1, "name": "Iron Man", "year": 2008}},
		})
	})
	handle("POST /api/shortest-path", func(w http.ResponseWriter, r *http.Request) {
		var req pathRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "bad body"})
			return
		}
		switch {
		case req.End == "Nobody":
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "no path"})
		case req.End == "Crash":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"nodes": []map[string]any{{"id": "1", "name": req.Start}, {"id": "2", "name": req.End}},
				"rels":  []map[string]any{{"source": "1", "target": "2", "type": "ally"}},
			})
		}
	})
	handle("GET /api/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) count(pattern string) int { return int(f.calls[pattern].Load()) }

func newClient(t *testing.T, base string, opts ...Option) *Client {
	t.Helper()
	c, err := New(base, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewValidatesURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "localhost:8000"} {
		if _, err := New(u); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("New(%q) error = %v, want INVALID_CONFIG", u, err)
		}
	}
	c, err := New("http://localhost:8000/ ")
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://localhost:8000" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}

func TestEndpoints(t *testing.T) {
	f := newFakeService(t)
	c := newClient(t, f.srv.URL)
	ctx := context.Background()

	g, err := c.InitialGraph(ctx, "Tony Stark")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "1" || g.Nodes[0].Name != "Tony Stark" {
		t.Errorf("InitialGraph nodes = %+v", g.Nodes)
	}

	g, err = c.Expansion(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Links) != 1 || g.Links[0].Source != "1" || g.Links[0].Target != "2" || g.Links[0].Type != "friend" {
		t.Errorf("Expansion links = %+v", g.Links)
	}

	nodes, err := c.AllNodes(ctx)
	if err != nil || len(nodes) != 2 {
		t.Errorf("AllNodes = %v, %v", nodes, err)
	}
	links, err := c.AllLinks(ctx)
	if err != nil || len(links) != 1 || links[0].RelationType() != graph.UnknownRelation {
		t.Errorf("AllLinks = %v, %v", links, err)
	}
	names, err := c.Characters(ctx)
	if err != nil || len(names) != 2 || names[0] != "A" {
		t.Errorf("Characters = %v, %v", names, err)
	}

	g, err = c.NetworkData(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if g.Nodes[0].ID != "0" || g.Nodes[0].Community != "3" || g.Nodes[0].PageRank != 12.5 {
		t.Errorf("NetworkData node = %+v", g.Nodes[0])
	}
	if len(g.Movies) != 1 || g.Movies[0].Year != 2008 {
		t.Errorf("NetworkData movies = %+v", g.Movies)
	}

	p, err := c.ShortestPath(ctx, "A", "B")
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 || p.Links[0].Type != "ally" || p.Nodes[1].Name != "B" {
		t.Errorf("ShortestPath = %+v", p)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFakeService(t)
	c := newClient(t, f.srv.URL)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want errors.Code
		msg  string
	}{
		{"not found seed", func() error { _, err := c.InitialGraph(ctx, "missing"); return err }, errors.ErrCodeNetworkFailure, ""},
		{"empty seed", func() error { _, err := c.InitialGraph(ctx, ""); return err }, errors.ErrCodeInvalidInput, ""},
		{"separator in id", func() error { _, err := c.Expansion(ctx, "a/b"); return err }, errors.ErrCodeInvalidInput, ""},
		{"no path", func() error { _, err := c.ShortestPath(ctx, "A", "Nobody"); return err }, errors.ErrCodePathNotFound, "no path"},
		{"server error on path", func() error { _, err := c.ShortestPath(ctx, "A", "Crash"); return err }, errors.ErrCodeNetworkFailure, ""},
		{"bad gateway", func() error { return c.getJSON(ctx, "/api/broken", new(any)) }, errors.ErrCodeNetworkFailure, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if got := errors.GetCode(err); got != tt.want {
				t.Fatalf("code = %q, want %q (err %v)", got, tt.want, err)
			}
			if tt.msg != "" && errors.UserMessage(err) != tt.msg {
				t.Errorf("message = %q, want %q", errors.UserMessage(err), tt.msg)
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newClient(t, base, WithTimeout(time.Second))
	_, err := c.AllNodes(context.Background())
	if !errors.Is(err, errors.ErrCodeNetworkFailure) {
		t.Errorf("error = %v, want NETWORK_FAILURE", err)
	}
	if !errors.Dismissible(err) {
		t.Error("network failure should be dismissible")
	}
}

func TestCaching(t *testing.T) {
	f := newFakeService(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, f.srv.URL, WithCache(fc, time.Hour))
	ctx := context.Background()

	for range 3 {
		if _, err := c.AllNodes(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := c.ShortestPath(ctx, "A", "B"); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.count("GET /api/all-nodes"); n != 1 {
		t.Errorf("all-nodes requests = %d, want 1", n)
	}
	if n := f.count("POST /api/shortest-path"); n != 3 {
		t.Errorf("shortest-path requests = %d, want 3", n)
	}

	// Failures are not cached.
	for range 2 {
		_, _ = c.InitialGraph(ctx, "missing")
	}
	if n := f.count("GET /api/init/{id}"); n != 2 {
		t.Errorf("init requests = %d, want 2", n)
	}

	// Another service sharing the cache does not see these entries.
	other := newFakeService(t)
	c2 := newClient(t, other.srv.URL, WithCache(fc, time.Hour))
	if _, err := c2.AllNodes(ctx); err != nil {
		t.Fatal(err)
	}
	if n := other.count("GET /api/all-nodes"); n != 1 {
		t.Errorf("other service all-nodes requests = %d, want 1", n)
	}
}

func TestNoCachingWithoutTTL(t *testing.T) {
	f := newFakeService(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, f.srv.URL, WithCache(fc, 0))
	for range 2 {
		if _, err := c.Characters(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.count("GET /api/characters"); n != 2 {
		t.Errorf("characters requests = %d, want 2", n)
	}
}

func TestBreaker(t *testing.T) {
	f := newFakeService(t)
	settings := BreakerSettings{
		MinRequests:  2,
		FailureRatio: 1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
	}
	ctx := context.Background()

	// Client errors do not count as failures.
	lenient := newClient(t, f.srv.URL, WithBreaker(settings))
	for range 3 {
		if _, err := lenient.ShortestPath(ctx, "A", "Nobody"); !errors.Is(err, errors.ErrCodePathNotFound) {
			t.Fatalf("error = %v, want PATH_NOT_FOUND", err)
		}
	}

	c := newClient(t, f.srv.URL, WithBreaker(settings))
	for range 2 {
		if _, err := c.ShortestPath(ctx, "A", "Crash"); !errors.Is(err, errors.ErrCodeNetworkFailure) {
			t.Fatalf("error = %v, want NETWORK_FAILURE", err)
		}
	}
	before := f.count("POST /api/shortest-path")
	_, err := c.ShortestPath(ctx, "A", "B")
	if !errors.Is(err, errors.ErrCodeNetworkFailure) {
		t.Errorf("open breaker error = %v, want NETWORK_FAILURE", err)
	}
	if f.count("POST /api/shortest-path") != before {
		t.Error("open breaker should not reach the service")
	}
}
