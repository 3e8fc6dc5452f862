package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/castgraph/internal/server"
	"github.com/matzehuels/castgraph/pkg/dataset"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/observability"
	"github.com/matzehuels/castgraph/pkg/overlay"
	"github.com/matzehuels/castgraph/pkg/selection"
)

// testService starts the reference data service over a small cast:
// Tony(1) - Steve(2) - Bucky(3), Thanos(4) - Gamora(5).
func testService(t *testing.T) string {
	t.Helper()
	ds := dataset.Build(&dataset.Raw{Relations: []dataset.Relation{
		{Subject: "Tony Stark", Object: "Steve Rogers", Type: "ally"},
		{Subject: "Steve Rogers", Object: "Bucky", Type: "friend"},
		{Subject: "Thanos", Object: "Gamora", Type: "father"},
	}})
	ts := httptest.NewServer(server.New(ds).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// execute runs the root command with isolated config and cache dirs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var out bytes.Buffer
	root := New(&bytes.Buffer{}, LogWarn).RootCommand()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	want := []string{"serve", "import", "explore", "analyze", "path", "ring", "render", "cache", "config", "version", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"config", "service", "no-cache", "from"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "version: ") {
		t.Errorf("version output = %q", out)
	}
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "--service", "https://cast.example.com", "config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `url = "https://cast.example.com"`) {
		t.Errorf("config output missing service override:\n%s", out)
	}
}

func TestConfigPathCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "--config", path, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("config path = %q, want %q", out, path)
	}
}

func TestInvalidServiceFlag(t *testing.T) {
	_, err := execute(t, "--service", "not a url", "config")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestPathCommand(t *testing.T) {
	url := testService(t)

	out, err := execute(t, "--service", url, "--no-cache", "path", "Tony Stark", "Bucky")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Tony Stark", "Steve Rogers", "Bucky", "2 hops"} {
		if !strings.Contains(out, want) {
			t.Errorf("path output missing %q:\n%s", want, out)
		}
	}
}

func TestPathCommandNoPath(t *testing.T) {
	url := testService(t)

	_, err := execute(t, "--service", url, "--no-cache", "path", "Tony Stark", "Thanos")
	if !errors.Is(err, errors.ErrCodePathNotFound) {
		t.Errorf("err = %v, want PATH_NOT_FOUND", err)
	}
}

func TestPathCommandSameCharacter(t *testing.T) {
	url := testService(t)

	_, err := execute(t, "--service", url, "--no-cache", "path", "Bucky", "Bucky")
	if !errors.Is(err, errors.ErrCodeInvalidPathQuery) {
		t.Errorf("err = %v, want INVALID_PATH_QUERY", err)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	url := testService(t)

	out, err := execute(t, "--service", url, "--no-cache", "analyze")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Social network", "Communities", "Steve Rogers"} {
		if !strings.Contains(out, want) {
			t.Errorf("analyze output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeNode(t *testing.T) {
	url := testService(t)

	out, err := execute(t, "--service", url, "--no-cache", "analyze", "--node", "Steve Rogers")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Steve Rogers", "Relations", "friend", "ally"} {
		if !strings.Contains(out, want) {
			t.Errorf("node report missing %q:\n%s", want, out)
		}
	}
}

func TestRingCommand(t *testing.T) {
	url := testService(t)

	out, err := execute(t, "--service", url, "--no-cache", "ring", "Steve Rogers", "Thanos")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Connections", "Relations of Steve Rogers", "friend"} {
		if !strings.Contains(out, want) {
			t.Errorf("ring output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCommandDOT(t *testing.T) {
	url := testService(t)
	output := filepath.Join(t.TempDir(), "out", "cast.dot")

	out, err := execute(t, "--service", url, "--no-cache", "render", "-o", output, "--highlight", "bridges")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, output) {
		t.Errorf("render output should name the file:\n%s", out)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	if !strings.HasPrefix(dot, "graph G {") || !strings.Contains(dot, "Gamora") {
		t.Errorf("unexpected DOT:\n%s", dot)
	}
}

func TestRenderCommandBadHighlight(t *testing.T) {
	_, err := execute(t, "render", "--highlight", "community=")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestParseHighlight(t *testing.T) {
	tests := []struct {
		in      string
		want    selection.Intent
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "bridges", want: selection.BridgeIntent{}},
		{in: "Leader", want: selection.LeaderIntent{}},
		{in: "community=3", want: selection.CommunityIntent{Group: "3"}},
		{in: "search=stark", want: selection.SearchIntent{Text: "stark"}},
		{in: "node=12", want: selection.SelectIntent{ID: "12"}},
		{in: "search=", wantErr: true},
		{in: "community", wantErr: true},
		{in: "everything", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHighlight(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHighlight(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseHighlight(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrintPath(t *testing.T) {
	p := overlay.Path{Nodes: []graph.Node{
		{ID: "1", Name: "Tony Stark"},
		{ID: "2", Name: "Steve Rogers"},
	}}
	p.Links = []graph.Link{{Source: "1", Target: "2", Type: "ally"}}

	var buf bytes.Buffer
	printPath(&buf, p)

	out := buf.String()
	if !strings.Contains(out, "Tony Stark "+iconArrow+" Steve Rogers") {
		t.Errorf("printPath() = %q", out)
	}
	if !strings.Contains(out, "1 hop\n") {
		t.Errorf("printPath() should use the singular: %q", out)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		value, max float64
		want       int
	}{
		{0, 10, 0},
		{5, 0, 0},
		{10, 10, 20},
		{5, 10, 10},
		{0.01, 10, 1},
	}
	for _, tt := range tests {
		if got := len([]rune(bar(tt.value, tt.max, 20))); got != tt.want {
			t.Errorf("bar(%v, %v) has %d cells, want %d", tt.value, tt.max, got, tt.want)
		}
	}
}

func TestLoadExploreSeed(t *testing.T) {
	url := testService(t)

	tests := []struct {
		name     string
		seed     string
		cfgSeed  string
		all      bool
		wantName string
		want     int
	}{
		{name: "first listed character", want: 1},
		{name: "configured seed", cfgSeed: "Bucky", wantName: "Bucky", want: 1},
		{name: "argument wins", seed: "Thanos", cfgSeed: "Bucky", wantName: "Thanos", want: 1},
		{name: "all", all: true, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&bytes.Buffer{}, LogWarn)
			c.config = DefaultConfig()
			c.config.Service.URL = url
			c.config.Service.Seed = tt.cfgSeed
			c.noCache = true

			s, closeSession, err := c.newSession()
			if err != nil {
				t.Fatal(err)
			}
			defer closeSession()

			if err := c.loadExplore(context.Background(), s, tt.seed, tt.all); err != nil {
				t.Fatalf("loadExplore() error: %v", err)
			}
			g := s.Snapshot()
			if len(g.Nodes) != tt.want {
				t.Fatalf("loaded %d nodes, want %d", len(g.Nodes), tt.want)
			}
			if tt.wantName != "" && g.Nodes[0].DisplayName() != tt.wantName {
				t.Errorf("seed = %q, want %q", g.Nodes[0].DisplayName(), tt.wantName)
			}
		})
	}
}

func TestMetricsOut(t *testing.T) {
	t.Cleanup(observability.Reset)
	url := testService(t)
	metrics := filepath.Join(t.TempDir(), "castgraph.prom")

	if _, err := execute(t, "--service", url, "--no-cache", "--metrics-out", metrics, "analyze"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{`castgraph_fetches_total{op="network",status="ok"} 1`, "castgraph_client_requests_total"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}
