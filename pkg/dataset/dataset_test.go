package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/castgraph/pkg/graph"
)

func fixture() *Raw {
	return &Raw{
		Relations: []Relation{
			{"Tony", "Steve", "ally"},
			{"Steve", "Tony", "rival"},
			{"Tony", "Pepper", "love"},
			{"Steve", "Bucky", "friend"},
			{"Thanos", "Gamora", "father"},
			{"nan", "Bucky", "x"},
			{"", "Tony", "x"},
		},
		Characters: []Character{
			{ID: "c1", Name: "Tony", Status: "Alive", Species: "Human"},
			{ID: "c9", Name: "Gamora", Status: "deceased", Species: "Zehoberei"},
		},
	}
}

func TestBuild(t *testing.T) {
	ds := Build(fixture())

	if ds.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", ds.Len())
	}
	wantIDs := map[string]graph.ID{"Tony": "1", "Steve": "2", "Pepper": "3", "Bucky": "4", "Thanos": "5", "Gamora": "6"}
	for name, id := range wantIDs {
		n, ok := ds.Lookup(name)
		if !ok || n.ID != id {
			t.Errorf("Lookup(%q) = %v, want id %s", name, n, id)
		}
	}

	net := ds.Network()
	if len(net.Links) != 4 {
		t.Fatalf("links = %d, want 4", len(net.Links))
	}
	first := net.Links[0]
	if first.Weight != 2 || first.Type != "ally" {
		t.Errorf("Tony-Steve = %+v, want weight 2 type ally", first)
	}

	degrees := map[string]int{"Tony": 2, "Steve": 2, "Pepper": 1, "Bucky": 1, "Thanos": 1, "Gamora": 1}
	sum, rank := 0, 0.0
	for _, n := range net.Nodes {
		if n.Degree != degrees[n.Name] {
			t.Errorf("%s degree = %d, want %d", n.Name, n.Degree, degrees[n.Name])
		}
		sum += n.Degree
		rank += n.PageRank
		if n.ScreenTime < float64(n.Degree*15+10) || n.ScreenTime > float64(n.Degree*15+50) {
			t.Errorf("%s screenTime = %v out of range", n.Name, n.ScreenTime)
		}
		if n.FirstAppearance < 2008 || n.FirstAppearance > 2023 {
			t.Errorf("%s firstAppearance = %d out of range", n.Name, n.FirstAppearance)
		}
	}
	if sum != 2*len(net.Links) {
		t.Errorf("degree sum = %d, want %d", sum, 2*len(net.Links))
	}
	if math.Abs(rank-1000) > 0.01 {
		t.Errorf("pagerank sum = %v, want 1000", rank)
	}
	if len(net.Movies) != 8 {
		t.Errorf("movies = %d, want 8", len(net.Movies))
	}

	tony, _ := ds.Lookup("Tony")
	if tony.Status != graph.StatusAlive || tony.Species != "Human" {
		t.Errorf("Tony details = %q %q", tony.Status, tony.Species)
	}
}

func TestBuildCommunities(t *testing.T) {
	ds := Build(fixture())
	want := map[string]graph.Category{
		"Tony": "0", "Steve": "0", "Pepper": "0", "Bucky": "0",
		"Thanos": "1", "Gamora": "1",
	}
	for name, c := range want {
		n, _ := ds.Lookup(name)
		if n.Community != c {
			t.Errorf("%s community = %q, want %q", name, n.Community, c)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := Build(fixture(), WithSeed(7)).Network()
	b := Build(fixture(), WithSeed(7)).Network()
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should produce identical payloads")
	}
}

func TestBuildEmpty(t *testing.T) {
	ds := Build(&Raw{})
	net := ds.Network()
	if ds.Len() != 0 || net.Nodes == nil || net.Links == nil || len(net.Nodes) != 0 {
		t.Errorf("empty dataset payload = %+v", net)
	}
}

func TestQueries(t *testing.T) {
	ds := Build(fixture())

	t.Run("init", func(t *testing.T) {
		for _, ref := range []string{"2", "Steve", " Steve "} {
			g, err := ds.Init(ref)
			if err != nil || len(g.Nodes) != 1 || g.Nodes[0].Name != "Steve" || len(g.Links) != 0 {
				t.Errorf("Init(%q) = %+v, %v", ref, g, err)
			}
		}
		if _, err := ds.Init("Loki"); !errors.Is(err, ErrUnknownCharacter) {
			t.Errorf("Init(Loki) error = %v", err)
		}
	})

	t.Run("expand", func(t *testing.T) {
		g := ds.Expand("2")
		var names []string
		for _, n := range g.Nodes {
			names = append(names, n.Name)
		}
		if !reflect.DeepEqual(names, []string{"Tony", "Bucky"}) {
			t.Errorf("Expand nodes = %v", names)
		}
		for _, l := range g.Links {
			if l.Source != "2" {
				t.Errorf("link %+v should start at the expanded node", l)
			}
		}
		if g := ds.Expand("Loki"); len(g.Nodes) != 0 || len(g.Links) != 0 {
			t.Errorf("Expand(unknown) = %+v", g)
		}
	})

	t.Run("names", func(t *testing.T) {
		want := []string{"Bucky", "Gamora", "Pepper", "Steve", "Thanos", "Tony"}
		if got := ds.Names(); !reflect.DeepEqual(got, want) {
			t.Errorf("Names() = %v", got)
		}
	})

	t.Run("nodes and links", func(t *testing.T) {
		nodes := ds.Nodes()
		if len(nodes) != 6 || nodes[0].PageRank != 0 || nodes[0].Name != "Tony" {
			t.Errorf("Nodes()[0] = %+v", nodes[0])
		}
		links := ds.Links()
		if len(links) != 4 || links[0].Weight != 0 || links[2].Type != "friend" {
			t.Errorf("Links() = %+v", links)
		}
	})
}

func TestShortestPath(t *testing.T) {
	ds := Build(fixture())

	p, err := ds.ShortestPath("Pepper", "Bucky")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, n := range p.Nodes {
		names = append(names, n.Name)
	}
	if !reflect.DeepEqual(names, []string{"Pepper", "Tony", "Steve", "Bucky"}) {
		t.Errorf("path = %v", names)
	}
	if p.Len() != 3 || p.Links[0].Type != "love" || p.Links[1].Type != "ally" {
		t.Errorf("links = %+v", p.Links)
	}
	for i, l := range p.Links {
		if l.Source != p.Nodes[i].ID || l.Target != p.Nodes[i+1].ID {
			t.Errorf("link %d = %+v does not follow the path", i, l)
		}
	}

	if _, err := ds.ShortestPath("Tony", "Thanos"); !errors.Is(err, ErrNoPath) {
		t.Errorf("disconnected error = %v, want ErrNoPath", err)
	}
	if _, err := ds.ShortestPath("Tony", "Loki"); !errors.Is(err, ErrUnknownCharacter) {
		t.Errorf("unknown error = %v, want ErrUnknownCharacter", err)
	}
}

func TestPageRank(t *testing.T) {
	pair := graph.FromGraph(graph.Graph{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}},
		Links: []graph.Link{{Source: "a", Target: "b"}},
	})
	r := PageRank(pair, DefaultDamping)
	if math.Abs(r["a"]-0.5) > 1e-6 || math.Abs(r["b"]-0.5) > 1e-6 {
		t.Errorf("pair ranks = %v", r)
	}

	star := graph.FromGraph(graph.Graph{
		Nodes: []graph.Node{{ID: "c"}, {ID: "x"}, {ID: "y"}, {ID: "z"}, {ID: "lone"}},
		Links: []graph.Link{{Source: "c", Target: "x"}, {Source: "c", Target: "y"}, {Source: "c", Target: "z"}},
	})
	r = PageRank(star, DefaultDamping)
	if r["c"] <= r["x"] || r["x"] <= r["lone"] {
		t.Errorf("star ranks = %v", r)
	}
	total := 0.0
	for _, v := range r {
		total += v
	}
	if math.Abs(total-1) > 1e-6 {
		t.Errorf("rank sum = %v", total)
	}
}

func TestReadRelations(t *testing.T) {
	in := "\ufeffrelation,Object,subject\nally,Steve,Tony\nlove, Pepper ,Tony\n"
	rels, err := ReadRelations(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []Relation{{"Tony", "Steve", "ally"}, {"Tony", "Pepper", "love"}}
	if !reflect.DeepEqual(rels, want) {
		t.Errorf("ReadRelations = %+v", rels)
	}

	if _, err := ReadRelations(strings.NewReader("subject,object\nA,B\n")); err == nil {
		t.Error("missing relation column should fail")
	}
}

func TestCSVSource(t *testing.T) {
	dir := t.TempDir()
	rels := filepath.Join(dir, "relations.csv")
	chars := filepath.Join(dir, "characters.csv")
	if err := os.WriteFile(rels, []byte("subject,object,relation\nTony,Steve,ally\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(chars, []byte("1,Tony,alive,Human\n2,Steve\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	raw, err := CSVSource{Relations: rels, Characters: chars}.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(raw.Relations) != 1 || len(raw.Characters) != 2 || raw.Characters[1].Status != "" {
		t.Errorf("raw = %+v", raw)
	}

	raw, err = CSVSource{Relations: rels, Characters: filepath.Join(dir, "missing.csv")}.Load(context.Background())
	if err != nil || len(raw.Characters) != 0 {
		t.Errorf("missing characters file: %+v, %v", raw, err)
	}

	if _, err := (CSVSource{Relations: filepath.Join(dir, "nope.csv")}).Load(context.Background()); err == nil {
		t.Error("missing relations file should fail")
	}
}

func TestSQLiteSource(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "dataset.db")
	want := fixture()
	if err := WriteSQLite(ctx, dsn, want); err != nil {
		t.Fatal(err)
	}
	got, err := SQLiteSource{DSN: dsn}.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Relations, want.Relations) {
		t.Errorf("relations = %+v", got.Relations)
	}
	if !reflect.DeepEqual(got.Characters, want.Characters) {
		t.Errorf("characters = %+v", got.Characters)
	}

	// Writing again replaces the content.
	if err := WriteSQLite(ctx, dsn, &Raw{Relations: want.Relations[:1]}); err != nil {
		t.Fatal(err)
	}
	got, err = SQLiteSource{DSN: dsn}.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Relations) != 1 || len(got.Characters) != 0 {
		t.Errorf("after rewrite: %d relations, %d characters", len(got.Relations), len(got.Characters))
	}
}

func TestMongoSource(t *testing.T) {
	uri := os.Getenv("CASTGRAPH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CASTGRAPH_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	if err := WriteMongo(ctx, uri, "castgraph_test", fixture()); err != nil {
		t.Fatal(err)
	}
	ds, err := Load(ctx, MongoSource{URI: uri, Database: "castgraph_test"})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 6 {
		t.Errorf("Len() = %d, want 6", ds.Len())
	}
}
