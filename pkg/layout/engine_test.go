package layout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/layout/layouttest"
)

func newStore() *graph.Store {
	s := graph.NewStore()
	s.Merge([]graph.Node{
		{ID: "1", Name: "Tony Stark", PageRank: 2, Degree: 2, X: 10, Y: 0},
		{ID: "2", Name: "Pepper Potts", PageRank: 1, Degree: 1, X: 20, Y: 0},
		{ID: "3", Name: "Happy Hogan", Degree: 1, X: 30, Y: 0},
	}, []graph.Link{
		{Source: "1", Target: "2", Weight: 5},
		{Source: "1", Target: "3", Weight: 1},
	})
	return s
}

func TestNewEngineRegistersStore(t *testing.T) {
	sim := layouttest.New()
	layout.NewEngine(newStore(), sim)

	if len(sim.Positions) != 3 {
		t.Errorf("registered %d nodes, want 3", len(sim.Positions))
	}
	if len(sim.Links) != 2 {
		t.Errorf("registered %d links, want 2", len(sim.Links))
	}
	if sim.Alpha() != layout.AlphaRestart {
		t.Errorf("Alpha() = %v, want %v", sim.Alpha(), layout.AlphaRestart)
	}
	f := layout.DefaultForces()
	got := sim.Links[graph.NewEdgeKey("1", "2")]
	if got.Distance != f.Distance(5) || got.Strength != f.Strength(5) {
		t.Errorf("link 1-2 = %+v, want distance %v strength %v", got, f.Distance(5), f.Strength(5))
	}
}

func TestSyncAddsOnlyNewData(t *testing.T) {
	s := newStore()
	sim := layouttest.New()
	e := layout.NewEngine(s, sim)

	if n := e.Sync(); n != 0 {
		t.Errorf("Sync() with no changes = %d, want 0", n)
	}

	sim.SetAlpha(0)
	s.Merge([]graph.Node{{ID: "4", Name: "Rhodey"}}, []graph.Link{{Source: "4", Target: "1"}})
	if n := e.Sync(); n != 2 {
		t.Errorf("Sync() = %d, want 2", n)
	}
	if sim.Alpha() != layout.AlphaRestart {
		t.Errorf("Alpha() after growth = %v, want %v", sim.Alpha(), layout.AlphaRestart)
	}
}

func TestTickWritesBackFreeNodes(t *testing.T) {
	s := newStore()
	sim := layouttest.New()
	e := layout.NewEngine(s, sim)
	if err := e.Pin("1", graph.Point{X: 0, Y: 0}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := e.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	n, _ := s.Node("2")
	if n.X != 23 {
		t.Errorf("free node x = %v, want 23", n.X)
	}
	if p, _ := e.Position("1"); p != (graph.Point{}) {
		t.Errorf("pinned node at %v, want origin", p)
	}
}

func TestTickStopsWhenCooled(t *testing.T) {
	sim := layouttest.New()
	e := layout.NewEngine(graph.NewStore(), sim)

	if !e.Cooled() {
		t.Fatal("empty engine should start cooled")
	}
	if err := e.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sim.Steps != 0 {
		t.Errorf("Steps = %d, want 0", sim.Steps)
	}
}

func TestTickPropagatesError(t *testing.T) {
	sim := layouttest.New()
	e := layout.NewEngine(newStore(), sim)
	sim.Err = errors.New("boom")
	if err := e.Tick(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestSettleCools(t *testing.T) {
	sim := layouttest.New()
	e := layout.NewEngine(newStore(), sim)
	if err := e.Settle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !e.Cooled() {
		t.Errorf("not cooled after Settle, alpha %v", sim.Alpha())
	}
}

func TestSetSizeModeResizesAndReheats(t *testing.T) {
	s := newStore()
	sim := layouttest.New()
	e := layout.NewEngine(s, sim)
	sim.SetAlpha(0)

	e.SetSizeMode(layout.SizeDegree)

	if sim.Alpha() != layout.AlphaResize {
		t.Errorf("Alpha() = %v, want %v", sim.Alpha(), layout.AlphaResize)
	}
	n, _ := s.Node("1")
	want := layout.DefaultForces().Collide(layout.SizeDegree.Radius(n))
	if got := sim.Radii["1"]; got != want {
		t.Errorf("collide radius = %v, want %v", got, want)
	}
	// Re-parameterizing never teleports nodes.
	if p := sim.Positions["2"]; p != (graph.Point{X: 20}) {
		t.Errorf("node moved to %v", p)
	}
}

func TestSetSizeModeDoesNotCoolHotSimulation(t *testing.T) {
	sim := layouttest.New()
	e := layout.NewEngine(newStore(), sim)
	e.SetSizeMode(layout.SizeScreenTime)
	if sim.Alpha() != layout.AlphaRestart {
		t.Errorf("Alpha() = %v, want reheat to never lower energy", sim.Alpha())
	}
}

func TestSetForcesRederivesLinks(t *testing.T) {
	sim := layouttest.New()
	e := layout.NewEngine(newStore(), sim)
	sim.SetAlpha(0)

	e.SetForces(layout.InteractiveForces())

	if sim.Alpha() != layout.AlphaRestart {
		t.Errorf("Alpha() = %v, want %v", sim.Alpha(), layout.AlphaRestart)
	}
	got := sim.Links[graph.NewEdgeKey("1", "2")]
	if got.Distance != 100 || got.Strength != 1 {
		t.Errorf("link 1-2 = %+v, want distance 100 strength 1", got)
	}
	if sim.Radii["3"] != 30 {
		t.Errorf("collide radius = %v, want 30", sim.Radii["3"])
	}
	if sim.Forces.Charge != -300 {
		t.Errorf("simulator charge = %v, want -300", sim.Forces.Charge)
	}
}

func TestRecenter(t *testing.T) {
	sim := layouttest.New()
	e := layout.NewEngine(newStore(), sim)
	e.Recenter(graph.Point{X: 400, Y: 300})
	if got := e.Forces().Center; got != (graph.Point{X: 400, Y: 300}) {
		t.Errorf("Center = %v", got)
	}
	if sim.Forces.Center != e.Forces().Center {
		t.Error("simulator not updated")
	}
}

func TestDrag(t *testing.T) {
	s := newStore()
	sim := layouttest.New()
	e := layout.NewEngine(s, sim)
	ctx := context.Background()

	if err := e.DragStart("2"); err != nil {
		t.Fatal(err)
	}
	if !sim.Pinned["2"] {
		t.Fatal("node not pinned on drag start")
	}
	if err := e.DragMove("2", graph.Point{X: 50, Y: 60}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := e.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if p, _ := e.Position("2"); p != (graph.Point{X: 50, Y: 60}) {
		t.Errorf("dragged node at %v, want (50,60)", p)
	}
	if e.Cooled() {
		t.Error("simulation cooled during drag")
	}

	if err := e.DragEnd("2"); err != nil {
		t.Fatal(err)
	}
	n, _ := s.Node("2")
	if n.Pinned() {
		t.Error("node still pinned after drag end")
	}
	if n.Position() != (graph.Point{X: 50, Y: 60}) {
		t.Errorf("released at %v, want drop point", n.Position())
	}
	if err := e.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if n.X != 51 {
		t.Errorf("released node x = %v, want 51", n.X)
	}
}

func TestDragUnknownNode(t *testing.T) {
	e := layout.NewEngine(newStore(), layouttest.New())
	if err := e.DragStart("99"); !errors.Is(err, graph.ErrUnknownNode) {
		t.Errorf("DragStart(unknown) = %v, want ErrUnknownNode", err)
	}
}
