package layout

import (
	"math"
	"testing"

	"github.com/matzehuels/castgraph/pkg/graph"
)

func TestForcesDistance(t *testing.T) {
	f := DefaultForces()
	tests := []struct {
		weight, want float64
	}{
		{0, 70},
		{1, 67},
		{10, 40},
		{20, 10},
		{100, 10},
	}
	for _, tt := range tests {
		if got := f.Distance(tt.weight); got != tt.want {
			t.Errorf("Distance(%v) = %v, want %v", tt.weight, got, tt.want)
		}
	}
}

func TestForcesStrength(t *testing.T) {
	f := DefaultForces()
	if got := f.Strength(0); got != f.Strength(1) {
		t.Errorf("Strength(0) = %v, want the weight-1 strength %v", got, f.Strength(1))
	}
	if got := f.Strength(100); got != 1 {
		t.Errorf("Strength(100) = %v, want capped at 1", got)
	}
	if got := InteractiveForces().Strength(7); got != 1 {
		t.Errorf("interactive Strength = %v, want 1", got)
	}
}

func TestForcesCollide(t *testing.T) {
	if got := DefaultForces().Collide(5); got != 11 {
		t.Errorf("default Collide(5) = %v, want 11", got)
	}
	if got := InteractiveForces().Collide(5); got != 30 {
		t.Errorf("interactive Collide(5) = %v, want 30", got)
	}
}

func TestParseForces(t *testing.T) {
	for name, charge := range map[string]float64{
		"":            -120,
		"default":     -120,
		"Compact":     -30,
		"spread":      -300,
		"interactive": -300,
		"path":        -200,
	} {
		f, err := ParseForces(name)
		if err != nil {
			t.Errorf("ParseForces(%q): %v", name, err)
			continue
		}
		if f.Charge != charge {
			t.Errorf("ParseForces(%q).Charge = %v, want %v", name, f.Charge, charge)
		}
	}
	if _, err := ParseForces("wobbly"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestSizeModeRadius(t *testing.T) {
	tests := []struct {
		mode SizeMode
		node graph.Node
		want float64
	}{
		{SizePageRank, graph.Node{PageRank: 2}, 7},
		{SizePageRank, graph.Node{}, 4},
		{SizePageRank, graph.Node{PageRank: -10}, MinRadius},
		{SizeDegree, graph.Node{Degree: 5}, 7},
		{SizeDegree, graph.Node{}, MinRadius},
		{SizeScreenTime, graph.Node{ScreenTime: 160}, 5},
		{SizeScreenTime, graph.Node{ScreenTime: math.NaN()}, MinRadius},
	}
	for _, tt := range tests {
		n := tt.node
		if got := tt.mode.Radius(&n); got != tt.want {
			t.Errorf("%s.Radius(%+v) = %v, want %v", tt.mode, tt.node, got, tt.want)
		}
	}
}

func TestParseSizeMode(t *testing.T) {
	tests := map[string]SizeMode{
		"":           SizePageRank,
		"PageRank":   SizePageRank,
		"degree":     SizeDegree,
		"time":       SizeScreenTime,
		"screentime": SizeScreenTime,
	}
	for in, want := range tests {
		got, err := ParseSizeMode(in)
		if err != nil || got != want {
			t.Errorf("ParseSizeMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSizeMode("mass"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSizeModeNext(t *testing.T) {
	m := SizePageRank
	seen := map[SizeMode]bool{}
	for range SizeModes {
		seen[m] = true
		m = m.Next()
	}
	if m != SizePageRank || len(seen) != len(SizeModes) {
		t.Errorf("Next() did not cycle through every mode: %v", seen)
	}
}
