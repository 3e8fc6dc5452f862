package cli

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/castgraph/pkg/dataservice"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout/layouttest"
	"github.com/matzehuels/castgraph/pkg/selection"
)

// testSession returns a running session over the test service with the
// whole network loaded.
func testSession(t *testing.T) (context.Context, *explorer.Session) {
	t.Helper()
	client, err := dataservice.New(testService(t))
	if err != nil {
		t.Fatal(err)
	}
	s := explorer.New(client, layouttest.New(), explorer.WithTickInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.LoadNetwork(ctx); err != nil {
		cancel()
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctx, s
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m ExploreModel, keys ...string) ExploreModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(ExploreModel)
	}
	return m
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestExploreModelCursor(t *testing.T) {
	ctx, s := testSession(t)
	m := NewExploreModel(ctx, s)

	if len(m.ids) != 5 || m.ids[0] != "1" || m.ids[4] != "5" {
		t.Fatalf("ids = %v", m.ids)
	}
	if _, ok := m.selected(); ok {
		t.Fatal("nothing should be selected initially")
	}

	m = press(m, "tab")
	if id, _ := m.selected(); id != "1" {
		t.Errorf("after tab selected = %q, want 1", id)
	}
	m = press(m, "shift+tab")
	if id, _ := m.selected(); id != "5" {
		t.Errorf("after shift+tab selected = %q, want 5", id)
	}
	waitFor(t, "select mode", func() bool {
		mode := s.Mode()
		return mode.Kind == selection.NodeSelected && mode.Node == "5"
	})

	m = press(m, "esc")
	if _, ok := m.selected(); ok {
		t.Error("esc should clear the cursor")
	}
	waitFor(t, "deselect", func() bool { return s.Mode().Kind == selection.Idle })
}

func TestExploreModelSearchPrompt(t *testing.T) {
	ctx, s := testSession(t)
	m := NewExploreModel(ctx, s)

	m = press(m, "/", "s", "t", "x", "backspace")
	if m.prompt != promptSearch || m.input != "st" {
		t.Fatalf("prompt = %v, input = %q", m.prompt, m.input)
	}
	if !strings.Contains(m.footer(), "search: st") {
		t.Errorf("footer = %q", m.footer())
	}

	m = press(m, "enter")
	if m.prompt != promptNone {
		t.Error("enter should close the prompt")
	}
	waitFor(t, "search mode", func() bool {
		mode := s.Mode()
		return mode.Kind == selection.Search && mode.Text == "st"
	})
}

func TestExploreModelPromptCancel(t *testing.T) {
	ctx, s := testSession(t)
	m := press(NewExploreModel(ctx, s), "/", "a", "esc")
	if m.prompt != promptNone || m.input != "" {
		t.Errorf("esc left prompt = %v, input = %q", m.prompt, m.input)
	}
	// Keys go back to commands once the prompt is closed.
	m = press(m, "tab")
	if _, ok := m.selected(); !ok {
		t.Error("tab after cancel should select")
	}
}

func TestExploreModelPathQuery(t *testing.T) {
	ctx, s := testSession(t)
	m := NewExploreModel(ctx, s)

	m = press(m, "p")
	for _, r := range "Tony Stark" {
		if r == ' ' {
			next, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			m = next.(ExploreModel)
			continue
		}
		m = press(m, string(r))
	}
	m = press(m, "enter")
	if m.prompt != promptPathEnd || m.pathStart != "Tony Stark" {
		t.Fatalf("prompt = %v, start = %q", m.prompt, m.pathStart)
	}

	m = press(m, "B", "u", "c", "k", "y", "enter")
	if m.prompt != promptNone || !strings.Contains(m.status, "Tony Stark → Bucky") {
		t.Fatalf("prompt = %v, status = %q", m.prompt, m.status)
	}
	waitFor(t, "path", s.PathActive)

	p, _ := s.Path()
	if p.Len() != 2 {
		t.Errorf("path length = %d, want 2", p.Len())
	}

	press(m, "x")
	waitFor(t, "path cleared", func() bool { return !s.PathActive() })
}

func TestExploreModelEvents(t *testing.T) {
	ctx, s := testSession(t)
	m := NewExploreModel(ctx, s)

	m.handleEvent(explorer.Failed{Op: explorer.OpPath, Err: errors.New(errors.ErrCodePathNotFound, "no path between a and b")})
	if !m.statusErr || m.status != "no path between a and b" {
		t.Errorf("failed event: status = %q, err = %v", m.status, m.statusErr)
	}
	if !strings.Contains(m.footer(), "no path between a and b") {
		t.Errorf("footer = %q", m.footer())
	}

	m.handleEvent(explorer.PathChanged{Active: true, Length: 3})
	if m.statusErr || m.status != "path found: 3 hops" {
		t.Errorf("path event: status = %q", m.status)
	}

	m.handleEvent(explorer.Failed{Op: explorer.OpExpand, Err: stderrors.New("boom")})
	if !m.statusErr {
		t.Error("plain errors should also be shown as errors")
	}
}

func TestExploreModelKeys(t *testing.T) {
	ctx, s := testSession(t)
	m := NewExploreModel(ctx, s)

	m = press(m, "s")
	waitFor(t, "size mode", func() bool { return s.SizeMode() == "degree" })

	m = press(m, "c")
	if m.forces != "compact" {
		t.Errorf("forces = %q, want compact", m.forces)
	}
	m = press(m, "b")
	waitFor(t, "bridge mode", func() bool { return s.Mode().Kind == selection.BridgeHighlight })

	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	_ = next
}

func TestExploreModelView(t *testing.T) {
	ctx, s := testSession(t)
	m := NewExploreModel(ctx, s)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = press(next.(ExploreModel), "tab")

	view := m.View()
	for _, want := range []string{appName, "5 characters", "3 relations", "Tony Stark", iconNode} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestCanvasLine(t *testing.T) {
	c := newCanvas(5, 3)
	c.set(0, 0, "A")
	c.set(4, 2, "B")
	c.set(9, 9, "X")
	c.line(0, 0, 4, 2, ".")

	want := "A    \n ..  \n   .B"
	if got := c.String(); got != want {
		t.Errorf("canvas =\n%s\nwant\n%s", got, want)
	}
}

func TestProjectionFit(t *testing.T) {
	nodes := []graph.Node{
		{ID: "a", X: -10, Y: 0},
		{ID: "b", X: 10, Y: 0},
	}
	p := fit(nodes, 21, 5)

	if col, row := p.cell(nodes[0].Position()); col != 0 || row != 2 {
		t.Errorf("a at (%d,%d), want (0,2)", col, row)
	}
	if col, row := p.cell(nodes[1].Position()); col != 20 || row != 2 {
		t.Errorf("b at (%d,%d), want (20,2)", col, row)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("friend", 7); got != "friend" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("colleague", 7); got != "collea…" {
		t.Errorf("truncate long = %q", got)
	}
}
