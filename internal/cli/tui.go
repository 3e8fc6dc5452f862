package cli

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/render/nodelink"
	"github.com/matzehuels/castgraph/pkg/selection"
)

const (
	panelWidth    = 36
	minCanvasSize = 10
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1).
			Width(panelWidth)
	helpKeyStyle = lipgloss.NewStyle().Foreground(colorCyan)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	promptStyle  = lipgloss.NewStyle().Foreground(colorGold).Bold(true)
	dimNodeStyle = lipgloss.NewStyle().Foreground(colorDim)
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// =============================================================================
// ExploreModel - Interactive graph exploration
// =============================================================================

type promptKind int

const (
	promptNone promptKind = iota
	promptSearch
	promptPathStart
	promptPathEnd
)

// eventMsg carries a session notification into the update loop.
type eventMsg struct{ ev explorer.Event }

// ExploreModel is the bubbletea model of the explore command. It sends
// intents to a running session and redraws on its events.
type ExploreModel struct {
	ctx context.Context
	s   *explorer.Session

	Width, Height int
	ids           []graph.ID
	cursor        int
	forces        string

	prompt    promptKind
	input     string
	pathStart string

	status    string
	statusErr bool
}

// NewExploreModel creates a model over a session whose Run loop is
// driven by ctx.
func NewExploreModel(ctx context.Context, s *explorer.Session) ExploreModel {
	m := ExploreModel{ctx: ctx, s: s, Width: 100, Height: 30, cursor: -1, forces: "interactive"}
	m.refresh()
	return m
}

// waitEvent blocks for the next session event.
func (m ExploreModel) waitEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.s.Events():
			return eventMsg{ev}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m ExploreModel) Init() tea.Cmd {
	return m.waitEvent()
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
	case eventMsg:
		m.handleEvent(msg.ev)
		return m, m.waitEvent()
	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg), nil
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m *ExploreModel) handleEvent(ev explorer.Event) {
	switch ev := ev.(type) {
	case explorer.Merged:
		m.refresh()
		if ev.Result.AddedNodes > 0 {
			m.setStatus(fmt.Sprintf("%s: +%d characters, +%d relations", ev.Op, ev.Result.AddedNodes, ev.Result.AddedLinks))
		}
	case explorer.Failed:
		m.status, m.statusErr = errors.UserMessage(ev.Err), true
	case explorer.PathChanged:
		m.refresh()
		if ev.Active {
			m.setStatus(fmt.Sprintf("path found: %d hops", ev.Length))
		} else {
			m.setStatus("path cleared")
		}
	case explorer.ModeChanged:
		m.setStatus("mode: " + ev.Mode.String())
	}
}

func (m *ExploreModel) setStatus(s string) {
	m.status, m.statusErr = s, false
}

// refresh re-reads the displayed node ids, keeping the cursor on the same
// node when it is still shown.
func (m *ExploreModel) refresh() {
	var current graph.ID
	if m.cursor >= 0 && m.cursor < len(m.ids) {
		current = m.ids[m.cursor]
	}
	g := m.s.Snapshot()
	m.ids = m.ids[:0]
	for _, n := range g.Nodes {
		m.ids = append(m.ids, n.ID)
	}
	slices.SortFunc(m.ids, graph.CompareIDs)
	m.cursor = slices.Index(m.ids, current)
}

// selected returns the node under the cursor.
func (m ExploreModel) selected() (graph.ID, bool) {
	if m.cursor < 0 || m.cursor >= len(m.ids) {
		return "", false
	}
	return m.ids[m.cursor], true
}

func (m ExploreModel) moveCursor(delta int) ExploreModel {
	if len(m.ids) == 0 {
		return m
	}
	if m.cursor < 0 {
		m.cursor = 0
	} else {
		m.cursor = (m.cursor + delta + len(m.ids)) % len(m.ids)
	}
	m.s.Send(explorer.Highlight{Intent: selection.SelectIntent{ID: m.ids[m.cursor]}})
	return m
}

func (m ExploreModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "j", "down":
		return m.moveCursor(1), nil
	case "shift+tab", "k", "up":
		return m.moveCursor(-1), nil
	case "enter", "e":
		if id, ok := m.selected(); ok {
			m.s.Send(explorer.Expand{ID: id})
			m.setStatus("expanding " + string(id) + "...")
		}
	case "esc":
		m.cursor = -1
		m.s.Send(explorer.Highlight{Intent: selection.DeselectIntent{}})
	case "/":
		m.prompt, m.input = promptSearch, ""
	case "p":
		m.prompt, m.input, m.pathStart = promptPathStart, "", ""
	case "x":
		m.s.Send(explorer.ClearPath{})
	case "o":
		if m.s.PathActive() {
			m.s.Send(explorer.ShowPathOnly{})
		}
	case "a":
		m.s.Send(explorer.ShowAll{})
	case "b":
		m.s.Send(explorer.Highlight{Intent: selection.BridgeIntent{}})
	case "l":
		m.s.Send(explorer.Highlight{Intent: selection.LeaderIntent{}})
	case "g":
		if id, ok := m.selected(); ok {
			if d, err := m.s.Details(id); err == nil {
				m.s.Send(explorer.Highlight{Intent: selection.CommunityIntent{Group: d.Node.Group()}})
			}
		}
	case "s":
		next := m.s.SizeMode().Next()
		m.s.Send(explorer.SetSizeMode{Mode: next})
		m.setStatus("size: " + string(next))
	case "c":
		m.forces = "compact"
		m.s.Send(explorer.SetForces{Forces: layout.CompactForces()})
	case "v":
		m.forces = "spread"
		m.s.Send(explorer.SetForces{Forces: layout.SpreadForces()})
	case "i":
		m.forces = "interactive"
		m.s.Send(explorer.SetForces{Forces: layout.InteractiveForces()})
	case "r":
		m.cursor = -1
		m.s.Send(explorer.ResetView{})
	}
	return m, nil
}

func (m ExploreModel) updatePrompt(msg tea.KeyMsg) ExploreModel {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.prompt, m.input = promptNone, ""
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	case tea.KeyEnter:
		return m.submitPrompt()
	}
	return m
}

func (m ExploreModel) submitPrompt() ExploreModel {
	text := strings.TrimSpace(m.input)
	kind := m.prompt
	m.prompt, m.input = promptNone, ""

	switch kind {
	case promptSearch:
		m.s.Send(explorer.Highlight{Intent: selection.SearchIntent{Text: text}})
	case promptPathStart:
		if text == "" {
			return m
		}
		m.pathStart = text
		m.prompt = promptPathEnd
	case promptPathEnd:
		if text == "" {
			return m
		}
		m.s.Send(explorer.QueryPath{Start: m.pathStart, End: text})
		m.setStatus(fmt.Sprintf("searching %s → %s...", m.pathStart, text))
	}
	return m
}

// =============================================================================
// View
// =============================================================================

func (m ExploreModel) View() string {
	cw := max(m.Width-panelWidth-4, minCanvasSize)
	ch := max(m.Height-2, minCanvasSize)

	g := m.s.Snapshot()
	a := m.s.Assignment()
	sel, _ := m.selected()
	canvas := drawGraph(g, a, m.s.Particles(), sel, cw, ch)

	body := lipgloss.JoinHorizontal(lipgloss.Top, canvas, " ", m.panel(g, sel))
	return body + "\n" + m.footer()
}

func (m ExploreModel) panel(g graph.Graph, sel graph.ID) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(appName))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d characters · %d relations", len(g.Nodes), len(g.Links))))
	b.WriteString("\n\n")

	kv := func(k, v string) {
		b.WriteString(StyleDim.Render(fmt.Sprintf("%-8s", k)))
		b.WriteString(StyleValue.Render(v))
		b.WriteString("\n")
	}
	kv("mode", m.s.Mode().String())
	kv("size", string(m.s.SizeMode()))
	kv("forces", m.forces)
	if p, ok := m.s.Path(); ok {
		kv("path", fmt.Sprintf("%d hops", p.Len()))
	}

	if sel != "" {
		if d, err := m.s.Details(sel); err == nil {
			b.WriteString("\n")
			b.WriteString(communityStyle(d.Node.Group()).Bold(true).Render(d.Node.DisplayName()))
			b.WriteString("\n")
			kv("group", nodelink.CommunityName(d.Node.Group()))
			kv("degree", fmt.Sprint(d.Degree))
			if d.Bridge {
				kv("bridge", fmt.Sprint(d.BridgeScore))
			}
			if d.Leader {
				kv("leader", fmt.Sprint(d.LeaderScore))
			}
			for i, bk := range d.Relations.Buckets {
				if i == 3 {
					break
				}
				kv(truncate(bk.Type, 7), fmt.Sprintf("%d (%.0f%%)", bk.Count, bk.Percent))
			}
		}
	}

	b.WriteString("\n")
	for _, h := range [][2]string{
		{"tab", "select"}, {"enter", "expand"}, {"/", "search"}, {"g", "community"},
		{"b l", "bridges leaders"}, {"p x o a", "path clear only all"},
		{"s", "size"}, {"c v i", "compact spread reset"}, {"r", "reset view"}, {"q", "quit"},
	} {
		b.WriteString(helpKeyStyle.Render(fmt.Sprintf("%-8s", h[0])))
		b.WriteString(StyleDim.Render(h[1]))
		b.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m ExploreModel) footer() string {
	switch m.prompt {
	case promptSearch:
		return promptStyle.Render("search: ") + m.input + "▏"
	case promptPathStart:
		return promptStyle.Render("path from: ") + m.input + "▏"
	case promptPathEnd:
		return promptStyle.Render(fmt.Sprintf("path from %s to: ", m.pathStart)) + m.input + "▏"
	}
	if m.statusErr {
		return errorStyle.Render(iconError + " " + m.status)
	}
	return StyleDim.Render(m.status)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// =============================================================================
// Canvas
// =============================================================================

// canvas is a character grid addressed by column and row.
type canvas struct {
	w, h  int
	cells [][]string
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]string, h)}
	for i := range c.cells {
		c.cells[i] = slices.Repeat([]string{" "}, w)
	}
	return c
}

func (c *canvas) set(col, row int, s string) {
	if col >= 0 && col < c.w && row >= 0 && row < c.h {
		c.cells[row][col] = s
	}
}

// line plots a straight segment between two cells, endpoints excluded.
func (c *canvas) line(c0, r0, c1, r1 int, s string) {
	steps := max(abs(c1-c0), abs(r1-r0))
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		col := int(math.Round(float64(c0) + t*float64(c1-c0)))
		row := int(math.Round(float64(r0) + t*float64(r1-r0)))
		c.set(col, row, s)
	}
}

func (c *canvas) String() string {
	rows := make([]string, c.h)
	for i, r := range c.cells {
		rows[i] = strings.Join(r, "")
	}
	return strings.Join(rows, "\n")
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// projection fits layout space into a w×h grid. Terminal cells are about
// twice as tall as wide, so the vertical axis is halved.
type projection struct {
	minX, minY, scale float64
	w, h              int
}

func fit(nodes []graph.Node, w, h int) projection {
	p := projection{w: w, h: h, scale: 1}
	if len(nodes) == 0 {
		return p
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range nodes {
		pt := nodes[i].Position()
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	spanX := math.Max(maxX-minX, 1)
	spanY := math.Max((maxY-minY)/2, 0.5)
	p.scale = math.Min(float64(w-1)/spanX, float64(h-1)/spanY)
	// Center the drawing in the spare space.
	p.minX = minX - (float64(w-1)/p.scale-spanX)/2
	p.minY = minY - (float64(h-1)/p.scale-spanY)
	return p
}

func (p projection) cell(pt graph.Point) (int, int) {
	col := int(math.Round((pt.X - p.minX) * p.scale))
	row := int(math.Round((pt.Y - p.minY) / 2 * p.scale))
	return col, row
}

// drawGraph renders links, path particles and nodes onto a w×h canvas.
// Dimmed nodes are gray, highlighted nodes keep their community color and
// take a role glyph, and the selected node is labelled.
func drawGraph(g graph.Graph, a selection.Assignment, particles []graph.Point, sel graph.ID, w, h int) string {
	c := newCanvas(w, h)
	p := fit(g.Nodes, w, h)

	pos := make(map[graph.ID]graph.Point, len(g.Nodes))
	for i := range g.Nodes {
		pos[g.Nodes[i].ID] = g.Nodes[i].Position()
	}

	pathStyle := lipgloss.NewStyle().Foreground(colorGold)
	for _, pass := range []bool{false, true} {
		for _, l := range g.Links {
			st := a.Link(l)
			if st.Path != pass {
				continue
			}
			s, sok := pos[l.Source]
			t, tok := pos[l.Target]
			if !sok || !tok {
				continue
			}
			c0, r0 := p.cell(s)
			c1, r1 := p.cell(t)
			glyph := linkStyle.Render("·")
			if st.Path {
				glyph = pathStyle.Render("•")
			}
			c.line(c0, r0, c1, r1, glyph)
		}
	}
	for _, pt := range particles {
		col, row := p.cell(pt)
		c.set(col, row, pathStyle.Render("∗"))
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		st := a.Node(n.ID)
		col, row := p.cell(pos[n.ID])
		glyph := iconNode
		switch st.Role {
		case selection.RoleBridge:
			glyph = "◆"
		case selection.RoleLeader:
			glyph = "★"
		case selection.RolePathStart, selection.RolePathEnd, selection.RoleSelected:
			glyph = "◉"
		}
		style := communityStyle(n.Group())
		if st.Opacity < selection.OpacityFull {
			style = dimNodeStyle
		}
		c.set(col, row, style.Render(glyph))

		if n.ID == sel || st.Role == selection.RolePathStart || st.Role == selection.RolePathEnd {
			for j, r := range []rune(" " + n.DisplayName()) {
				c.set(col+1+j, row, StyleValue.Render(string(r)))
			}
		}
	}
	return c.String()
}
