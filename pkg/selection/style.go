package selection

import (
	"strings"

	"github.com/matzehuels/castgraph/pkg/analytics"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/overlay"
)

// Opacity levels.
const (
	OpacityFull    = 1.0
	OpacityDimmed  = 0.1
	LinkIdle       = 0.5
	LinkDimmed     = 0.1
	LinkFaint      = 0.05
	LinkNearBridge = 0.3
)

// Stroke colors.
const (
	StrokeDefault   = "#fff"
	StrokeBridge    = "#2ecc71"
	StrokeLeader    = "#f39c12"
	StrokeSelected  = "#e74c3c"
	StrokePath      = "#ffd700"
	StrokePathStart = "#27ae60"
	StrokePathEnd   = "#c0392b"
)

// Role names the reason a node is highlighted.
type Role string

// Roles.
const (
	RoleNone      Role = ""
	RoleMatch     Role = "match"
	RoleBridge    Role = "bridge"
	RoleLeader    Role = "leader"
	RoleSelected  Role = "selected"
	RolePathStart Role = "path-start"
	RolePathEnd   Role = "path-end"
	RolePathNode  Role = "path-node"
)

// Style is the drawing state of one node.
type Style struct {
	Opacity     float64 `json:"opacity"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Role        Role    `json:"role,omitempty"`
}

// LinkStyle is the drawing state of one link.
type LinkStyle struct {
	Opacity float64 `json:"opacity"`
	Stroke  string  `json:"stroke,omitempty"`
	Width   float64 `json:"width"`
	Path    bool    `json:"path,omitempty"`
}

// Assignment holds the style of every stored node and link.
type Assignment struct {
	Mode  Mode
	Nodes map[graph.ID]Style
	Links map[graph.EdgeKey]LinkStyle
}

// Node returns the style of a node, falling back to the idle style.
func (a Assignment) Node(id graph.ID) Style {
	if st, ok := a.Nodes[id]; ok {
		return st
	}
	return idleNode()
}

// Link returns the style of a link in either direction.
func (a Assignment) Link(l graph.Link) LinkStyle {
	if st, ok := a.Links[l.Key()]; ok {
		return st
	}
	return LinkStyle{Opacity: LinkIdle, Width: 1}
}

func idleNode() Style {
	return Style{Opacity: OpacityFull, Stroke: StrokeDefault, StrokeWidth: 1}
}

// Assign computes the styles for the controller's current mode. o may be
// nil.
func (c *Controller) Assign(s *graph.Store, o *overlay.Overlay) Assignment {
	return Assign(s, c.mode, c.selected, o)
}

// Assign maps a mode onto node and link styles. The selected node keeps its
// stroke under search and community filters, and an active path overlay is
// drawn on top of any mode.
func Assign(s *graph.Store, m Mode, selected graph.ID, o *overlay.Overlay) Assignment {
	a := Assignment{
		Mode:  m,
		Nodes: make(map[graph.ID]Style, s.NodeCount()),
		Links: make(map[graph.EdgeKey]LinkStyle, s.LinkCount()),
	}

	var marked map[graph.ID]bool
	switch m.Kind {
	case BridgeHighlight:
		marked = analytics.Bridges(s)
	case LeaderHighlight:
		marked = analytics.Leaders(s)
	}
	needle := strings.ToLower(m.Text)

	for _, n := range s.Nodes() {
		st := idleNode()
		switch m.Kind {
		case Search:
			st.Opacity = dimUnless(strings.Contains(strings.ToLower(n.Name), needle))
			if st.Opacity == OpacityFull {
				st.Role = RoleMatch
			}
		case CommunityFilter:
			st.Opacity = dimUnless(n.Group() == m.Group)
			if st.Opacity == OpacityFull {
				st.Role = RoleMatch
			}
		case BridgeHighlight:
			if marked[n.ID] {
				st = Style{Opacity: OpacityFull, Stroke: StrokeBridge, StrokeWidth: 3, Role: RoleBridge}
			} else {
				st.Opacity = OpacityDimmed
			}
		case LeaderHighlight:
			if marked[n.ID] {
				st = Style{Opacity: OpacityFull, Stroke: StrokeLeader, StrokeWidth: 4, Role: RoleLeader}
			} else {
				st.Opacity = OpacityDimmed
			}
		}
		if n.ID == selected && selected != "" {
			switch m.Kind {
			case NodeSelected, Search, CommunityFilter:
				st.Stroke, st.StrokeWidth, st.Role = StrokeSelected, 3, RoleSelected
			}
		}
		a.Nodes[n.ID] = st
	}

	for _, l := range s.Links() {
		st := LinkStyle{Opacity: LinkIdle, Width: 1}
		switch m.Kind {
		case Search, CommunityFilter:
			st.Opacity = LinkDimmed
		case BridgeHighlight:
			st.Opacity = LinkFaint
			if marked[l.Source] || marked[l.Target] {
				st.Opacity = LinkNearBridge
			}
		case LeaderHighlight:
			st.Opacity = LinkFaint
		}
		a.Links[l.Key()] = st
	}

	if o != nil && o.Active() {
		applyPath(&a, s, o)
	}
	return a
}

func dimUnless(ok bool) float64 {
	if ok {
		return OpacityFull
	}
	return OpacityDimmed
}

func applyPath(a *Assignment, s *graph.Store, o *overlay.Overlay) {
	start, _ := o.Start()
	end, _ := o.End()
	for _, id := range o.Path().IDs() {
		if !s.HasNode(id) {
			continue
		}
		st := Style{Opacity: OpacityFull, Stroke: StrokePath, StrokeWidth: 3, Role: RolePathNode}
		switch id {
		case start:
			st.Stroke, st.Role = StrokePathStart, RolePathStart
		case end:
			st.Stroke, st.Role = StrokePathEnd, RolePathEnd
		}
		a.Nodes[id] = st
	}
	for _, l := range s.Links() {
		if o.HasLink(l) {
			a.Links[l.Key()] = LinkStyle{Opacity: OpacityFull, Stroke: StrokePath, Width: 3, Path: true}
		}
	}
}
