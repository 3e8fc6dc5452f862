// Package selection translates user intents into a single highlight mode
// and derives per-node and per-link styles from it.
//
// A [Controller] holds exactly one [Mode]. Entering a new mode exits the
// previous one. Clearing a transient mode (search, community filter,
// bridge or leader highlight) returns to the baseline, which is
// NodeSelected when a node has been clicked and Idle otherwise.
//
// A Controller is not safe for concurrent use; it is owned by the explorer
// session loop. Subscribers receive [Changed] notifications on a channel.
package selection

import (
	"fmt"
	"strings"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// Kind identifies a highlight mode.
type Kind int

// Mode kinds.
const (
	Idle Kind = iota
	Search
	CommunityFilter
	BridgeHighlight
	LeaderHighlight
	NodeSelected
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Search:
		return "search"
	case CommunityFilter:
		return "community"
	case BridgeHighlight:
		return "bridges"
	case LeaderHighlight:
		return "leaders"
	case NodeSelected:
		return "selected"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Mode is the current highlight mode. Text is set for Search, Group for
// CommunityFilter and Node for NodeSelected.
type Mode struct {
	Kind  Kind
	Text  string
	Group graph.Category
	Node  graph.ID
}

func (m Mode) String() string {
	switch m.Kind {
	case Search:
		return fmt.Sprintf("search(%q)", m.Text)
	case CommunityFilter:
		return fmt.Sprintf("community(%s)", m.Group)
	case NodeSelected:
		return fmt.Sprintf("selected(%s)", m.Node)
	}
	return m.Kind.String()
}

// =============================================================================
// Intents
// =============================================================================

// Intent is a user action consumed by [Controller.Apply].
type Intent interface{ intent() }

// SearchIntent highlights nodes whose name contains Text. Blank text clears
// the search.
type SearchIntent struct{ Text string }

// CommunityIntent highlights one community. An empty group clears the
// filter.
type CommunityIntent struct{ Group graph.Category }

// BridgeIntent toggles the bridge highlight.
type BridgeIntent struct{}

// LeaderIntent toggles the community-leader highlight.
type LeaderIntent struct{}

// SelectIntent selects a node and makes it the baseline.
type SelectIntent struct{ ID graph.ID }

// DeselectIntent drops the selected node from the baseline.
type DeselectIntent struct{}

// ResetIntent returns to the baseline.
type ResetIntent struct{}

func (SearchIntent) intent()    {}
func (CommunityIntent) intent() {}
func (BridgeIntent) intent()    {}
func (LeaderIntent) intent()    {}
func (SelectIntent) intent()    {}
func (DeselectIntent) intent()  {}
func (ResetIntent) intent()     {}

// =============================================================================
// Controller
// =============================================================================

// Changed is sent to subscribers after the mode changes.
type Changed struct {
	Mode Mode
}

const subscriberBuffer = 8

// Controller is the highlight state machine.
type Controller struct {
	mode     Mode
	selected graph.ID
	subs     []chan Changed
}

// New creates a controller in the Idle mode.
func New() *Controller {
	return &Controller{}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// Selected returns the clicked node, if any. It stays selected while
// transient modes come and go.
func (c *Controller) Selected() (graph.ID, bool) {
	return c.selected, c.selected != ""
}

// Subscribe returns a channel of mode changes. Sends never block: a
// subscriber that falls behind misses notifications and should read
// [Controller.Mode] for the latest state.
func (c *Controller) Subscribe() <-chan Changed {
	ch := make(chan Changed, subscriberBuffer)
	c.subs = append(c.subs, ch)
	return ch
}

// Apply handles an intent and reports whether the mode changed.
func (c *Controller) Apply(in Intent) bool {
	next := c.mode
	switch in := in.(type) {
	case SearchIntent:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			next = c.baseline()
		} else {
			next = Mode{Kind: Search, Text: text}
		}
	case CommunityIntent:
		if in.Group == "" {
			next = c.baseline()
		} else {
			next = Mode{Kind: CommunityFilter, Group: in.Group}
		}
	case BridgeIntent:
		next = c.toggle(BridgeHighlight)
	case LeaderIntent:
		next = c.toggle(LeaderHighlight)
	case SelectIntent:
		c.selected = in.ID
		next = c.baseline()
	case DeselectIntent:
		c.selected = ""
		if c.mode.Kind == NodeSelected {
			next = c.baseline()
		}
	case ResetIntent:
		next = c.baseline()
	default:
		return false
	}
	if next == c.mode {
		return false
	}
	c.mode = next
	c.notify()
	return true
}

func (c *Controller) toggle(k Kind) Mode {
	if c.mode.Kind == k {
		return c.baseline()
	}
	return Mode{Kind: k}
}

func (c *Controller) baseline() Mode {
	if c.selected != "" {
		return Mode{Kind: NodeSelected, Node: c.selected}
	}
	return Mode{Kind: Idle}
}

func (c *Controller) notify() {
	ev := Changed{Mode: c.mode}
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
