package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownRelation is the relation type used for links without a type.
const UnknownRelation = "unknown"

// Character statuses reported by the data service.
const (
	StatusAlive    Status = "alive"
	StatusDeceased Status = "deceased"
)

// =============================================================================
// Identifiers
// =============================================================================

// ID identifies a node. The data service reports ids as JSON strings or
// integers; both decode to their string form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := flexString(b)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(s)
	return nil
}

// Category is a categorical classifier (community or species) used as the
// color-coding key and by the bridge/leader analytics.
type Category string

// UnmarshalJSON accepts a JSON string, number or null.
func (c *Category) UnmarshalJSON(b []byte) error {
	s, err := flexString(b)
	if err != nil {
		return fmt.Errorf("category: %w", err)
	}
	*c = Category(s)
	return nil
}

// Status is the optional alive/deceased state of a character.
type Status string

// UnmarshalJSON lowercases the status and tolerates null or numbers.
func (s *Status) UnmarshalJSON(b []byte) error {
	v, err := flexString(b)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	*s = Status(strings.ToLower(strings.TrimSpace(v)))
	return nil
}

// CompareIDs orders ids numerically when both are integers and lexically
// otherwise. Integers sort before non-integers. Distinct ids with the same
// integer value ("1", "01") fall back to lexical order, so the order is total.
func CompareIDs(a, b ID) int {
	ai, aerr := strconv.ParseInt(string(a), 10, 64)
	bi, berr := strconv.ParseInt(string(b), 10, 64)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return strings.Compare(string(a), string(b))
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

// flexString decodes a JSON string, number or null into a string.
func flexString(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", b)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return n.String(), nil
}

// =============================================================================
// Node
// =============================================================================

// Point is a position in layout space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a character. Position fields are layout state; FX/FY are set only
// while the node is pinned.
type Node struct {
	ID              ID       `json:"id" bson:"id"`
	Name            string   `json:"name" bson:"name"`
	Community       Category `json:"community,omitempty" bson:"community,omitempty"`
	Species         Category `json:"species,omitempty" bson:"species,omitempty"`
	Status          Status   `json:"status,omitempty" bson:"status,omitempty"`
	PageRank        float64  `json:"pagerank,omitempty" bson:"pagerank,omitempty"`
	Degree          int      `json:"degree,omitempty" bson:"degree,omitempty"`
	ScreenTime      float64  `json:"screenTime,omitempty" bson:"screen_time,omitempty"`
	FirstAppearance int      `json:"firstAppearance,omitempty" bson:"first_appearance,omitempty"`

	X  float64  `json:"x,omitempty" bson:"-"`
	Y  float64  `json:"y,omitempty" bson:"-"`
	FX *float64 `json:"fx,omitempty" bson:"-"`
	FY *float64 `json:"fy,omitempty" bson:"-"`
}

// Group returns the color-coding key: the community when present,
// otherwise the species.
func (n *Node) Group() Category {
	if n.Community != "" {
		return n.Community
	}
	return n.Species
}

// DisplayName returns the name if set, otherwise the id.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return string(n.ID)
}

// Pinned reports whether the node has a fixed position.
func (n *Node) Pinned() bool { return n.FX != nil && n.FY != nil }

// Position returns the pinned position when pinned, otherwise x/y.
func (n *Node) Position() Point {
	if n.Pinned() {
		return Point{X: *n.FX, Y: *n.FY}
	}
	return Point{X: n.X, Y: n.Y}
}

// hasPosition reports whether the node arrived with layout state.
func (n *Node) hasPosition() bool {
	return n.X != 0 || n.Y != 0 || n.Pinned()
}

// clone copies the node including its pin pointers.
func (n *Node) clone() Node {
	c := *n
	if n.FX != nil {
		fx := *n.FX
		c.FX = &fx
	}
	if n.FY != nil {
		fy := *n.FY
		c.FY = &fy
	}
	return c
}

// =============================================================================
// Link
// =============================================================================

// Link is an undirected relationship between two characters, held by id.
type Link struct {
	Source ID      `json:"source" bson:"source"`
	Target ID      `json:"target" bson:"target"`
	Weight float64 `json:"weight,omitempty" bson:"weight,omitempty"`
	Type   string  `json:"type,omitempty" bson:"type,omitempty"`
}

// UnmarshalJSON normalizes endpoints reported either as raw ids or as
// hydrated node objects carrying an "id" field.
func (l *Link) UnmarshalJSON(b []byte) error {
	var raw struct {
		Source json.RawMessage `json:"source"`
		Target json.RawMessage `json:"target"`
		Weight float64         `json:"weight"`
		Type   *string         `json:"type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	src, err := endpoint(raw.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	tgt, err := endpoint(raw.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	*l = Link{Source: src, Target: tgt, Weight: raw.Weight}
	if raw.Type != nil {
		l.Type = *raw.Type
	}
	return nil
}

func endpoint(b json.RawMessage) (ID, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return "", err
		}
		return obj.ID, nil
	}
	var id ID
	if err := id.UnmarshalJSON(b); err != nil {
		return "", err
	}
	return id, nil
}

// RelationType returns the link type, or [UnknownRelation] when absent.
func (l Link) RelationType() string {
	if t := strings.TrimSpace(l.Type); t != "" {
		return t
	}
	return UnknownRelation
}

// Key returns the canonical undirected key of the link.
func (l Link) Key() EdgeKey { return NewEdgeKey(l.Source, l.Target) }

// Touches reports whether id is an endpoint.
func (l Link) Touches(id ID) bool { return l.Source == id || l.Target == id }

// Other returns the endpoint opposite id. For a self-loop it returns id.
func (l Link) Other(id ID) (ID, bool) {
	switch id {
	case l.Source:
		return l.Target, true
	case l.Target:
		return l.Source, true
	}
	return "", false
}

// SelfLoop reports whether both endpoints are the same node.
func (l Link) SelfLoop() bool { return l.Source == l.Target }

// EdgeKey is an unordered endpoint pair with A <= B in [CompareIDs] order.
type EdgeKey struct {
	A, B ID
}

// NewEdgeKey builds the canonical key for the pair, independent of order.
func NewEdgeKey(a, b ID) EdgeKey {
	if CompareIDs(a, b) > 0 {
		a, b = b, a
	}
	return EdgeKey{A: a, B: b}
}

// String renders the key as "a-b".
func (k EdgeKey) String() string { return string(k.A) + "-" + string(k.B) }

// =============================================================================
// Payloads
// =============================================================================

// Movie is an entry of the timeline view.
type Movie struct {
	ID   ID     `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
	Year int    `json:"year" bson:"year"`
}

// Graph is the node-link payload exchanged with the data service and the
// snapshot format handed to renderers.
type Graph struct {
	Nodes  []Node  `json:"nodes"`
	Links  []Link  `json:"links"`
	Movies []Movie `json:"movies,omitempty"`
}
