// Package fdp implements [layout.Simulator] on top of the Graphviz fdp
// force-directed layout, run in-process through go-graphviz.
//
// Each step renders the current positions as the fdp start state and lets
// fdp run a number of iterations proportional to the simulation energy
// (alpha). Pinned nodes are passed as fixed positions ("x,y!"), link
// distances become edge lengths, and the many-body charge is mapped onto
// fdp's spring constant K.
package fdp

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
)

const (
	pointsPerInch = 72.0

	// DefaultStepIterations is the fdp iteration budget of a step at alpha 1.
	DefaultStepIterations = 40
	// DefaultSettleIterations is the budget of a one-shot layout.
	DefaultSettleIterations = 600

	// chargePerK maps the default charge (-120) onto fdp's default K (0.3in).
	chargePerK = 400.0
)

type body struct {
	pos    graph.Point
	radius float64
	pinned bool
}

type spring struct {
	source, target     graph.ID
	distance, strength float64
}

// Simulator runs fdp over the registered nodes and links.
//
// Simulator is not safe for concurrent use.
type Simulator struct {
	gv *graphviz.Graphviz

	bodies  map[graph.ID]*body
	order   []graph.ID
	springs map[graph.EdgeKey]spring
	keys    []graph.EdgeKey

	forces        layout.Forces
	alpha, target float64

	stepIter, settleIter int
}

// Option configures a [Simulator].
type Option func(*Simulator)

// WithIterations sets the per-step and settle iteration budgets.
func WithIterations(step, settle int) Option {
	return func(s *Simulator) {
		if step > 0 {
			s.stepIter = step
		}
		if settle > 0 {
			s.settleIter = settle
		}
	}
}

// New creates a simulator. Graphviz is initialized lazily on the first
// step; call [Simulator.Close] to release it.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		bodies:     make(map[graph.ID]*body),
		springs:    make(map[graph.EdgeKey]spring),
		forces:     layout.DefaultForces(),
		stepIter:   DefaultStepIterations,
		settleIter: DefaultSettleIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the Graphviz instance.
func (s *Simulator) Close() error {
	if s.gv == nil {
		return nil
	}
	err := s.gv.Close()
	s.gv = nil
	return err
}

func (s *Simulator) AddNode(id graph.ID, p graph.Point, radius float64) {
	if _, ok := s.bodies[id]; ok {
		return
	}
	s.bodies[id] = &body{pos: p, radius: radius}
	s.order = append(s.order, id)
}

func (s *Simulator) AddLink(source, target graph.ID, distance, strength float64) {
	key := graph.NewEdgeKey(source, target)
	if _, ok := s.springs[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.springs[key] = spring{source: source, target: target, distance: distance, strength: strength}
}

func (s *Simulator) SetRadius(id graph.ID, radius float64) {
	if b, ok := s.bodies[id]; ok {
		b.radius = radius
	}
}

func (s *Simulator) SetForces(f layout.Forces) { s.forces = f }

func (s *Simulator) Pin(id graph.ID, p graph.Point) {
	if b, ok := s.bodies[id]; ok {
		b.pos = p
		b.pinned = true
	}
}

func (s *Simulator) Unpin(id graph.ID) {
	if b, ok := s.bodies[id]; ok {
		b.pinned = false
	}
}

func (s *Simulator) PositionOf(id graph.ID) (graph.Point, bool) {
	b, ok := s.bodies[id]
	if !ok {
		return graph.Point{}, false
	}
	return b.pos, true
}

func (s *Simulator) Alpha() float64           { return s.alpha }
func (s *Simulator) SetAlpha(alpha float64)   { s.alpha = alpha }
func (s *Simulator) SetAlphaTarget(t float64) { s.target = t }

// Step runs fdp for a number of iterations proportional to alpha, then
// decays alpha toward its target.
func (s *Simulator) Step(ctx context.Context) error {
	iter := int(math.Ceil(s.alpha * float64(s.stepIter)))
	if iter > 0 && len(s.bodies) > 0 {
		if err := s.run(ctx, iter); err != nil {
			return err
		}
	}
	s.alpha += (s.target - s.alpha) * s.forces.AlphaDecay
	return nil
}

// Settle runs a full fdp layout and leaves the simulation cold.
func (s *Simulator) Settle(ctx context.Context) error {
	if len(s.bodies) > 0 {
		if err := s.run(ctx, s.settleIter); err != nil {
			return err
		}
	}
	s.alpha = 0
	return nil
}

func (s *Simulator) run(ctx context.Context, iter int) error {
	if s.gv == nil {
		gv, err := graphviz.New(ctx)
		if err != nil {
			return fmt.Errorf("init graphviz: %w", err)
		}
		s.gv = gv.SetLayout(graphviz.FDP)
	}

	g, err := graphviz.ParseBytes([]byte(s.dot(iter)))
	if err != nil {
		return fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := s.gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return fmt.Errorf("fdp: %w", err)
	}
	out, err := parsePositions(buf.Bytes())
	if err != nil {
		return err
	}
	s.apply(out)
	return nil
}

// dot renders the current state as the fdp input graph. Nodes are named by
// their registration index so arbitrary ids need no quoting.
func (s *Simulator) dot(iter int) string {
	var b strings.Builder
	b.WriteString("graph G {\n")
	fmt.Fprintf(&b, "  layout=fdp; inputscale=%g; maxiter=%d; K=%s; overlap=true; splines=false;\n",
		pointsPerInch, iter, num(s.springK()))
	b.WriteString("  node [shape=circle, fixedsize=true, label=\"\"];\n")

	index := make(map[graph.ID]int, len(s.order))
	for i, id := range s.order {
		index[id] = i
		bd := s.bodies[id]
		pin := ""
		if bd.pinned {
			pin = "!"
		}
		d := num(2 * bd.radius / pointsPerInch)
		fmt.Fprintf(&b, "  n%d [pos=\"%s,%s%s\", width=%s, height=%s];\n", i, num(bd.pos.X), num(bd.pos.Y), pin, d, d)
	}
	for _, key := range s.keys {
		sp := s.springs[key]
		a, okA := index[sp.source]
		c, okC := index[sp.target]
		if !okA || !okC {
			continue
		}
		fmt.Fprintf(&b, "  n%d -- n%d [len=%s, weight=%s];\n", a, c, num(sp.distance/pointsPerInch), num(math.Max(sp.strength, 0.01)))
	}
	b.WriteString("}\n")
	return b.String()
}

func (s *Simulator) springK() float64 {
	k := math.Abs(s.forces.Charge) / chargePerK
	return math.Min(2, math.Max(0.05, k))
}

// apply copies fdp output back onto free bodies. fdp translates its output
// to a positive bounding box, so positions are re-anchored: on a pinned
// node when there is one, otherwise on the previous centroid nudged toward
// the centering force.
func (s *Simulator) apply(out map[int]graph.Point) {
	var shift graph.Point
	anchored := false
	for i, id := range s.order {
		if p, ok := out[i]; ok && s.bodies[id].pinned {
			pin := s.bodies[id].pos
			shift = graph.Point{X: pin.X - p.X, Y: pin.Y - p.Y}
			anchored = true
			break
		}
	}
	if !anchored {
		var before, after graph.Point
		n := 0.0
		for i, id := range s.order {
			p, ok := out[i]
			if !ok {
				continue
			}
			before.X += s.bodies[id].pos.X
			before.Y += s.bodies[id].pos.Y
			after.X += p.X
			after.Y += p.Y
			n++
		}
		if n == 0 {
			return
		}
		c := s.forces.Center
		k := s.forces.CenterStrength
		goal := graph.Point{X: before.X / n, Y: before.Y / n}
		goal.X += (c.X - goal.X) * k
		goal.Y += (c.Y - goal.Y) * k
		shift = graph.Point{X: goal.X - after.X/n, Y: goal.Y - after.Y/n}
	}

	for i, id := range s.order {
		bd := s.bodies[id]
		p, ok := out[i]
		if !ok || bd.pinned {
			continue
		}
		bd.pos = graph.Point{X: p.X + shift.X, Y: p.Y + shift.Y}
	}
}

var (
	nodeStmtRe = regexp.MustCompile(`(?m)^\s*n(\d+)\s*\[([^\]]*)\]`)
	posAttrRe  = regexp.MustCompile(`\bpos="([^"]+)"`)
)

// parsePositions extracts node positions from Graphviz xdot output.
func parsePositions(xdot []byte) (map[int]graph.Point, error) {
	text := strings.ReplaceAll(string(xdot), "\\\n", "")
	out := make(map[int]graph.Point)
	for _, m := range nodeStmtRe.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pm := posAttrRe.FindStringSubmatch(m[2])
		if pm == nil {
			continue
		}
		p, err := parsePoint(pm[1])
		if err != nil {
			return nil, fmt.Errorf("node n%d: %w", idx, err)
		}
		out[idx] = p
	}
	return out, nil
}

func parsePoint(s string) (graph.Point, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "!")
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return graph.Point{}, fmt.Errorf("malformed pos %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return graph.Point{}, fmt.Errorf("malformed pos %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return graph.Point{}, fmt.Errorf("malformed pos %q: %w", s, err)
	}
	return graph.Point{X: x, Y: y}, nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

var _ layout.Simulator = (*Simulator)(nil)
var _ layout.Settler = (*Simulator)(nil)
