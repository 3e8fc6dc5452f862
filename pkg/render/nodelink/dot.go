package nodelink

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
	"github.com/matzehuels/castgraph/pkg/selection"
)

// DefaultScale is the number of layout units per inch.
const DefaultScale = 72.0

// Colors used outside the community palette.
const (
	Background = "#1a1a2e"
	LinkColor  = "#999999"
	LabelColor = "#dddddd"
)

// Options configures node-link rendering.
type Options struct {
	// SizeMode selects the metric behind node radii.
	SizeMode layout.SizeMode

	// Scale is the number of layout units per inch. Zero means DefaultScale.
	Scale float64

	// Labels draws character names next to the nodes.
	Labels bool
}

// ToDOT converts a positioned graph to Graphviz DOT.
//
// Nodes are pinned at their layout position (y grows downwards in layout
// space and is flipped for Graphviz), sized by the radius of opts.SizeMode,
// filled with their community color and stroked as the assignment says.
// Opacity is carried by the alpha channel. Path links are drawn last so they
// stay on top.
func ToDOT(g graph.Graph, a selection.Assignment, opts Options) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", Background)
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fixedsize=true, label=\"\", fontsize=8, fontcolor=%q];\n", LabelColor)
	buf.WriteString("\n")

	for i := range g.Nodes {
		n := &g.Nodes[i]
		fmt.Fprintf(&buf, "  %q [%s];\n", string(n.ID), strings.Join(nodeAttrs(n, a.Node(n.ID), opts, scale), ", "))
	}

	buf.WriteString("\n")
	var path []graph.Link
	for _, l := range g.Links {
		st := a.Link(l)
		if st.Path {
			path = append(path, l)
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", string(l.Source), string(l.Target), strings.Join(linkAttrs(l, st), ", "))
	}
	for _, l := range path {
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", string(l.Source), string(l.Target), strings.Join(linkAttrs(l, a.Link(l)), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, st selection.Style, opts Options, scale float64) []string {
	p := n.Position()
	d := 2 * opts.SizeMode.Radius(n) / scale
	attrs := []string{
		fmt.Sprintf("pos=\"%s,%s!\"", num(p.X/scale), num(-p.Y/scale)),
		fmt.Sprintf("width=%s", num(d)),
		fmt.Sprintf("height=%s", num(d)),
		fmt.Sprintf("fillcolor=%q", withAlpha(CommunityColor(n.Group()), st.Opacity)),
		fmt.Sprintf("color=%q", withAlpha(st.Stroke, st.Opacity)),
		fmt.Sprintf("penwidth=%s", num(st.StrokeWidth)),
		fmt.Sprintf("tooltip=%q", n.DisplayName()),
	}
	if opts.Labels {
		attrs = append(attrs, fmt.Sprintf("xlabel=%q", n.DisplayName()))
	}
	return attrs
}

func linkAttrs(l graph.Link, st selection.LinkStyle) []string {
	stroke := st.Stroke
	if stroke == "" {
		stroke = LinkColor
	}
	return []string{
		fmt.Sprintf("color=%q", withAlpha(stroke, st.Opacity)),
		fmt.Sprintf("penwidth=%s", num(st.Width)),
		fmt.Sprintf("tooltip=%q", l.RelationType()),
	}
}

// num formats a float compactly with at most four decimals.
func num(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// withAlpha appends an alpha channel to a #rgb or #rrggbb color. Other
// values are returned unchanged.
func withAlpha(color string, opacity float64) string {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 || !strings.HasPrefix(color, "#") {
		return color
	}
	a := int(math.Round(math.Max(0, math.Min(1, opacity)) * 255))
	return fmt.Sprintf("#%s%02x", strings.ToLower(hex), a)
}

// =============================================================================
// Rendering
// =============================================================================

// Format is an output format of [Render].
type Format string

// Supported formats.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatDOT Format = "dot"
)

// ParseFormat resolves a format by name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "dot", "gv":
		return FormatDOT, nil
	}
	return "", fmt.Errorf("unknown format %q (want svg, png or dot)", s)
}

// Render lays out DOT source with Graphviz neato, honouring the pinned
// positions, and encodes it. FormatDOT returns the source unchanged.
func Render(ctx context.Context, dot string, f Format) ([]byte, error) {
	var gf graphviz.Format
	switch f {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		gf = graphviz.SVG
	case FormatPNG:
		gf = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gf, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if f == FormatSVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

// RenderSVG renders DOT source to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return Render(ctx, dot, FormatSVG)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element with an origin-based viewBox
// and explicit pixel size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
