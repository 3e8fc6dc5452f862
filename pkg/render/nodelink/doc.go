// Package nodelink renders character graphs as positioned node-link
// diagrams.
//
// # Usage
//
// Take a snapshot with layout positions and a style assignment, convert it
// to DOT and render it:
//
//	dot := nodelink.ToDOT(s.Snapshot(), s.Assignment(), nodelink.Options{
//	    SizeMode: layout.SizePageRank,
//	    Labels:   true,
//	})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Node positions are pinned, so Graphviz neato only routes the links; the
// picture matches what the explorer shows. Fill colors come from [Palette]
// by community index.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and
// PNG rendering.
package nodelink
