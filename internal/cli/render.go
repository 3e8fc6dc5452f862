package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/render/nodelink"
	"github.com/matzehuels/castgraph/pkg/selection"
)

// renderOpts holds the flags shared by commands that write pictures.
type renderOpts struct {
	output string // output file; the extension picks the format unless --format is set
	format string // svg, png, dot or json
	size   string // node size mode
	forces string // force preset
	labels bool   // draw character names
}

func (o *renderOpts) register(cmd *cobra.Command, defaultOutput string) {
	cmd.Flags().StringVarP(&o.output, "output", "o", defaultOutput, "output file")
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "output format: svg, png, dot, json (default from extension)")
	cmd.Flags().StringVar(&o.size, "size", "", "node size: pagerank, degree, time (default from config)")
	cmd.Flags().StringVar(&o.forces, "forces", "", "force preset: default, compact, spread, interactive, path")
	cmd.Flags().BoolVar(&o.labels, "labels", true, "draw character names")
}

// resolve fills the output format from the file extension.
func (o *renderOpts) resolve() (nodelink.Format, error) {
	name := o.format
	if name == "" {
		name = filepath.Ext(o.output)
	}
	f, err := nodelink.ParseFormat(name)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "output format")
	}
	return f, nil
}

// apply switches the session to the requested size mode and forces.
func (o *renderOpts) apply(s *explorer.Session, fallback layout.Forces) error {
	if o.size != "" {
		m, err := layout.ParseSizeMode(o.size)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "size mode")
		}
		s.SetSizeMode(m)
	}
	f := fallback
	if o.forces != "" {
		var err error
		if f, err = layout.ParseForces(o.forces); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "forces")
		}
	}
	s.SetForces(f)
	return nil
}

// snapshot reports whether the output is a JSON graph snapshot rather than
// a picture.
func (o *renderOpts) snapshot() bool {
	if o.format != "" {
		return strings.EqualFold(o.format, "json")
	}
	return strings.EqualFold(filepath.Ext(o.output), ".json")
}

// renderSession settles the layout and writes the displayed graph, as a
// picture or as a JSON snapshot that --from can read back.
func renderSession(ctx context.Context, s *explorer.Session, o *renderOpts) error {
	var format nodelink.Format
	if !o.snapshot() {
		f, err := o.resolve()
		if err != nil {
			return err
		}
		format = f
	}
	err := withSpinner(ctx, "Laying out graph...", func(ctx context.Context) error {
		return s.Settle(ctx)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "layout")
	}
	if dir := filepath.Dir(o.output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if o.snapshot() {
		return graph.WriteFile(s.Snapshot(), o.output)
	}

	dot := nodelink.ToDOT(s.Snapshot(), s.Assignment(), nodelink.Options{
		SizeMode: s.SizeMode(),
		Labels:   o.labels,
	})
	data, err := nodelink.Render(ctx, dot, format)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return os.WriteFile(o.output, data, 0o644)
}

// =============================================================================
// Command
// =============================================================================

// renderCommand draws the graph with a highlight mode.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts      renderOpts
		highlight string
		expand    []string
	)

	cmd := &cobra.Command{
		Use:   "render [seed]",
		Short: "Render the character graph to SVG or PNG",
		Long: `Lay out the character graph and render it.

Without a seed the whole social network is drawn. With a seed, the graph
starts at that character; --expand adds the neighbours of more characters.

--highlight selects what stands out:
  bridges, leaders        characters linking or leading communities
  community=N             one community (0-9)
  search=TEXT             characters whose name contains TEXT
  node=ID                 one character`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseHighlight(highlight)
			if err != nil {
				return err
			}
			s, closeSession, err := c.newSession()
			if err != nil {
				return err
			}
			defer closeSession()

			ctx := cmd.Context()
			fallback := layout.DefaultForces()
			err = withSpinner(ctx, "Fetching graph...", func(ctx context.Context) error {
				if len(args) == 0 {
					return s.LoadNetwork(ctx)
				}
				fallback = layout.InteractiveForces()
				if err := s.LoadInitial(ctx, args[0]); err != nil {
					return err
				}
				ids := append([]string{args[0]}, expand...)
				for _, ref := range ids {
					id, ok := s.Find(ref)
					if !ok {
						return errors.New(errors.ErrCodeNotFound, "unknown character %q", ref)
					}
					if err := s.Expand(ctx, id); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := opts.apply(s, fallback); err != nil {
				return err
			}
			if in != nil {
				if sel, ok := in.(selection.SelectIntent); ok {
					id, found := s.Find(string(sel.ID))
					if !found {
						return errors.New(errors.ErrCodeNotFound, "unknown character %q", sel.ID)
					}
					in = selection.SelectIntent{ID: id}
				}
				s.Highlight(in)
			}

			if err := renderSession(ctx, s, &opts); err != nil {
				return err
			}
			g := s.Snapshot()
			out := cmd.OutOrStdout()
			printSuccess(out, "Rendered %s", s.Mode())
			printStats(out, len(g.Nodes), len(g.Links))
			printFile(out, opts.output)
			return nil
		},
	}

	opts.register(cmd, "castgraph.svg")
	cmd.Flags().StringVar(&highlight, "highlight", "", "highlight mode: bridges, leaders, community=N, search=TEXT, node=ID")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "expand these characters after the seed (ids or names)")

	return cmd
}

// parseHighlight turns a --highlight value into a selection intent. An
// empty value yields nil.
func parseHighlight(s string) (selection.Intent, error) {
	key, value, hasValue := strings.Cut(strings.TrimSpace(s), "=")
	switch strings.ToLower(key) {
	case "":
		return nil, nil
	case "bridges", "bridge":
		return selection.BridgeIntent{}, nil
	case "leaders", "leader":
		return selection.LeaderIntent{}, nil
	case "community":
		if hasValue && value != "" {
			return selection.CommunityIntent{Group: graph.Category(value)}, nil
		}
	case "search":
		if hasValue && value != "" {
			return selection.SearchIntent{Text: value}, nil
		}
	case "node":
		if hasValue && value != "" {
			return selection.SelectIntent{ID: graph.ID(value)}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "invalid highlight %q", s)
}
