package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/overlay"
)

// pathCommand queries and prints the shortest path between two characters.
func (c *CLI) pathCommand() *cobra.Command {
	var (
		opts        renderOpts
		showContext bool
	)

	cmd := &cobra.Command{
		Use:   "path START END",
		Short: "Find the shortest path between two characters",
		Long: `Ask the data service for the shortest path between two characters and
print it. With --output, the path is also rendered: only the path by
default, or on top of the whole network with --context.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeSession, err := c.newSession()
			if err != nil {
				return err
			}
			defer closeSession()

			ctx := cmd.Context()
			render := opts.output != ""
			err = withSpinner(ctx, "Searching path...", func(ctx context.Context) error {
				if render && showContext {
					if err := s.LoadNetwork(ctx); err != nil {
						return err
					}
				}
				return s.QueryPath(ctx, args[0], args[1])
			})
			if err != nil {
				return err
			}

			p, _ := s.Path()
			out := cmd.OutOrStdout()
			printPath(out, p)
			if !render {
				return nil
			}

			if !showContext {
				if err := s.ShowPathOnly(); err != nil {
					return err
				}
			}
			if err := opts.apply(s, layout.PathForces()); err != nil {
				return err
			}
			if err := renderSession(ctx, s, &opts); err != nil {
				return err
			}
			printFile(out, opts.output)
			return nil
		},
	}

	opts.register(cmd, "")
	cmd.Flags().BoolVar(&showContext, "context", false, "render the path on top of the whole network")

	return cmd
}

// printPath prints "A → B → C" followed by the hop count.
func printPath(w io.Writer, p overlay.Path) {
	names := make([]string, len(p.Nodes))
	for i := range p.Nodes {
		n := &p.Nodes[i]
		names[i] = communityStyle(n.Group()).Render(n.DisplayName())
	}
	fmt.Fprintln(w, strings.Join(names, " "+StylePath.Render(iconArrow)+" "))
	hops := "hops"
	if p.Len() == 1 {
		hops = "hop"
	}
	printDetail(w, "%d %s", p.Len(), hops)
}
