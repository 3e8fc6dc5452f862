package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/pkg/analytics"
	"github.com/matzehuels/castgraph/pkg/graph"
)

// ringCommand summarizes a selection of characters: their degrees on the
// outer ring and the relation mix of the first one inside.
func (c *CLI) ringCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ring NAME...",
		Short: "Compare the connections of selected characters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeSession, err := c.newSession()
			if err != nil {
				return err
			}
			defer closeSession()

			ctx := cmd.Context()
			err = withSpinner(ctx, "Loading social network...", func(ctx context.Context) error {
				return s.LoadNetwork(ctx)
			})
			if err != nil {
				return err
			}

			var (
				sum     analytics.RingSummary
				ringErr error
			)
			s.Analyze(func(st *graph.Store) { sum, ringErr = analytics.Ring(st, args) })
			if ringErr != nil {
				return ringErr
			}

			out := cmd.OutOrStdout()
			var maxDegree float64
			for _, sl := range sum.Outer {
				maxDegree = max(maxDegree, float64(sl.Degree))
			}
			rows := make([][]string, len(sum.Outer))
			for i, sl := range sum.Outer {
				rows[i] = []string{sl.Name, strconv.Itoa(sl.Degree), StyleNumber.Render(bar(float64(sl.Degree), maxDegree, 24))}
			}
			fmt.Fprintln(out, StyleTitle.Render("Connections"))
			printTable(out, []string{"Character", "Degree", ""}, rows)

			fmt.Fprintln(out, StyleTitle.Render("Relations of "+sum.Outer[0].Name))
			if sum.Inner.Total == 0 {
				printDetail(out, "none")
				return nil
			}
			rows = make([][]string, len(sum.Inner.Buckets))
			for i, b := range sum.Inner.Buckets {
				rows[i] = []string{b.Type, strconv.Itoa(b.Count), fmt.Sprintf("%.1f%%", b.Percent)}
			}
			printTable(out, []string{"Type", "Count", "Share"}, rows)
			return nil
		},
	}
}
