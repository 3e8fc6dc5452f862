package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/pkg/analytics"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/render/nodelink"
)

const defaultTop = 10

// analyzeCommand prints the social-network analysis view.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		top  int
		node string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the whole social network",
		Long: `Load the full social network and print its communities, the top
bridges and leaders, and the best-connected characters.

With --node, print the details and the movie timeline of one character.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeSession, err := c.newSession()
			if err != nil {
				return err
			}
			defer closeSession()

			ctx := cmd.Context()
			prog := newProgress(c.Logger)
			err = withSpinner(ctx, "Loading social network...", func(ctx context.Context) error {
				return s.LoadNetwork(ctx)
			})
			if err != nil {
				return err
			}
			g := s.Snapshot()
			prog.done("network loaded", "nodes", len(g.Nodes), "links", len(g.Links))

			out := cmd.OutOrStdout()
			if node != "" {
				return printNodeReport(out, s, node)
			}
			printNetworkReport(out, s, top)
			return nil
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", defaultTop, "number of ranked entries to show")
	cmd.Flags().StringVar(&node, "node", "", "show details and timeline of one character (id or name)")

	return cmd
}

func printNetworkReport(w io.Writer, s *explorer.Session, top int) {
	var (
		nodes   = make(map[graph.ID]graph.Node)
		links   int
		groups  = make(map[graph.Category]int)
		bridges []analytics.Score
		leaders []analytics.Score
		degrees []analytics.Score
	)
	s.Analyze(func(st *graph.Store) {
		for _, n := range st.Nodes() {
			nodes[n.ID] = *n
			groups[n.Group()]++
		}
		links = st.LinkCount()

		bs := analytics.BridgeScores(st)
		marked := analytics.BridgesFrom(bs)
		for id := range bs {
			if !marked[id] {
				delete(bs, id)
			}
		}
		bridges = analytics.Ranked(bs, top)

		ls := analytics.LeaderScores(st)
		lead := analytics.Leaders(st)
		for id := range ls {
			if !lead[id] {
				delete(ls, id)
			}
		}
		leaders = analytics.Ranked(ls, top)
		degrees = analytics.Ranked(analytics.Degrees(st), top)
	})

	fmt.Fprintln(w, StyleTitle.Render("Social network"))
	printStats(w, len(nodes), links)
	fmt.Fprintln(w)

	keys := make([]graph.Category, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b graph.Category) int { return graph.CompareIDs(graph.ID(a), graph.ID(b)) })
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{
			communityStyle(k).Render(iconNode),
			nodelink.CommunityName(k),
			strconv.Itoa(groups[k]),
		}
	}
	fmt.Fprintln(w, StyleTitle.Render("Communities"))
	printTable(w, []string{"", "Community", "Characters"}, rows)

	ranked := func(title, metric string, scores []analytics.Score) {
		fmt.Fprintln(w, StyleTitle.Render(title))
		if len(scores) == 0 {
			printDetail(w, "none")
			return
		}
		rows := make([][]string, len(scores))
		for i, sc := range scores {
			n := nodes[sc.ID]
			rows[i] = []string{
				strconv.Itoa(i + 1),
				communityStyle(n.Group()).Render(n.DisplayName()),
				nodelink.CommunityName(n.Group()),
				strconv.Itoa(sc.Value),
			}
		}
		printTable(w, []string{"#", "Character", "Community", metric}, rows)
	}
	ranked("Bridges", "Cross links", bridges)
	ranked("Leaders", "Inner links", leaders)
	ranked("Most connected", "Degree", degrees)
}

func printNodeReport(w io.Writer, s *explorer.Session, ref string) error {
	id, ok := s.Find(ref)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "unknown character %q", ref)
	}
	d, err := s.Details(id)
	if err != nil {
		return err
	}
	timeline, err := s.Timeline(id)
	if err != nil {
		return err
	}

	n := d.Node
	fmt.Fprintln(w, communityStyle(n.Group()).Bold(true).Render(n.DisplayName()))
	printKeyValue(w, "ID", string(n.ID))
	printKeyValue(w, "Community", nodelink.CommunityName(n.Group()))
	if n.Species != "" {
		printKeyValue(w, "Species", string(n.Species))
	}
	if n.Status != "" {
		printKeyValue(w, "Status", string(n.Status))
	}
	printKeyValue(w, "Degree", strconv.Itoa(d.Degree))
	printKeyValue(w, "PageRank", strconv.FormatFloat(n.PageRank, 'f', 2, 64))
	printKeyValue(w, "Screen time", fmt.Sprintf("%.0f min", n.ScreenTime))
	printKeyValue(w, "First seen", strconv.Itoa(n.FirstAppearance))
	role := "-"
	switch {
	case d.Bridge && d.Leader:
		role = "bridge, leader"
	case d.Bridge:
		role = "bridge"
	case d.Leader:
		role = "leader"
	}
	printKeyValue(w, "Role", role)
	fmt.Fprintln(w)

	fmt.Fprintln(w, StyleTitle.Render("Relations"))
	if d.Relations.Total == 0 {
		printDetail(w, "none")
	} else {
		rows := make([][]string, len(d.Relations.Buckets))
		for i, b := range d.Relations.Buckets {
			rows[i] = []string{b.Type, strconv.Itoa(b.Count), fmt.Sprintf("%.1f%%", b.Percent)}
		}
		printTable(w, []string{"Type", "Count", "Share"}, rows)
	}

	fmt.Fprintln(w, StyleTitle.Render("Timeline"))
	var maxTime float64
	for _, a := range timeline {
		maxTime = max(maxTime, a.ScreenTime)
	}
	rows := make([][]string, len(timeline))
	for i, a := range timeline {
		rows[i] = []string{
			strconv.Itoa(a.Movie.Year),
			a.Movie.Name,
			fmt.Sprintf("%.1f", a.ScreenTime),
			communityStyle(n.Group()).Render(bar(a.ScreenTime, maxTime, 20)),
		}
	}
	printTable(w, []string{"Year", "Movie", "Minutes", ""}, rows)
	return nil
}
