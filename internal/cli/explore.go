package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
)

// exploreCommand opens the interactive terminal explorer.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		all     bool
		size    string
		forces  string
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "explore [seed]",
		Short: "Explore the social network interactively",
		Long: `Open an interactive view of the social network in the terminal.

Without arguments the explorer starts at service.seed from the config, or
at the first character the service lists; with a seed, at that character. Use --all to start from every character.
Press enter to expand the selected character, p to query a path and q to
quit. Log output is discarded while the explorer runs unless --log is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override(cmd, "size", &c.config.Layout.SizeMode, size)
			override(cmd, "forces", &c.config.Layout.Forces, forces)
			if err := c.config.Validate(); err != nil {
				return err
			}

			var seed string
			if len(args) == 1 {
				seed = args[0]
			}
			return c.runExplore(cmd.Context(), seed, all, logFile)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "load every character instead of the initial subset")
	cmd.Flags().StringVar(&size, "size", "", "node sizing: pagerank, degree or time")
	cmd.Flags().StringVar(&forces, "forces", "", "force preset: default, compact, spread, interactive or path")
	cmd.Flags().StringVar(&logFile, "log", "", "append log output to this file")

	return cmd
}

// loadExplore fills the session with every character when all is set, and
// otherwise with the seed. An empty seed falls back to service.seed and
// then to the first listed character.
func (c *CLI) loadExplore(ctx context.Context, s *explorer.Session, seed string, all bool) error {
	if all {
		return s.LoadAll(ctx)
	}
	if seed == "" {
		seed = c.config.Service.Seed
	}
	if seed == "" {
		names, err := s.LoadCharacters(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return errors.New(errors.ErrCodeEmptyDataset, "the data service lists no characters")
		}
		seed = names[0]
	}
	return s.LoadInitial(ctx, seed)
}

func (c *CLI) runExplore(ctx context.Context, seed string, all bool, logFile string) error {
	s, closeSession, err := c.newSession()
	if err != nil {
		return err
	}
	defer closeSession()

	err = withSpinner(ctx, "Loading characters...", func(ctx context.Context) error {
		return c.loadExplore(ctx, s, seed, all)
	})
	if err != nil {
		return err
	}
	// Names only feed the path prompt; the explorer works without them.
	if len(s.Characters()) == 0 {
		if _, err := s.LoadCharacters(ctx); err != nil {
			c.Logger.Warn("character names unavailable", "error", err)
		}
	}

	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	c.Logger.SetOutput(logOut)
	defer c.Logger.SetOutput(os.Stderr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	p := tea.NewProgram(NewExploreModel(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	cancel()
	if runErr := <-done; runErr != nil && err == nil {
		err = runErr
	}
	return err
}

var _ tea.Model = ExploreModel{}
