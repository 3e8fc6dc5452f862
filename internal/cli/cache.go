package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the data service response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand empties the configured cache backend.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := c.newCache()
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer ch.Close()

			if err := ch.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			out := cmd.OutOrStdout()
			printSuccess(out, "Cleared %s cache", c.config.Cache.Backend)
			if where := c.cacheLocation(); where != "" {
				printDetail(out, "%s", where)
			}
			return nil
		},
	}
}

// cachePathCommand prints where responses are cached.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.cacheLocation())
			return nil
		},
	}
}

// cacheLocation describes the configured backend: a directory, a redis
// address or nothing.
func (c *CLI) cacheLocation() string {
	switch c.config.Cache.Backend {
	case cacheRedis:
		return "redis://" + c.config.Cache.RedisAddr
	case cacheNone:
		return ""
	}
	if c.config.Cache.Dir != "" {
		return c.config.Cache.Dir
	}
	dir, _ := cacheDir()
	return dir
}
