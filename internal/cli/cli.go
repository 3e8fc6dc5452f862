// Package cli implements the castgraph command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/pkg/buildinfo"
	"github.com/matzehuels/castgraph/pkg/cache"
	"github.com/matzehuels/castgraph/pkg/dataservice"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/explorer"
	"github.com/matzehuels/castgraph/pkg/layout/fdp"
	"github.com/matzehuels/castgraph/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "castgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	serviceURL string
	fromFile   string
	metricsOut string
	noCache    bool
	config     *Config
	metrics    *observability.Prometheus
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Castgraph explores character relationship graphs",
		Long: `Castgraph fetches a character relationship graph from a data service and
explores it: incremental expansion, social-network analysis and shortest
paths. It also ships the reference data service.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			c.startMetrics()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return c.flushMetrics() },
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/castgraph/config.toml)")
	root.PersistentFlags().StringVar(&c.serviceURL, "service", "", "data service base URL (overrides config)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "bypass the response cache")
	root.PersistentFlags().StringVar(&c.fromFile, "from", "", "read the graph from a JSON snapshot instead of the data service")
	root.PersistentFlags().StringVar(&c.metricsOut, "metrics-out", "", "write client metrics to this Prometheus textfile on exit")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.pathCommand())
	root.AddCommand(c.ringCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), buildinfo.String()+"\n")
			return err
		},
	}
}

// =============================================================================
// Configuration
// =============================================================================

// configFile returns the config path in effect.
func (c *CLI) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	return defaultConfigPath()
}

// loadConfig reads the config file and applies global flag overrides.
func (c *CLI) loadConfig() error {
	cfg, err := LoadConfig(c.configFile(), c.configPath != "")
	if err != nil {
		return err
	}
	if c.serviceURL != "" {
		cfg.Service.URL = c.serviceURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.config = cfg
	c.Logger.Debug("config loaded", "path", c.configFile(), "service", cfg.Service.URL)
	return nil
}

// startMetrics registers Prometheus hooks when --metrics-out is set.
func (c *CLI) startMetrics() {
	if c.metricsOut == "" || c.metrics != nil {
		return
	}
	c.metrics = observability.NewPrometheus(nil)
	c.metrics.Register()
}

// flushMetrics writes the collected metrics to the --metrics-out file.
func (c *CLI) flushMetrics() error {
	if c.metrics == nil {
		return nil
	}
	if err := c.metrics.WriteTextfile(c.metricsOut); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write metrics")
	}
	c.Logger.Debug("metrics written", "path", c.metricsOut)
	return nil
}

// override copies v into dst when the named flag was set on the command
// line.
func override[T any](cmd *cobra.Command, name string, dst *T, v T) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}

// =============================================================================
// Factories
// =============================================================================

// newCache opens the configured response cache.
func (c *CLI) newCache() (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch c.config.Cache.Backend {
	case cacheRedis:
		return cache.NewRedisCache(c.config.Cache.RedisAddr), nil
	case cacheNone:
		return cache.NewNullCache(), nil
	}
	dir := c.config.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// newClient builds a data service client from the configuration. The
// returned close function releases the cache.
func (c *CLI) newClient() (*dataservice.Client, func(), error) {
	ch, err := c.newCache()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open cache")
	}
	sc := c.config.Service
	opts := []dataservice.Option{
		dataservice.WithTimeout(sc.Timeout),
		dataservice.WithLogger(c.Logger),
		dataservice.WithCache(ch, sc.CacheTTL),
	}
	if sc.Breaker {
		opts = append(opts, dataservice.WithBreaker(dataservice.DefaultBreakerSettings()))
	}
	client, err := dataservice.New(sc.URL, opts...)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}
	return client, func() { ch.Close() }, nil
}

// newSession builds an exploration session over the configured service, or
// over the --from snapshot, laid out by Graphviz fdp. The returned close function releases the
// simulator and the cache.
func (c *CLI) newSession(extra ...explorer.Option) (*explorer.Session, func(), error) {
	size, err := c.config.sizeMode()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout")
	}
	forces, err := c.config.forces()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout")
	}
	var (
		svc     explorer.DataService
		release = func() {}
	)
	if c.fromFile != "" {
		snap, err := openSnapshot(c.fromFile)
		if err != nil {
			return nil, nil, err
		}
		svc = snap
	} else {
		client, closeClient, err := c.newClient()
		if err != nil {
			return nil, nil, err
		}
		svc, release = client, closeClient
	}

	sim := fdp.New()
	opts := append([]explorer.Option{
		explorer.WithLogger(c.Logger),
		explorer.WithSizeMode(size),
		explorer.WithForces(forces),
	}, extra...)
	s := explorer.New(svc, sim, opts...)
	return s, func() {
		sim.Close()
		release()
	}, nil
}

// withSpinner runs fn behind a spinner on stderr.
func withSpinner(ctx context.Context, message string, fn func(context.Context) error) error {
	sp := newSpinnerWithContext(ctx, os.Stderr, message)
	sp.Start()
	err := fn(ctx)
	sp.Stop()
	return err
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/castgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
