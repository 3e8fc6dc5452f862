package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/internal/server"
	"github.com/matzehuels/castgraph/pkg/dataset"
	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/observability"
)

// serveCommand runs the reference data service.
func (c *CLI) serveCommand() *cobra.Command {
	var flags ServerConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference data service",
		Long: `Serve a character dataset over HTTP.

The dataset is read from CSV files, a SQLite database or MongoDB. With
--watch, CSV files are reloaded when they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := c.config.Server
			override(cmd, "addr", &sc.Addr, flags.Addr)
			override(cmd, "source", &sc.Source, flags.Source)
			override(cmd, "relations", &sc.Relations, flags.Relations)
			override(cmd, "characters", &sc.Characters, flags.Characters)
			override(cmd, "sqlite", &sc.SQLiteDSN, flags.SQLiteDSN)
			override(cmd, "mongo-uri", &sc.MongoURI, flags.MongoURI)
			override(cmd, "mongo-db", &sc.MongoDB, flags.MongoDB)
			override(cmd, "seed", &sc.Seed, flags.Seed)
			override(cmd, "watch", &sc.Watch, flags.Watch)
			override(cmd, "metrics", &sc.Metrics, flags.Metrics)
			return c.runServe(cmd, sc)
		},
	}

	cmd.Flags().StringVar(&flags.Addr, "addr", "", "listen address (default from config, :8000)")
	cmd.Flags().StringVar(&flags.Source, "source", "", "dataset source: csv, sqlite, mongo")
	cmd.Flags().StringVar(&flags.Relations, "relations", "", "relations CSV (subject,object,relation)")
	cmd.Flags().StringVar(&flags.Characters, "characters", "", "characters CSV (id,name,status,species)")
	cmd.Flags().StringVar(&flags.SQLiteDSN, "sqlite", "", "SQLite database file")
	cmd.Flags().StringVar(&flags.MongoURI, "mongo-uri", "", "MongoDB connection URI")
	cmd.Flags().StringVar(&flags.MongoDB, "mongo-db", "", "MongoDB database name")
	cmd.Flags().Uint64Var(&flags.Seed, "seed", 0, "seed for generated screen times")
	cmd.Flags().BoolVar(&flags.Watch, "watch", false, "reload CSV files when they change")
	cmd.Flags().BoolVar(&flags.Metrics, "metrics", false, "expose Prometheus metrics on /metrics")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, sc ServerConfig) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	src, err := dataSource(sc)
	if err != nil {
		return err
	}
	opts := []dataset.Option{dataset.WithSeed(sc.Seed)}

	prog := newProgress(c.Logger)
	ds, err := dataset.Load(ctx, src, opts...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "load dataset")
	}
	prog.done("dataset loaded", "source", sc.Source, "characters", ds.Len())

	srvOpts := []server.Option{server.WithLogger(c.Logger)}
	if sc.Metrics {
		m := observability.NewPrometheus(nil)
		m.Register()
		srvOpts = append(srvOpts, server.WithMetrics(m))
	}
	s := server.New(ds, srvOpts...)

	if sc.Watch {
		csv, ok := src.(dataset.CSVSource)
		if !ok {
			printWarning(out, "--watch only applies to CSV sources, ignoring")
		} else {
			go func() {
				if err := s.Watch(ctx, csv, csv.Paths(), server.DefaultDebounce, opts...); err != nil {
					c.Logger.Error("watch stopped", "error", err)
				}
			}()
			printDetail(out, "watching %v", csv.Paths())
		}
	}

	printSuccess(out, "Serving %d characters on %s", ds.Len(), sc.Addr)
	return s.ListenAndServe(ctx, sc.Addr)
}

// dataSource builds the dataset source a server config selects.
func dataSource(sc ServerConfig) (dataset.Source, error) {
	switch sc.Source {
	case sourceCSV, "":
		if sc.Relations == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "server.relations is required for csv sources")
		}
		return dataset.CSVSource{Relations: sc.Relations, Characters: sc.Characters}, nil
	case sourceSQLite:
		if sc.SQLiteDSN == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "server.sqlite_dsn is required for sqlite sources")
		}
		return dataset.SQLiteSource{DSN: sc.SQLiteDSN}, nil
	case sourceMongo:
		if sc.MongoURI == "" || sc.MongoDB == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "server.mongo_uri and server.mongo_db are required for mongo sources")
		}
		return dataset.MongoSource{URI: sc.MongoURI, Database: sc.MongoDB}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown source %q (want csv, sqlite or mongo)", sc.Source)
}

// =============================================================================
// Import
// =============================================================================

// importCommand copies a CSV dataset into SQLite or MongoDB.
func (c *CLI) importCommand() *cobra.Command {
	var sqliteDSN, mongoURI, mongoDB string

	cmd := &cobra.Command{
		Use:   "import RELATIONS.csv [CHARACTERS.csv]",
		Short: "Import a CSV dataset into SQLite or MongoDB",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (sqliteDSN == "") == (mongoURI == "") {
				return errors.New(errors.ErrCodeInvalidInput, "pass exactly one of --sqlite or --mongo-uri")
			}
			src := dataset.CSVSource{Relations: args[0]}
			if len(args) > 1 {
				src.Characters = args[1]
			}
			return c.runImport(cmd.Context(), cmd, src, sqliteDSN, mongoURI, mongoDB)
		},
	}

	cmd.Flags().StringVar(&sqliteDSN, "sqlite", "", "target SQLite database file")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "target MongoDB connection URI")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", appName, "target MongoDB database name")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, cmd *cobra.Command, src dataset.CSVSource, sqliteDSN, mongoURI, mongoDB string) error {
	raw, err := src.Load(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", src.Relations)
	}

	target := sqliteDSN
	if sqliteDSN != "" {
		err = dataset.WriteSQLite(ctx, sqliteDSN, raw)
	} else {
		target = fmt.Sprintf("%s/%s", mongoURI, mongoDB)
		err = withSpinner(ctx, "Writing to MongoDB...", func(ctx context.Context) error {
			return dataset.WriteMongo(ctx, mongoURI, mongoDB, raw)
		})
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Imported %d relations and %d characters", len(raw.Relations), len(raw.Characters))
	printFile(out, target)
	return nil
}
