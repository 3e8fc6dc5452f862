package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/layout"
)

// Cache backends.
const (
	cacheFile  = "file"
	cacheRedis = "redis"
	cacheNone  = "none"
)

// Dataset sources of the serve command.
const (
	sourceCSV    = "csv"
	sourceSQLite = "sqlite"
	sourceMongo  = "mongo"
)

// Config is the castgraph configuration file.
type Config struct {
	Service ServiceConfig `toml:"service"`
	Cache   CacheConfig   `toml:"cache"`
	Layout  LayoutConfig  `toml:"layout"`
	Server  ServerConfig  `toml:"server"`
}

// ServiceConfig points the client at a data service.
type ServiceConfig struct {
	URL      string        `toml:"url" validate:"required,http_url"`
	Timeout  time.Duration `toml:"timeout" validate:"gte=0"`
	CacheTTL time.Duration `toml:"cache_ttl" validate:"gte=0"`
	Breaker  bool          `toml:"breaker"`
	Seed     string        `toml:"seed,omitempty"` // explore start when no seed is given
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend   string `toml:"backend" validate:"oneof=file redis none"`
	Dir       string `toml:"dir,omitempty"`
	RedisAddr string `toml:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
}

// LayoutConfig holds the initial layout parameters.
type LayoutConfig struct {
	SizeMode string `toml:"size_mode" validate:"oneof=pagerank degree time screentime"`
	Forces   string `toml:"forces" validate:"oneof=default compact spread interactive path"`
}

// ServerConfig configures the reference data service.
type ServerConfig struct {
	Addr       string `toml:"addr" validate:"required"`
	Source     string `toml:"source" validate:"oneof=csv sqlite mongo"`
	Relations  string `toml:"relations" validate:"required_if=Source csv"`
	Characters string `toml:"characters,omitempty"`
	SQLiteDSN  string `toml:"sqlite_dsn" validate:"required_if=Source sqlite"`
	MongoURI   string `toml:"mongo_uri" validate:"required_if=Source mongo"`
	MongoDB    string `toml:"mongo_db" validate:"required_if=Source mongo"`
	Seed       uint64 `toml:"seed"`
	Watch      bool   `toml:"watch"`
	Metrics    bool   `toml:"metrics"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			URL:     "http://localhost:8000",
			Timeout: 10 * time.Second,
			Breaker: true,
		},
		Cache: CacheConfig{Backend: cacheFile},
		Layout: LayoutConfig{
			SizeMode: string(layout.SizePageRank),
			Forces:   "interactive",
		},
		Server: ServerConfig{
			Addr:      ":8000",
			Source:    sourceCSV,
			Relations: "relations.csv",
			MongoDB:   appName,
			Seed:      1,
		},
	}
}

// configDir returns the config directory using the XDG standard
// (~/.config/castgraph/).
func configDir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// defaultConfigPath returns the config file location, or "" when no home
// directory can be determined.
func defaultConfigPath() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// LoadConfig reads path over the defaults and validates the result. A
// missing file is not an error unless the path was given explicitly.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case err == nil:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
			}
		case stderrors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their TOML key.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		return name
	})
	return v
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid config")
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fieldMessage(fe)
	}
	return errors.New(errors.ErrCodeInvalidConfig, "invalid config: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := configKey(fe.Namespace())
	switch fe.Tag() {
	case "required", "required_if":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "http_url":
		return name + " must be an http(s) URL"
	case "hostname_port":
		return name + " must be host:port"
	case "gte":
		return name + " must not be negative"
	}
	return fmt.Sprintf("%s failed %s", name, fe.Tag())
}

// configKey turns "Config.service.cache_ttl" into "service.cache_ttl".
func configKey(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// sizeMode and forces resolve the layout section; both are validated by
// Validate, so errors here only come from hand-built configs.
func (c *Config) sizeMode() (layout.SizeMode, error) { return layout.ParseSizeMode(c.Layout.SizeMode) }
func (c *Config) forces() (layout.Forces, error)     { return layout.ParseForces(c.Layout.Forces) }

// =============================================================================
// Command
// =============================================================================

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.config.Encode(cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.configFile())
			return nil
		},
	})
	return cmd
}
