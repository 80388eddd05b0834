// Package config loads CLI configuration from a YAML file, a .env file and
// SITETREE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hupe1980/sitetree"
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/codec"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/resource"
	"github.com/hupe1980/sitetree/sitecsv"
	"github.com/hupe1980/sitetree/snapshot"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes all environment overrides.
const EnvPrefix = "SITETREE_"

// Config is the CLI configuration.
type Config struct {
	Dims        int             `yaml:"dims" validate:"gte=1"`
	MinSize     int             `yaml:"min_size" validate:"gte=0"`
	MinYear     *int            `yaml:"min_year"`
	MaxYear     *int            `yaml:"max_year"`
	StartDim    int             `yaml:"start_dim" validate:"gte=0,ltfield=Dims"`
	MaxDepth    int             `yaml:"max_depth" validate:"gte=0"`
	Strategy    string          `yaml:"strategy" validate:"oneof=sorted selected"`
	Codec       string          `yaml:"codec" validate:"oneof=go-json json"`
	Compression string          `yaml:"compression" validate:"oneof=none lz4 zstd"`
	InputOrder  bool            `yaml:"input_order"`
	Layout      *sitecsv.Layout `yaml:"layout"`
	Store       string          `yaml:"store"`
	MetricsFile string          `yaml:"metrics_file"`
	Log         Log             `yaml:"log"`
	Postgres    Postgres        `yaml:"postgres"`
	Resources   resource.Config `yaml:"resources"`
}

// Log selects the log handler.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Postgres configures the optional leaf export.
type Postgres struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Dims:        2,
		Strategy:    "sorted",
		Codec:       codec.Default.Name(),
		Compression: snapshot.CompressionNone.String(),
		Log:         Log{Level: "info", Format: "text"},
		Resources:   resource.Config{MaxConcurrentWrites: 3},
	}
}

// Load reads path (if not empty), then envFile (if it exists), then the
// process environment, and validates the result.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envVar struct {
	names []string
	set   func(c *Config, v string) error
}

func intVar(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func yearVar(field func(*Config) **int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = &n
		return nil
	}
}

func stringVar(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func int64Var(field func(*Config) *int64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

var envVars = []envVar{
	{[]string{EnvPrefix + "DIMS"}, intVar(func(c *Config) *int { return &c.Dims })},
	{[]string{EnvPrefix + "MIN_SIZE"}, intVar(func(c *Config) *int { return &c.MinSize })},
	{[]string{EnvPrefix + "MIN_YEAR"}, yearVar(func(c *Config) **int { return &c.MinYear })},
	{[]string{EnvPrefix + "MAX_YEAR"}, yearVar(func(c *Config) **int { return &c.MaxYear })},
	{[]string{EnvPrefix + "START_DIM"}, intVar(func(c *Config) *int { return &c.StartDim })},
	{[]string{EnvPrefix + "MAX_DEPTH"}, intVar(func(c *Config) *int { return &c.MaxDepth })},
	{[]string{EnvPrefix + "STRATEGY"}, stringVar(func(c *Config) *string { return &c.Strategy })},
	{[]string{EnvPrefix + "CODEC"}, stringVar(func(c *Config) *string { return &c.Codec })},
	{[]string{EnvPrefix + "COMPRESSION"}, stringVar(func(c *Config) *string { return &c.Compression })},
	{[]string{EnvPrefix + "INPUT_ORDER"}, func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.InputOrder = b
		return err
	}},
	{[]string{EnvPrefix + "STORE"}, stringVar(func(c *Config) *string { return &c.Store })},
	{[]string{EnvPrefix + "METRICS_FILE"}, stringVar(func(c *Config) *string { return &c.MetricsFile })},
	{[]string{EnvPrefix + "LOG_LEVEL", "LOG_LEVEL"}, stringVar(func(c *Config) *string { return &c.Log.Level })},
	{[]string{EnvPrefix + "LOG_FORMAT", "LOG_FORMAT"}, stringVar(func(c *Config) *string { return &c.Log.Format })},
	{[]string{EnvPrefix + "PG_DSN"}, stringVar(func(c *Config) *string { return &c.Postgres.DSN })},
	{[]string{EnvPrefix + "PG_TABLE"}, stringVar(func(c *Config) *string { return &c.Postgres.Table })},
	{[]string{EnvPrefix + "MAX_CONCURRENT_WRITES"}, int64Var(func(c *Config) *int64 { return &c.Resources.MaxConcurrentWrites })},
	{[]string{EnvPrefix + "MEMORY_LIMIT_BYTES"}, int64Var(func(c *Config) *int64 { return &c.Resources.MemoryLimitBytes })},
	{[]string{EnvPrefix + "IO_LIMIT_BYTES_PER_SEC"}, int64Var(func(c *Config) *int64 { return &c.Resources.IOLimitBytesPerSec })},
}

// applyEnv overrides fields from the environment. For variables with
// several names the first one set wins.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		for _, key := range ev.names {
			v, ok := lookup(key)
			if !ok || v == "" {
				continue
			}
			if err := ev.set(c, strings.TrimSpace(v)); err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			break
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateYears, Config{})
	return v
}

func validateYears(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.MinYear != nil && c.MaxYear != nil && *c.MinYear > *c.MaxYear {
		sl.ReportError(c.MaxYear, "MaxYear", "max_year", "gtefield", "MinYear")
	}
}

// Validate checks field rules and the year range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Layout != nil {
		if err := c.Layout.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if len(c.Layout.Coords) != c.Dims {
			return fmt.Errorf("invalid config: layout has %d coordinate columns for %d dimensions", len(c.Layout.Coords), c.Dims)
		}
	}
	return nil
}

// ReaderOptions returns the loader options for the configured layout and
// year bounds.
func (c Config) ReaderOptions() []sitecsv.Option {
	var opts []sitecsv.Option
	if c.Layout != nil {
		opts = append(opts, sitecsv.WithLayout(*c.Layout))
	}
	if c.MinYear != nil {
		opts = append(opts, sitecsv.WithMinYear(*c.MinYear))
	}
	if c.MaxYear != nil {
		opts = append(opts, sitecsv.WithMaxYear(*c.MaxYear))
	}
	return opts
}

// Partitioner returns the partitioner configuration for sites whose
// effective year range is years.
func (c Config) Partitioner(years balance.YearRange) sitetree.Config {
	return sitetree.Config{Config: kdtree.Config{
		Dims:     c.Dims,
		MinSize:  c.MinSize,
		Years:    years,
		StartDim: c.StartDim,
		MaxDepth: c.MaxDepth,
	}}
}

// Options returns the partitioner options selected by the configuration.
func (c Config) Options() ([]sitetree.Option, error) {
	cd, ok := codec.ByName(c.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", c.Codec)
	}
	comp, err := snapshot.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	return []sitetree.Option{
		sitetree.WithCodec(cd),
		sitetree.WithCompression(comp),
		sitetree.WithStrategy(c.Strategy),
		sitetree.WithResources(c.Resources),
		sitetree.WithInputOrder(c.InputOrder),
	}, nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
