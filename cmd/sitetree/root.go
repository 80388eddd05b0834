package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/hupe1980/sitetree"
	"github.com/hupe1980/sitetree/internal/config"
	"github.com/spf13/cobra"
)

// app carries state shared by all commands.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	store      string

	cfg    config.Config
	logger *sitetree.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "sitetree",
		Short:         "Partition survey sites into year-balanced kd-tree leaves",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")
	pf.StringVar(&a.store, "store", "", "blob store URL (file://, mem://, s3://, minio://)")

	cmd.AddCommand(
		newBuildCmd(a),
		newReportCmd(a),
		newLeavesCmd(a),
		newCatalogCmd(a),
	)
	return cmd
}

// init loads the configuration. Flags override the file and environment.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(a.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = strings.ToLower(a.logFormat)
	}
	if flags.Changed("store") {
		cfg.Store = a.store
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = newLogger(cfg, cmd.ErrOrStderr())
	return nil
}

func newLogger(cfg config.Config, w io.Writer) *sitetree.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return sitetree.NewLogger(slog.NewJSONHandler(w, opts))
	}
	return sitetree.NewLogger(slog.NewTextHandler(w, opts))
}

// partitioner builds a partitioner with the configured options.
func (a *app) partitioner(cfg sitetree.Config, extra ...sitetree.Option) (*sitetree.Partitioner[float64], error) {
	opts, err := a.cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, sitetree.WithLogger(a.logger))
	opts = append(opts, extra...)
	return sitetree.NewPartitioner[float64](cfg, opts...)
}
