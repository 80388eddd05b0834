package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/sitetree"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/internal/config"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/metrics/prom"
	"github.com/hupe1980/sitetree/pgsink"
	"github.com/hupe1980/sitetree/sitecsv"
	"github.com/spf13/cobra"
)

type buildFlags struct {
	input       string
	output      string
	report      string
	save        string
	publish     bool
	pgDSN       string
	pgTable     string
	pgReplace   bool
	metricsFile string
}

func newBuildCmd(a *app) *cobra.Command {
	f := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Partition a site table",
		Long: `Reads a site table, builds the year-balanced tree and writes the
leaf table. The tree can also be saved as a snapshot, published to the
store catalog and exported to PostgreSQL.`,
		Example: `  sitetree build --input plots.csv --output leaves.csv
  sitetree build --input plots.csv --store s3://survey/trees --publish`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBuild(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "site table to read, - for stdin")
	fl.StringVarP(&f.output, "output", "o", "", "leaf table to write, - for stdout")
	fl.StringVar(&f.report, "report", "", "tree report to write, - for stdout")
	fl.StringVar(&f.save, "save", "", "save the snapshot under this name in the store")
	fl.BoolVar(&f.publish, "publish", false, "publish snapshot, leaves and report to the store catalog")
	fl.StringVar(&f.pgDSN, "pg-dsn", "", "PostgreSQL DSN to export leaf assignments to")
	fl.StringVar(&f.pgTable, "pg-table", "", "PostgreSQL table (default "+pgsink.DefaultTable+")")
	fl.BoolVar(&f.pgReplace, "pg-replace", false, "clear the PostgreSQL table before the export")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(name)
}

// writeTo writes to the named file, or to stdout for "-".
func writeTo(cmd *cobra.Command, name string, fn func(io.Writer) error) (err error) {
	if name == "-" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

func (a *app) runBuild(cmd *cobra.Command, f *buildFlags) error {
	ctx := cmd.Context()
	cfg := a.cfg

	if cmd.Flags().Changed("pg-dsn") {
		cfg.Postgres.DSN = f.pgDSN
	}
	if cmd.Flags().Changed("pg-table") {
		cfg.Postgres.Table = f.pgTable
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if (f.save != "" || f.publish) && cfg.Store == "" {
		return errNoStore
	}

	reader, err := sitecsv.NewReader[float64](cfg.Dims, cfg.ReaderOptions()...)
	if err != nil {
		return err
	}
	in, err := openInput(cmd, f.input)
	if err != nil {
		return err
	}
	points, stats, err := reader.Read(ctx, in)
	_ = in.Close()
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "sites loaded",
		"rows", stats.Rows,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
		"years", stats.Years.String(),
	)

	var (
		collector *prom.Collector
		extra     []sitetree.Option
	)
	if cfg.MetricsFile != "" {
		collector = prom.NewCollector()
		extra = append(extra, sitetree.WithMetricsCollector(collector))
	}

	p, err := a.partitioner(cfg.Partitioner(stats.Years), extra...)
	if err != nil {
		return err
	}

	err = a.build(cmd, p, f, cfg, points)
	if collector != nil {
		if werr := collector.WriteTextfile(cfg.MetricsFile); werr != nil {
			err = errors.Join(err, fmt.Errorf("write metrics: %w", werr))
		}
	}
	return err
}

func (a *app) build(cmd *cobra.Command, p *sitetree.Partitioner[float64], f *buildFlags, cfg config.Config, points []geom.Point[float64]) error {
	ctx := cmd.Context()

	tree, err := p.Build(ctx, points)
	if err != nil {
		return err
	}

	if f.output != "" {
		if err := writeTo(cmd, f.output, func(w io.Writer) error { return p.WriteLeaves(w, tree) }); err != nil {
			return fmt.Errorf("write leaves: %w", err)
		}
	}
	if f.report != "" {
		if err := writeTo(cmd, f.report, func(w io.Writer) error { return kdtree.WriteReport(w, tree) }); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	log := a.logger
	if f.save != "" || f.publish {
		store, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		if f.save != "" {
			info, err := p.Save(ctx, store, f.save, tree)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes, crc32 %08x)\n", f.save, info.Size, info.Checksum)
		}
		if f.publish {
			entry, err := p.Publish(ctx, store, tree)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published run %s\n", entry.RunID)
			log = log.WithRun(entry.RunID)
		}
	}

	if cfg.Postgres.DSN != "" {
		var opts []pgsink.Option
		if cfg.Postgres.Table != "" {
			opts = append(opts, pgsink.WithTable(cfg.Postgres.Table))
		}
		if f.pgReplace {
			opts = append(opts, pgsink.WithReplace())
		}
		sink, err := pgsink.Open(cfg.Postgres.DSN, opts...)
		if err != nil {
			return err
		}
		defer sink.Close()

		n, err := pgsink.Write(ctx, sink, tree)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "leaves exported", "table", sink.Table(), "rows", n)
	}
	return nil
}
