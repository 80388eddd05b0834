package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hupe1980/sitetree"
	"github.com/hupe1980/sitetree/blobstore"
	"github.com/hupe1980/sitetree/catalog"
	"github.com/hupe1980/sitetree/codec"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/spf13/cobra"
)

// loadTree opens the configured store and loads the named snapshot, or the
// snapshot of the latest catalog entry when name is empty.
func (a *app) loadTree(cmd *cobra.Command, name string) (*kdtree.Tree[float64], error) {
	ctx := cmd.Context()

	store, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	p, err := a.partitioner(sitetree.Config{DeriveYears: true, Config: kdtree.Config{Dims: a.cfg.Dims}})
	if err != nil {
		return nil, err
	}

	if name == "" {
		name, err = latestSnapshot(cmd, p, store)
		if err != nil {
			return nil, err
		}
	}

	tree, _, err := p.Load(ctx, store, name)
	return tree, err
}

func latestSnapshot(cmd *cobra.Command, p *sitetree.Partitioner[float64], store blobstore.BlobStore) (string, error) {
	m, err := p.Catalog(cmd.Context(), store)
	if err != nil {
		return "", err
	}
	e, ok := m.Latest()
	if !ok {
		return "", fmt.Errorf("catalog is empty: %w", sitetree.ErrNotFound)
	}
	return e.Snapshot, nil
}

func newReportCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the node report of a stored tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := a.loadTree(cmd, name)
			if err != nil {
				return err
			}
			return kdtree.WriteReport(cmd.OutOrStdout(), tree)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: latest published run)")
	return cmd
}

func newLeavesCmd(a *app) *cobra.Command {
	var (
		name   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "leaves",
		Short: "Write the leaf table of a stored tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := a.loadTree(cmd, name)
			if err != nil {
				return err
			}
			return writeTo(cmd, output, func(w io.Writer) error {
				return sitetree.WriteLeaves(w, tree, a.cfg.InputOrder)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: latest published run)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "leaf table to write, - for stdout")
	return cmd
}

func newCatalogCmd(a *app) *cobra.Command {
	var prune int

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the runs published to the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, a.cfg.Store)
			if err != nil {
				return err
			}
			p, err := a.partitioner(sitetree.Config{DeriveYears: true, Config: kdtree.Config{Dims: a.cfg.Dims}})
			if err != nil {
				return err
			}
			m, err := p.Catalog(ctx, store)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tDIMS\tYEARS\tMIN_SIZE\tPOINTS\tLEAVES\tSNAPSHOT")
			for _, e := range m.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%s\n",
					e.RunID, e.CreatedAt.Format(time.RFC3339), e.Dims, e.Years, e.MinSize, e.Points, e.Leaves, e.Snapshot)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if prune > 0 {
				removed, err := catalogStore(store, a).Prune(ctx, prune)
				if err != nil {
					return err
				}
				a.logger.InfoContext(ctx, "manifests pruned", "removed", len(removed))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&prune, "prune", 0, "keep only this many old manifest versions")
	return cmd
}

// catalogStore opens the catalog with the configured codec.
func catalogStore(store blobstore.BlobStore, a *app) *catalog.Store {
	c, _ := codec.ByName(a.cfg.Codec)
	return catalog.NewStore(store, c)
}
