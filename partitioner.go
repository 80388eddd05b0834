package sitetree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/blobstore"
	"github.com/hupe1980/sitetree/catalog"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/median"
	"github.com/hupe1980/sitetree/resource"
	"github.com/hupe1980/sitetree/sitecsv"
	"github.com/hupe1980/sitetree/snapshot"
	"golang.org/x/sync/errgroup"
)

// Blob names written by Publish below the run directory.
const (
	SnapshotBlob = "tree.snap"
	LeavesBlob   = "leaves.csv"
	ReportBlob   = "report.txt"
)

// Config describes a partitioner.
type Config struct {
	kdtree.Config
	// DeriveYears replaces Config.Years with the smallest and largest year
	// of each input.
	DeriveYears bool
}

// Partitioner builds, stores and publishes site trees for one
// configuration. It is safe for concurrent use.
type Partitioner[T geom.Coordinate] struct {
	cfg  Config
	opts options
}

// NewPartitioner validates cfg and returns a Partitioner.
func NewPartitioner[T geom.Coordinate](cfg Config, optFns ...Option) (*Partitioner[T], error) {
	o := applyOptions(optFns)

	check := cfg.Config
	if cfg.DeriveYears {
		check.Years = balance.YearRange{}
	}
	if err := check.Validate(); err != nil {
		return nil, translateError(err)
	}

	v, err := balance.NewValidator[T](check.Years, check.MinSize)
	if err != nil {
		return nil, translateError(err)
	}
	if _, ok := median.ByName(o.strategy, v); !ok {
		return nil, &ErrInvalidConfig{cause: fmt.Errorf("unknown median strategy %q", o.strategy)}
	}

	return &Partitioner[T]{cfg: cfg, opts: o}, nil
}

// Config returns the partitioner configuration.
func (p *Partitioner[T]) Config() Config { return p.cfg }

// Logger returns the configured logger.
func (p *Partitioner[T]) Logger() *Logger { return p.opts.logger }

// DeriveYears returns the smallest and largest year of points.
func DeriveYears[T geom.Coordinate](points []geom.Point[T]) (balance.YearRange, error) {
	if len(points) == 0 {
		return balance.YearRange{}, ErrNoSites
	}
	r := balance.YearRange{Min: points[0].Year, Max: points[0].Year}
	for _, p := range points[1:] {
		r.Min = min(r.Min, p.Year)
		r.Max = max(r.Max, p.Year)
	}
	return r, nil
}

// validateSites reports the first site that would violate a builder
// contract.
func validateSites[T geom.Coordinate](points []geom.Point[T], cfg kdtree.Config) error {
	for i, p := range points {
		if p.Dim() != cfg.Dims {
			return &ErrPointDimension{Row: i, Expected: cfg.Dims, Actual: p.Dim()}
		}
		if !cfg.Years.Contains(p.Year) {
			return &ErrYearOutOfRange{Row: i, Year: p.Year, Range: cfg.Years}
		}
		if d := geom.NonFinite(p); d >= 0 {
			return &ErrNonFiniteCoordinate{Row: i, Dim: d, Value: float64(p.Coords[d])}
		}
	}
	return nil
}

// Build partitions points. Sites are validated first, so malformed input
// yields an error instead of a panic. The input slice is not modified.
func (p *Partitioner[T]) Build(ctx context.Context, points []geom.Point[T]) (*kdtree.Tree[T], error) {
	start := time.Now()
	tree, err := p.build(ctx, points)

	stats := BuildStats{Points: len(points), Duration: time.Since(start)}
	if tree != nil {
		s := tree.Stats()
		stats.Nodes, stats.Leaves, stats.MaxDepth = s.Nodes, s.Leaves, s.MaxDepth
	}
	p.opts.metricsCollector.RecordBuild(stats, err)
	p.opts.logger.LogBuild(ctx, stats, err)

	return tree, translateError(err)
}

func (p *Partitioner[T]) build(ctx context.Context, points []geom.Point[T]) (*kdtree.Tree[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := p.cfg.Config
	if p.cfg.DeriveYears {
		years, err := DeriveYears(points)
		if err != nil {
			return nil, err
		}
		cfg.Years = years
	}
	if err := validateSites(points, cfg); err != nil {
		return nil, err
	}

	v, err := balance.NewValidator[T](cfg.Years, cfg.MinSize)
	if err != nil {
		return nil, err
	}
	strategy, _ := median.ByName(p.opts.strategy, v)

	b, err := kdtree.NewBuilder(cfg,
		kdtree.WithStrategy(strategy),
		kdtree.WithObserver[T](&buildObserver{ctx: ctx, logger: p.opts.logger, metrics: p.opts.metricsCollector}),
	)
	if err != nil {
		return nil, err
	}
	return b.Build(points)
}

// buildObserver forwards leaf refusals to the logger and metrics.
type buildObserver struct {
	ctx     context.Context
	logger  *Logger
	metrics MetricsCollector
}

func (o *buildObserver) OnSplit(uint64, int, int, int, int) {}

func (o *buildObserver) OnLeaf(id uint64, depth, size int, reason median.Reason, deficient []int) {
	o.metrics.RecordRefusal(reason)
	o.logger.LogRefusal(o.ctx, id, depth, size, reason, deficient)
}

// Encode writes tree as a snapshot using the configured codec and
// compression.
func (p *Partitioner[T]) Encode(w io.Writer, tree *kdtree.Tree[T]) (snapshot.Info, error) {
	return snapshot.Encode(w, tree, snapshot.WithCodec(p.opts.codec), snapshot.WithCompression(p.opts.compression))
}

// Save stores tree as a snapshot blob.
func (p *Partitioner[T]) Save(ctx context.Context, store blobstore.BlobStore, name string, tree *kdtree.Tree[T]) (snapshot.Info, error) {
	start := time.Now()

	var buf bytes.Buffer
	info, err := p.Encode(&buf, tree)
	if err == nil {
		err = p.writeBlob(ctx, store, name, buf.Bytes())
	}

	p.opts.metricsCollector.RecordSave(info.Size, time.Since(start), err)
	p.opts.logger.LogSave(ctx, name, info.Size, err)
	if err != nil {
		return snapshot.Info{}, translateError(err)
	}
	return info, nil
}

// Load reads and verifies a snapshot blob.
func (p *Partitioner[T]) Load(ctx context.Context, store blobstore.BlobStore, name string) (*kdtree.Tree[T], snapshot.Info, error) {
	start := time.Now()

	tree, info, err := p.load(ctx, store, name)

	p.opts.metricsCollector.RecordLoad(info.Size, time.Since(start), err)
	p.opts.logger.LogLoad(ctx, name, info.Size, err)
	if err != nil {
		return nil, snapshot.Info{}, translateError(err)
	}
	return tree, info, nil
}

func (p *Partitioner[T]) load(ctx context.Context, store blobstore.BlobStore, name string) (*kdtree.Tree[T], snapshot.Info, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, snapshot.Info{}, err
	}
	tree, info, err := snapshot.Decode[T](bytes.NewReader(data))
	if err != nil {
		return nil, snapshot.Info{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return tree, info, nil
}

// WriteLeaves writes the leaf table of tree to w, with a header row.
func (p *Partitioner[T]) WriteLeaves(w io.Writer, tree *kdtree.Tree[T]) error {
	return WriteLeaves(w, tree, p.opts.inputOrder)
}

// WriteLeaves writes the leaf table of tree to w, with a header row sized
// by the first site. inputOrder lists sites by input row instead of by leaf.
func WriteLeaves[T geom.Coordinate](w io.Writer, tree *kdtree.Tree[T], inputOrder bool) error {
	cw := sitecsv.NewWriter[T](w)

	// Sites may carry different attribute counts; the header covers the widest.
	attrs := 0
	for _, lp := range tree.LeafPoints() {
		attrs = max(attrs, len(lp.Point.Attributes))
	}
	if err := cw.WriteHeader(attrs, tree.Dims); err != nil {
		return err
	}
	if inputOrder {
		return cw.WriteInputOrder(tree)
	}
	return cw.WriteLeafPoints(tree)
}

// Publish writes the snapshot, leaf table and report of tree below a new
// run directory and appends the run to the store's catalog.
func (p *Partitioner[T]) Publish(ctx context.Context, store blobstore.BlobStore, tree *kdtree.Tree[T]) (catalog.Entry, error) {
	start := time.Now()
	runID := p.opts.runID()

	entry, err := p.publish(ctx, store, tree, runID)

	p.opts.metricsCollector.RecordPublish(len(entry.Blobs), time.Since(start), err)
	p.opts.logger.LogPublish(ctx, runID, len(entry.Blobs), err)
	if err != nil {
		return catalog.Entry{}, translateError(err)
	}
	return entry, nil
}

func (p *Partitioner[T]) publish(ctx context.Context, store blobstore.BlobStore, tree *kdtree.Tree[T], runID string) (catalog.Entry, error) {
	if tree == nil {
		return catalog.Entry{}, errors.New("publish: nil tree")
	}

	var snap, leaves, report bytes.Buffer
	info, err := p.Encode(&snap, tree)
	if err != nil {
		return catalog.Entry{}, err
	}
	if err := p.WriteLeaves(&leaves, tree); err != nil {
		return catalog.Entry{}, err
	}
	if err := kdtree.WriteReport(&report, tree); err != nil {
		return catalog.Entry{}, err
	}

	blobs := []struct {
		name string
		data []byte
	}{
		{path.Join(runID, SnapshotBlob), snap.Bytes()},
		{path.Join(runID, LeavesBlob), leaves.Bytes()},
		{path.Join(runID, ReportBlob), report.Bytes()},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range blobs {
		g.Go(func() error {
			return p.writeBlob(gctx, store, b.name, b.data)
		})
	}
	if err := g.Wait(); err != nil {
		for _, b := range blobs {
			_ = store.Delete(context.WithoutCancel(ctx), b.name)
		}
		return catalog.Entry{}, err
	}

	stats := tree.Stats()
	entry := catalog.Entry{
		RunID:     runID,
		CreatedAt: p.opts.now().UTC(),
		Dims:      tree.Dims,
		MinSize:   tree.MinSize,
		Years:     tree.Years,
		Strategy:  tree.Strategy,
		Nodes:     stats.Nodes,
		Leaves:    stats.Leaves,
		Points:    stats.Points,
		Snapshot:  blobs[0].name,
		Checksum:  info.Checksum,
	}
	for _, b := range blobs {
		entry.Blobs = append(entry.Blobs, b.name)
	}

	if _, err := catalog.NewStore(store, p.opts.codec).Append(ctx, entry); err != nil {
		return catalog.Entry{}, err
	}
	return entry, nil
}

// Catalog returns the catalog of store, read with the configured codec.
func (p *Partitioner[T]) Catalog(ctx context.Context, store blobstore.BlobStore) (*catalog.Manifest, error) {
	m, err := catalog.NewStore(store, p.opts.codec).Load(ctx)
	return m, translateError(err)
}

// writeBlob streams data into a new blob within the resource limits.
func (p *Partitioner[T]) writeBlob(ctx context.Context, store blobstore.BlobStore, name string, data []byte) error {
	return p.opts.resources.Do(ctx, int64(len(data)), func(ctx context.Context) error {
		w, err := store.Create(ctx, name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}

		rw := resource.NewRateLimitedWriter(ctx, w, p.opts.resources)
		if _, err := rw.Write(data); err != nil {
			_ = blobstore.Abort(w)
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
		return nil
	})
}
