package sitetree

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/blobstore"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/median"
	"github.com/hupe1980/sitetree/snapshot"
	"github.com/hupe1980/sitetree/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourSites() []geom.Point[float64] {
	return []geom.Point[float64]{
		{Coords: []float64{0, 0}, Year: 2001, Attributes: []string{"a"}},
		{Coords: []float64{1, 4}, Year: 2001, Attributes: []string{"b"}},
		{Coords: []float64{2, 1}, Year: 2001, Attributes: []string{"c"}},
		{Coords: []float64{3, 3}, Year: 2001, Attributes: []string{"d"}},
	}
}

func newPartitioner(t *testing.T, cfg Config, opts ...Option) *Partitioner[float64] {
	t.Helper()
	p, err := NewPartitioner[float64](cfg, opts...)
	require.NoError(t, err)
	return p
}

func fixedConfig(dims, minSize, minYear, maxYear int) Config {
	return Config{Config: kdtree.Config{
		Dims:    dims,
		MinSize: minSize,
		Years:   balance.YearRange{Min: minYear, Max: maxYear},
	}}
}

func TestDeriveYears(t *testing.T) {
	pts := testutil.NewRNG(1).RoundRobinSites(50, 2, 1995, 2003)

	r, err := DeriveYears(pts)
	require.NoError(t, err)
	assert.Equal(t, balance.YearRange{Min: 1995, Max: 2003}, r)

	_, err = DeriveYears[float64](nil)
	require.ErrorIs(t, err, ErrNoSites)
}

func TestPartitioner_Build(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	p := newPartitioner(t, Config{Config: kdtree.Config{Dims: 2}, DeriveYears: true},
		WithMetricsCollector(metrics))

	tree, err := p.Build(context.Background(), fourSites())
	require.NoError(t, err)

	assert.Equal(t, balance.YearRange{Min: 2001, Max: 2001}, tree.Years)
	assert.Len(t, tree.Nodes, 7)
	require.NoError(t, tree.Verify())

	var attrs []string
	for _, lp := range tree.LeafPoints() {
		attrs = append(attrs, lp.Point.Attributes[0])
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, attrs)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.BuildCount)
	assert.Equal(t, int64(4), stats.PointsBuilt)
	assert.Equal(t, int64(4), stats.LeavesBuilt)
	assert.Equal(t, int64(4), stats.Refusals[median.ReasonTooFew])
}

func TestPartitioner_BuildBalanced(t *testing.T) {
	pts := testutil.NewRNG(7).UniformSites(600, 2, 2000, 2004)
	p := newPartitioner(t, fixedConfig(2, 3, 2000, 2004))

	tree, err := p.Build(context.Background(), pts)
	require.NoError(t, err)
	require.NoError(t, tree.Verify())

	stats := tree.Stats()
	assert.Equal(t, 600, stats.Points)
	assert.Greater(t, stats.Leaves, 1)

	v, err := balance.NewValidator[float64](tree.Years, 3)
	require.NoError(t, err)
	for _, idx := range tree.Leaves() {
		assert.True(t, v.Check(tree.Nodes[idx].Points))
	}
}

func TestPartitioner_BuildEmpty(t *testing.T) {
	p := newPartitioner(t, fixedConfig(2, 1, 2001, 2001))
	tree, err := p.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tree.LeafPoints())

	derived := newPartitioner(t, Config{Config: kdtree.Config{Dims: 2}, DeriveYears: true})
	_, err = derived.Build(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoSites)
}

func TestPartitioner_BuildErrors(t *testing.T) {
	p := newPartitioner(t, fixedConfig(2, 1, 2001, 2002))

	t.Run("dimension", func(t *testing.T) {
		pts := []geom.Point[float64]{
			{Coords: []float64{1, 2}, Year: 2001},
			{Coords: []float64{1, 2, 3}, Year: 2001},
		}
		_, err := p.Build(context.Background(), pts)

		var pd *ErrPointDimension
		require.ErrorAs(t, err, &pd)
		assert.Equal(t, 1, pd.Row)
		assert.Equal(t, 2, pd.Expected)
		assert.Equal(t, 3, pd.Actual)
		assert.ErrorIs(t, err, geom.ErrDimensionMismatch)
	})

	t.Run("year", func(t *testing.T) {
		pts := []geom.Point[float64]{{Coords: []float64{1, 2}, Year: 1999}}
		_, err := p.Build(context.Background(), pts)

		var yr *ErrYearOutOfRange
		require.ErrorAs(t, err, &yr)
		assert.Equal(t, 0, yr.Row)
		assert.Equal(t, 1999, yr.Year)
		assert.ErrorIs(t, err, balance.ErrYearOutOfRange)
	})

	for _, tt := range []struct {
		name  string
		value float64
	}{
		{"NaN", math.NaN()},
		{"Inf", math.Inf(1)},
		{"NegInf", math.Inf(-1)},
	} {
		t.Run("non-finite "+tt.name, func(t *testing.T) {
			pts := []geom.Point[float64]{
				{Coords: []float64{1, 2}, Year: 2001},
				{Coords: []float64{3, tt.value}, Year: 2002},
			}
			tree, err := p.Build(context.Background(), pts)
			assert.Nil(t, tree)

			var nf *ErrNonFiniteCoordinate
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, 1, nf.Row)
			assert.Equal(t, 1, nf.Dim)
			assert.ErrorIs(t, err, geom.ErrNonFinite)
		})
	}

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Build(ctx, fourSites())
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("too deep", func(t *testing.T) {
		cfg := fixedConfig(2, 0, 2001, 2001)
		cfg.MaxDepth = 2
		shallow := newPartitioner(t, cfg)

		_, err := shallow.Build(context.Background(), testutil.NewRNG(2).UniformSites(64, 2, 2001, 2001))
		require.ErrorIs(t, err, kdtree.ErrTooDeep)
	})
}

func TestPartitioner_BuildDoesNotModifyInput(t *testing.T) {
	pts := testutil.NewRNG(5).UniformSites(100, 2, 2001, 2002)
	orig := make([]geom.Point[float64], len(pts))
	for i, pt := range pts {
		orig[i] = pt.Clone()
	}

	p := newPartitioner(t, fixedConfig(2, 2, 2001, 2002))
	_, err := p.Build(context.Background(), pts)
	require.NoError(t, err)
	assert.Equal(t, orig, pts)
}

func TestPartitioner_SaveLoad(t *testing.T) {
	for _, c := range []snapshot.Compression{snapshot.CompressionNone, snapshot.CompressionLZ4, snapshot.CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()
			metrics := &BasicMetricsCollector{}
			p := newPartitioner(t, fixedConfig(2, 2, 2000, 2003),
				WithCompression(c), WithMetricsCollector(metrics))

			tree, err := p.Build(ctx, testutil.NewRNG(11).UniformSites(300, 2, 2000, 2003))
			require.NoError(t, err)

			info, err := p.Save(ctx, store, "plots.snap", tree)
			require.NoError(t, err)
			assert.Positive(t, info.Size)

			got, loaded, err := p.Load(ctx, store, "plots.snap")
			require.NoError(t, err)
			assert.Equal(t, info.Checksum, loaded.Checksum)
			assert.Equal(t, tree.LeafPoints(), got.LeafPoints())
			assert.Equal(t, tree.Config(), got.Config())

			stats := metrics.GetStats()
			assert.Equal(t, int64(1), stats.SaveCount)
			assert.Equal(t, int64(1), stats.LoadCount)
			assert.Equal(t, info.Size, stats.SaveBytes)
		})
	}
}

func TestPartitioner_LoadErrors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	p := newPartitioner(t, fixedConfig(2, 0, 2001, 2001))

	_, _, err := p.Load(ctx, store, "missing.snap")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "garbage.snap", []byte("definitely not a snapshot")))
	_, _, err = p.Load(ctx, store, "garbage.snap")
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestPartitioner_WriteLeaves(t *testing.T) {
	p := newPartitioner(t, fixedConfig(2, 0, 2001, 2001))
	tree, err := p.Build(context.Background(), fourSites())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.WriteLeaves(&buf, tree))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "leaf_id,year,attr_0,x_0,x_1", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",2001,a,0,0"))

	mixed := fourSites()
	mixed[2].Attributes = []string{"c", "extra"}
	mixed[3].Attributes = nil
	tree, err = p.Build(context.Background(), mixed)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteLeaves(&buf, tree, true))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "leaf_id,year,attr_0,attr_1,x_0,x_1", lines[0])
	for i, want := range []string{",2001,a,,0,0", ",2001,b,,1,4", ",2001,c,extra,2,1", ",2001,,,3,3"} {
		assert.True(t, strings.HasSuffix(lines[i+1], want), lines[i+1])
	}

	empty, err := p.Build(context.Background(), nil)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteLeaves(&buf, empty, true))
	assert.Equal(t, "leaf_id,year,x_0,x_1\n", buf.String())
}

func TestPartitioner_Publish(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	runs := []string{"run-1", "run-2"}
	next := 0
	p := newPartitioner(t, fixedConfig(2, 2, 2000, 2002),
		WithRunIDFunc(func() string { id := runs[next]; next++; return id }),
		WithClock(func() time.Time { return created }),
	)

	tree, err := p.Build(ctx, testutil.NewRNG(4).UniformSites(200, 2, 2000, 2002))
	require.NoError(t, err)

	entry, err := p.Publish(ctx, store, tree)
	require.NoError(t, err)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, created, entry.CreatedAt)
	assert.Equal(t, "run-1/tree.snap", entry.Snapshot)
	assert.Equal(t, []string{"run-1/tree.snap", "run-1/leaves.csv", "run-1/report.txt"}, entry.Blobs)
	assert.Equal(t, 200, entry.Points)

	names, err := store.List(ctx, "run-1/")
	require.NoError(t, err)
	assert.ElementsMatch(t, entry.Blobs, names)

	got, info, err := p.Load(ctx, store, entry.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, entry.Checksum, info.Checksum)
	assert.Equal(t, tree.LeafPoints(), got.LeafPoints())

	_, err = p.Publish(ctx, store, tree)
	require.NoError(t, err)

	m, err := p.Catalog(ctx, store)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, "run-2", latest.RunID)
}

type failingStore struct {
	*blobstore.MemoryStore
	fail string
}

func (s *failingStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if strings.HasSuffix(name, s.fail) {
		return nil, errors.New("disk full")
	}
	return s.MemoryStore.Create(ctx, name)
}

func TestPartitioner_PublishFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore(), fail: LeavesBlob}
	metrics := &BasicMetricsCollector{}
	p := newPartitioner(t, fixedConfig(2, 0, 2001, 2001),
		WithRunIDFunc(func() string { return "broken" }),
		WithMetricsCollector(metrics))

	tree, err := p.Build(ctx, fourSites())
	require.NoError(t, err)

	_, err = p.Publish(ctx, store, tree)
	require.ErrorContains(t, err, "disk full")

	names, err := store.List(ctx, "broken/")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = p.Catalog(ctx, store)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(1), metrics.GetStats().PublishErrors)
}
