package kdtree

import (
	"errors"
	"sort"
	"testing"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/median"
	"github.com/hupe1980/sitetree/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func config(dims, minSize, minYear, maxYear int) Config {
	return Config{Dims: dims, MinSize: minSize, Years: balance.YearRange{Min: minYear, Max: maxYear}}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected error
	}{
		{"Valid", config(2, 1, 2001, 2002), nil},
		{"ZeroDims", config(0, 1, 2001, 2002), ErrInvalidDimensions},
		{"InvertedYears", config(2, 1, 2003, 2002), balance.ErrInvalidYearRange},
		{"NegativeMinSize", config(2, -1, 2001, 2002), balance.ErrNegativeMinSize},
		{"StartDim", Config{Dims: 2, StartDim: 2, Years: balance.YearRange{Min: 1, Max: 1}}, ErrInvalidStartDimension},
		{"MaxDepth", Config{Dims: 2, MaxDepth: -1, Years: balance.YearRange{Min: 1, Max: 1}}, ErrInvalidMaxDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expected)

			_, err = NewBuilder[float64](tt.cfg)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestBuild_LosslessPartition(t *testing.T) {
	rng := testutil.NewRNG(42)
	pts := rng.UniformSites(500, 2, 2001, 2003)

	tree, err := Build(pts, config(2, 5, 2001, 2003))
	require.NoError(t, err)
	require.NoError(t, tree.Verify())

	lps := tree.LeafPoints()
	require.Len(t, lps, len(pts))

	seen := make([]bool, len(pts))
	for _, lp := range lps {
		require.False(t, seen[lp.Row], "row %d emitted twice", lp.Row)
		seen[lp.Row] = true
		assert.Equal(t, pts[lp.Row], lp.Point)
	}
	assert.Greater(t, tree.Stats().Leaves, 1)
}

func TestBuild_DoesNotReorderInput(t *testing.T) {
	rng := testutil.NewRNG(7)
	pts := rng.UniformSites(100, 3, 2001, 2002)
	before := make([]geom.Point[float64], len(pts))
	for i, p := range pts {
		before[i] = p.Clone()
	}

	_, err := Build(pts, config(3, 2, 2001, 2002))
	require.NoError(t, err)
	assert.Equal(t, before, pts)
}

func TestBuild_ShapeAndSplitInvariants(t *testing.T) {
	rng := testutil.NewRNG(1)

	tests := []struct {
		name   string
		points []geom.Point[float64]
		cfg    Config
	}{
		{"Uniform2D", rng.UniformSites(400, 2, 2001, 2002), config(2, 3, 2001, 2002)},
		{"Grid3D", rng.GridSites(400, 3, 3, 2001, 2002), config(3, 2, 2001, 2002)},
		{"RoundRobin", rng.RoundRobinSites(300, 2, 2001, 2003), config(2, 1, 2001, 2003)},
		{"Clustered", rng.ClusteredSites(400, 2, 6, 2001, 2003), config(2, 2, 2001, 2003)},
		{"StartDim", rng.UniformSites(200, 3, 2001, 2001), Config{Dims: 3, MinSize: 4, StartDim: 2, Years: balance.YearRange{Min: 2001, Max: 2001}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(tt.points, tt.cfg)
			require.NoError(t, err)
			require.NoError(t, tree.Verify())

			v, err := balance.NewValidator[float64](tt.cfg.Years, tt.cfg.MinSize)
			require.NoError(t, err)

			for i := range tree.Nodes {
				n := &tree.Nodes[i]
				if n.IsLeaf() {
					assert.NotEqual(t, median.ReasonAccepted, n.Reason)
					continue
				}
				assert.Empty(t, n.Points)
				assert.NotEqual(t, NoChild, n.Left)
				assert.NotEqual(t, NoChild, n.Right)

				l, r := tree.Node(n.Left), tree.Node(n.Right)
				assert.Less(t, n.ID, l.ID)
				assert.Less(t, n.ID, r.ID)
				assert.Equal(t, tree.Config().nextDim(n.SplitDim), l.SplitDim)

				for _, lp := range tree.LeafPointsFrom(n.Left) {
					assert.Negative(t, geom.Compare(lp.Point, *n.Median, n.SplitDim))
				}
				right := tree.LeafPointsFrom(n.Right)
				for _, lp := range right {
					assert.GreaterOrEqual(t, geom.Compare(lp.Point, *n.Median, n.SplitDim), 0)
				}

				assert.True(t, v.Check(points(tree.LeafPointsFrom(n.Left))))
				assert.True(t, v.Check(points(right)))
			}
		})
	}
}

func TestBuild_IDsArePreOrder(t *testing.T) {
	rng := testutil.NewRNG(3)
	tree, err := Build(rng.UniformSites(300, 2, 2001, 2001), config(2, 2, 2001, 2001))
	require.NoError(t, err)

	ids := make(map[uint64]bool)
	var prev uint64
	err = tree.Walk(0, func(idx int, n *Node[float64]) error {
		assert.False(t, ids[n.ID])
		ids[n.ID] = true
		if idx > 0 {
			assert.Equal(t, prev+1, n.ID)
		}
		prev = n.ID
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, ids, len(tree.Nodes))
}

func TestBuild_SharedSequence(t *testing.T) {
	rng := testutil.NewRNG(5)
	seq := NewSequence(100)

	b, err := NewBuilder(config(2, 1, 2001, 2001), WithSequence[float64](seq))
	require.NoError(t, err)

	t1, err := b.Build(rng.UniformSites(20, 2, 2001, 2001))
	require.NoError(t, err)
	t2, err := b.Build(rng.UniformSites(20, 2, 2001, 2001))
	require.NoError(t, err)

	assert.Equal(t, uint64(100), t1.Root().ID)
	assert.Equal(t, t1.Nodes[len(t1.Nodes)-1].ID+1, t2.Root().ID)
	assert.Equal(t, t2.Nodes[len(t2.Nodes)-1].ID+1, seq.Peek())

	// Independent builds with fresh sequences are reproducible.
	pts := rng.UniformSites(50, 2, 2001, 2001)
	a, err := Build(pts, config(2, 1, 2001, 2001))
	require.NoError(t, err)
	c, err := Build(pts, config(2, 1, 2001, 2001))
	require.NoError(t, err)
	assert.Equal(t, a.LeafPoints(), c.LeafPoints())
}

func TestBuild_FortySitesUnevenHalvesStayOneLeaf(t *testing.T) {
	pts := make([]geom.Point[float64], 0, 40)
	for i := 0; i < 40; i++ {
		year := 2001
		if i >= 20 {
			year = 2002
		}
		pts = append(pts, geom.Point[float64]{Coords: []float64{float64(i), 0}, Year: year})
	}

	tree, err := Build(pts, config(2, 20, 2001, 2002))
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 1)
	root := tree.Root()
	assert.True(t, root.IsLeaf())
	assert.Len(t, root.Points, 40)
	assert.Equal(t, median.ReasonLeftDeficient, root.Reason)
}

func TestBuild_ZeroMinSizeDegeneratesToSingletons(t *testing.T) {
	rng := testutil.NewRNG(11)
	pts := rng.UniformSites(64, 2, 2001, 2005)

	tree, err := Build(pts, config(2, 0, 2001, 2005))
	require.NoError(t, err)
	require.NoError(t, tree.Verify())

	stats := tree.Stats()
	assert.Equal(t, 64, stats.Leaves)
	assert.Equal(t, 127, stats.Nodes)
	assert.Equal(t, 64, stats.Refusals[median.ReasonTooFew])
}

func TestBuild_ZeroMinSizeDuplicatesTerminate(t *testing.T) {
	pts := make([]geom.Point[float64], 10)
	for i := range pts {
		pts[i] = geom.Point[float64]{Coords: []float64{1, 1}, Year: 2001}
	}

	tree, err := Build(pts, config(2, 0, 2001, 2001))
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, median.ReasonDegenerate, tree.Root().Reason)
}

func TestBuild_EmptyInput(t *testing.T) {
	tree, err := Build[float64](nil, config(2, 1, 2001, 2001))
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 1)
	assert.True(t, tree.Root().IsLeaf())
	assert.Empty(t, tree.LeafPoints())
	assert.False(t, tree.Root().Box.IsValid())
}

func TestBuild_DimensionMismatch(t *testing.T) {
	pts := []geom.Point[float64]{{Coords: []float64{1, 2, 3}, Year: 2001}}

	_, err := Build(pts, config(2, 1, 2001, 2001))
	require.ErrorIs(t, err, geom.ErrDimensionMismatch)
}

func TestBuild_YearOutOfRangePanics(t *testing.T) {
	pts := []geom.Point[float64]{{Coords: []float64{1, 2}, Year: 1999}}

	assert.Panics(t, func() {
		_, _ = Build(pts, config(2, 1, 2001, 2001))
	})
}

func TestBuild_MaxDepth(t *testing.T) {
	rng := testutil.NewRNG(9)
	pts := rng.UniformSites(256, 2, 2001, 2001)

	cfg := config(2, 1, 2001, 2001)
	cfg.MaxDepth = 3

	_, err := Build(pts, cfg)
	var tde *TooDeepError
	require.ErrorAs(t, err, &tde)
	assert.True(t, errors.Is(err, ErrTooDeep))
	assert.Equal(t, 3, tde.MaxDepth)

	cfg.MaxDepth = 64
	tree, err := Build(pts, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, tree.Stats().MaxDepth, 64)
}

func TestBuild_StrategiesAgree(t *testing.T) {
	rng := testutil.NewRNG(21)
	pts := rng.GridSites(600, 2, 5, 2001, 2002)
	cfg := config(2, 4, 2001, 2002)

	sorted, err := Build(pts, cfg)
	require.NoError(t, err)

	v, err := balance.NewValidator[float64](cfg.Years, cfg.MinSize)
	require.NoError(t, err)
	selected, err := Build(pts, cfg, WithStrategy[float64](median.NewSelected(v)))
	require.NoError(t, err)
	require.NoError(t, selected.Verify())

	assert.Equal(t, "selected", selected.Strategy)
	assert.Equal(t, len(sorted.Nodes), len(selected.Nodes))
	assert.Equal(t, sorted.LeafPoints(), selected.LeafPoints())
}

type recordingObserver struct {
	splits    int
	leaves    map[median.Reason]int
	deficient map[uint64][]int
}

func (o *recordingObserver) OnSplit(uint64, int, int, int, int) { o.splits++ }

func (o *recordingObserver) OnLeaf(id uint64, _, _ int, r median.Reason, deficient []int) {
	o.leaves[r]++
	if deficient != nil {
		o.deficient[id] = deficient
	}
}

func TestBuild_Observer(t *testing.T) {
	rng := testutil.NewRNG(13)
	obs := &recordingObserver{leaves: map[median.Reason]int{}, deficient: map[uint64][]int{}}

	cfg := config(2, 3, 2001, 2002)
	tree, err := Build(rng.UniformSites(200, 2, 2001, 2002), cfg, WithObserver[float64](obs))
	require.NoError(t, err)

	stats := tree.Stats()
	assert.Equal(t, stats.Nodes-stats.Leaves, obs.splits)
	assert.Equal(t, stats.Refusals, obs.leaves)

	v, err := balance.NewValidator[float64](cfg.Years, cfg.MinSize)
	require.NoError(t, err)
	for _, idx := range tree.Leaves() {
		n := tree.Node(idx)
		switch n.Reason {
		case median.ReasonWholeDeficient, median.ReasonLeftDeficient, median.ReasonRightDeficient:
			require.NotEmpty(t, n.Deficient, "leaf %d", n.ID)
			assert.Equal(t, n.Deficient, obs.deficient[n.ID])
			if n.Reason == median.ReasonWholeDeficient {
				assert.Equal(t, v.DeficientYears(n.Points), n.Deficient)
			}
		default:
			assert.Nil(t, n.Deficient, "leaf %d", n.ID)
		}
	}
}

func TestTree_LeafPointsIdempotent(t *testing.T) {
	rng := testutil.NewRNG(17)
	tree, err := Build(rng.UniformSites(150, 2, 2001, 2002), config(2, 2, 2001, 2002))
	require.NoError(t, err)

	assert.Equal(t, tree.LeafPoints(), tree.LeafPoints())
}

func TestTree_InputOrderAndLeafOf(t *testing.T) {
	rng := testutil.NewRNG(19)
	pts := rng.UniformSites(120, 2, 2001, 2002)
	tree, err := Build(pts, config(2, 2, 2001, 2002))
	require.NoError(t, err)

	in := tree.InputOrder()
	require.Len(t, in, len(pts))
	for i, lp := range in {
		assert.Equal(t, uint32(i), lp.Row)
		assert.Equal(t, pts[i], lp.Point)

		leaf, ok := tree.LeafOf(lp.Row)
		require.True(t, ok)
		assert.Equal(t, lp.LeafID, leaf.ID)
	}

	_, ok := tree.LeafOf(uint32(len(pts)))
	assert.False(t, ok)
}

func TestTree_LeafPointsStoredInputOrder(t *testing.T) {
	rng := testutil.NewRNG(23)
	tree, err := Build(rng.UniformSites(100, 2, 2001, 2001), config(2, 5, 2001, 2001))
	require.NoError(t, err)

	for _, idx := range tree.Leaves() {
		rows := tree.Node(idx).Rows.ToArray()
		assert.True(t, sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i] < rows[j] }))
	}
}

func TestSequence(t *testing.T) {
	s := NewSequence(5)
	assert.Equal(t, uint64(5), s.Peek())
	assert.Equal(t, uint64(5), s.Next())
	assert.Equal(t, uint64(6), s.Next())
	s.Reset(0)
	assert.Equal(t, uint64(0), s.Next())
}

func points(lps []LeafPoint[float64]) []geom.Point[float64] {
	out := make([]geom.Point[float64], len(lps))
	for i, lp := range lps {
		out[i] = lp.Point
	}
	return out
}
