package kdtree

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/testutil"
	"github.com/stretchr/testify/require"
)

func TestVerify_DetectsCorruption(t *testing.T) {
	build := func(t *testing.T) *Tree[float64] {
		t.Helper()
		rng := testutil.NewRNG(31)
		tree, err := Build(rng.UniformSites(64, 2, 2001, 2002), config(2, 2, 2001, 2002))
		require.NoError(t, err)
		require.Greater(t, len(tree.Nodes), 3)
		return tree
	}

	firstLeaf := func(tree *Tree[float64]) *Node[float64] {
		return tree.Node(tree.Leaves()[0])
	}

	tests := []struct {
		name   string
		mutate func(tree *Tree[float64])
	}{
		{"NoNodes", func(tree *Tree[float64]) { tree.Nodes = nil }},
		{"DuplicateID", func(tree *Tree[float64]) { tree.Nodes[1].ID = tree.Nodes[0].ID }},
		{"ChildIDSmaller", func(tree *Tree[float64]) { tree.Nodes[0].ID = 1 << 40 }},
		{"SingleChild", func(tree *Tree[float64]) { firstLeaf(tree).Left = 0 }},
		{"MissingMedian", func(tree *Tree[float64]) { tree.Nodes[0].Median = nil }},
		{"LostRow", func(tree *Tree[float64]) {
			l := firstLeaf(tree)
			l.Points = l.Points[1:]
			l.Size--
			l.Rows.Remove(l.Rows.Minimum())
		}},
		{"MissingRows", func(tree *Tree[float64]) { firstLeaf(tree).Rows = nil }},
		{"OverlappingRows", func(tree *Tree[float64]) {
			leaves := tree.Leaves()
			a, b := tree.Node(leaves[0]), tree.Node(leaves[1])
			b.Rows = roaring.BitmapOf(a.Rows.ToArray()...)
		}},
		{"PointOutsideBox", func(tree *Tree[float64]) {
			l := firstLeaf(tree)
			l.Points[0] = geom.Point[float64]{Coords: []float64{99, 99}, Year: l.Points[0].Year}
		}},
		{"YearOutOfRange", func(tree *Tree[float64]) { firstLeaf(tree).Points[0].Year = 1900 }},
		{"WrongSide", func(tree *Tree[float64]) {
			m := *tree.Nodes[0].Median
			m.Coords = []float64{-1, -1}
			tree.Nodes[0].Median = &m
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := build(t)
			require.NoError(t, tree.Verify())

			tt.mutate(tree)
			require.ErrorIs(t, tree.Verify(), ErrCorrupt)
		})
	}
}

func TestVerify_UnreachableNode(t *testing.T) {
	rng := testutil.NewRNG(31)
	tree, err := Build(rng.UniformSites(64, 2, 2001, 2002), config(2, 2, 2001, 2002))
	require.NoError(t, err)

	tests := []struct {
		name   string
		orphan Node[float64]
	}{
		{"EmptyLeaf", Node[float64]{
			ID:    1 << 40,
			Box:   tree.Nodes[0].Box,
			Left:  NoChild,
			Right: NoChild,
			Rows:  roaring.New(),
		}},
		{"LeafWithRows", Node[float64]{
			ID:     1 << 41,
			Box:    tree.Nodes[0].Box,
			Size:   1,
			Left:   NoChild,
			Right:  NoChild,
			Points: []geom.Point[float64]{tree.Node(tree.Leaves()[0]).Points[0]},
			Rows:   roaring.BitmapOf(0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := *tree
			broken.Nodes = append(append([]Node[float64](nil), tree.Nodes...), tt.orphan)

			err := broken.Verify()
			require.ErrorIs(t, err, ErrCorrupt)
			require.ErrorContains(t, err, "unreachable")
		})
	}
}
