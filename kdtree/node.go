package kdtree

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/median"
)

// NoChild marks an absent child index.
const NoChild = -1

// Node is one node of a Tree. A node is either internal (two children, no
// points) or a leaf (no children, zero or more points).
type Node[T geom.Coordinate] struct {
	ID uint64
	// Box bounds every point in the subtree.
	Box geom.Box[T]
	// SplitDim is the comparator start dimension of this node. Leaves keep the
	// dimension they would have split on.
	SplitDim int
	// Depth of the node; the root has depth 0.
	Depth int
	// Size is the number of points in the subtree.
	Size int
	// Left and Right are arena indexes of the children, or NoChild.
	Left, Right int
	// Median is the split point of an internal node.
	Median *geom.Point[T]
	// Points of a leaf, in input order.
	Points []geom.Point[T]
	// Rows holds the input row ordinals of a leaf's points.
	Rows *roaring.Bitmap
	// Reason tells why a leaf was not split.
	Reason median.Reason
	// Deficient lists the years that fell below the minimum size when a
	// leaf was refused for lack of balance.
	Deficient []int
}

// IsLeaf reports whether n has no children.
func (n *Node[T]) IsLeaf() bool {
	return n.Left == NoChild && n.Right == NoChild
}

// Tree is a built site tree. Nodes are stored in pre-order; the root is
// Nodes[0]. A Tree is immutable once built and safe for concurrent reads.
type Tree[T geom.Coordinate] struct {
	Dims     int
	Years    balance.YearRange
	MinSize  int
	StartDim int
	Strategy string
	Nodes    []Node[T]
}

// Config returns the configuration the tree was built with. MaxDepth is not
// recorded and is always zero.
func (t *Tree[T]) Config() Config {
	return Config{Dims: t.Dims, MinSize: t.MinSize, Years: t.Years, StartDim: t.StartDim}
}

// Root returns the root node, or nil for a tree without nodes.
func (t *Tree[T]) Root() *Node[T] {
	if len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[0]
}

// Node returns the node at arena index i.
func (t *Tree[T]) Node(i int) *Node[T] {
	return &t.Nodes[i]
}

// Size returns the number of points in the tree.
func (t *Tree[T]) Size() int {
	if r := t.Root(); r != nil {
		return r.Size
	}
	return 0
}

// Stats summarises the shape of a tree.
type Stats struct {
	Nodes    int
	Leaves   int
	Points   int
	MaxDepth int
	// Refusals counts leaves per refusal reason.
	Refusals map[median.Reason]int
}

// Stats returns shape statistics of t.
func (t *Tree[T]) Stats() Stats {
	s := Stats{
		Nodes:    len(t.Nodes),
		Points:   t.Size(),
		Refusals: make(map[median.Reason]int),
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		if n.IsLeaf() {
			s.Leaves++
			s.Refusals[n.Reason]++
		}
	}
	return s
}
