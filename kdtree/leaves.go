package kdtree

import (
	"errors"

	"github.com/hupe1980/sitetree/geom"
)

// ErrStop may be returned by a Walk callback to end the walk early without
// an error.
var ErrStop = errors.New("kdtree: stop walk")

// LeafPoint pairs a point with the id of the leaf holding it.
type LeafPoint[T geom.Coordinate] struct {
	LeafID uint64
	// Row is the ordinal of the point in the build input.
	Row   uint32
	Point geom.Point[T]
}

// Walk visits the subtree at arena index from in pre-order, left before
// right. Returning ErrStop ends the walk and Walk returns nil; any other
// error is returned as is.
func (t *Tree[T]) Walk(from int, fn func(idx int, n *Node[T]) error) error {
	if len(t.Nodes) == 0 {
		return nil
	}
	stack := []int{from}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.Nodes[idx]
		if err := fn(idx, n); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
		if !n.IsLeaf() {
			stack = append(stack, n.Right, n.Left)
		}
	}
	return nil
}

// Leaves returns the arena indexes of all leaves, left to right.
func (t *Tree[T]) Leaves() []int {
	var out []int
	_ = t.Walk(0, func(idx int, n *Node[T]) error {
		if n.IsLeaf() {
			out = append(out, idx)
		}
		return nil
	})
	return out
}

// LeafPoints flattens the whole tree into (leaf id, point) pairs: leaves
// left to right, each leaf's points in stored order. The result has one
// entry per input point.
func (t *Tree[T]) LeafPoints() []LeafPoint[T] {
	if len(t.Nodes) == 0 {
		return nil
	}
	return t.LeafPointsFrom(0)
}

// LeafPointsFrom flattens the subtree at arena index from.
func (t *Tree[T]) LeafPointsFrom(from int) []LeafPoint[T] {
	out := make([]LeafPoint[T], 0, t.Nodes[from].Size)
	_ = t.Walk(from, func(_ int, n *Node[T]) error {
		if !n.IsLeaf() {
			return nil
		}
		it := n.Rows.Iterator()
		for _, p := range n.Points {
			out = append(out, LeafPoint[T]{LeafID: n.ID, Row: it.Next(), Point: p})
		}
		return nil
	})
	return out
}

// InputOrder returns the same pairs as LeafPoints, ordered by input row.
func (t *Tree[T]) InputOrder() []LeafPoint[T] {
	out := make([]LeafPoint[T], t.Size())
	for _, lp := range t.LeafPoints() {
		out[lp.Row] = lp
	}
	return out
}

// LeafOf returns the leaf holding input row, if any.
func (t *Tree[T]) LeafOf(row uint32) (*Node[T], bool) {
	var found *Node[T]
	_ = t.Walk(0, func(_ int, n *Node[T]) error {
		if n.IsLeaf() && n.Rows.Contains(row) {
			found = n
			return ErrStop
		}
		return nil
	})
	return found, found != nil
}
