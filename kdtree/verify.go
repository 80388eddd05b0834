package kdtree

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
)

// Verify checks the structural invariants of t and returns an error wrapping
// ErrCorrupt for the first violation found:
//
//   - nodes are stored in pre-order, every node is either a leaf or has
//     exactly two children, and every node but the root has one parent;
//   - ids are unique and every child id is larger than its parent's;
//   - leaf rows partition [0, Size) and match the stored points;
//   - every box contains all points of its subtree;
//   - left subtrees order strictly before the median, right subtrees at or
//     after it;
//   - both children of every internal node satisfy the year balance rule.
//
// Verify is meant for trees that did not come straight from a Builder, such
// as decoded snapshots.
func (t *Tree[T]) Verify() error {
	if len(t.Nodes) == 0 {
		return corruptf("no nodes")
	}

	v, err := balance.NewValidator[T](t.Years, t.MinSize)
	if err != nil {
		return corruptf("%v", err)
	}

	parent := make([]int, len(t.Nodes))
	for i := range parent {
		parent[i] = NoChild
	}
	ids := make(map[uint64]struct{}, len(t.Nodes))

	for i := range t.Nodes {
		n := &t.Nodes[i]
		if _, dup := ids[n.ID]; dup {
			return corruptf("duplicate id %d", n.ID)
		}
		ids[n.ID] = struct{}{}

		if n.Box.Dim() != t.Dims {
			return corruptf("node %d box has %d dimensions", n.ID, n.Box.Dim())
		}

		if n.IsLeaf() {
			if err := t.verifyLeaf(n); err != nil {
				return err
			}
			continue
		}

		if n.Left != i+1 || n.Right <= n.Left || n.Right >= len(t.Nodes) {
			return corruptf("node %d has children %d/%d at index %d", n.ID, n.Left, n.Right, i)
		}
		if len(n.Points) != 0 || n.Median == nil {
			return corruptf("internal node %d holds points or lacks a median", n.ID)
		}
		l, r := &t.Nodes[n.Left], &t.Nodes[n.Right]
		if l.ID <= n.ID || r.ID <= n.ID {
			return corruptf("node %d has a child with a smaller id", n.ID)
		}
		if n.Size != l.Size+r.Size {
			return corruptf("node %d size %d != %d + %d", n.ID, n.Size, l.Size, r.Size)
		}
		if parent[n.Left] != NoChild || parent[n.Right] != NoChild {
			return corruptf("node %d shares a child with node %d", n.ID, t.Nodes[max(parent[n.Left], parent[n.Right])].ID)
		}
		parent[n.Left], parent[n.Right] = i, i
	}
	for i := 1; i < len(parent); i++ {
		if parent[i] == NoChild {
			return corruptf("node %d unreachable", t.Nodes[i].ID)
		}
	}

	all := roaring.New()
	total := uint64(0)
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !n.IsLeaf() {
			continue
		}
		all.Or(n.Rows)
		total += n.Rows.GetCardinality()

		for _, p := range n.Points {
			if err := t.verifyAncestors(parent, i, p); err != nil {
				return err
			}
		}
	}
	if total != uint64(t.Size()) || all.GetCardinality() != total {
		return corruptf("leaf rows overlap or do not cover %d points", t.Size())
	}
	if total > 0 && all.Maximum() != uint32(total-1) {
		return corruptf("leaf rows are not dense")
	}

	return t.verifyBalance(v)
}

func (t *Tree[T]) verifyLeaf(n *Node[T]) error {
	if n.Left != NoChild || n.Right != NoChild {
		return corruptf("node %d has a single child", n.ID)
	}
	if n.Rows == nil || n.Rows.GetCardinality() != uint64(len(n.Points)) || n.Size != len(n.Points) {
		return corruptf("leaf %d rows do not match its %d points", n.ID, len(n.Points))
	}
	for _, p := range n.Points {
		if p.Dim() != t.Dims {
			return corruptf("leaf %d holds a point with %d dimensions", n.ID, p.Dim())
		}
		if !t.Years.Contains(p.Year) {
			return corruptf("leaf %d holds year %d outside %s", n.ID, p.Year, t.Years)
		}
	}
	return nil
}

// verifyAncestors checks p against the boxes and medians of every node on
// the path from leaf to the root.
func (t *Tree[T]) verifyAncestors(parent []int, leaf int, p geom.Point[T]) error {
	child := leaf
	for idx := leaf; idx != NoChild; idx = parent[idx] {
		n := &t.Nodes[idx]
		if !n.Box.Contains(p) {
			return corruptf("box of node %d does not contain %s", n.ID, p)
		}
		if idx != leaf {
			c := geom.Compare(p, *n.Median, n.SplitDim)
			if child == n.Left && c >= 0 {
				return corruptf("point %s left of node %d does not order before its median", p, n.ID)
			}
			if child == n.Right && c < 0 {
				return corruptf("point %s right of node %d orders before its median", p, n.ID)
			}
		}
		child = idx
	}
	return nil
}

// verifyBalance aggregates year counts bottom-up; children always follow
// their parent in the arena.
func (t *Tree[T]) verifyBalance(v *balance.Validator[T]) error {
	counts := make([][]int, len(t.Nodes))
	for i := len(t.Nodes) - 1; i >= 0; i-- {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			counts[i] = v.Counts(n.Points)
			continue
		}

		l, r := counts[n.Left], counts[n.Right]
		sum := make([]int, len(l))
		for y := range l {
			if l[y] < t.MinSize || r[y] < t.MinSize {
				return corruptf("split at node %d leaves year %d with fewer than %d points",
					n.ID, t.Years.Min+y, t.MinSize)
			}
			sum[y] = l[y] + r[y]
		}
		counts[i] = sum
	}
	return nil
}
