package kdtree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/sitetree/geom"
)

// WriteReport writes a depth-first, indented description of every node: its
// id, bounding box and volume, plus the split dimension of internal nodes
// and the point count of leaves. Leaves refused for lack of balance also list
// the deficient years. Degenerate boxes print "n/a" as volume.
func WriteReport[T geom.Coordinate](w io.Writer, t *Tree[T]) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "tree dims=%d years=%s min_size=%d strategy=%s nodes=%d points=%d\n",
		t.Dims, t.Years, t.MinSize, t.Strategy, len(t.Nodes), t.Size()); err != nil {
		return err
	}

	err := t.Walk(0, func(_ int, n *Node[T]) error {
		indent := strings.Repeat("  ", n.Depth)

		volume := "n/a"
		if v, err := n.Box.Volume(); err == nil {
			volume = fmt.Sprint(v)
		}

		var err error
		if n.IsLeaf() {
			_, err = fmt.Fprintf(bw, "%sleaf %d box=%s volume=%s size=%d reason=%s%s\n",
				indent, n.ID, n.Box, volume, n.Size, n.Reason, deficientSuffix(n.Deficient))
		} else {
			_, err = fmt.Fprintf(bw, "%snode %d dim=%d box=%s volume=%s\n",
				indent, n.ID, n.SplitDim, n.Box, volume)
		}
		return err
	})
	if err != nil {
		return err
	}

	return bw.Flush()
}

func deficientSuffix(years []int) string {
	if len(years) == 0 {
		return ""
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return " deficient=" + strings.Join(parts, ",")
}
