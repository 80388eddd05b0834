package median

import "github.com/hupe1980/sitetree/geom"

// Run is a contiguous run of points with an optional parallel slice of
// input row ordinals. When Rows is non-nil it has the same length as Points
// and is permuted together with it.
type Run[T geom.Coordinate] struct {
	Points []geom.Point[T]
	Rows   []uint32
}

// Len returns the number of points.
func (r Run[T]) Len() int { return len(r.Points) }

// Swap exchanges the points (and rows) at i and j.
func (r Run[T]) Swap(i, j int) {
	r.Points[i], r.Points[j] = r.Points[j], r.Points[i]
	if r.Rows != nil {
		r.Rows[i], r.Rows[j] = r.Rows[j], r.Rows[i]
	}
}

// Slice returns the sub-run [i, j).
func (r Run[T]) Slice(i, j int) Run[T] {
	out := Run[T]{Points: r.Points[i:j]}
	if r.Rows != nil {
		out.Rows = r.Rows[i:j]
	}
	return out
}

// sorter adapts a Run to sort.Interface for a fixed start dimension.
type sorter[T geom.Coordinate] struct {
	Run[T]
	start int
}

func (s sorter[T]) Less(i, j int) bool {
	return geom.Compare(s.Points[i], s.Points[j], s.start) < 0
}
