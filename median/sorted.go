package median

import (
	"sort"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
)

// Sorted orders the whole run with a stable sort before picking the
// structural middle element.
type Sorted[T geom.Coordinate] struct {
	validator *balance.Validator[T]
}

// NewSorted returns a Sorted strategy using v.
func NewSorted[T geom.Coordinate](v *balance.Validator[T]) *Sorted[T] {
	return &Sorted[T]{validator: v}
}

// Name implements Strategy.
func (s *Sorted[T]) Name() string { return "sorted" }

// Split implements Strategy.
func (s *Sorted[T]) Split(run Run[T], dim int) (Split[T], Reason) {
	if refused, r := precheck(s.validator, run); r != ReasonAccepted {
		return refused, r
	}

	sort.Stable(sorter[T]{Run: run, start: dim})

	pts := run.Points
	m := len(pts) / 2
	idx := sort.Search(m, func(i int) bool {
		return geom.Compare(pts[i], pts[m], dim) >= 0
	})

	return finish(s.validator, run, idx, dim)
}
