package median

import (
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
)

// Selected places the structural middle element with an in-place
// quickselect. Only the partition around the median is established; the
// halves themselves are left unordered.
type Selected[T geom.Coordinate] struct {
	validator *balance.Validator[T]
}

// NewSelected returns a Selected strategy using v.
func NewSelected[T geom.Coordinate](v *balance.Validator[T]) *Selected[T] {
	return &Selected[T]{validator: v}
}

// Name implements Strategy.
func (s *Selected[T]) Name() string { return "selected" }

// Split implements Strategy.
func (s *Selected[T]) Split(run Run[T], dim int) (Split[T], Reason) {
	if refused, r := precheck(s.validator, run); r != ReasonAccepted {
		return refused, r
	}

	m := run.Len() / 2
	selectNth(run, m, dim)

	// Move the points tying with the median to the end of the left side so
	// that everything before the boundary is strictly smaller.
	pivot := run.Points[m]
	i := 0
	for j := 0; j < m; j++ {
		if geom.Compare(run.Points[j], pivot, dim) < 0 {
			run.Swap(i, j)
			i++
		}
	}

	return finish(s.validator, run, i, dim)
}

// selectNth rearranges run so that the element at n is the one a full sort
// would put there, with no larger element before it and no smaller after.
func selectNth[T geom.Coordinate](run Run[T], n, dim int) {
	lo, hi := 0, run.Len()-1
	for lo < hi {
		p := partition(run, lo, hi, medianOfThree(run, lo, hi, dim), dim)
		switch {
		case p == n:
			return
		case n < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func partition[T geom.Coordinate](run Run[T], lo, hi, pivot, dim int) int {
	run.Swap(pivot, hi)
	pv := run.Points[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if geom.Compare(run.Points[j], pv, dim) < 0 {
			run.Swap(i, j)
			i++
		}
	}
	run.Swap(i, hi)
	return i
}

func medianOfThree[T geom.Coordinate](run Run[T], lo, hi, dim int) int {
	mid := lo + (hi-lo)/2
	a, b, c := run.Points[lo], run.Points[mid], run.Points[hi]
	switch {
	case geom.Compare(a, b, dim) < 0:
		switch {
		case geom.Compare(b, c, dim) < 0:
			return mid
		case geom.Compare(a, c, dim) < 0:
			return hi
		default:
			return lo
		}
	default:
		switch {
		case geom.Compare(a, c, dim) < 0:
			return lo
		case geom.Compare(b, c, dim) < 0:
			return hi
		default:
			return mid
		}
	}
}
