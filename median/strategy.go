package median

import (
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
)

// Split describes an accepted split of a run.
type Split[T geom.Coordinate] struct {
	// Median is the point at Index.
	Median geom.Point[T]
	// Index is the boundary: points before it go left, the rest go right.
	Index int
	// Dim is the comparator start dimension the run was ordered by.
	Dim int
	// Deficient lists the years below the minimum size in the run that
	// failed, for the WholeDeficient, LeftDeficient and RightDeficient
	// reasons.
	Deficient []int
}

// Strategy orders a run around its median and validates the split.
type Strategy[T geom.Coordinate] interface {
	// Split reorders run in place and reports whether splitting at the
	// median is legal. The returned Split is meaningful only when the
	// reason is ReasonAccepted.
	Split(run Run[T], dim int) (Split[T], Reason)
	// Name identifies the strategy in logs and snapshots.
	Name() string
}

// finish applies the left/right checks to a run that is already partitioned
// at idx.
func finish[T geom.Coordinate](v *balance.Validator[T], run Run[T], idx, dim int) (Split[T], Reason) {
	if idx == 0 {
		return Split[T]{}, ReasonDegenerate
	}
	if left := run.Points[:idx]; !v.Check(left) {
		return Split[T]{Deficient: v.DeficientYears(left)}, ReasonLeftDeficient
	}
	if right := run.Points[idx+1:]; !v.Check(right) {
		return Split[T]{Deficient: v.DeficientYears(right)}, ReasonRightDeficient
	}
	return Split[T]{Median: run.Points[idx], Index: idx, Dim: dim}, ReasonAccepted
}

// precheck applies the checks that do not need any ordering.
func precheck[T geom.Coordinate](v *balance.Validator[T], run Run[T]) (Split[T], Reason) {
	if !v.Check(run.Points) {
		return Split[T]{Deficient: v.DeficientYears(run.Points)}, ReasonWholeDeficient
	}
	if run.Len() < 2 {
		return Split[T]{}, ReasonTooFew
	}
	return Split[T]{}, ReasonAccepted
}

// ByName returns the strategy with the given name bound to v.
func ByName[T geom.Coordinate](name string, v *balance.Validator[T]) (Strategy[T], bool) {
	switch name {
	case "", "sorted":
		return NewSorted(v), true
	case "selected":
		return NewSelected(v), true
	default:
		return nil, false
	}
}

// Compute is the point-only form of Sorted.Split: it reorders points and
// returns the median when the split is legal.
func Compute[T geom.Coordinate](points []geom.Point[T], dim int, v *balance.Validator[T]) (geom.Point[T], bool) {
	s, reason := NewSorted(v).Split(Run[T]{Points: points}, dim)
	return s.Median, reason.Accepted()
}
