package balance

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/sitetree/geom"
)

// YearRange is an inclusive range of survey years.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate checks that Min <= Max.
func (r YearRange) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidYearRange, r.Min, r.Max)
	}
	return nil
}

// Span returns the number of years in the range.
func (r YearRange) Span() int {
	return r.Max - r.Min + 1
}

// Contains reports whether year lies in the range.
func (r YearRange) Contains(year int) bool {
	return r.Min <= year && year <= r.Max
}

func (r YearRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// Validator checks that a run of points holds at least MinSize points of
// every year in Years.
//
// It holds no mutable state and is safe for concurrent use.
type Validator[T geom.Coordinate] struct {
	years   YearRange
	minSize int
}

// NewValidator returns a Validator for the given range and bucket size.
func NewValidator[T geom.Coordinate](years YearRange, minSize int) (*Validator[T], error) {
	if err := years.Validate(); err != nil {
		return nil, err
	}
	if minSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeMinSize, minSize)
	}
	return &Validator[T]{years: years, minSize: minSize}, nil
}

// Years returns the configured range.
func (v *Validator[T]) Years() YearRange { return v.years }

// MinSize returns the configured minimum bucket size.
func (v *Validator[T]) MinSize() int { return v.minSize }

// Counts returns the number of points per year; index i holds year
// Years().Min+i. It panics with a *YearOutOfRangeError if a point's year is
// outside the range.
func (v *Validator[T]) Counts(points []geom.Point[T]) []int {
	counts := make([]int, v.years.Span())
	for _, p := range points {
		if !v.years.Contains(p.Year) {
			panic(&YearOutOfRangeError{Year: p.Year, Range: v.years})
		}
		counts[p.Year-v.years.Min]++
	}
	return counts
}

// Check reports whether every year bucket of points holds at least MinSize
// points.
func (v *Validator[T]) Check(points []geom.Point[T]) bool {
	for _, c := range v.Counts(points) {
		if c < v.minSize {
			return false
		}
	}
	return true
}

// Deficient returns the set of year offsets (year - Years().Min) whose count
// in points is below MinSize. The set is empty iff Check returns true.
func (v *Validator[T]) Deficient(points []geom.Point[T]) *bitset.BitSet {
	counts := v.Counts(points)
	bs := bitset.New(uint(len(counts)))
	for i, c := range counts {
		if c < v.minSize {
			bs.Set(uint(i))
		}
	}
	return bs
}

// DeficientYears is Deficient mapped back to calendar years.
func (v *Validator[T]) DeficientYears(points []geom.Point[T]) []int {
	bs := v.Deficient(points)
	years := make([]int, 0, bs.Count())
	for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
		years = append(years, v.years.Min+int(i))
	}
	return years
}

// CheckYears reports whether points satisfy the balance rule for the given
// range and minimum size. It is a convenience wrapper around Validator.
func CheckYears[T geom.Coordinate](points []geom.Point[T], minYear, maxYear, minSize int) bool {
	v, err := NewValidator[T](YearRange{Min: minYear, Max: maxYear}, minSize)
	if err != nil {
		panic(err)
	}
	return v.Check(points)
}
