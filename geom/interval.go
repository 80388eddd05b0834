package geom

import "fmt"

// Interval is a closed one-dimensional range [Low, High].
//
// A new interval starts inverted (Low is the highest and High the lowest
// representable value) so the first Extend sets both bounds. It becomes valid
// only once it has been extended by two distinct values.
type Interval[T Coordinate] struct {
	Low  T `json:"low"`
	High T `json:"high"`
}

// NewInterval returns an empty, inverted interval.
func NewInterval[T Coordinate]() Interval[T] {
	lowest, highest := limits[T]()
	return Interval[T]{Low: highest, High: lowest}
}

// IsValid reports whether Low < High.
func (i Interval[T]) IsValid() bool {
	return i.Low < i.High
}

// IsEmpty reports whether the interval was never extended.
func (i Interval[T]) IsEmpty() bool {
	return i.Low > i.High
}

// Extend widens the interval to include x.
func (i *Interval[T]) Extend(x T) {
	if x < i.Low {
		i.Low = x
	}
	if x > i.High {
		i.High = x
	}
}

// Contains reports whether x lies within [Low, High].
func (i Interval[T]) Contains(x T) bool {
	return i.Low <= x && x <= i.High
}

// Length returns High - Low. It fails with ErrInvalidInterval unless the
// interval is valid.
func (i Interval[T]) Length() (T, error) {
	if !i.IsValid() {
		return 0, ErrInvalidInterval
	}
	return i.High - i.Low, nil
}

func (i Interval[T]) String() string {
	return fmt.Sprintf("[%v,%v]", i.Low, i.High)
}
