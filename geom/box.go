package geom

import "strings"

// Box is an axis-aligned box with one Interval per dimension.
type Box[T Coordinate] struct {
	Extents []Interval[T] `json:"extents"`
}

// NewBox returns an empty box of the given dimension.
func NewBox[T Coordinate](dims int) Box[T] {
	e := make([]Interval[T], dims)
	for i := range e {
		e[i] = NewInterval[T]()
	}
	return Box[T]{Extents: e}
}

// Dim returns the number of dimensions.
func (b Box[T]) Dim() int {
	return len(b.Extents)
}

// Extend widens every interval to include the matching coordinate of p.
// It panics with a *DimensionError if p has a different dimension.
func (b *Box[T]) Extend(p Point[T]) {
	if len(p.Coords) != len(b.Extents) {
		panic(&DimensionError{Expected: len(b.Extents), Actual: len(p.Coords)})
	}
	for i, c := range p.Coords {
		b.Extents[i].Extend(c)
	}
}

// IsValid reports whether every interval is valid.
func (b Box[T]) IsValid() bool {
	for _, e := range b.Extents {
		if !e.IsValid() {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside the box (boundaries included).
func (b Box[T]) Contains(p Point[T]) bool {
	if len(p.Coords) != len(b.Extents) {
		return false
	}
	for i, c := range p.Coords {
		if !b.Extents[i].Contains(c) {
			return false
		}
	}
	return true
}

// Volume returns the product of the interval lengths. It fails with
// ErrInvalidInterval if any interval is not valid.
func (b Box[T]) Volume() (T, error) {
	var vol T = 1
	for _, e := range b.Extents {
		l, err := e.Length()
		if err != nil {
			return 0, err
		}
		vol *= l
	}
	return vol, nil
}

// MustVolume is like Volume but panics on a degenerate box.
func (b Box[T]) MustVolume() T {
	v, err := b.Volume()
	if err != nil {
		panic(err)
	}
	return v
}

// Clone returns a deep copy of b.
func (b Box[T]) Clone() Box[T] {
	e := make([]Interval[T], len(b.Extents))
	copy(e, b.Extents)
	return Box[T]{Extents: e}
}

// String formats the box as its intervals joined by "x".
func (b Box[T]) String() string {
	parts := make([]string, len(b.Extents))
	for i, e := range b.Extents {
		parts[i] = e.String()
	}
	return strings.Join(parts, "x")
}
