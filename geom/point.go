package geom

import (
	"fmt"
	"slices"
	"strings"
)

// Point is a geo-referenced survey site: D coordinates, the survey year and
// an ordered list of descriptive attributes. Geometry only looks at Coords;
// Year drives the balance rule and Attributes are carried through verbatim.
type Point[T Coordinate] struct {
	Coords     []T      `json:"coords"`
	Year       int      `json:"year"`
	Attributes []string `json:"attributes,omitempty"`
}

// NewPoint returns a point of the given dimension whose coordinates are all
// set to Sentinel. Unsigned coordinate types receive the wrapped value.
func NewPoint[T Coordinate](dims int) Point[T] {
	s := int64(Sentinel)
	c := make([]T, dims)
	for i := range c {
		c[i] = T(s)
	}
	return Point[T]{Coords: c}
}

// Dim returns the number of coordinates.
func (p Point[T]) Dim() int {
	return len(p.Coords)
}

// At returns coordinate i. It panics if i is out of range.
func (p Point[T]) At(i int) T {
	return p.Coords[i]
}

// Set assigns coordinate i. It panics if i is out of range.
func (p *Point[T]) Set(i int, v T) {
	p.Coords[i] = v
}

// Attribute returns attribute i, or "" when the point has fewer attributes.
func (p Point[T]) Attribute(i int) string {
	if i < 0 || i >= len(p.Attributes) {
		return ""
	}
	return p.Attributes[i]
}

// Clone returns a deep copy of p.
func (p Point[T]) Clone() Point[T] {
	return Point[T]{
		Coords:     slices.Clone(p.Coords),
		Year:       p.Year,
		Attributes: slices.Clone(p.Attributes),
	}
}

// Equal reports whether p and o carry identical coordinates, year and
// attributes.
func (p Point[T]) Equal(o Point[T]) bool {
	return p.Year == o.Year && slices.Equal(p.Coords, o.Coords) && slices.Equal(p.Attributes, o.Attributes)
}

// Compare orders p and o by the cyclic lexicographic comparator keyed at
// dimension start. It returns -1, 0 or +1.
func (p Point[T]) Compare(o Point[T], start int) int {
	return Compare(p, o, start)
}

// String formats the coordinates as a comma separated list.
func (p Point[T]) String() string {
	var sb strings.Builder
	for i, c := range p.Coords {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprint(&sb, c)
	}
	return sb.String()
}

// Compare is the cyclic lexicographic comparator. For i in 0..D it compares
// dimension (i+start) mod D; the first dimension where the values differ
// decides. Fully tied points compare equal.
func Compare[T Coordinate](a, b Point[T], start int) int {
	d := len(a.Coords)
	for i := 0; i < d; i++ {
		k := (i + start) % d
		switch {
		case a.Coords[k] < b.Coords[k]:
			return -1
		case a.Coords[k] > b.Coords[k]:
			return 1
		}
	}
	return 0
}

// Comparator binds Compare to a fixed starting dimension.
type Comparator[T Coordinate] struct {
	Start int
}

// NewComparator returns the comparator keyed at dimension start.
func NewComparator[T Coordinate](start int) Comparator[T] {
	return Comparator[T]{Start: start}
}

// Compare returns -1, 0 or +1.
func (c Comparator[T]) Compare(a, b Point[T]) int {
	return Compare(a, b, c.Start)
}

// Less reports whether a orders strictly before b.
func (c Comparator[T]) Less(a, b Point[T]) bool {
	return Compare(a, b, c.Start) < 0
}
