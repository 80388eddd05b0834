package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pt(coords ...float64) Point[float64] {
	return Point[float64]{Coords: coords}
}

func TestNewPoint_Sentinel(t *testing.T) {
	p := NewPoint[float32](3)
	assert.Equal(t, 3, p.Dim())
	for i := 0; i < p.Dim(); i++ {
		assert.Equal(t, float32(Sentinel), p.At(i))
	}

	p.Set(1, 4.5)
	assert.Equal(t, float32(4.5), p.At(1))
}

func TestCompare_Cyclic(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point[float64]
		start    int
		expected int
	}{
		{"FirstDimDecides", pt(1, 9, 9), pt(2, 0, 0), 0, -1},
		{"StartAtOne", pt(1, 9, 9), pt(2, 0, 0), 1, 1},
		{"TieMovesOn", pt(5, 1, 2), pt(5, 1, 3), 0, -1},
		{"WrapAround", pt(1, 7, 7), pt(2, 7, 7), 1, -1},
		{"WrapFromLast", pt(3, 0, 7), pt(1, 9, 7), 2, 1},
		{"Equal", pt(1, 2, 3), pt(1, 2, 3), 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compare(tt.a, tt.b, tt.start))
			assert.Equal(t, -tt.expected, tt.b.Compare(tt.a, tt.start))
		})
	}
}

func TestCompare_IgnoresMetadata(t *testing.T) {
	a := Point[int]{Coords: []int{1, 2}, Year: 2001, Attributes: []string{"a"}}
	b := Point[int]{Coords: []int{1, 2}, Year: 2002, Attributes: []string{"b"}}

	assert.Equal(t, 0, Compare(a, b, 0))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a.Clone()))
}

func TestComparator_Less(t *testing.T) {
	c := NewComparator[float64](1)
	assert.True(t, c.Less(pt(9, 1), pt(0, 2)))
	assert.False(t, c.Less(pt(0, 2), pt(9, 1)))
	assert.False(t, c.Less(pt(1, 1), pt(1, 1)))
}

func TestPoint_CloneIsDeep(t *testing.T) {
	p := Point[float64]{Coords: []float64{1, 2}, Year: 2003, Attributes: []string{"id", "cn"}}
	c := p.Clone()
	c.Coords[0] = 42
	c.Attributes[0] = "changed"

	assert.Equal(t, 1.0, p.Coords[0])
	assert.Equal(t, "id", p.Attribute(0))
	assert.Equal(t, "", p.Attribute(5))
	assert.Equal(t, "1,2", p.String())
}

func TestNonFinite(t *testing.T) {
	tests := []struct {
		name     string
		p        Point[float64]
		expected int
	}{
		{"Finite", pt(0, -1.5, 1e300), -1},
		{"NaN", pt(0, math.NaN(), 1), 1},
		{"Inf", pt(math.Inf(1), 0), 0},
		{"NegInf", pt(0, 0, math.Inf(-1)), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NonFinite(tt.p))
		})
	}

	assert.True(t, IsFinite(int8(-128)))
	assert.False(t, IsFinite(float32(math.Inf(1))))
}
