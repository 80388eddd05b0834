package geom

import (
	"math"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Coordinate is the set of numeric types a point coordinate may have.
type Coordinate interface {
	constraints.Integer | constraints.Float
}

// Sentinel is the value unset coordinates are initialised with. It lies far
// outside any projected or geographic coordinate a site can carry.
const Sentinel = -9999

// IsFinite reports whether v is neither NaN nor infinite. Integer values
// are always finite.
func IsFinite[T Coordinate](v T) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NonFinite returns the index of the first NaN or infinite coordinate of p,
// or -1 when all coordinates are finite.
func NonFinite[T Coordinate](p Point[T]) int {
	for i, c := range p.Coords {
		if !IsFinite(c) {
			return i
		}
	}
	return -1
}

// limits returns the lowest and highest finite value representable by T.
func limits[T Coordinate]() (lowest, highest T) {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Float32:
		f := float64(math.MaxFloat32)
		return T(-f), T(f)
	case reflect.Float64:
		f := math.MaxFloat64
		return T(-f), T(f)
	case reflect.Int8:
		lo, hi := int64(math.MinInt8), int64(math.MaxInt8)
		return T(lo), T(hi)
	case reflect.Int16:
		lo, hi := int64(math.MinInt16), int64(math.MaxInt16)
		return T(lo), T(hi)
	case reflect.Int32:
		lo, hi := int64(math.MinInt32), int64(math.MaxInt32)
		return T(lo), T(hi)
	case reflect.Int, reflect.Int64:
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		if reflect.TypeFor[T]().Size() == 4 {
			lo, hi = math.MinInt32, math.MaxInt32
		}
		return T(lo), T(hi)
	case reflect.Uint8:
		hi := uint64(math.MaxUint8)
		return 0, T(hi)
	case reflect.Uint16:
		hi := uint64(math.MaxUint16)
		return 0, T(hi)
	case reflect.Uint32:
		hi := uint64(math.MaxUint32)
		return 0, T(hi)
	default: // uint, uint64, uintptr
		hi := uint64(math.MaxUint64)
		if reflect.TypeFor[T]().Size() == 4 {
			hi = math.MaxUint32
		}
		return 0, T(hi)
	}
}
