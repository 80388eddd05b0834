package geom

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned when the length of an interval is
	// requested before it was extended by two distinct values.
	ErrInvalidInterval = errors.New("geom: interval is not valid")

	// ErrDimensionMismatch is the sentinel matched by DimensionError.
	ErrDimensionMismatch = errors.New("geom: dimension mismatch")

	// ErrNonFinite is returned for NaN or infinite coordinates.
	ErrNonFinite = errors.New("geom: non-finite coordinate")
)

// DimensionError reports a point or box whose dimension differs from the
// expected one.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("geom: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool { return target == ErrDimensionMismatch }
