package kdtree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimensions is returned when the dimension count is not positive.
	ErrInvalidDimensions = errors.New("kdtree: dimension count must be positive")

	// ErrInvalidStartDimension is returned when the start dimension is outside [0, Dims).
	ErrInvalidStartDimension = errors.New("kdtree: start dimension out of range")

	// ErrInvalidMaxDepth is returned for a negative depth limit.
	ErrInvalidMaxDepth = errors.New("kdtree: max depth must not be negative")

	// ErrTooDeep is matched by TooDeepError.
	ErrTooDeep = errors.New("kdtree: tree too deep")

	// ErrTooManyPoints is returned when the input does not fit 32-bit row ordinals.
	ErrTooManyPoints = errors.New("kdtree: too many points")

	// ErrCorrupt is returned by Verify when a tree breaks a structural invariant.
	ErrCorrupt = errors.New("kdtree: corrupt tree")
)

// TooDeepError is returned when a split would create a node below MaxDepth.
type TooDeepError struct {
	MaxDepth int
	NodeID   uint64
	Size     int
}

func (e *TooDeepError) Error() string {
	return fmt.Sprintf("kdtree: node %d with %d points exceeds max depth %d", e.NodeID, e.Size, e.MaxDepth)
}

// Unwrap returns ErrTooDeep.
func (e *TooDeepError) Unwrap() error { return ErrTooDeep }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...)
}
