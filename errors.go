package sitetree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/blobstore"
	"github.com/hupe1980/sitetree/catalog"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/snapshot"
)

var (
	// ErrNotFound is returned when a snapshot or catalog does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when stored data fails validation.
	ErrCorrupt = errors.New("corrupt data")

	// ErrNoSites is returned when years must be derived from an empty input.
	ErrNoSites = errors.New("no sites to derive the year range from")
)

// ErrInvalidConfig indicates an invalid partitioner configuration.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	cause error
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %v", e.cause)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.cause }

// ErrPointDimension indicates a site whose coordinate count differs from
// the configured dimension.
type ErrPointDimension struct {
	Row      int
	Expected int
	Actual   int
	cause    error
}

func (e *ErrPointDimension) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("site %d: dimension mismatch: expected %d, got %d", e.Row, e.Expected, e.Actual)
}

func (e *ErrPointDimension) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return geom.ErrDimensionMismatch
}

// ErrYearOutOfRange indicates a site whose year lies outside the
// configured range. It matches balance.ErrYearOutOfRange.
type ErrYearOutOfRange struct {
	Row   int
	Year  int
	Range balance.YearRange
}

func (e *ErrYearOutOfRange) Error() string {
	return fmt.Sprintf("site %d: year %d outside %s", e.Row, e.Year, e.Range)
}

func (e *ErrYearOutOfRange) Unwrap() error { return balance.ErrYearOutOfRange }

// ErrNonFiniteCoordinate indicates a site with a NaN or infinite
// coordinate. It matches geom.ErrNonFinite.
type ErrNonFiniteCoordinate struct {
	Row   int
	Dim   int
	Value float64
}

func (e *ErrNonFiniteCoordinate) Error() string {
	return fmt.Sprintf("site %d: coordinate %d is %v", e.Row, e.Dim, e.Value)
}

func (e *ErrNonFiniteCoordinate) Unwrap() error { return geom.ErrNonFinite }

func isConfigError(err error) bool {
	for _, target := range []error{
		kdtree.ErrInvalidDimensions,
		kdtree.ErrInvalidStartDimension,
		kdtree.ErrInvalidMaxDepth,
		balance.ErrInvalidYearRange,
		balance.ErrNegativeMinSize,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isCorrupt(err error) bool {
	for _, target := range []error{
		kdtree.ErrCorrupt,
		snapshot.ErrInvalidMagic,
		snapshot.ErrTruncated,
		snapshot.ErrCoordinateType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return snapshot.IsChecksumMismatch(err)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ic *ErrInvalidConfig
	if errors.As(err, &ic) {
		return err
	}
	if isConfigError(err) {
		return &ErrInvalidConfig{cause: err}
	}

	var dm *geom.DimensionError
	if errors.As(err, &dm) {
		return &ErrPointDimension{Row: -1, Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, catalog.ErrNoManifest) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if isCorrupt(err) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return err
}
