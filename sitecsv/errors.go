package sitecsv

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sitetree/geom"
)

var (
	// ErrMissingColumn is returned for a row with fewer fields than the layout needs.
	ErrMissingColumn = errors.New("sitecsv: missing column")

	// ErrNoRows is returned when the year range must be derived from an input
	// without data rows.
	ErrNoRows = errors.New("sitecsv: no data rows")

	// ErrInvalidLayout is returned for layouts without coordinates or with
	// negative column indexes.
	ErrInvalidLayout = errors.New("sitecsv: invalid layout")

	// ErrAttributeCount is returned when a row carries more attributes than
	// the header announced.
	ErrAttributeCount = errors.New("sitecsv: attribute count exceeds header")

	// ErrNonFiniteCoordinate is returned for NaN or infinite coordinates.
	// It matches geom.ErrNonFinite.
	ErrNonFiniteCoordinate = fmt.Errorf("sitecsv: %w", geom.ErrNonFinite)
)

// ParseError reports a malformed field.
type ParseError struct {
	Line   int
	Column int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sitecsv: line %d, column %d (%q): %v", e.Line, e.Column, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
