package sitecsv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
)

// Layout maps input columns to point fields.
type Layout struct {
	Attributes []int `yaml:"attributes" json:"attributes"`
	Coords     []int `yaml:"coords" json:"coords"`
	Year       int   `yaml:"year" json:"year"`
}

// DefaultLayout returns the survey export layout for dims coordinates.
func DefaultLayout(dims int) Layout {
	coords := make([]int, dims)
	for i := range coords {
		coords[i] = 2 + i
	}
	return Layout{
		Attributes: []int{0, 1},
		Coords:     coords,
		Year:       2 + dims,
	}
}

// Validate checks that the layout has coordinates and no negative columns.
func (l Layout) Validate() error {
	if len(l.Coords) == 0 {
		return fmt.Errorf("%w: no coordinate columns", ErrInvalidLayout)
	}
	if l.Year < 0 {
		return fmt.Errorf("%w: negative year column", ErrInvalidLayout)
	}
	for _, c := range append(append([]int(nil), l.Attributes...), l.Coords...) {
		if c < 0 {
			return fmt.Errorf("%w: negative column %d", ErrInvalidLayout, c)
		}
	}
	return nil
}

func (l Layout) width() int {
	w := l.Year
	for _, c := range append(append([]int(nil), l.Attributes...), l.Coords...) {
		w = max(w, c)
	}
	return w + 1
}

// Bounds restricts the accepted survey years. A nil bound is derived from
// the data instead.
type Bounds struct {
	Min *int
	Max *int
}

// Stats describes one Read.
type Stats struct {
	// Rows is the number of data rows, excluding the header and blank lines.
	Rows int
	// Loaded is the number of returned points.
	Loaded int
	// Skipped is the number of rows outside a configured bound.
	Skipped int
	// Years is the effective year range.
	Years balance.YearRange
}

// Option configures a Reader.
type Option func(*options)

type options struct {
	layout *Layout
	bounds Bounds
}

// WithLayout overrides the default column layout.
func WithLayout(l Layout) Option {
	return func(o *options) {
		o.layout = &l
	}
}

// WithMinYear fixes the lower year bound; rows before it are skipped.
func WithMinYear(year int) Option {
	return func(o *options) {
		o.bounds.Min = &year
	}
}

// WithMaxYear fixes the upper year bound; rows after it are skipped.
func WithMaxYear(year int) Option {
	return func(o *options) {
		o.bounds.Max = &year
	}
}

// Reader parses site tables into points.
type Reader[T geom.Coordinate] struct {
	layout Layout
	bounds Bounds
}

// NewReader returns a Reader for points of dims coordinates.
func NewReader[T geom.Coordinate](dims int, opts ...Option) (*Reader[T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	layout := DefaultLayout(dims)
	if o.layout != nil {
		layout = *o.layout
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(layout.Coords) != dims {
		return nil, fmt.Errorf("%w: %d coordinate columns for %d dimensions", ErrInvalidLayout, len(layout.Coords), dims)
	}

	return &Reader[T]{layout: layout, bounds: o.bounds}, nil
}

// Read parses src. The first line is treated as a header and skipped. The
// context is checked between rows.
func (r *Reader[T]) Read(ctx context.Context, src io.Reader) ([]geom.Point[T], Stats, error) {
	var (
		stats  Stats
		points []geom.Point[T]
	)

	minYear, maxYear := math.MaxInt, math.MinInt
	width := r.layout.width()

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		fields := Split(sc.Text())
		if len(fields) == 0 {
			continue
		}
		stats.Rows++

		if len(fields) < width {
			return nil, stats, &ParseError{Line: line, Column: len(fields), Err: ErrMissingColumn}
		}

		p, err := r.parse(line, fields)
		if err != nil {
			return nil, stats, err
		}

		minYear = min(minYear, p.Year)
		maxYear = max(maxYear, p.Year)

		if (r.bounds.Min != nil && p.Year < *r.bounds.Min) || (r.bounds.Max != nil && p.Year > *r.bounds.Max) {
			stats.Skipped++
			continue
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("sitecsv: read: %w", err)
	}

	if r.bounds.Min != nil {
		minYear = *r.bounds.Min
	}
	if r.bounds.Max != nil {
		maxYear = *r.bounds.Max
	}
	if stats.Rows == 0 && (r.bounds.Min == nil || r.bounds.Max == nil) {
		return nil, stats, ErrNoRows
	}

	stats.Years = balance.YearRange{Min: minYear, Max: maxYear}
	if err := stats.Years.Validate(); err != nil {
		return nil, stats, err
	}
	stats.Loaded = len(points)

	return points, stats, nil
}

func (r *Reader[T]) parse(line int, fields []string) (geom.Point[T], error) {
	p := geom.NewPoint[T](len(r.layout.Coords))

	for i, c := range r.layout.Coords {
		v, err := ParseCoord[T](fields[c])
		if err != nil {
			return p, &ParseError{Line: line, Column: c, Field: fields[c], Err: err}
		}
		p.Coords[i] = v
	}

	year, err := strconv.Atoi(fields[r.layout.Year])
	if err != nil {
		return p, &ParseError{Line: line, Column: r.layout.Year, Field: fields[r.layout.Year], Err: err}
	}
	p.Year = year

	if len(r.layout.Attributes) > 0 {
		p.Attributes = make([]string, len(r.layout.Attributes))
		for i, c := range r.layout.Attributes {
			p.Attributes[i] = fields[c]
		}
	}
	return p, nil
}

// Split tokenizes one input line.
func Split(line string) []string {
	raw := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\r'
	})

	for i, f := range raw {
		raw[i] = strings.TrimSpace(strings.ReplaceAll(f, `"`, ""))
	}
	return raw
}

// ParseCoord parses a coordinate value into T. Integer coordinate types
// accept integer literals only. Values that do not fit T fail with
// strconv.ErrRange, and NaN or infinite floats with ErrNonFiniteCoordinate.
func ParseCoord[T geom.Coordinate](s string) (T, error) {
	typ := reflect.TypeFor[T]()
	switch typ.Kind() {
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, typ.Bits())
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, ErrNonFiniteCoordinate
		}
		return T(f), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(s, 10, typ.Bits())
		return T(u), err
	default:
		i, err := strconv.ParseInt(s, 10, typ.Bits())
		return T(i), err
	}
}
