// This file implements the fluent builder for creating Partitioner instances.
// Builders are immutable - each method returns a new builder with the updated configuration.
package sitetree

import (
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/codec"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/resource"
	"github.com/hupe1980/sitetree/snapshot"
)

// New creates a partitioner builder for sites with dims coordinates.
//
// Without Years, the year range is derived from each input.
//
// Example:
//
//	p, err := sitetree.New[float64](2).
//	    Years(1990, 2020).
//	    MinSize(4).
//	    Strategy("selected").
//	    Build()
func New[T geom.Coordinate](dims int) Builder[T] {
	return Builder[T]{dims: dims}
}

// Builder is an immutable fluent builder for Partitioner instances.
// Each method returns a new builder with the updated configuration.
type Builder[T geom.Coordinate] struct {
	dims        int
	minSize     int
	years       balance.YearRange
	yearsSet    bool
	startDim    int
	maxDepth    int
	strategy    string
	logger      *Logger
	metrics     MetricsCollector
	codec       codec.Codec
	compression *snapshot.Compression
	resources   *resource.Config
	inputOrder  bool
}

// MinSize sets the minimum number of sites per year on each side of a split.
// Default: 0, which splits down to single sites.
func (b Builder[T]) MinSize(n int) Builder[T] {
	b.minSize = n
	return b
}

// Years fixes the inclusive range of survey years.
func (b Builder[T]) Years(minYear, maxYear int) Builder[T] {
	b.years = balance.YearRange{Min: minYear, Max: maxYear}
	b.yearsSet = true
	return b
}

// StartDimension sets the dimension the root splits on.
func (b Builder[T]) StartDimension(d int) Builder[T] {
	b.startDim = d
	return b
}

// MaxDepth limits the tree depth. Zero means unlimited.
func (b Builder[T]) MaxDepth(d int) Builder[T] {
	b.maxDepth = d
	return b
}

// Strategy selects the median strategy by name ("sorted" or "selected").
func (b Builder[T]) Strategy(name string) Builder[T] {
	b.strategy = name
	return b
}

// Logger sets the structured logger.
func (b Builder[T]) Logger(l *Logger) Builder[T] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector.
func (b Builder[T]) Metrics(mc MetricsCollector) Builder[T] {
	b.metrics = mc
	return b
}

// Codec sets the snapshot and catalog codec.
func (b Builder[T]) Codec(c codec.Codec) Builder[T] {
	b.codec = c
	return b
}

// Compression sets the snapshot compression.
func (b Builder[T]) Compression(c snapshot.Compression) Builder[T] {
	b.compression = &c
	return b
}

// Resources limits concurrent writes, buffered bytes and IO throughput.
func (b Builder[T]) Resources(cfg resource.Config) Builder[T] {
	b.resources = &cfg
	return b
}

// InputOrder writes leaf tables ordered by input row instead of by leaf.
func (b Builder[T]) InputOrder(enabled bool) Builder[T] {
	b.inputOrder = enabled
	return b
}

// Build validates the configuration and creates the Partitioner.
func (b Builder[T]) Build() (*Partitioner[T], error) {
	cfg := Config{
		Config: kdtree.Config{
			Dims:     b.dims,
			MinSize:  b.minSize,
			Years:    b.years,
			StartDim: b.startDim,
			MaxDepth: b.maxDepth,
		},
		DeriveYears: !b.yearsSet,
	}

	opts := []Option{WithInputOrder(b.inputOrder)}
	if b.strategy != "" {
		opts = append(opts, WithStrategy(b.strategy))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}
	if b.codec != nil {
		opts = append(opts, WithCodec(b.codec))
	}
	if b.compression != nil {
		opts = append(opts, WithCompression(*b.compression))
	}
	if b.resources != nil {
		opts = append(opts, WithResources(*b.resources))
	}

	return NewPartitioner[T](cfg, opts...)
}
