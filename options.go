package sitetree

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/sitetree/codec"
	"github.com/hupe1980/sitetree/resource"
	"github.com/hupe1980/sitetree/snapshot"
)

type options struct {
	codec            codec.Codec
	compression      snapshot.Compression
	strategy         string
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
	inputOrder       bool
	runID            func() string
	now              func() time.Time
}

// Option configures a Partitioner.
type Option func(*options)

// WithCodec configures the codec used for snapshots and the catalog.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = codec.Resolve(c)
	}
}

// WithCompression configures snapshot compression.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithStrategy selects the median strategy by name ("sorted" or "selected").
func WithStrategy(name string) Option {
	return func(o *options) {
		o.strategy = name
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &sitetree.BasicMetricsCollector{}
//	p, _ := sitetree.NewPartitioner[float64](cfg, sitetree.WithMetricsCollector(metrics))
//	// ... build trees ...
//	stats := metrics.GetStats()
//	fmt.Printf("Builds: %d, Avg latency: %dns\n", stats.BuildCount, stats.BuildAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResources bounds the concurrency, memory and IO of Publish.
func WithResources(cfg resource.Config) Option {
	return func(o *options) {
		o.resources = resource.NewController(cfg)
	}
}

// WithInputOrder makes published leaf tables list sites in input order
// instead of leaf order.
func WithInputOrder(enabled bool) Option {
	return func(o *options) {
		o.inputOrder = enabled
	}
}

// WithRunIDFunc overrides the generator of publish run ids.
func WithRunIDFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.runID = fn
		}
	}
}

// WithClock overrides the time source used for catalog entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      snapshot.CompressionNone,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		resources:        resource.NewController(resource.Config{MaxConcurrentWrites: 3}),
		runID:            uuid.NewString,
		now:              time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
