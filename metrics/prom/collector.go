// Package prom exports sitetree metrics to Prometheus.
//
//	c := prom.NewCollector()
//	p, _ := sitetree.New[float64](2).Metrics(c).Build()
//	http.Handle("/metrics", promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
//
// Batch jobs can write the registry for the node exporter textfile
// collector instead, see WriteTextfile.
package prom

import (
	"time"

	"github.com/hupe1980/sitetree"
	"github.com/hupe1980/sitetree/median"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitetree"

// Collector implements sitetree.MetricsCollector on its own registry.
type Collector struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
	points     prometheus.Counter
	leaves     prometheus.Histogram
	depth      prometheus.Gauge
	refusals   *prometheus.CounterVec
	blobs      prometheus.Counter
}

var _ sitetree.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations by kind and outcome.",
		}, []string{"op", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes_total",
			Help:      "Snapshot bytes saved or loaded.",
		}, []string{"op"}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_built_total",
			Help:      "Sites partitioned by successful builds.",
		}),
		leaves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaves_per_build",
			Help:      "Number of leaves per successful build.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_max_depth",
			Help:      "Depth of the deepest leaf of the last successful build.",
		}),
		refusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaves_total",
			Help:      "Leaves by the reason their run was not split.",
		}, []string{"reason"}),
		blobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_blobs_total",
			Help:      "Blobs written by successful publishes.",
		}),
	}

	c.registry.MustRegister(
		c.operations,
		c.latency,
		c.bytes,
		c.points,
		c.leaves,
		c.depth,
		c.refusals,
		c.blobs,
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile writes all metrics to path in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	c.operations.WithLabelValues(op, status(err)).Inc()
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordBuild implements sitetree.MetricsCollector.
func (c *Collector) RecordBuild(stats sitetree.BuildStats, err error) {
	c.observe("build", stats.Duration, err)
	if err != nil {
		return
	}
	c.points.Add(float64(stats.Points))
	c.leaves.Observe(float64(stats.Leaves))
	c.depth.Set(float64(stats.MaxDepth))
}

// RecordRefusal implements sitetree.MetricsCollector.
func (c *Collector) RecordRefusal(reason median.Reason) {
	c.refusals.WithLabelValues(reason.String()).Inc()
}

// RecordSave implements sitetree.MetricsCollector.
func (c *Collector) RecordSave(bytes int64, d time.Duration, err error) {
	c.observe("save", d, err)
	if err == nil {
		c.bytes.WithLabelValues("save").Add(float64(bytes))
	}
}

// RecordLoad implements sitetree.MetricsCollector.
func (c *Collector) RecordLoad(bytes int64, d time.Duration, err error) {
	c.observe("load", d, err)
	if err == nil {
		c.bytes.WithLabelValues("load").Add(float64(bytes))
	}
}

// RecordPublish implements sitetree.MetricsCollector.
func (c *Collector) RecordPublish(blobs int, d time.Duration, err error) {
	c.observe("publish", d, err)
	if err == nil {
		c.blobs.Add(float64(blobs))
	}
}
