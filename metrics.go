package sitetree

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/sitetree/median"
)

// BuildStats summarises one Build call.
type BuildStats struct {
	Points   int
	Nodes    int
	Leaves   int
	MaxDepth int
	Duration time.Duration
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prom package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordBuild is called after each build. stats is partial on error.
	RecordBuild(stats BuildStats, err error)

	// RecordRefusal is called for every leaf with the reason its run was
	// not split.
	RecordRefusal(reason median.Reason)

	// RecordSave is called after each snapshot write.
	RecordSave(bytes int64, duration time.Duration, err error)

	// RecordLoad is called after each snapshot read.
	RecordLoad(bytes int64, duration time.Duration, err error)

	// RecordPublish is called after each publish with the number of blobs written.
	RecordPublish(blobs int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(BuildStats, error)           {}
func (NoopMetricsCollector) RecordRefusal(median.Reason)             {}
func (NoopMetricsCollector) RecordSave(int64, time.Duration, error)  {}
func (NoopMetricsCollector) RecordLoad(int64, time.Duration, error)  {}
func (NoopMetricsCollector) RecordPublish(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildTotalNanos atomic.Int64
	PointsBuilt     atomic.Int64
	LeavesBuilt     atomic.Int64
	SaveCount       atomic.Int64
	SaveErrors      atomic.Int64
	SaveBytes       atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
	LoadBytes       atomic.Int64
	PublishCount    atomic.Int64
	PublishErrors   atomic.Int64

	refusals [len(reasonSlots)]atomic.Int64
}

var reasonSlots = [...]median.Reason{
	median.ReasonAccepted,
	median.ReasonWholeDeficient,
	median.ReasonTooFew,
	median.ReasonDegenerate,
	median.ReasonLeftDeficient,
	median.ReasonRightDeficient,
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(stats BuildStats, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(stats.Duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.PointsBuilt.Add(int64(stats.Points))
	b.LeavesBuilt.Add(int64(stats.Leaves))
}

// RecordRefusal implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefusal(reason median.Reason) {
	if int(reason) < len(b.refusals) {
		b.refusals[reason].Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int64, _ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveBytes.Add(bytes)
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(bytes int64, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadBytes.Add(bytes)
}

// RecordPublish implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPublish(_ int, _ time.Duration, err error) {
	b.PublishCount.Add(1)
	if err != nil {
		b.PublishErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		PointsBuilt:   b.PointsBuilt.Load(),
		LeavesBuilt:   b.LeavesBuilt.Load(),
		SaveCount:     b.SaveCount.Load(),
		SaveErrors:    b.SaveErrors.Load(),
		SaveBytes:     b.SaveBytes.Load(),
		LoadCount:     b.LoadCount.Load(),
		LoadErrors:    b.LoadErrors.Load(),
		LoadBytes:     b.LoadBytes.Load(),
		PublishCount:  b.PublishCount.Load(),
		PublishErrors: b.PublishErrors.Load(),
		Refusals:      make(map[median.Reason]int64),
	}
	if s.BuildCount > 0 {
		s.BuildAvgNanos = b.BuildTotalNanos.Load() / s.BuildCount
	}
	for i, r := range reasonSlots {
		if n := b.refusals[i].Load(); n > 0 {
			s.Refusals[r] = n
		}
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	BuildAvgNanos int64
	PointsBuilt   int64
	LeavesBuilt   int64
	SaveCount     int64
	SaveErrors    int64
	SaveBytes     int64
	LoadCount     int64
	LoadErrors    int64
	LoadBytes     int64
	PublishCount  int64
	PublishErrors int64
	Refusals      map[median.Reason]int64
}
