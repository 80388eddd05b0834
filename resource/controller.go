// Package resource bounds the work done while publishing partitions:
// concurrent blob writes, bytes held in encoded buffers, and IO throughput.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for encoded buffers held in memory.
	// If 0, usage is only tracked.
	MemoryLimitBytes int64 `yaml:"memory_limit_bytes" validate:"gte=0"`

	// MaxConcurrentWrites is the maximum number of blobs written at once.
	// If 0, defaults to 1.
	MaxConcurrentWrites int64 `yaml:"max_concurrent_writes" validate:"gte=0"`

	// IOLimitBytesPerSec caps write throughput. If 0, unlimited.
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec" validate:"gte=0"`
}

// Controller hands out write slots, memory and IO budget.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	writeSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentWrites <= 0 {
		cfg.MaxConcurrentWrites = 1
	}

	c := &Controller{
		cfg:      cfg,
		writeSem: semaphore.NewWeighted(cfg.MaxConcurrentWrites),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective limits.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireMemory reserves bytes, blocking while a hard limit would be
// exceeded. Requests above the limit are clamped to it.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, c.clamp(bytes)); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves bytes without blocking.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(c.clamp(bytes)) {
		return false
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(c.clamp(bytes))
	}
	c.memUsed.Add(-bytes)
}

func (c *Controller) clamp(bytes int64) int64 {
	return min(bytes, c.cfg.MemoryLimitBytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireWrite reserves a write slot, blocking while all are busy.
func (c *Controller) AcquireWrite(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.writeSem.Acquire(ctx, 1)
}

// TryAcquireWrite reserves a write slot without blocking.
func (c *Controller) TryAcquireWrite() bool {
	if c == nil {
		return true
	}
	return c.writeSem.TryAcquire(1)
}

// ReleaseWrite releases a write slot.
func (c *Controller) ReleaseWrite() {
	if c == nil {
		return
	}
	c.writeSem.Release(1)
}

// Do runs fn while holding a write slot and size bytes of memory.
func (c *Controller) Do(ctx context.Context, size int64, fn func(context.Context) error) error {
	if err := c.AcquireWrite(ctx); err != nil {
		return err
	}
	defer c.ReleaseWrite()

	if err := c.AcquireMemory(ctx, size); err != nil {
		return err
	}
	defer c.ReleaseMemory(size)

	return fn(ctx)
}

// AcquireIO waits until the IO limit allows n bytes.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil || n <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.ioLimiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
