package resource

import (
	"context"
	"io"
)

// writeChunk bounds how much is written per limiter wait, so a canceled
// context stops a large blob write part way.
const writeChunk = 64 << 10

// RateLimitedWriter throttles writes to the controller's IO limit.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
	n   int64
}

// NewRateLimitedWriter wraps w. A nil controller only counts bytes.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

// Write writes p in chunks, waiting for IO budget before each one. On error
// it returns the number of bytes already written.
func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p[:min(len(p), writeChunk)]
		if err := w.rc.AcquireIO(w.ctx, len(chunk)); err != nil {
			return written, err
		}
		n, err := w.w.Write(chunk)
		written += n
		w.n += int64(n)
		if err != nil {
			return written, err
		}
		if n < len(chunk) {
			return written, io.ErrShortWrite
		}
		p = p[n:]
	}
	return written, nil
}

// Written returns the number of bytes written so far.
func (w *RateLimitedWriter) Written() int64 {
	return w.n
}
