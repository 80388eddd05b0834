package kdtree

import "sync/atomic"

// Sequence hands out monotonically increasing node ids.
//
// A Sequence is scoped to whoever owns it: pass the same Sequence to several
// builds to keep ids unique across them, or a fresh one per build for
// reproducible ids. It is safe for concurrent use.
type Sequence struct {
	next atomic.Uint64
}

// NewSequence returns a Sequence whose first id is start.
func NewSequence(start uint64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequence) Next() uint64 {
	return s.next.Add(1) - 1
}

// Peek returns the id Next would return, without consuming it.
func (s *Sequence) Peek() uint64 {
	return s.next.Load()
}

// Reset sets the next id to start.
func (s *Sequence) Reset(start uint64) {
	s.next.Store(start)
}
