// Package kdtree builds a year-balanced kd-tree over survey sites.
//
// Splitting is gated by a balance.Validator: a run is only split at its
// median when the run, the points before the median and the points after
// the median all contain at least MinSize points of every year in the
// configured range. Otherwise the run becomes a leaf.
//
// The tree is stored as an arena of nodes in pre-order. Node ids come from an
// explicit Sequence passed to the Builder, so independent builds never share
// hidden state. Construction is iterative and never recurses, which keeps
// pathological inputs from exhausting the goroutine stack; an optional
// MaxDepth turns very deep trees into a TooDeepError instead.
//
// Every leaf records the input row ordinals of its points in a roaring
// bitmap, which lets callers recover input order and look up the leaf of a
// given row.
package kdtree
