// Package median chooses the split point of a run of sites and decides,
// together with a balance.Validator, whether the split is legal.
//
// A Strategy reorders the run in place so that every point before the
// returned Split.Index orders strictly before the median under the cyclic
// comparator keyed at the split dimension, and every point from Split.Index
// on orders at or after it. The point at Split.Index is the median.
//
// When several points compare equal to the structural middle element, the
// split index is moved down to the first of them so that the left side stays
// strictly smaller. Which of those equal points becomes the reported median
// depends on their order before the call. This is accepted: the partition
// itself is identical either way.
//
// Two strategies are provided. Sorted performs a stable O(n log n) sort and is
// the default. Selected performs an exact quickselect in expected linear time.
package median
