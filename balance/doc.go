// Package balance implements the per-year minimum-count rule that gates every
// split of the site tree.
//
// A run of points is balanced when every year in the configured inclusive
// range [Min, Max] is represented by at least MinSize points. An empty run
// has a zero count in every bucket and therefore never balances unless
// MinSize is zero.
//
// Points whose year lies outside the range are a contract violation: the
// loader is expected to filter them, and the Validator panics with a
// *YearOutOfRangeError rather than silently ignoring them.
package balance
