// Package geom provides the geometric primitives used to partition survey
// sites: one-dimensional intervals, D-dimensional points carrying a survey
// year and free-form attributes, and axis-aligned boxes.
//
// All types are generic over the coordinate type. The dimension is fixed per
// point set at runtime; mixing dimensions is a programming error.
//
// # Ordering
//
// Splitting uses a cyclic lexicographic order: Compare(a, b, start) compares
// dimension start first and wraps through the remaining dimensions on ties.
// Two points whose coordinates are all equal compare equal regardless of
// year or attributes.
package geom
