// Package testutil generates reproducible synthetic site clouds for tests
// and benchmarks.
//
//	g := testutil.NewRNG(seed)
//	sites := g.UniformSites(1000, 2, 2001, 2005)      // uniform in [0, 1)^2
//	tied := g.GridSites(1000, 3, 4, 2001, 2002)        // 4 distinct values per axis
//	hot := g.ClusteredSites(1000, 2, 8, 2001, 2010)    // 8 single-year clusters
package testutil
