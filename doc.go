// Package sitetree partitions geo-referenced survey sites into a
// year-balanced kd-tree.
//
// Every split cuts a run of sites at the median of one coordinate, cycling
// through the dimensions. A split is only accepted when both halves still
// hold at least MinSize sites for every survey year in the configured
// range; otherwise the run becomes a leaf. The leaves form spatially
// compact groups that are comparable across years.
//
// # Quick Start
//
//	p, err := sitetree.New[float64](2).
//	    Years(1990, 2020).
//	    MinSize(4).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tree, err := p.Build(ctx, sites)
//	for _, lp := range tree.LeafPoints() {
//	    fmt.Println(lp.LeafID, lp.Point.Attributes)
//	}
//
// # Persistence
//
// Trees are saved as self-describing snapshots into any blobstore.BlobStore
// (local directory, memory, S3, MinIO):
//
//	info, err := p.Save(ctx, store, "plots.snap", tree)
//	tree, info, err = p.Load(ctx, store, "plots.snap")
//
// Publish writes the snapshot, the leaf table and the tree report of one run
// concurrently and records the run in the store's catalog:
//
//	entry, err := p.Publish(ctx, store, tree)
//
// # Lower-level packages
//
//   - geom: intervals, boxes, points and the cyclic comparator
//   - balance: the per-year minimum-count rule
//   - median: split strategies and refusal reasons
//   - kdtree: the builder, the node arena and leaf traversal
//   - sitecsv: the tabular site format
//   - snapshot, catalog, blobstore: persistence
package sitetree
