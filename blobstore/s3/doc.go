// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "survey-bucket",
//	    s3.WithPrefix("partitions/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	p, err := sitetree.New[float64](2).Years(1990, 2020).MinSize(4).Partitioner()
//	run, err := p.Publish(ctx, store, sites)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for streaming writes
//   - Automatic pagination for listing
//   - Optional DynamoDB commit log for the CURRENT catalog pointer
package s3
