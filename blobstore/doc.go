// Package blobstore provides the storage abstraction for snapshots, leaf
// tables, reports and catalog manifests.
//
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, memory-mapped reads
//   - MemoryStore: in-process map, for tests and dry runs
//   - s3.Store: Amazon S3 with multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)           // Open for reading
//	    Create(ctx, name) (WritableBlob, error) // Create for writing
//	    Put(ctx, name, data) error              // Atomic write
//	    Delete(ctx, name) error                 // Idempotent delete
//	    List(ctx, prefix) ([]string, error)     // Sorted names
//	}
//
// Blob names use forward slashes regardless of the platform.
package blobstore
