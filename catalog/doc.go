// Package catalog records published partition runs.
//
// A catalog is a sequence of immutable manifest blobs (MANIFEST-000001.json,
// MANIFEST-000002.json, ...) plus a CURRENT blob naming the newest one. Each
// save writes a new manifest first and moves CURRENT second, so readers
// always see a complete manifest. Any blobstore.BlobStore can hold a
// catalog; with the S3 DynamoDB commit store the CURRENT update becomes a
// conditional write and concurrent publishers fail with a conflict instead
// of overwriting each other.
package catalog
