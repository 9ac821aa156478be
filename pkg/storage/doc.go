// Package storage owns the infrastructure clients: postgres open and
// schema migration, the redis client, and the S3-backed FileStore for
// document blobs (path-style addressing supported for MinIO).
package storage
