// Package documents manages estate documents and their files.
//
// # Overview
//
// Document metadata lives in postgres; content goes through the
// BlobStore interface, satisfied by the S3-backed storage.FileStore in
// production. Uploads are multipart with a 50 MiB cap and downloads are
// streamed.
//
// Sensitive documents are owner-only: they are omitted from lists and
// treated as missing for every other caller, not merely forbidden, so
// their existence leaks nothing.
package documents
