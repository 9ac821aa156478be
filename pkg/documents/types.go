package documents

import (
	"context"
	"io"
	"time"
)

// Document categories with special meaning to the readiness planner
const (
	CategoryWill             = "will"
	CategoryDeathCertificate = "death_certificate"
)

// Document is stored metadata for an uploaded file
type Document struct {
	ID          string    `json:"id"`
	EstateID    string    `json:"estateId"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Sensitive   bool      `json:"sensitive"`
	ContentType string    `json:"contentType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	objectKey string
}

// UploadRequest carries the metadata fields of a multipart upload
type UploadRequest struct {
	EstateID  string
	Name      string
	Category  string
	Sensitive bool
}

// UpdateRequest is the body for a partial metadata update
type UpdateRequest struct {
	Name      *string `json:"name"`
	Category  *string `json:"category"`
	Sensitive *bool   `json:"sensitive"`
}

// BlobStore stores document file content. *storage.FileStore implements it.
type BlobStore interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
