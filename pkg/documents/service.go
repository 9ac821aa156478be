package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/audit"
	"github.com/legatepro/legate/pkg/validation"
)

// ErrNotFound indicates the document does not exist or is hidden from
// the caller
var ErrNotFound = errors.New("document not found")

// Service manages document metadata and file content
type Service struct {
	db     *sql.DB
	guard  *access.Guard
	files  BlobStore
	events audit.Logger
}

// NewService creates a new document service. events may be nil.
func NewService(db *sql.DB, guard *access.Guard, files BlobStore, events audit.Logger) *Service {
	return &Service{db: db, guard: guard, files: files, events: events}
}

// Upload stores the file content and creates the document record
func (s *Service) Upload(ctx context.Context, userID string, req *UploadRequest, content io.Reader, contentType string, size int64) (*Document, error) {
	if req.EstateID == "" {
		return nil, validation.NewError(validation.CodeMissingEstate, "Estate is required")
	}
	if req.Name == "" {
		return nil, validation.NewError(validation.CodeMissingName, "Document name is required")
	}

	acc, err := s.guard.RequireEditor(ctx, req.EstateID, userID, "documents")
	if err != nil {
		return nil, err
	}
	// Only the owner may introduce sensitive documents
	if req.Sensitive && !access.RoleIsOwner(acc.Role) {
		return nil, access.ErrForbidden
	}

	doc := &Document{
		ID:          uuid.New().String(),
		EstateID:    req.EstateID,
		OwnerID:     acc.UserID,
		Name:        req.Name,
		Category:    req.Category,
		Sensitive:   req.Sensitive,
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	doc.objectKey = fmt.Sprintf("estates/%s/documents/%s", doc.EstateID, doc.ID)

	if _, err := s.files.Put(ctx, doc.objectKey, content, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document file: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, estate_id, owner_id, name, category, sensitive, object_key,
			content_type, size_bytes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		doc.ID, doc.EstateID, doc.OwnerID, doc.Name, doc.Category, doc.Sensitive,
		doc.objectKey, doc.ContentType, doc.SizeBytes, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		// Best effort: don't leave an orphaned object behind
		_ = s.files.Delete(ctx, doc.objectKey)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.record(ctx, doc.EstateID, userID, audit.ActionCreate, doc.ID)
	return doc, nil
}

// Get fetches document metadata. Sensitive documents resolve only for
// the estate owner.
func (s *Service) Get(ctx context.Context, documentID, userID string) (*Document, error) {
	return s.getVisible(ctx, documentID, userID)
}

func (s *Service) getVisible(ctx context.Context, documentID, userID string) (*Document, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	acc, err := s.guard.RequireMember(ctx, doc.EstateID, userID)
	if err != nil {
		return nil, err
	}
	if doc.Sensitive && !access.RoleIsOwner(acc.Role) {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *Service) getDocument(ctx context.Context, documentID string) (*Document, error) {
	doc := &Document{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, estate_id, owner_id, name, category, sensitive, object_key, content_type,
			size_bytes, created_at, updated_at
		FROM documents WHERE id = $1`,
		documentID,
	).Scan(&doc.ID, &doc.EstateID, &doc.OwnerID, &doc.Name, &doc.Category, &doc.Sensitive,
		&doc.objectKey, &doc.ContentType, &doc.SizeBytes, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByEstate returns an estate's documents. Sensitive documents are
// omitted unless the caller is the owner.
func (s *Service) ListByEstate(ctx context.Context, estateID, userID string) ([]*Document, error) {
	acc, err := s.guard.RequireMember(ctx, estateID, userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, estate_id, owner_id, name, category, sensitive, object_key, content_type,
			size_bytes, created_at, updated_at
		FROM documents WHERE estate_id = $1`
	if !access.RoleIsOwner(acc.Role) {
		query += ` AND sensitive = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, estateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	documents := []*Document{}
	for rows.Next() {
		doc := &Document{}
		err := rows.Scan(&doc.ID, &doc.EstateID, &doc.OwnerID, &doc.Name, &doc.Category,
			&doc.Sensitive, &doc.objectKey, &doc.ContentType, &doc.SizeBytes,
			&doc.CreatedAt, &doc.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, doc)
	}
	return documents, rows.Err()
}

// Download streams the document file. The caller must close the reader.
func (s *Service) Download(ctx context.Context, documentID, userID string) (io.ReadCloser, *Document, error) {
	doc, err := s.getVisible(ctx, documentID, userID)
	if err != nil {
		return nil, nil, err
	}

	body, contentType, err := s.files.Get(ctx, doc.objectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch document file: %w", err)
	}
	if contentType != "" {
		doc.ContentType = contentType
	}
	return body, doc, nil
}

// Update applies a partial metadata update
func (s *Service) Update(ctx context.Context, documentID, userID string, req *UpdateRequest) (*Document, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	acc, err := s.guard.RequireEditor(ctx, doc.EstateID, userID, "documents")
	if err != nil {
		return nil, err
	}
	if doc.Sensitive && !access.RoleIsOwner(acc.Role) {
		return nil, ErrNotFound
	}
	if req.Sensitive != nil && *req.Sensitive != doc.Sensitive && !access.RoleIsOwner(acc.Role) {
		return nil, access.ErrForbidden
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, validation.NewError(validation.CodeMissingName, "Document name is required")
		}
		doc.Name = *req.Name
	}
	if req.Category != nil {
		doc.Category = *req.Category
	}
	if req.Sensitive != nil {
		doc.Sensitive = *req.Sensitive
	}
	doc.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE documents SET name = $1, category = $2, sensitive = $3, updated_at = $4
		WHERE id = $5`,
		doc.Name, doc.Category, doc.Sensitive, doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	s.record(ctx, doc.EstateID, userID, audit.ActionUpdate, doc.ID)
	return doc, nil
}

// Delete removes the document record and its file
func (s *Service) Delete(ctx context.Context, documentID, userID string) error {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return err
	}

	acc, err := s.guard.RequireEditor(ctx, doc.EstateID, userID, "documents")
	if err != nil {
		return err
	}
	if doc.Sensitive && !access.RoleIsOwner(acc.Role) {
		return ErrNotFound
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, doc.EstateID, userID, audit.ActionDelete, documentID)

	// The record is gone; a failed blob delete is log-worthy but not a
	// caller failure
	_ = s.files.Delete(ctx, doc.objectKey)
	return nil
}

func (s *Service) record(ctx context.Context, estateID, actorID, action, documentID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "document",
		ResourceID:   documentID,
	})
}
