package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/audit"
	"github.com/legatepro/legate/pkg/validation"
)

// ErrNotFound indicates the note does not exist
var ErrNotFound = errors.New("note not found")

// Service manages notes
type Service struct {
	db     *sql.DB
	guard  *access.Guard
	events audit.Logger
}

// NewService creates a new note service. events may be nil.
func NewService(db *sql.DB, guard *access.Guard, events audit.Logger) *Service {
	return &Service{db: db, guard: guard, events: events}
}

// Create creates a note on an estate
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Note, error) {
	if req.EstateID == "" {
		return nil, validation.NewError(validation.CodeMissingEstate, "Estate is required")
	}
	if req.Body == "" {
		return nil, validation.NewError(validation.CodeMissingName, "Note body is required")
	}

	if _, err := s.guard.RequireEditor(ctx, req.EstateID, userID, "notes"); err != nil {
		return nil, err
	}

	note := &Note{
		ID:        uuid.New().String(),
		EstateID:  req.EstateID,
		AuthorID:  userID,
		Body:      req.Body,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, estate_id, author_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		note.ID, note.EstateID, note.AuthorID, note.Body, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.record(ctx, note.EstateID, userID, audit.ActionCreate, note.ID)
	return note, nil
}

// Get fetches a note the caller can see
func (s *Service) Get(ctx context.Context, noteID, userID string) (*Note, error) {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireMember(ctx, note.EstateID, userID); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *Service) getNote(ctx context.Context, noteID string) (*Note, error) {
	note := &Note{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, estate_id, author_id, body, created_at, updated_at
		FROM notes WHERE id = $1`,
		noteID,
	).Scan(&note.ID, &note.EstateID, &note.AuthorID, &note.Body, &note.CreatedAt, &note.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// ListByEstate returns an estate's notes, newest first
func (s *Service) ListByEstate(ctx context.Context, estateID, userID string) ([]*Note, error) {
	if _, err := s.guard.RequireMember(ctx, estateID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, estate_id, author_id, body, created_at, updated_at
		FROM notes WHERE estate_id = $1
		ORDER BY created_at DESC`,
		estateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		note := &Note{}
		err := rows.Scan(&note.ID, &note.EstateID, &note.AuthorID, &note.Body,
			&note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// Update replaces the note body
func (s *Service) Update(ctx context.Context, noteID, userID string, req *UpdateRequest) (*Note, error) {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.RequireEditor(ctx, note.EstateID, userID, "notes"); err != nil {
		return nil, err
	}

	if req.Body != nil {
		if *req.Body == "" {
			return nil, validation.NewError(validation.CodeMissingName, "Note body is required")
		}
		note.Body = *req.Body
	}
	note.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE notes SET body = $1, updated_at = $2 WHERE id = $3`,
		note.Body, note.UpdatedAt, note.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	s.record(ctx, note.EstateID, userID, audit.ActionUpdate, note.ID)
	return note, nil
}

// Delete removes a note
func (s *Service) Delete(ctx context.Context, noteID, userID string) error {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return err
	}

	if _, err := s.guard.RequireEditor(ctx, note.EstateID, userID, "notes"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, noteID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, note.EstateID, userID, audit.ActionDelete, noteID)
	return nil
}

func (s *Service) record(ctx context.Context, estateID, actorID, action, noteID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "note",
		ResourceID:   noteID,
	})
}
