package estates

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

// ErrNotFound indicates the estate or collaborator record does not exist
var ErrNotFound = errors.New("estate not found")

// Service manages estates and collaborators. Mutations run through the
// access guard before touching the store.
type Service struct {
	db     *sql.DB
	guard  *access.Guard
	events audit.Logger
}

// NewService creates a new estate service
func NewService(db *sql.DB, guard *access.Guard, events audit.Logger) *Service {
	return &Service{db: db, guard: guard, events: events}
}

// Create creates a new estate owned by the caller
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Estate, error) {
	if req.Name == "" {
		return nil, validation.NewError(validation.CodeMissingName, "Estate name is required")
	}

	estate := &Estate{
		ID:           uuid.New().String(),
		OwnerID:      userID,
		Name:         req.Name,
		DeceasedName: req.DeceasedName,
		Status:       "active",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO estates (id, owner_id, name, deceased_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		estate.ID, estate.OwnerID, estate.Name, estate.DeceasedName,
		estate.Status, estate.CreatedAt, estate.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create estate: %w", err)
	}

	s.record(ctx, estate.ID, userID, audit.ActionCreate, "estate", estate.ID, nil)
	return estate, nil
}

// Get fetches an estate the caller can see
func (s *Service) Get(ctx context.Context, estateID, userID string) (*Estate, *access.Access, error) {
	acc, err := s.guard.RequireMember(ctx, estateID, userID)
	if err != nil {
		return nil, nil, err
	}

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, nil, err
	}
	return estate, acc, nil
}

func (s *Service) getEstate(ctx context.Context, estateID string) (*Estate, error) {
	estate := &Estate{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, deceased_name, status, created_at, updated_at
		FROM estates WHERE id = $1`,
		estateID,
	).Scan(&estate.ID, &estate.OwnerID, &estate.Name, &estate.DeceasedName,
		&estate.Status, &estate.CreatedAt, &estate.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get estate: %w", err)
	}
	return estate, nil
}

// ListForUser returns all estates the user owns or collaborates on
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Estate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.id, e.owner_id, e.name, e.deceased_name, e.status, e.created_at, e.updated_at
		FROM estates e
		LEFT JOIN estate_collaborators c ON c.estate_id = e.id
		WHERE e.owner_id = $1 OR c.user_id = $2
		ORDER BY e.created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list estates: %w", err)
	}
	defer rows.Close()

	estates := []*Estate{}
	for rows.Next() {
		estate := &Estate{}
		err := rows.Scan(&estate.ID, &estate.OwnerID, &estate.Name, &estate.DeceasedName,
			&estate.Status, &estate.CreatedAt, &estate.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan estate: %w", err)
		}
		estates = append(estates, estate)
	}
	return estates, rows.Err()
}

// Update applies a partial update. Viewers are rejected before any write.
func (s *Service) Update(ctx context.Context, estateID, userID string, req *UpdateRequest) (*Estate, error) {
	if _, err := s.guard.RequireEditor(ctx, estateID, userID, "estates"); err != nil {
		return nil, err
	}

	estate, err := s.getEstate(ctx, estateID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, validation.NewError(validation.CodeMissingName, "Estate name is required")
		}
		estate.Name = *req.Name
	}
	if req.DeceasedName != nil {
		estate.DeceasedName = *req.DeceasedName
	}
	if req.Status != nil {
		estate.Status = *req.Status
	}
	estate.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE estates SET name = $1, deceased_name = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		estate.Name, estate.DeceasedName, estate.Status, estate.UpdatedAt, estate.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update estate: %w", err)
	}

	s.record(ctx, estateID, userID, audit.ActionUpdate, "estate", estateID, nil)
	return estate, nil
}

// Delete removes an estate. Owner only.
func (s *Service) Delete(ctx context.Context, estateID, userID string) error {
	if _, err := s.guard.RequireOwner(ctx, estateID, userID, "estates"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM estates WHERE id = $1`, estateID)
	if err != nil {
		return fmt.Errorf("failed to delete estate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, estateID, userID, audit.ActionDelete, "estate", estateID, nil)
	return nil
}

// ListCollaborators returns the collaborators on an estate
func (s *Service) ListCollaborators(ctx context.Context, estateID, userID string) ([]*Collaborator, error) {
	if _, err := s.guard.RequireMember(ctx, estateID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.estate_id, c.user_id, COALESCE(u.email, ''), c.role, c.created_at
		FROM estate_collaborators c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.estate_id = $1
		ORDER BY c.created_at`,
		estateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	defer rows.Close()

	collaborators := []*Collaborator{}
	for rows.Next() {
		c := &Collaborator{}
		if err := rows.Scan(&c.ID, &c.EstateID, &c.UserID, &c.Email, &c.Role, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		collaborators = append(collaborators, c)
	}
	return collaborators, rows.Err()
}

// AddCollaborator grants a role on an estate. Owner only. Granting the
// owner themselves a collaborator role is rejected.
func (s *Service) AddCollaborator(ctx context.Context, estateID, userID string, req *CollaboratorRequest) (*Collaborator, error) {
	acc, err := s.guard.RequireOwner(ctx, estateID, userID, "collaborators")
	if err != nil {
		return nil, err
	}

	if req.UserID == "" {
		return nil, validation.NewError(validation.CodeMissingName, "Collaborator user is required")
	}
	if req.UserID == acc.UserID {
		return nil, validation.NewError(validation.CodeInvalidRole, "Owner cannot be added as a collaborator")
	}
	if req.Role != access.RoleEditor && req.Role != access.RoleViewer {
		return nil, validation.NewError(validation.CodeInvalidRole, "Role must be EDITOR or VIEWER")
	}

	collaborator := &Collaborator{
		ID:        uuid.New().String(),
		EstateID:  estateID,
		UserID:    req.UserID,
		Role:      req.Role,
		CreatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO estate_collaborators (id, estate_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (estate_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		collaborator.ID, collaborator.EstateID, collaborator.UserID,
		string(collaborator.Role), collaborator.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add collaborator: %w", err)
	}

	s.record(ctx, estateID, userID, audit.ActionInvite, "collaborator", req.UserID,
		map[string]interface{}{"role": string(req.Role)})
	return collaborator, nil
}

// RemoveCollaborator revokes access. Owner only. Effective on the
// revoked user's very next request since access is resolved fresh.
func (s *Service) RemoveCollaborator(ctx context.Context, estateID, userID, collaboratorUserID string) error {
	if _, err := s.guard.RequireOwner(ctx, estateID, userID, "collaborators"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM estate_collaborators WHERE estate_id = $1 AND user_id = $2`,
		estateID, collaboratorUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removal: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, estateID, userID, audit.ActionRevoke, "collaborator", collaboratorUserID, nil)
	return nil
}

// record emits an audit event; failures never abort the mutation
func (s *Service) record(ctx context.Context, estateID, actorID, action, resourceType, resourceID string, detail map[string]interface{}) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
	})
}
