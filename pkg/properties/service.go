package properties

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

// ErrNotFound indicates the property does not exist
var ErrNotFound = errors.New("property not found")

// Service manages properties
type Service struct {
	db     *sql.DB
	guard  *access.Guard
	events audit.Logger
}

// NewService creates a new property service. events may be nil.
func NewService(db *sql.DB, guard *access.Guard, events audit.Logger) *Service {
	return &Service{db: db, guard: guard, events: events}
}

// Create creates a property on an estate
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Property, error) {
	if req.EstateID == "" {
		return nil, validation.NewError(validation.CodeMissingEstate, "Estate is required")
	}
	if req.Address == "" {
		return nil, validation.NewError(validation.CodeMissingName, "Address is required")
	}

	acc, err := s.guard.RequireEditor(ctx, req.EstateID, userID, "properties")
	if err != nil {
		return nil, err
	}

	property := &Property{
		ID:           uuid.New().String(),
		EstateID:     req.EstateID,
		OwnerID:      acc.UserID,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		PropertyType: req.PropertyType,
		Status:       "active",
		Notes:        req.Notes,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO properties (id, estate_id, owner_id, address, city, state, postal_code,
			property_type, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		property.ID, property.EstateID, property.OwnerID, property.Address, property.City,
		property.State, property.PostalCode, property.PropertyType, property.Status,
		property.Notes, property.CreatedAt, property.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.record(ctx, property.EstateID, userID, audit.ActionCreate, property.ID)
	return property, nil
}

// Get fetches a property the caller can see
func (s *Service) Get(ctx context.Context, propertyID, userID string) (*Property, error) {
	property, err := s.getProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireMember(ctx, property.EstateID, userID); err != nil {
		return nil, err
	}
	return property, nil
}

func (s *Service) getProperty(ctx context.Context, propertyID string) (*Property, error) {
	property := &Property{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, estate_id, owner_id, address, city, state, postal_code, property_type,
			status, notes, created_at, updated_at
		FROM properties WHERE id = $1`,
		propertyID,
	).Scan(&property.ID, &property.EstateID, &property.OwnerID, &property.Address,
		&property.City, &property.State, &property.PostalCode, &property.PropertyType,
		&property.Status, &property.Notes, &property.CreatedAt, &property.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return property, nil
}

// ListByEstate returns an estate's properties
func (s *Service) ListByEstate(ctx context.Context, estateID, userID string) ([]*Property, error) {
	if _, err := s.guard.RequireMember(ctx, estateID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, estate_id, owner_id, address, city, state, postal_code, property_type,
			status, notes, created_at, updated_at
		FROM properties WHERE estate_id = $1
		ORDER BY created_at DESC`,
		estateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := []*Property{}
	for rows.Next() {
		property := &Property{}
		err := rows.Scan(&property.ID, &property.EstateID, &property.OwnerID, &property.Address,
			&property.City, &property.State, &property.PostalCode, &property.PropertyType,
			&property.Status, &property.Notes, &property.CreatedAt, &property.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, property)
	}
	return properties, rows.Err()
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, propertyID, userID string, req *UpdateRequest) (*Property, error) {
	property, err := s.getProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.RequireEditor(ctx, property.EstateID, userID, "properties"); err != nil {
		return nil, err
	}

	if req.Address != nil {
		if *req.Address == "" {
			return nil, validation.NewError(validation.CodeMissingName, "Address is required")
		}
		property.Address = *req.Address
	}
	if req.City != nil {
		property.City = *req.City
	}
	if req.State != nil {
		property.State = *req.State
	}
	if req.PostalCode != nil {
		property.PostalCode = *req.PostalCode
	}
	if req.PropertyType != nil {
		property.PropertyType = *req.PropertyType
	}
	if req.Status != nil {
		property.Status = *req.Status
	}
	if req.Notes != nil {
		property.Notes = *req.Notes
	}
	property.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE properties SET address = $1, city = $2, state = $3, postal_code = $4,
			property_type = $5, status = $6, notes = $7, updated_at = $8
		WHERE id = $9`,
		property.Address, property.City, property.State, property.PostalCode,
		property.PropertyType, property.Status, property.Notes, property.UpdatedAt, property.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}

	s.record(ctx, property.EstateID, userID, audit.ActionUpdate, property.ID)
	return property, nil
}

// Delete removes a property
func (s *Service) Delete(ctx context.Context, propertyID, userID string) error {
	property, err := s.getProperty(ctx, propertyID)
	if err != nil {
		return err
	}

	if _, err := s.guard.RequireEditor(ctx, property.EstateID, userID, "properties"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, propertyID)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, property.EstateID, userID, audit.ActionDelete, propertyID)
	return nil
}

// RentSummary rolls up the property's rent payments into collected and
// outstanding totals
func (s *Service) RentSummary(ctx context.Context, propertyID, userID string) (*RentSummary, error) {
	property, err := s.getProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireMember(ctx, property.EstateID, userID); err != nil {
		return nil, err
	}

	summary := &RentSummary{PropertyID: propertyID}
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_paid THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_paid THEN 0 ELSE amount END), 0),
			COUNT(*)
		FROM rent_payments WHERE property_id = $1`,
		propertyID,
	).Scan(&summary.Collected, &summary.Outstanding, &summary.PaymentCount)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize rent: %w", err)
	}
	return summary, nil
}

func (s *Service) record(ctx context.Context, estateID, actorID, action, propertyID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "property",
		ResourceID:   propertyID,
	})
}
