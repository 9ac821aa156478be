package utilities

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

// ErrNotFound indicates the utility account does not exist
var ErrNotFound = errors.New("utility account not found")

// Service manages utility accounts
type Service struct {
	db     *sql.DB
	guard  *access.Guard
	events audit.Logger
}

// NewService creates a new utility account service. events may be nil.
func NewService(db *sql.DB, guard *access.Guard, events audit.Logger) *Service {
	return &Service{db: db, guard: guard, events: events}
}

// Create creates a utility account on an estate
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Account, error) {
	if req.EstateID == "" {
		return nil, validation.NewError(validation.CodeMissingEstate, "Estate is required")
	}
	if req.Provider == "" {
		return nil, validation.NewError(validation.CodeMissingName, "Provider is required")
	}

	acc, err := s.guard.RequireEditor(ctx, req.EstateID, userID, "utilities")
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusActive
	}

	account := &Account{
		ID:            uuid.New().String(),
		EstateID:      req.EstateID,
		OwnerID:       acc.UserID,
		Provider:      req.Provider,
		AccountNumber: req.AccountNumber,
		ServiceType:   req.ServiceType,
		Status:        status,
		Notes:         req.Notes,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO utility_accounts (id, estate_id, owner_id, provider, account_number,
			service_type, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID, account.EstateID, account.OwnerID, account.Provider, account.AccountNumber,
		account.ServiceType, account.Status, account.Notes, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create utility account: %w", err)
	}

	s.record(ctx, account.EstateID, userID, audit.ActionCreate, account.ID)
	return account, nil
}

// Get fetches a utility account the caller can see
func (s *Service) Get(ctx context.Context, accountID, userID string) (*Account, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireMember(ctx, account.EstateID, userID); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) getAccount(ctx context.Context, accountID string) (*Account, error) {
	account := &Account{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, estate_id, owner_id, provider, account_number, service_type, status,
			notes, created_at, updated_at
		FROM utility_accounts WHERE id = $1`,
		accountID,
	).Scan(&account.ID, &account.EstateID, &account.OwnerID, &account.Provider,
		&account.AccountNumber, &account.ServiceType, &account.Status, &account.Notes,
		&account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get utility account: %w", err)
	}
	return account, nil
}

// ListByEstate returns an estate's utility accounts
func (s *Service) ListByEstate(ctx context.Context, estateID, userID string) ([]*Account, error) {
	if _, err := s.guard.RequireMember(ctx, estateID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, estate_id, owner_id, provider, account_number, service_type, status,
			notes, created_at, updated_at
		FROM utility_accounts WHERE estate_id = $1
		ORDER BY provider ASC`,
		estateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list utility accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*Account{}
	for rows.Next() {
		account := &Account{}
		err := rows.Scan(&account.ID, &account.EstateID, &account.OwnerID, &account.Provider,
			&account.AccountNumber, &account.ServiceType, &account.Status, &account.Notes,
			&account.CreatedAt, &account.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan utility account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, accountID, userID string, req *UpdateRequest) (*Account, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.RequireEditor(ctx, account.EstateID, userID, "utilities"); err != nil {
		return nil, err
	}

	if req.Provider != nil {
		if *req.Provider == "" {
			return nil, validation.NewError(validation.CodeMissingName, "Provider is required")
		}
		account.Provider = *req.Provider
	}
	if req.AccountNumber != nil {
		account.AccountNumber = *req.AccountNumber
	}
	if req.ServiceType != nil {
		account.ServiceType = *req.ServiceType
	}
	if req.Status != nil {
		account.Status = *req.Status
	}
	if req.Notes != nil {
		account.Notes = *req.Notes
	}
	account.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE utility_accounts SET provider = $1, account_number = $2, service_type = $3,
			status = $4, notes = $5, updated_at = $6
		WHERE id = $7`,
		account.Provider, account.AccountNumber, account.ServiceType, account.Status,
		account.Notes, account.UpdatedAt, account.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update utility account: %w", err)
	}

	s.record(ctx, account.EstateID, userID, audit.ActionUpdate, account.ID)
	return account, nil
}

// Delete removes a utility account
func (s *Service) Delete(ctx context.Context, accountID, userID string) error {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if _, err := s.guard.RequireEditor(ctx, account.EstateID, userID, "utilities"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM utility_accounts WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete utility account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, account.EstateID, userID, audit.ActionDelete, accountID)
	return nil
}

func (s *Service) record(ctx context.Context, estateID, actorID, action, accountID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "utility_account",
		ResourceID:   accountID,
	})
}
