package rent

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

// ErrNotFound indicates the payment does not exist
var ErrNotFound = errors.New("payment not found")

// Service manages rent payments. Every mutation resolves access before
// touching the store.
type Service struct {
	db     *sql.DB
	guard  *access.Guard
	events audit.Logger
}

// NewService creates a new rent payment service
func NewService(db *sql.DB, guard *access.Guard, events audit.Logger) *Service {
	return &Service{db: db, guard: guard, events: events}
}

// Create records a new rent payment. isPaid defaults to true.
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Payment, error) {
	if req.EstateID == "" {
		return nil, validation.NewError(validation.CodeMissingEstate, "Estate is required")
	}
	if req.TenantName == "" {
		return nil, validation.NewError(validation.CodeMissingTenant, "Tenant name is required")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if err := validatePeriodMonth(req.PeriodMonth); err != nil {
		return nil, err
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		paymentDate, err = parseDate(req.PaymentDate)
		if err != nil {
			return nil, err
		}
	}

	acc, err := s.guard.RequireEditor(ctx, req.EstateID, userID, "rent")
	if err != nil {
		return nil, err
	}

	isPaid := true
	if req.IsPaid != nil {
		isPaid = *req.IsPaid
	}

	payment := &Payment{
		ID:          uuid.New().String(),
		OwnerID:     acc.UserID,
		EstateID:    req.EstateID,
		PropertyID:  req.PropertyID,
		TenantName:  req.TenantName,
		PaymentDate: paymentDate,
		Amount:      amount,
		Notes:       req.Notes,
		IsPaid:      isPaid,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
		Method:      req.Method,
		Reference:   req.Reference,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rent_payments (id, owner_id, estate_id, property_id, tenant_name, payment_date,
			amount, notes, is_paid, period_month, period_year, method, reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		payment.ID, payment.OwnerID, payment.EstateID, payment.PropertyID, payment.TenantName,
		payment.PaymentDate, payment.Amount, payment.Notes, payment.IsPaid,
		payment.PeriodMonth, payment.PeriodYear, payment.Method, payment.Reference,
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.record(ctx, payment.EstateID, userID, audit.ActionCreate, payment.ID)
	return payment, nil
}

// Get fetches a payment the caller can see
func (s *Service) Get(ctx context.Context, paymentID, userID string) (*Payment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireMember(ctx, payment.EstateID, userID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) getPayment(ctx context.Context, paymentID string) (*Payment, error) {
	payment := &Payment{}
	var propertyID sql.NullString
	var periodMonth, periodYear sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, estate_id, property_id, tenant_name, payment_date,
			amount, notes, is_paid, period_month, period_year, method, reference, created_at, updated_at
		FROM rent_payments WHERE id = $1`,
		paymentID,
	).Scan(&payment.ID, &payment.OwnerID, &payment.EstateID, &propertyID, &payment.TenantName,
		&payment.PaymentDate, &payment.Amount, &payment.Notes, &payment.IsPaid,
		&periodMonth, &periodYear, &payment.Method, &payment.Reference,
		&payment.CreatedAt, &payment.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if propertyID.Valid {
		payment.PropertyID = &propertyID.String
	}
	if periodMonth.Valid {
		m := int(periodMonth.Int64)
		payment.PeriodMonth = &m
	}
	if periodYear.Valid {
		y := int(periodYear.Int64)
		payment.PeriodYear = &y
	}
	return payment, nil
}

// List returns payments visible to the caller, narrowed by the filter.
// Visibility is ownership or collaboration on the payment's estate.
func (s *Service) List(ctx context.Context, userID string, filter *ListFilter) ([]*Payment, error) {
	if filter != nil && filter.EstateID != "" {
		if _, err := s.guard.RequireMember(ctx, filter.EstateID, userID); err != nil {
			return nil, err
		}
	}

	query := `
		SELECT p.id, p.owner_id, p.estate_id, p.property_id, p.tenant_name, p.payment_date,
			p.amount, p.notes, p.is_paid, p.period_month, p.period_year, p.method, p.reference,
			p.created_at, p.updated_at
		FROM rent_payments p
		JOIN estates e ON e.id = p.estate_id
		LEFT JOIN estate_collaborators c ON c.estate_id = p.estate_id AND c.user_id = $1
		WHERE (e.owner_id = $2 OR c.user_id IS NOT NULL)`

	args := []interface{}{userID, userID}
	argCount := 3

	if filter != nil {
		if filter.EstateID != "" {
			query += fmt.Sprintf(" AND p.estate_id = $%d", argCount)
			args = append(args, filter.EstateID)
			argCount++
		}
		if filter.PropertyID != "" {
			query += fmt.Sprintf(" AND p.property_id = $%d", argCount)
			args = append(args, filter.PropertyID)
			argCount++
		}
		if filter.Paid != nil {
			query += fmt.Sprintf(" AND p.is_paid = $%d", argCount)
			args = append(args, *filter.Paid)
			argCount++
		}
		if filter.From != nil {
			query += fmt.Sprintf(" AND p.payment_date >= $%d", argCount)
			args = append(args, *filter.From)
			argCount++
		}
		if filter.To != nil {
			query += fmt.Sprintf(" AND p.payment_date <= $%d", argCount)
			args = append(args, *filter.To)
			argCount++
		}
		if filter.Search != "" {
			query += fmt.Sprintf(" AND (p.tenant_name ILIKE $%d OR p.notes ILIKE $%d)", argCount, argCount+1)
			pattern := "%" + filter.Search + "%"
			args = append(args, pattern, pattern)
			argCount += 2
		}
	}

	query += " ORDER BY p.payment_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*Payment{}
	for rows.Next() {
		payment := &Payment{}
		var propertyID sql.NullString
		var periodMonth, periodYear sql.NullInt64

		err := rows.Scan(&payment.ID, &payment.OwnerID, &payment.EstateID, &propertyID,
			&payment.TenantName, &payment.PaymentDate, &payment.Amount, &payment.Notes,
			&payment.IsPaid, &periodMonth, &periodYear, &payment.Method, &payment.Reference,
			&payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		if propertyID.Valid {
			payment.PropertyID = &propertyID.String
		}
		if periodMonth.Valid {
			m := int(periodMonth.Int64)
			payment.PeriodMonth = &m
		}
		if periodYear.Valid {
			y := int(periodYear.Int64)
			payment.PeriodYear = &y
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// Update applies a partial update after re-resolving access
func (s *Service) Update(ctx context.Context, paymentID, userID string, req *UpdateRequest) (*Payment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.RequireEditor(ctx, payment.EstateID, userID, "rent"); err != nil {
		return nil, err
	}

	if req.TenantName != nil {
		if *req.TenantName == "" {
			return nil, validation.NewError(validation.CodeMissingTenant, "Tenant name is required")
		}
		payment.TenantName = *req.TenantName
	}
	if len(req.Amount) > 0 {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		payment.Amount = amount
	}
	if req.PaymentDate != nil {
		paymentDate, err := parseDate(*req.PaymentDate)
		if err != nil {
			return nil, err
		}
		payment.PaymentDate = paymentDate
	}
	if err := validatePeriodMonth(req.PeriodMonth); err != nil {
		return nil, err
	}
	if req.PropertyID != nil {
		payment.PropertyID = req.PropertyID
	}
	if req.Notes != nil {
		payment.Notes = *req.Notes
	}
	if req.IsPaid != nil {
		payment.IsPaid = *req.IsPaid
	}
	if req.PeriodMonth != nil {
		payment.PeriodMonth = req.PeriodMonth
	}
	if req.PeriodYear != nil {
		payment.PeriodYear = req.PeriodYear
	}
	if req.Method != nil {
		payment.Method = *req.Method
	}
	if req.Reference != nil {
		payment.Reference = *req.Reference
	}
	payment.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE rent_payments SET property_id = $1, tenant_name = $2, payment_date = $3,
			amount = $4, notes = $5, is_paid = $6, period_month = $7, period_year = $8,
			method = $9, reference = $10, updated_at = $11
		WHERE id = $12`,
		payment.PropertyID, payment.TenantName, payment.PaymentDate, payment.Amount,
		payment.Notes, payment.IsPaid, payment.PeriodMonth, payment.PeriodYear,
		payment.Method, payment.Reference, payment.UpdatedAt, payment.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	s.record(ctx, payment.EstateID, userID, audit.ActionUpdate, payment.ID)
	return payment, nil
}

// Delete removes a payment after re-resolving access
func (s *Service) Delete(ctx context.Context, paymentID, userID string) error {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	if _, err := s.guard.RequireEditor(ctx, payment.EstateID, userID, "rent"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM rent_payments WHERE id = $1`, paymentID)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, payment.EstateID, userID, audit.ActionDelete, paymentID)
	return nil
}

func (s *Service) record(ctx context.Context, estateID, actorID, action, paymentID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "rent_payment",
		ResourceID:   paymentID,
	})
}
