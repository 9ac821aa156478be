package invoices

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/audit"
	"github.com/legatepro/legate/pkg/observability"
	"github.com/legatepro/legate/pkg/validation"
)

// ErrNotFound indicates the invoice does not exist
var ErrNotFound = errors.New("invoice not found")

// Service manages invoices. Totals are recomputed on every write.
type Service struct {
	db      *sql.DB
	guard   *access.Guard
	events  audit.Logger
	metrics *observability.Metrics
}

// NewService creates a new invoice service. events and metrics may be nil.
func NewService(db *sql.DB, guard *access.Guard, events audit.Logger, metrics *observability.Metrics) *Service {
	return &Service{db: db, guard: guard, events: events, metrics: metrics}
}

// Create creates an invoice with derived totals
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Invoice, error) {
	if req.EstateID == "" {
		return nil, validation.NewError(validation.CodeMissingEstate, "Estate is required")
	}
	if err := validateLineItems(req.LineItems); err != nil {
		return nil, err
	}
	if err := validateTaxRate(req.TaxRate); err != nil {
		return nil, err
	}

	issueDate := time.Now()
	if req.IssueDate != "" {
		parsed, err := parseDate(req.IssueDate)
		if err != nil {
			return nil, err
		}
		issueDate = parsed
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := parseDate(req.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &parsed
	}

	acc, err := s.guard.RequireEditor(ctx, req.EstateID, userID, "invoices")
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	lineItems := req.LineItems
	if lineItems == nil {
		lineItems = []LineItem{}
	}

	invoice := &Invoice{
		ID:            uuid.New().String(),
		EstateID:      req.EstateID,
		OwnerID:       acc.UserID,
		Status:        status,
		InvoiceNumber: req.InvoiceNumber,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Currency:      currency,
		LineItems:     lineItems,
		TaxRate:       req.TaxRate,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	s.recompute(invoice)

	if err := s.insert(ctx, invoice); err != nil {
		return nil, err
	}

	s.record(ctx, invoice.EstateID, userID, audit.ActionCreate, invoice.ID)
	return invoice, nil
}

func (s *Service) insert(ctx context.Context, invoice *Invoice) error {
	lineItemsJSON, err := json.Marshal(invoice.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, estate_id, owner_id, status, invoice_number, issue_date,
			due_date, paid_at, currency, line_items, subtotal, tax_rate, tax_amount, total_amount,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		invoice.ID, invoice.EstateID, invoice.OwnerID, invoice.Status, invoice.InvoiceNumber,
		invoice.IssueDate, invoice.DueDate, invoice.PaidAt, invoice.Currency, lineItemsJSON,
		invoice.Subtotal, invoice.TaxRate, invoice.TaxAmount, invoice.TotalAmount,
		invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// Get fetches an invoice the caller can see
func (s *Service) Get(ctx context.Context, invoiceID, userID string) (*Invoice, error) {
	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireMember(ctx, invoice.EstateID, userID); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) getInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	invoice := &Invoice{}
	var lineItemsJSON []byte
	var invoiceNumber sql.NullString
	var dueDate, paidAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, estate_id, owner_id, status, invoice_number, issue_date, due_date, paid_at,
			currency, line_items, subtotal, tax_rate, tax_amount, total_amount, created_at, updated_at
		FROM invoices WHERE id = $1`,
		invoiceID,
	).Scan(&invoice.ID, &invoice.EstateID, &invoice.OwnerID, &invoice.Status, &invoiceNumber,
		&invoice.IssueDate, &dueDate, &paidAt, &invoice.Currency, &lineItemsJSON,
		&invoice.Subtotal, &invoice.TaxRate, &invoice.TaxAmount, &invoice.TotalAmount,
		&invoice.CreatedAt, &invoice.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoiceNumber.Valid {
		invoice.InvoiceNumber = invoiceNumber.String
	}
	if dueDate.Valid {
		invoice.DueDate = &dueDate.Time
	}
	if paidAt.Valid {
		invoice.PaidAt = &paidAt.Time
	}
	if err := json.Unmarshal(lineItemsJSON, &invoice.LineItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
	}
	return invoice, nil
}

// ListByEstate returns an estate's invoices, newest first
func (s *Service) ListByEstate(ctx context.Context, estateID, userID string) ([]*Invoice, error) {
	if _, err := s.guard.RequireMember(ctx, estateID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, estate_id, owner_id, status, invoice_number, issue_date, due_date, paid_at,
			currency, line_items, subtotal, tax_rate, tax_amount, total_amount, created_at, updated_at
		FROM invoices WHERE estate_id = $1
		ORDER BY issue_date DESC`,
		estateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*Invoice{}
	for rows.Next() {
		invoice := &Invoice{}
		var lineItemsJSON []byte
		var invoiceNumber sql.NullString
		var dueDate, paidAt sql.NullTime

		err := rows.Scan(&invoice.ID, &invoice.EstateID, &invoice.OwnerID, &invoice.Status,
			&invoiceNumber, &invoice.IssueDate, &dueDate, &paidAt, &invoice.Currency,
			&lineItemsJSON, &invoice.Subtotal, &invoice.TaxRate, &invoice.TaxAmount,
			&invoice.TotalAmount, &invoice.CreatedAt, &invoice.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}

		if invoiceNumber.Valid {
			invoice.InvoiceNumber = invoiceNumber.String
		}
		if dueDate.Valid {
			invoice.DueDate = &dueDate.Time
		}
		if paidAt.Valid {
			invoice.PaidAt = &paidAt.Time
		}
		if err := json.Unmarshal(lineItemsJSON, &invoice.LineItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// Update applies a partial update and recomputes totals before persisting
func (s *Service) Update(ctx context.Context, invoiceID, userID string, req *UpdateRequest) (*Invoice, error) {
	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.RequireEditor(ctx, invoice.EstateID, userID, "invoices"); err != nil {
		return nil, err
	}

	if req.LineItems != nil {
		if err := validateLineItems(*req.LineItems); err != nil {
			return nil, err
		}
		invoice.LineItems = *req.LineItems
	}
	if req.TaxRate != nil {
		if err := validateTaxRate(*req.TaxRate); err != nil {
			return nil, err
		}
		invoice.TaxRate = *req.TaxRate
	}
	if req.Status != nil {
		invoice.Status = *req.Status
	}
	if req.InvoiceNumber != nil {
		invoice.InvoiceNumber = *req.InvoiceNumber
	}
	if req.IssueDate != nil {
		parsed, err := parseDate(*req.IssueDate)
		if err != nil {
			return nil, err
		}
		invoice.IssueDate = parsed
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			invoice.DueDate = nil
		} else {
			parsed, err := parseDate(*req.DueDate)
			if err != nil {
				return nil, err
			}
			invoice.DueDate = &parsed
		}
	}
	if req.PaidAt != nil {
		if *req.PaidAt == "" {
			invoice.PaidAt = nil
		} else {
			parsed, err := parseDate(*req.PaidAt)
			if err != nil {
				return nil, err
			}
			invoice.PaidAt = &parsed
		}
	}
	if req.Currency != nil {
		invoice.Currency = *req.Currency
	}
	invoice.UpdatedAt = time.Now()

	s.recompute(invoice)

	lineItemsJSON, err := json.Marshal(invoice.LineItems)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal line items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE invoices SET status = $1, invoice_number = $2, issue_date = $3, due_date = $4,
			paid_at = $5, currency = $6, line_items = $7, subtotal = $8, tax_rate = $9,
			tax_amount = $10, total_amount = $11, updated_at = $12
		WHERE id = $13`,
		invoice.Status, invoice.InvoiceNumber, invoice.IssueDate, invoice.DueDate,
		invoice.PaidAt, invoice.Currency, lineItemsJSON, invoice.Subtotal, invoice.TaxRate,
		invoice.TaxAmount, invoice.TotalAmount, invoice.UpdatedAt, invoice.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	s.record(ctx, invoice.EstateID, userID, audit.ActionUpdate, invoice.ID)
	return invoice, nil
}

// Delete removes an invoice after re-resolving access
func (s *Service) Delete(ctx context.Context, invoiceID, userID string) error {
	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	if _, err := s.guard.RequireEditor(ctx, invoice.EstateID, userID, "invoices"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, invoice.EstateID, userID, audit.ActionDelete, invoiceID)
	return nil
}

func (s *Service) recompute(invoice *Invoice) {
	RecomputeTotals(invoice)
	if s.metrics != nil {
		s.metrics.InvoiceRecomputes.Inc()
	}
}

func (s *Service) record(ctx context.Context, estateID, actorID, action, invoiceID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "invoice",
		ResourceID:   invoiceID,
	})
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, validation.NewError(validation.CodeInvalidDate, "Valid date is required")
}
