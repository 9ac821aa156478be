package invoices

import (
	"time"

	"github.com/legatepro/legate/pkg/validation"
)

// LineItemType classifies a line item
type LineItemType string

const (
	LineItemTime       LineItemType = "TIME"
	LineItemExpense    LineItemType = "EXPENSE"
	LineItemAdjustment LineItemType = "ADJUSTMENT"
)

// Valid reports whether the type is one of the known values
func (t LineItemType) Valid() bool {
	switch t {
	case LineItemTime, LineItemExpense, LineItemAdjustment:
		return true
	}
	return false
}

// LineItem is a single invoice line. Amount is in integer minor units;
// when absent on input it is derived from quantity * rate.
type LineItem struct {
	Type     LineItemType `json:"type"`
	Label    string       `json:"label"`
	Quantity float64      `json:"quantity"`
	Rate     float64      `json:"rate"`
	Amount   *float64     `json:"amount,omitempty"`
}

// Invoice statuses
const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
	StatusVoid  = "void"
)

// Invoice is an estate invoice. Subtotal, TaxAmount and TotalAmount are
// derived fields in integer minor units.
type Invoice struct {
	ID            string     `json:"id"`
	EstateID      string     `json:"estateId"`
	OwnerID       string     `json:"ownerId"`
	Status        string     `json:"status"`
	InvoiceNumber string     `json:"invoiceNumber,omitempty"`
	IssueDate     time.Time  `json:"issueDate"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	Currency      string     `json:"currency"`
	LineItems     []LineItem `json:"lineItems"`
	Subtotal      int64      `json:"subtotal"`
	TaxRate       float64    `json:"taxRate"`
	TaxAmount     int64      `json:"taxAmount"`
	TotalAmount   int64      `json:"totalAmount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CreateRequest is the body for creating an invoice. Totals in the body
// are ignored: they are always recomputed.
type CreateRequest struct {
	EstateID      string     `json:"estateId"`
	Status        string     `json:"status"`
	InvoiceNumber string     `json:"invoiceNumber"`
	IssueDate     string     `json:"issueDate"`
	DueDate       string     `json:"dueDate"`
	Currency      string     `json:"currency"`
	LineItems     []LineItem `json:"lineItems"`
	TaxRate       float64    `json:"taxRate"`
}

// UpdateRequest is the body for a partial invoice update
type UpdateRequest struct {
	Status        *string     `json:"status"`
	InvoiceNumber *string     `json:"invoiceNumber"`
	IssueDate     *string     `json:"issueDate"`
	DueDate       *string     `json:"dueDate"`
	PaidAt        *string     `json:"paidAt"`
	Currency      *string     `json:"currency"`
	LineItems     *[]LineItem `json:"lineItems"`
	TaxRate       *float64    `json:"taxRate"`
}

func validateLineItems(items []LineItem) error {
	for _, item := range items {
		if !item.Type.Valid() {
			return validation.NewError(validation.CodeInvalidType, "Line item type must be TIME, EXPENSE or ADJUSTMENT")
		}
		if item.Label == "" {
			return validation.NewError(validation.CodeMissingLabel, "Line item label is required")
		}
		if item.Quantity < 0 || item.Rate < 0 {
			return validation.NewError(validation.CodeInvalidAmount, "Valid amount is required")
		}
	}
	return nil
}

func validateTaxRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return validation.NewError(validation.CodeInvalidTaxRate, "Tax rate must be between 0 and 1")
	}
	return nil
}
