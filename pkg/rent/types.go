package rent

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/legatepro/legate/pkg/validation"
)

// Payment is a recorded rent payment
type Payment struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	EstateID    string    `json:"estateId"`
	PropertyID  *string   `json:"propertyId,omitempty"`
	TenantName  string    `json:"tenantName"`
	PaymentDate time.Time `json:"paymentDate"`
	Amount      float64   `json:"amount"`
	Notes       string    `json:"notes,omitempty"`
	IsPaid      bool      `json:"isPaid"`
	PeriodMonth *int      `json:"periodMonth,omitempty"`
	PeriodYear  *int      `json:"periodYear,omitempty"`
	Method      string    `json:"method,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateRequest is the body for POST /api/rent. Amount is kept raw so a
// non-numeric value yields the fixed validation message instead of a
// JSON decode error.
type CreateRequest struct {
	EstateID    string          `json:"estateId"`
	PropertyID  *string         `json:"propertyId"`
	TenantName  string          `json:"tenantName"`
	PaymentDate string          `json:"paymentDate"`
	Amount      json.RawMessage `json:"amount"`
	Notes       string          `json:"notes"`
	IsPaid      *bool           `json:"isPaid"`
	PeriodMonth *int            `json:"periodMonth"`
	PeriodYear  *int            `json:"periodYear"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
}

// UpdateRequest is the body for PATCH /api/rent/{id}
type UpdateRequest struct {
	PropertyID  *string         `json:"propertyId"`
	TenantName  *string         `json:"tenantName"`
	PaymentDate *string         `json:"paymentDate"`
	Amount      json.RawMessage `json:"amount"`
	Notes       *string         `json:"notes"`
	IsPaid      *bool           `json:"isPaid"`
	PeriodMonth *int            `json:"periodMonth"`
	PeriodYear  *int            `json:"periodYear"`
	Method      *string         `json:"method"`
	Reference   *string         `json:"reference"`
}

// ListFilter narrows the payment listing
type ListFilter struct {
	EstateID   string
	PropertyID string
	Paid       *bool
	From       *time.Time
	To         *time.Time
	Search     string
}

// parseAmount accepts a JSON number or numeric string and requires a
// positive value.
func parseAmount(raw json.RawMessage) (float64, error) {
	invalid := validation.NewError(validation.CodeInvalidAmount, "Valid amount is required")

	if len(raw) == 0 {
		return 0, invalid
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, invalid
		}
		parsed, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return 0, invalid
		}
		num = parsed
	}

	if num <= 0 {
		return 0, invalid
	}
	return num, nil
}

// parseDate accepts ISO dates with or without a time component
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, validation.NewError(validation.CodeInvalidDate, "Valid payment date is required")
}

// validatePeriodMonth rejects months outside 1-12
func validatePeriodMonth(month *int) error {
	if month != nil && (*month < 1 || *month > 12) {
		return validation.NewError(validation.CodeInvalidPeriod, "Period month must be between 1 and 12")
	}
	return nil
}
