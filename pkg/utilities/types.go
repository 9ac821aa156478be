package utilities

import "time"

// Account statuses
const (
	StatusActive      = "active"
	StatusTransferred = "transferred"
	StatusClosed      = "closed"
)

// Account is a utility account held by the deceased
type Account struct {
	ID            string    `json:"id"`
	EstateID      string    `json:"estateId"`
	OwnerID       string    `json:"ownerId"`
	Provider      string    `json:"provider"`
	AccountNumber string    `json:"accountNumber,omitempty"`
	ServiceType   string    `json:"serviceType,omitempty"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateRequest is the body for creating a utility account
type CreateRequest struct {
	EstateID      string `json:"estateId"`
	Provider      string `json:"provider"`
	AccountNumber string `json:"accountNumber"`
	ServiceType   string `json:"serviceType"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

// UpdateRequest is the body for a partial utility account update
type UpdateRequest struct {
	Provider      *string `json:"provider"`
	AccountNumber *string `json:"accountNumber"`
	ServiceType   *string `json:"serviceType"`
	Status        *string `json:"status"`
	Notes         *string `json:"notes"`
}
