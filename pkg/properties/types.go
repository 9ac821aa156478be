package properties

import "time"

// Property is a real property belonging to an estate
type Property struct {
	ID           string    `json:"id"`
	EstateID     string    `json:"estateId"`
	OwnerID      string    `json:"ownerId"`
	Address      string    `json:"address"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	PostalCode   string    `json:"postalCode,omitempty"`
	PropertyType string    `json:"propertyType,omitempty"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RentSummary is the rent rollup for a property: collected sums paid
// payments, outstanding sums unpaid ones.
type RentSummary struct {
	PropertyID   string  `json:"propertyId"`
	Collected    float64 `json:"collected"`
	Outstanding  float64 `json:"outstanding"`
	PaymentCount int     `json:"paymentCount"`
}

// CreateRequest is the body for creating a property
type CreateRequest struct {
	EstateID     string `json:"estateId"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	PropertyType string `json:"propertyType"`
	Notes        string `json:"notes"`
}

// UpdateRequest is the body for a partial property update
type UpdateRequest struct {
	Address      *string `json:"address"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postalCode"`
	PropertyType *string `json:"propertyType"`
	Status       *string `json:"status"`
	Notes        *string `json:"notes"`
}
