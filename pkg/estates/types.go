package estates

import (
	"time"

	"github.com/legatepro/legate/pkg/access"
)

// Estate is the root record everything else hangs off
type Estate struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	DeceasedName string    `json:"deceasedName,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Collaborator is a non-owner user granted a role on an estate
type Collaborator struct {
	ID        string      `json:"id"`
	EstateID  string      `json:"estateId"`
	UserID    string      `json:"userId"`
	Email     string      `json:"email,omitempty"`
	Role      access.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CreateRequest is the body for creating an estate
type CreateRequest struct {
	Name         string `json:"name"`
	DeceasedName string `json:"deceasedName"`
}

// UpdateRequest is the body for a partial estate update
type UpdateRequest struct {
	Name         *string `json:"name"`
	DeceasedName *string `json:"deceasedName"`
	Status       *string `json:"status"`
}

// CollaboratorRequest is the body for adding or updating a collaborator
type CollaboratorRequest struct {
	UserID string      `json:"userId"`
	Role   access.Role `json:"role"`
}
