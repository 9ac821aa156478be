package access

import (
	"context"
	"errors"
)

// Role represents a caller's role on an estate
type Role string

const (
	RoleOwner  Role = "OWNER"  // Full control, including collaborators and sensitive documents
	RoleEditor Role = "EDITOR" // Can mutate estate-scoped resources
	RoleViewer Role = "VIEWER" // Read-only access
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// RoleCanEdit reports whether the role may mutate estate-scoped resources
func RoleCanEdit(r Role) bool {
	return r != RoleViewer
}

// RoleCanViewSensitive reports whether the role may view sensitive
// material under the general policy. Documents apply the stricter
// RoleIsOwner check instead.
func RoleCanViewSensitive(r Role) bool {
	return r != RoleViewer
}

// RoleIsOwner reports whether the role is the estate owner
func RoleIsOwner(r Role) bool {
	return r == RoleOwner
}

// Access is the result of resolving a (estate, user) pair
type Access struct {
	EstateID         string `json:"estateId"`
	UserID           string `json:"userId"`
	Role             Role   `json:"role"`
	CanEdit          bool   `json:"canEdit"`
	CanViewSensitive bool   `json:"canViewSensitive"`
}

// NewAccess derives the capability booleans from a role
func NewAccess(estateID, userID string, role Role) *Access {
	return &Access{
		EstateID:         estateID,
		UserID:           userID,
		Role:             role,
		CanEdit:          RoleCanEdit(role),
		CanViewSensitive: RoleCanViewSensitive(role),
	}
}

var (
	// ErrEstateNotFound indicates the estate does not exist
	ErrEstateNotFound = errors.New("estate not found")
	// ErrNoAccess indicates the user is neither owner nor collaborator.
	// Absence of a collaborator record means no access, not a default role.
	ErrNoAccess = errors.New("no access to estate")
	// ErrForbidden indicates the user's role does not permit the operation
	ErrForbidden = errors.New("forbidden")
)

// Resolver determines a user's access to an estate
type Resolver interface {
	Resolve(ctx context.Context, estateID, userID string) (*Access, error)
}
