package audit

import (
	"context"
	"time"
)

// Actions recorded in the event feed
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionInvite = "invite"
	ActionRevoke = "revoke"
)

// Event is a single recorded action against an estate
type Event struct {
	ID           string                 `json:"id"`
	EstateID     string                 `json:"estate_id"`
	ActorID      string                 `json:"actor_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Logger records events. Implementations must not fail the caller's
// mutation: recording errors are returned for logging only.
type Logger interface {
	Record(ctx context.Context, event *Event) error
}
