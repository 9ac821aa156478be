package access

import (
	"context"

	"github.com/legatepro/legate/pkg/observability"
)

// Guard wraps the resolver with the checks every mutation must pass
// before touching the store. A denial returns ErrForbidden and never
// reaches the store.
type Guard struct {
	resolver Resolver
	metrics  *observability.Metrics
}

// NewGuard creates a guard over a resolver. metrics may be nil.
func NewGuard(resolver Resolver, metrics *observability.Metrics) *Guard {
	return &Guard{resolver: resolver, metrics: metrics}
}

// RequireMember resolves access for read operations. Any role passes.
func (g *Guard) RequireMember(ctx context.Context, estateID, userID string) (*Access, error) {
	return g.resolver.Resolve(ctx, estateID, userID)
}

// RequireEditor resolves access and rejects viewers. resource labels the
// denial metric (e.g. "rent", "properties").
func (g *Guard) RequireEditor(ctx context.Context, estateID, userID, resource string) (*Access, error) {
	acc, err := g.resolver.Resolve(ctx, estateID, userID)
	if err != nil {
		return nil, err
	}
	if !acc.CanEdit {
		g.deny(resource)
		return nil, ErrForbidden
	}
	return acc, nil
}

// RequireOwner resolves access and rejects everyone but the owner. Used
// for collaborator management and sensitive document content.
func (g *Guard) RequireOwner(ctx context.Context, estateID, userID, resource string) (*Access, error) {
	acc, err := g.resolver.Resolve(ctx, estateID, userID)
	if err != nil {
		return nil, err
	}
	if !RoleIsOwner(acc.Role) {
		g.deny(resource)
		return nil, ErrForbidden
	}
	return acc, nil
}

func (g *Guard) deny(resource string) {
	if g.metrics != nil {
		g.metrics.GuardDenialsTotal.WithLabelValues(resource).Inc()
	}
}
