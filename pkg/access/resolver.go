package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/legatepro/legate/pkg/observability"
)

// SQLResolver resolves estate access against the database. Every call
// hits the database; results are never cached.
type SQLResolver struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewSQLResolver creates a new resolver. metrics may be nil.
func NewSQLResolver(db *sql.DB, metrics *observability.Metrics) *SQLResolver {
	return &SQLResolver{db: db, metrics: metrics}
}

// Resolve determines the user's role on the estate.
//
// The estate's owner is OWNER unconditionally. Otherwise the stored
// collaborator role applies. A missing estate yields ErrEstateNotFound
// and a missing collaborator record yields ErrNoAccess.
func (r *SQLResolver) Resolve(ctx context.Context, estateID, userID string) (*Access, error) {
	start := time.Now()
	acc, err := r.resolve(ctx, estateID, userID)
	r.record(acc, err, time.Since(start))
	return acc, err
}

func (r *SQLResolver) resolve(ctx context.Context, estateID, userID string) (*Access, error) {
	if estateID == "" || userID == "" {
		return nil, ErrNoAccess
	}

	var ownerID string
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM estates WHERE id = $1`, estateID,
	).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrEstateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up estate: %w", err)
	}

	if ownerID == userID {
		return NewAccess(estateID, userID, RoleOwner), nil
	}

	var role Role
	err = r.db.QueryRowContext(ctx,
		`SELECT role FROM estate_collaborators WHERE estate_id = $1 AND user_id = $2`,
		estateID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return nil, ErrNoAccess
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up collaborator: %w", err)
	}

	if !role.Valid() {
		return nil, fmt.Errorf("unknown stored role %q for estate %s", role, estateID)
	}

	return NewAccess(estateID, userID, role), nil
}

func (r *SQLResolver) record(acc *Access, err error, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}

	outcome := "granted"
	role := ""
	switch {
	case err == ErrEstateNotFound:
		outcome = "estate_not_found"
	case err == ErrNoAccess:
		outcome = "no_access"
	case err != nil:
		outcome = "error"
	default:
		role = string(acc.Role)
	}

	r.metrics.AccessChecksTotal.WithLabelValues(role, outcome).Inc()
	r.metrics.AccessCheckDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
