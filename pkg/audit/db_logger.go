package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/legatepro/legate/pkg/observability"
)

// DBLogger persists events to the estate_events table
type DBLogger struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewDBLogger creates a database-backed event logger. metrics may be nil.
func NewDBLogger(db *sql.DB, metrics *observability.Metrics) *DBLogger {
	return &DBLogger{db: db, metrics: metrics}
}

// Record inserts the event
func (l *DBLogger) Record(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	detail := event.Detail
	if detail == nil {
		detail = map[string]interface{}{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to marshal event detail: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO estate_events (id, estate_id, actor_id, action, resource_type, resource_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.EstateID, event.ActorID, event.Action,
		event.ResourceType, event.ResourceID, detailJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	if l.metrics != nil {
		l.metrics.AuditEventsTotal.WithLabelValues(event.Action).Inc()
	}
	return nil
}

// ListByEstate returns the most recent events for an estate, newest first
func (l *DBLogger) ListByEstate(ctx context.Context, estateID string, limit int) ([]*Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, estate_id, actor_id, action, resource_type, resource_id, detail, created_at
		FROM estate_events
		WHERE estate_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		estateID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		var detailJSON []byte
		err := rows.Scan(
			&event.ID, &event.EstateID, &event.ActorID, &event.Action,
			&event.ResourceType, &event.ResourceID, &detailJSON, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &event.Detail); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event detail: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
