package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/audit"
	"github.com/legatepro/legate/pkg/validation"
)

// ErrNotFound indicates the task does not exist
var ErrNotFound = errors.New("task not found")

// Service manages tasks
type Service struct {
	db     *sql.DB
	guard  *access.Guard
	events audit.Logger
}

// NewService creates a new task service. events may be nil.
func NewService(db *sql.DB, guard *access.Guard, events audit.Logger) *Service {
	return &Service{db: db, guard: guard, events: events}
}

// Create creates a task on an estate
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Task, error) {
	if req.EstateID == "" {
		return nil, validation.NewError(validation.CodeMissingEstate, "Estate is required")
	}
	if req.Title == "" {
		return nil, validation.NewError(validation.CodeMissingName, "Title is required")
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := parseDate(req.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &parsed
	}

	acc, err := s.guard.RequireEditor(ctx, req.EstateID, userID, "tasks")
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusOpen
	}

	task := &Task{
		ID:          uuid.New().String(),
		EstateID:    req.EstateID,
		OwnerID:     acc.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		DueDate:     dueDate,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if status == StatusDone {
		now := time.Now()
		task.CompletedAt = &now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, estate_id, owner_id, title, description, status, due_date,
			completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.EstateID, task.OwnerID, task.Title, task.Description, task.Status,
		task.DueDate, task.CompletedAt, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.record(ctx, task.EstateID, userID, audit.ActionCreate, task.ID)
	return task, nil
}

// Get fetches a task the caller can see
func (s *Service) Get(ctx context.Context, taskID, userID string) (*Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireMember(ctx, task.EstateID, userID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) getTask(ctx context.Context, taskID string) (*Task, error) {
	task := &Task{}
	var dueDate, completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, estate_id, owner_id, title, description, status, due_date, completed_at,
			created_at, updated_at
		FROM tasks WHERE id = $1`,
		taskID,
	).Scan(&task.ID, &task.EstateID, &task.OwnerID, &task.Title, &task.Description,
		&task.Status, &dueDate, &completedAt, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

// ListByEstate returns an estate's tasks, soonest due first
func (s *Service) ListByEstate(ctx context.Context, estateID, userID string) ([]*Task, error) {
	if _, err := s.guard.RequireMember(ctx, estateID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, estate_id, owner_id, title, description, status, due_date, completed_at,
			created_at, updated_at
		FROM tasks WHERE estate_id = $1
		ORDER BY due_date ASC NULLS LAST, created_at DESC`,
		estateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		task := &Task{}
		var dueDate, completedAt sql.NullTime
		err := rows.Scan(&task.ID, &task.EstateID, &task.OwnerID, &task.Title, &task.Description,
			&task.Status, &dueDate, &completedAt, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if dueDate.Valid {
			task.DueDate = &dueDate.Time
		}
		if completedAt.Valid {
			task.CompletedAt = &completedAt.Time
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Update applies a partial update. Moving to done stamps completedAt;
// moving away clears it.
func (s *Service) Update(ctx context.Context, taskID, userID string, req *UpdateRequest) (*Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.guard.RequireEditor(ctx, task.EstateID, userID, "tasks"); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, validation.NewError(validation.CodeMissingName, "Title is required")
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil && *req.Status != task.Status {
		task.Status = *req.Status
		if task.Status == StatusDone {
			now := time.Now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			parsed, err := parseDate(*req.DueDate)
			if err != nil {
				return nil, err
			}
			task.DueDate = &parsed
		}
	}
	task.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title = $1, description = $2, status = $3, due_date = $4,
			completed_at = $5, updated_at = $6
		WHERE id = $7`,
		task.Title, task.Description, task.Status, task.DueDate, task.CompletedAt,
		task.UpdatedAt, task.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.record(ctx, task.EstateID, userID, audit.ActionUpdate, task.ID)
	return task, nil
}

// Delete removes a task
func (s *Service) Delete(ctx context.Context, taskID, userID string) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	if _, err := s.guard.RequireEditor(ctx, task.EstateID, userID, "tasks"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.record(ctx, task.EstateID, userID, audit.ActionDelete, taskID)
	return nil
}

func (s *Service) record(ctx context.Context, estateID, actorID, action, taskID string) {
	if s.events == nil {
		return
	}
	_ = s.events.Record(ctx, &audit.Event{
		EstateID:     estateID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "task",
		ResourceID:   taskID,
	})
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, validation.NewError(validation.CodeInvalidDate, "Valid date is required")
}
