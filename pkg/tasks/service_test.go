package tasks

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/legatepro/legate/pkg/access"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE estates (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL
		);

		CREATE TABLE estate_collaborators (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			UNIQUE(estate_id, user_id)
		);

		CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			due_date TIMESTAMP,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	_, err = db.Exec(`INSERT INTO estates (id, owner_id, name) VALUES ('e1', 'owner1', 'Estate One')`)
	if err != nil {
		t.Fatalf("Failed to seed estate: %v", err)
	}
	_, err = db.Exec(`INSERT INTO estate_collaborators (id, estate_id, user_id, role) VALUES ('c1', 'e1', 'viewer1', 'VIEWER')`)
	if err != nil {
		t.Fatalf("Failed to seed collaborator: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	guard := access.NewGuard(access.NewSQLResolver(db, nil), nil)
	return NewService(db, guard, nil), db
}

func TestCreateTaskDefaults(t *testing.T) {
	service, _ := setupService(t)

	task, err := service.Create(context.Background(), "owner1", &CreateRequest{
		EstateID: "e1",
		Title:    "Order death certificates",
		DueDate:  "2024-03-01",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != StatusOpen {
		t.Errorf("status = %q, want open default", task.Status)
	}
	if task.DueDate == nil {
		t.Error("dueDate not set")
	}
	if task.CompletedAt != nil {
		t.Error("completedAt set on open task")
	}
}

func TestCompleteTaskStampsCompletedAt(t *testing.T) {
	service, _ := setupService(t)

	task, err := service.Create(context.Background(), "owner1", &CreateRequest{
		EstateID: "e1",
		Title:    "Notify utility providers",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	done := StatusDone
	task, err = service.Update(context.Background(), task.ID, "owner1", &UpdateRequest{Status: &done})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if task.CompletedAt == nil {
		t.Fatal("completedAt not stamped on done")
	}

	open := StatusOpen
	task, err = service.Update(context.Background(), task.ID, "owner1", &UpdateRequest{Status: &open})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if task.CompletedAt != nil {
		t.Error("completedAt not cleared when reopened")
	}
}

func TestViewerCannotMutateTasks(t *testing.T) {
	service, db := setupService(t)

	_, err := service.Create(context.Background(), "viewer1", &CreateRequest{
		EstateID: "e1",
		Title:    "File inventory",
	})
	if err != access.ErrForbidden {
		t.Errorf("viewer create error = %v, want ErrForbidden", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		t.Fatalf("Failed to count tasks: %v", err)
	}
	if count != 0 {
		t.Errorf("task count = %d, want 0 after blocked create", count)
	}
}

func TestCreateTaskBadDate(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.Create(context.Background(), "owner1", &CreateRequest{
		EstateID: "e1",
		Title:    "File inventory",
		DueDate:  "next tuesday",
	})
	if err == nil || err.Error() != "Valid date is required" {
		t.Errorf("error = %v, want date validation failure", err)
	}
}
