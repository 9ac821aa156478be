package notes

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/legatepro/legate/pkg/access"
)

func setupService(t *testing.T) *Service {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE estates (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL
		);

		CREATE TABLE estate_collaborators (
			estate_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL
		);

		CREATE TABLE notes (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		INSERT INTO estates (id, owner_id) VALUES ('e1', 'owner1');
		INSERT INTO estate_collaborators (estate_id, user_id, role) VALUES
			('e1', 'editor1', 'EDITOR'),
			('e1', 'viewer1', 'VIEWER');
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	guard := access.NewGuard(access.NewSQLResolver(db, nil), nil)
	return NewService(db, guard, nil)
}

func TestCreateNoteRecordsAuthor(t *testing.T) {
	service := setupService(t)

	note, err := service.Create(context.Background(), "editor1", &CreateRequest{
		EstateID: "e1",
		Body:     "Spoke with the utility company about final billing.",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if note.AuthorID != "editor1" {
		t.Errorf("authorId = %q, want the caller", note.AuthorID)
	}
}

func TestCreateNoteEmptyBody(t *testing.T) {
	service := setupService(t)

	_, err := service.Create(context.Background(), "owner1", &CreateRequest{EstateID: "e1"})
	if err == nil || err.Error() != "Note body is required" {
		t.Errorf("error = %v, want body validation failure", err)
	}
}

func TestUpdateNoteRejectsEmptyBody(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	note, err := service.Create(ctx, "owner1", &CreateRequest{EstateID: "e1", Body: "original"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	empty := ""
	if _, err := service.Update(ctx, note.ID, "owner1", &UpdateRequest{Body: &empty}); err == nil {
		t.Error("empty body accepted on update")
	}

	fetched, err := service.Get(ctx, note.ID, "viewer1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Body != "original" {
		t.Errorf("body = %q, want original untouched", fetched.Body)
	}
}

func TestViewerCannotMutateNotes(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	note, err := service.Create(ctx, "owner1", &CreateRequest{EstateID: "e1", Body: "keep"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := service.Create(ctx, "viewer1", &CreateRequest{
		EstateID: "e1",
		Body:     "not allowed",
	}); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("viewer create error = %v, want ErrForbidden", err)
	}
	if err := service.Delete(ctx, note.ID, "viewer1"); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("viewer delete error = %v, want ErrForbidden", err)
	}

	notesList, err := service.ListByEstate(ctx, "e1", "viewer1")
	if err != nil {
		t.Fatalf("viewer list failed: %v", err)
	}
	if len(notesList) != 1 {
		t.Errorf("note count = %d, want 1", len(notesList))
	}
}
