package estates

import (
	"context"
	"database/sql"
	"errors"
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
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE estates (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			deceased_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE estate_collaborators (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(estate_id, user_id)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	_, err = db.Exec(`INSERT INTO users (id, email, name) VALUES
		('owner1', 'owner@example.com', 'Owner'),
		('helper1', 'helper@example.com', 'Helper')`)
	if err != nil {
		t.Fatalf("Failed to seed users: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	guard := access.NewGuard(access.NewSQLResolver(db, nil), nil)
	return NewService(db, guard, nil), db
}

func createEstate(t *testing.T, service *Service, ownerID string) *Estate {
	t.Helper()
	estate, err := service.Create(context.Background(), ownerID, &CreateRequest{
		Name:         "Estate of Jane Doe",
		DeceasedName: "Jane Doe",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return estate
}

func TestCreateEstate(t *testing.T) {
	service, _ := setupService(t)

	estate := createEstate(t, service, "owner1")
	if estate.OwnerID != "owner1" {
		t.Errorf("ownerId = %q, want owner1", estate.OwnerID)
	}
	if estate.Status != "active" {
		t.Errorf("status = %q, want active", estate.Status)
	}

	_, acc, err := service.Get(context.Background(), estate.ID, "owner1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if acc.Role != access.RoleOwner {
		t.Errorf("role = %q, want OWNER", acc.Role)
	}
}

func TestCreateEstateMissingName(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.Create(context.Background(), "owner1", &CreateRequest{})
	if err == nil || err.Error() != "Estate name is required" {
		t.Errorf("error = %v, want name validation failure", err)
	}
}

func TestCollaboratorLifecycle(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	estate := createEstate(t, service, "owner1")

	// No access before the invite
	if _, _, err := service.Get(ctx, estate.ID, "helper1"); !errors.Is(err, access.ErrNoAccess) {
		t.Errorf("pre-invite error = %v, want ErrNoAccess", err)
	}

	collab, err := service.AddCollaborator(ctx, estate.ID, "owner1", &CollaboratorRequest{
		UserID: "helper1",
		Role:   access.RoleEditor,
	})
	if err != nil {
		t.Fatalf("AddCollaborator failed: %v", err)
	}
	if collab.Role != access.RoleEditor {
		t.Errorf("role = %q, want EDITOR", collab.Role)
	}

	_, acc, err := service.Get(ctx, estate.ID, "helper1")
	if err != nil {
		t.Fatalf("collaborator Get failed: %v", err)
	}
	if !acc.CanEdit {
		t.Error("editor cannot edit")
	}

	// Downgrading re-uses the invite endpoint
	if _, err := service.AddCollaborator(ctx, estate.ID, "owner1", &CollaboratorRequest{
		UserID: "helper1",
		Role:   access.RoleViewer,
	}); err != nil {
		t.Fatalf("role change failed: %v", err)
	}
	_, acc, err = service.Get(ctx, estate.ID, "helper1")
	if err != nil {
		t.Fatalf("Get after downgrade failed: %v", err)
	}
	if acc.CanEdit {
		t.Error("viewer can still edit after downgrade")
	}

	// Revocation takes effect on the very next request
	if err := service.RemoveCollaborator(ctx, estate.ID, "owner1", "helper1"); err != nil {
		t.Fatalf("RemoveCollaborator failed: %v", err)
	}
	if _, _, err := service.Get(ctx, estate.ID, "helper1"); !errors.Is(err, access.ErrNoAccess) {
		t.Errorf("post-revoke error = %v, want ErrNoAccess", err)
	}
}

func TestCollaboratorManagementIsOwnerOnly(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	estate := createEstate(t, service, "owner1")
	if _, err := service.AddCollaborator(ctx, estate.ID, "owner1", &CollaboratorRequest{
		UserID: "helper1",
		Role:   access.RoleEditor,
	}); err != nil {
		t.Fatalf("AddCollaborator failed: %v", err)
	}

	// Editors cannot manage collaborators
	_, err := service.AddCollaborator(ctx, estate.ID, "helper1", &CollaboratorRequest{
		UserID: "someone-else",
		Role:   access.RoleViewer,
	})
	if !errors.Is(err, access.ErrForbidden) {
		t.Errorf("editor invite error = %v, want ErrForbidden", err)
	}
	if err := service.RemoveCollaborator(ctx, estate.ID, "helper1", "helper1"); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("editor revoke error = %v, want ErrForbidden", err)
	}
}

func TestAddCollaboratorRejectsBadInput(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	estate := createEstate(t, service, "owner1")

	// Owner cannot also be a collaborator
	if _, err := service.AddCollaborator(ctx, estate.ID, "owner1", &CollaboratorRequest{
		UserID: "owner1",
		Role:   access.RoleViewer,
	}); err == nil {
		t.Error("owner accepted as collaborator")
	}

	// Only EDITOR and VIEWER can be granted
	if _, err := service.AddCollaborator(ctx, estate.ID, "owner1", &CollaboratorRequest{
		UserID: "helper1",
		Role:   access.RoleOwner,
	}); err == nil {
		t.Error("OWNER role accepted as a grant")
	}
}

func TestListForUser(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	owned := createEstate(t, service, "owner1")
	other, err := service.Create(ctx, "helper1", &CreateRequest{Name: "Estate of John Doe"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.AddCollaborator(ctx, other.ID, "helper1", &CollaboratorRequest{
		UserID: "owner1",
		Role:   access.RoleViewer,
	}); err != nil {
		t.Fatalf("AddCollaborator failed: %v", err)
	}

	estatesList, err := service.ListForUser(ctx, "owner1")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(estatesList) != 2 {
		t.Fatalf("estate count = %d, want owned + shared = 2", len(estatesList))
	}

	seen := map[string]bool{}
	for _, e := range estatesList {
		seen[e.ID] = true
	}
	if !seen[owned.ID] || !seen[other.ID] {
		t.Errorf("missing estates in list: %v", seen)
	}
}

func TestDeleteEstateIsOwnerOnly(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	estate := createEstate(t, service, "owner1")
	if _, err := service.AddCollaborator(ctx, estate.ID, "owner1", &CollaboratorRequest{
		UserID: "helper1",
		Role:   access.RoleEditor,
	}); err != nil {
		t.Fatalf("AddCollaborator failed: %v", err)
	}

	if err := service.Delete(ctx, estate.ID, "helper1"); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("editor delete error = %v, want ErrForbidden", err)
	}
	if err := service.Delete(ctx, estate.ID, "owner1"); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM estates`).Scan(&count); err != nil {
		t.Fatalf("Failed to count estates: %v", err)
	}
	if count != 0 {
		t.Errorf("estate count = %d, want 0", count)
	}
}
