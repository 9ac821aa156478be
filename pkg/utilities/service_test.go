package utilities

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

		CREATE TABLE utility_accounts (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			account_number TEXT NOT NULL DEFAULT '',
			service_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		INSERT INTO estates (id, owner_id) VALUES ('e1', 'owner1');
		INSERT INTO estate_collaborators (estate_id, user_id, role) VALUES ('e1', 'viewer1', 'VIEWER');
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	guard := access.NewGuard(access.NewSQLResolver(db, nil), nil)
	return NewService(db, guard, nil)
}

func TestCreateAccountDefaults(t *testing.T) {
	service := setupService(t)

	account, err := service.Create(context.Background(), "owner1", &CreateRequest{
		EstateID:    "e1",
		Provider:    "City Power & Light",
		ServiceType: "electricity",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if account.Status != StatusActive {
		t.Errorf("status = %q, want active", account.Status)
	}
}

func TestCreateAccountMissingProvider(t *testing.T) {
	service := setupService(t)

	_, err := service.Create(context.Background(), "owner1", &CreateRequest{EstateID: "e1"})
	if err == nil || err.Error() != "Provider is required" {
		t.Errorf("error = %v, want provider validation failure", err)
	}
}

func TestTransferAccount(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	account, err := service.Create(ctx, "owner1", &CreateRequest{
		EstateID: "e1",
		Provider: "Gasworks",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	transferred := StatusTransferred
	updated, err := service.Update(ctx, account.ID, "owner1", &UpdateRequest{Status: &transferred})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != StatusTransferred {
		t.Errorf("status = %q, want transferred", updated.Status)
	}

	fetched, err := service.Get(ctx, account.ID, "viewer1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != StatusTransferred {
		t.Errorf("persisted status = %q, want transferred", fetched.Status)
	}
}

func TestViewerCannotMutateAccounts(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	account, err := service.Create(ctx, "owner1", &CreateRequest{
		EstateID: "e1",
		Provider: "Water District",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := service.Create(ctx, "viewer1", &CreateRequest{
		EstateID: "e1",
		Provider: "Internet Co",
	}); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("viewer create error = %v, want ErrForbidden", err)
	}
	if err := service.Delete(ctx, account.ID, "viewer1"); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("viewer delete error = %v, want ErrForbidden", err)
	}

	accounts, err := service.ListByEstate(ctx, "e1", "viewer1")
	if err != nil {
		t.Fatalf("viewer list failed: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("account count = %d, want 1", len(accounts))
	}
}
