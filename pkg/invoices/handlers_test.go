package invoices

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/auth"
	"github.com/legatepro/legate/pkg/contextkeys"
)

func setupTestDB(t *testing.T) *sql.DB {
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

		CREATE TABLE invoices (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			status TEXT NOT NULL,
			invoice_number TEXT,
			issue_date TIMESTAMP NOT NULL,
			due_date TIMESTAMP,
			paid_at TIMESTAMP,
			currency TEXT NOT NULL,
			line_items TEXT NOT NULL,
			subtotal INTEGER NOT NULL,
			tax_rate REAL NOT NULL,
			tax_amount INTEGER NOT NULL,
			total_amount INTEGER NOT NULL,
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
	return db
}

func withUser(userID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextkeys.WithAuth(r.Context(), &auth.Context{UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setupRouter(t *testing.T, userID string) (*mux.Router, *sql.DB) {
	db := setupTestDB(t)
	guard := access.NewGuard(access.NewSQLResolver(db, nil), nil)
	service := NewService(db, guard, nil, nil)
	handlers := NewHandlers(service)

	inner := mux.NewRouter()
	handlers.RegisterRoutes(inner)

	outer := mux.NewRouter()
	outer.PathPrefix("/").Handler(withUser(userID, inner))
	return outer, db
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateInvoice(t *testing.T) {
	router, _ := setupRouter(t, "owner1")

	rec := doJSON(t, router, "POST", "/api/invoices", map[string]interface{}{
		"estateId":  "e1",
		"issueDate": "2024-02-01",
		"taxRate":   0.05,
		"lineItems": []map[string]interface{}{
			{"type": "TIME", "label": "Hours", "quantity": 2, "rate": 10000},
			{"type": "EXPENSE", "label": "Filing fee", "quantity": 1, "rate": 5000},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Invoice.Subtotal != 25000 {
		t.Errorf("subtotal = %d, want 25000", resp.Invoice.Subtotal)
	}
	if resp.Invoice.TaxAmount != 1250 {
		t.Errorf("taxAmount = %d, want 1250", resp.Invoice.TaxAmount)
	}
	if resp.Invoice.TotalAmount != 26250 {
		t.Errorf("totalAmount = %d, want 26250", resp.Invoice.TotalAmount)
	}
	if resp.Invoice.Status != StatusDraft {
		t.Errorf("status = %q, want draft default", resp.Invoice.Status)
	}
	if resp.Invoice.Currency != "USD" {
		t.Errorf("currency = %q, want USD default", resp.Invoice.Currency)
	}
}

func TestCreateInvoiceTotalsInBodyIgnored(t *testing.T) {
	router, _ := setupRouter(t, "owner1")

	rec := doJSON(t, router, "POST", "/api/invoices", map[string]interface{}{
		"estateId":    "e1",
		"taxRate":     0,
		"subtotal":    999999,
		"taxAmount":   999999,
		"totalAmount": 999999,
		"lineItems": []map[string]interface{}{
			{"type": "TIME", "label": "Hours", "quantity": 1, "rate": 100},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Invoice.Subtotal != 100 || resp.Invoice.TotalAmount != 100 {
		t.Errorf("totals = %d/%d, want derived 100/100", resp.Invoice.Subtotal, resp.Invoice.TotalAmount)
	}
}

func TestCreateInvoiceBadLineItemType(t *testing.T) {
	router, db := setupRouter(t, "owner1")

	rec := doJSON(t, router, "POST", "/api/invoices", map[string]interface{}{
		"estateId": "e1",
		"lineItems": []map[string]interface{}{
			{"type": "TRAVEL", "label": "Mileage", "quantity": 1, "rate": 50},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		t.Fatalf("Failed to count invoices: %v", err)
	}
	if count != 0 {
		t.Errorf("invoice count = %d, want 0 after rejected create", count)
	}
}

func TestCreateInvoiceBadTaxRate(t *testing.T) {
	router, _ := setupRouter(t, "owner1")

	for _, rate := range []float64{-0.1, 1.5} {
		rec := doJSON(t, router, "POST", "/api/invoices", map[string]interface{}{
			"estateId": "e1",
			"taxRate":  rate,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("taxRate %v: status = %d, want 400", rate, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp["error"] != "Tax rate must be between 0 and 1" {
			t.Errorf("taxRate %v: error = %q", rate, resp["error"])
		}
	}
}

func TestUpdateInvoiceRecomputesTotals(t *testing.T) {
	router, _ := setupRouter(t, "owner1")

	rec := doJSON(t, router, "POST", "/api/invoices", map[string]interface{}{
		"estateId": "e1",
		"taxRate":  0.1,
		"lineItems": []map[string]interface{}{
			{"type": "TIME", "label": "Hours", "quantity": 1, "rate": 1000},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	rec = doJSON(t, router, "PATCH", "/api/invoices/"+created.Invoice.ID, map[string]interface{}{
		"lineItems": []map[string]interface{}{
			{"type": "TIME", "label": "Hours", "quantity": 3, "rate": 1000},
			{"type": "ADJUSTMENT", "label": "Discount", "quantity": 1, "rate": -0, "amount": -500},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	var updated struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if updated.Invoice.Subtotal != 2500 {
		t.Errorf("subtotal = %d, want 2500", updated.Invoice.Subtotal)
	}
	if updated.Invoice.TaxAmount != 250 {
		t.Errorf("taxAmount = %d, want 250", updated.Invoice.TaxAmount)
	}
	if updated.Invoice.TotalAmount != 2750 {
		t.Errorf("totalAmount = %d, want 2750", updated.Invoice.TotalAmount)
	}
}

func TestViewerCannotMutateInvoices(t *testing.T) {
	ownerRouter, db := setupRouter(t, "owner1")

	rec := doJSON(t, ownerRouter, "POST", "/api/invoices", map[string]interface{}{
		"estateId": "e1",
		"lineItems": []map[string]interface{}{
			{"type": "TIME", "label": "Hours", "quantity": 1, "rate": 1000},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	guard := access.NewGuard(access.NewSQLResolver(db, nil), nil)
	service := NewService(db, guard, nil, nil)
	inner := mux.NewRouter()
	NewHandlers(service).RegisterRoutes(inner)
	viewerRouter := mux.NewRouter()
	viewerRouter.PathPrefix("/").Handler(withUser("viewer1", inner))

	rec = doJSON(t, viewerRouter, "GET", "/api/invoices?estateId=e1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("viewer list status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, viewerRouter, "POST", "/api/invoices", map[string]interface{}{
		"estateId": "e1",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer create status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, viewerRouter, "PATCH", "/api/invoices/"+created.Invoice.ID, map[string]interface{}{
		"status": "sent",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer update status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, viewerRouter, "DELETE", "/api/invoices/"+created.Invoice.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer delete status = %d, want 403", rec.Code)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		t.Fatalf("Failed to count invoices: %v", err)
	}
	if count != 1 {
		t.Errorf("invoice count = %d, want 1 after blocked mutations", count)
	}
}

func TestStrangerGetsInvoiceNotFound(t *testing.T) {
	router, _ := setupRouter(t, "stranger")

	rec := doJSON(t, router, "GET", "/api/invoices?estateId=e1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("stranger list status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/invoices", map[string]interface{}{
		"estateId": "e1",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("stranger create status = %d, want 404", rec.Code)
	}
}
