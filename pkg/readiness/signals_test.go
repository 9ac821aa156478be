package readiness

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupCollector(t *testing.T) (*Collector, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE documents (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE rent_payments (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			is_paid BOOLEAN NOT NULL DEFAULT 1
		);

		CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			due_date TIMESTAMP
		);

		CREATE TABLE utility_accounts (
			id TEXT PRIMARY KEY,
			estate_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active'
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return NewCollector(db), db
}

func TestCollectEmptyEstate(t *testing.T) {
	collector, _ := setupCollector(t)

	signals, err := collector.Collect(context.Background(), "e1")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	// A bare estate is missing both key documents
	if len(signals) != 2 {
		t.Fatalf("signal count = %d, want 2: %+v", len(signals), signals)
	}
	if signals[0].Key != SignalNoDeathCertificate || signals[1].Key != SignalNoWill {
		t.Errorf("unexpected signal order: %+v", signals)
	}
}

func TestCollectFullEstate(t *testing.T) {
	collector, db := setupCollector(t)

	mustExec(t, db, `INSERT INTO documents (id, estate_id, category) VALUES
		('d1', 'e1', 'will'),
		('d2', 'e1', 'death_certificate')`)
	mustExec(t, db, `INSERT INTO rent_payments (id, estate_id, is_paid) VALUES
		('r1', 'e1', 0),
		('r2', 'e1', 0),
		('r3', 'e1', 1)`)
	mustExec(t, db, `INSERT INTO tasks (id, estate_id, status, due_date) VALUES
		('t1', 'e1', 'open', '2020-01-01 00:00:00'),
		('t2', 'e1', 'done', '2020-01-01 00:00:00'),
		('t3', 'e1', 'open', NULL)`)
	mustExec(t, db, `INSERT INTO utility_accounts (id, estate_id, status) VALUES
		('u1', 'e1', 'active'),
		('u2', 'e1', 'closed')`)

	signals, err := collector.Collect(context.Background(), "e1")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	byKey := map[string]Signal{}
	for _, s := range signals {
		byKey[s.Key] = s
	}

	if _, ok := byKey[SignalNoWill]; ok {
		t.Error("no_will reported despite a will on file")
	}
	if s, ok := byKey[SignalUnpaidRent]; !ok || s.Count != 2 {
		t.Errorf("unpaid_rent = %+v, want count 2", s)
	}
	if s, ok := byKey[SignalOverdueTasks]; !ok || s.Count != 1 {
		t.Errorf("overdue_tasks = %+v, want count 1", s)
	}
	if s, ok := byKey[SignalActiveUtilities]; !ok || s.Count != 1 {
		t.Errorf("active_utilities = %+v, want count 1", s)
	}
}

func TestCollectScopedToEstate(t *testing.T) {
	collector, db := setupCollector(t)

	mustExec(t, db, `INSERT INTO rent_payments (id, estate_id, is_paid) VALUES ('r1', 'other', 0)`)

	signals, err := collector.Collect(context.Background(), "e1")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, s := range signals {
		if s.Key == SignalUnpaidRent {
			t.Error("unpaid rent from another estate leaked into signals")
		}
	}
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to exec %q: %v", query, err)
	}
}
