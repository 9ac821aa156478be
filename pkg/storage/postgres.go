package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// OpenPostgres connects to PostgreSQL and configures the connection pool
func OpenPostgres(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if it does not exist. Statements are
// idempotent so this is safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		sso_subject TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT UNIQUE NOT NULL,
		token_prefix TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_token_hash ON sessions(token_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
	`CREATE TABLE IF NOT EXISTS estates (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		deceased_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_estates_owner ON estates(owner_id)`,
	`CREATE TABLE IF NOT EXISTS estate_collaborators (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (estate_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		address TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		property_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_estate ON properties(estate_id)`,
	`CREATE TABLE IF NOT EXISTS rent_payments (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		property_id TEXT REFERENCES properties(id) ON DELETE SET NULL,
		tenant_name TEXT NOT NULL,
		payment_date TIMESTAMPTZ NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		is_paid BOOLEAN NOT NULL DEFAULT TRUE,
		period_month INTEGER,
		period_year INTEGER,
		method TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rent_payments_estate ON rent_payments(estate_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rent_payments_property ON rent_payments(property_id)`,
	`CREATE TABLE IF NOT EXISTS utility_accounts (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		account_number TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_utility_accounts_estate ON utility_accounts(estate_id)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		sensitive BOOLEAN NOT NULL DEFAULT FALSE,
		object_key TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		size_bytes BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_estate ON documents(estate_id)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		due_date TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_estate ON tasks(estate_id)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		invoice_number TEXT NOT NULL DEFAULT '',
		issue_date TIMESTAMPTZ NOT NULL,
		due_date TIMESTAMPTZ,
		paid_at TIMESTAMPTZ,
		currency TEXT NOT NULL DEFAULT 'USD',
		line_items JSONB NOT NULL DEFAULT '[]',
		subtotal BIGINT NOT NULL DEFAULT 0,
		tax_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax_amount BIGINT NOT NULL DEFAULT 0,
		total_amount BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_estate ON invoices(estate_id)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL REFERENCES estates(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_estate ON notes(estate_id)`,
	`CREATE TABLE IF NOT EXISTS estate_events (
		id TEXT PRIMARY KEY,
		estate_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL DEFAULT '',
		detail JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_estate_events_estate ON estate_events(estate_id, created_at DESC)`,
}
