package sqlite3

import (
	"context"
	"fmt"
)

// schema holds the tables the renewal core owns. The billing collaborator
// manages its own tables; only what the core reads and writes is created
// here, idempotently on startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		duration_months INTEGER NOT NULL,
		screens INTEGER NOT NULL DEFAULT 1,
		price REAL NOT NULL DEFAULT 0,
		is_sigma BOOLEAN NOT NULL DEFAULT 0,
		is_live21 BOOLEAN NOT NULL DEFAULT 0,
		is_koffice BOOLEAN NOT NULL DEFAULT 0,
		is_uniplay BOOLEAN NOT NULL DEFAULT 0,
		is_unitv BOOLEAN NOT NULL DEFAULT 0,
		is_rush BOOLEAN NOT NULL DEFAULT 0,
		is_club BOOLEAN NOT NULL DEFAULT 0,
		is_painelfoda BOOLEAN NOT NULL DEFAULT 0,
		panel_domain TEXT NOT NULL DEFAULT '',
		panel_package_code TEXT NOT NULL DEFAULT '',
		koffice_reseller_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		whatsapp TEXT NOT NULL DEFAULT '',
		plan_id INTEGER NOT NULL,
		external_customer_id TEXT NOT NULL DEFAULT '',
		due_date TIMESTAMP NOT NULL,
		last_renewed_at TIMESTAMP,
		last_renewal_note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS panel_credentials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		panel TEXT NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, panel, domain)
	)`,
	`CREATE TABLE IF NOT EXISTS panel_packages (
		panel TEXT NOT NULL,
		domain TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		duration_months INTEGER NOT NULL,
		screens INTEGER NOT NULL DEFAULT 1,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY(panel, domain, code)
	)`,
	`CREATE TABLE IF NOT EXISTS renewal_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_key TEXT NOT NULL UNIQUE,
		client_id INTEGER NOT NULL,
		plan_id INTEGER NOT NULL,
		payment_id INTEGER NOT NULL DEFAULT 0,
		amount REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_renewal_jobs_status ON renewal_jobs(status, created_at)`,
}

// EnsureSchema creates the core's tables when they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
