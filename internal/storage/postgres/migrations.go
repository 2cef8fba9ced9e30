package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the schema statements in the order they must run. The
// statements are idempotent so Apply is safe to call on every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		profession TEXT NOT NULL,
		balance NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		type TEXT NOT NULL CHECK (type IN ('client', 'contractor')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id BIGSERIAL PRIMARY KEY,
		terms TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('new', 'in_progress', 'terminated')),
		client_id BIGINT NOT NULL REFERENCES profiles (id),
		contractor_id BIGINT NOT NULL REFERENCES profiles (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id BIGSERIAL PRIMARY KEY,
		contract_id BIGINT NOT NULL REFERENCES contracts (id),
		description TEXT NOT NULL,
		price NUMERIC(14, 2) NOT NULL CHECK (price > 0),
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		payment_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts (client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_contractor ON contracts (contractor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_contract_unpaid ON jobs (contract_id) WHERE NOT paid`,
}

// Apply runs the schema migrations against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
