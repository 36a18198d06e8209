package database

import "database/sql"

// Schema holds the three billing relations. usage_events is append-only:
// nothing updates or deletes rows in normal operation, and the two
// composite indexes cover the month-window aggregation paths.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	plan TEXT NOT NULL,
	monthly_quota INTEGER NOT NULL CHECK (monthly_quota >= 0),
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS api_keys (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	key_prefix TEXT NOT NULL,
	key_hash TEXT NOT NULL UNIQUE,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	revoked_at INTEGER
);

CREATE TABLE IF NOT EXISTS usage_events (
	id TEXT PRIMARY KEY,
	api_key_id TEXT NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	request_mode TEXT NOT NULL,
	success INTEGER NOT NULL,
	status_code INTEGER NOT NULL,
	pdf_bytes INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_events_account_created
	ON usage_events(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_usage_events_api_key_created
	ON usage_events(api_key_id, created_at);
`

func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
