package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are additive and idempotent; both sqlite and postgres accept
// this dialect subset.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS catalog_entries (
		id INTEGER PRIMARY KEY,
		canonical_name TEXT NOT NULL,
		reference_price TEXT NOT NULL DEFAULT '0',
		provider_ref TEXT NOT NULL DEFAULT '',
		stock INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_aliases (
		id INTEGER PRIMARY KEY,
		alias_text TEXT NOT NULL,
		entry_id INTEGER NOT NULL REFERENCES catalog_entries(id),
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_aliases_entry ON catalog_aliases(entry_id)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		folio TEXT NOT NULL DEFAULT '',
		folio_fiscal TEXT NOT NULL DEFAULT '',
		issuer_rfc TEXT NOT NULL DEFAULT '',
		issue_date TIMESTAMP,
		declared_total TEXT,
		special_tax INTEGER NOT NULL DEFAULT 0,
		requires_review INTEGER NOT NULL DEFAULT 0,
		review_reasons TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash)`,
	`CREATE TABLE IF NOT EXISTS document_lines (
		id INTEGER PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id),
		entry_id INTEGER,
		description TEXT NOT NULL,
		quantity TEXT,
		unit_price TEXT,
		line_total TEXT,
		requires_review INTEGER NOT NULL DEFAULT 0,
		findings TEXT NOT NULL DEFAULT '[]',
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lines_document ON document_lines(document_id)`,
	`CREATE TABLE IF NOT EXISTS document_failures (
		id INTEGER PRIMARY KEY,
		document_id TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL,
		detail TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS unresolved_items (
		id INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		quantity TEXT,
		unit_price TEXT,
		source_document_id TEXT NOT NULL,
		raw_snapshot TEXT NOT NULL DEFAULT '',
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_entry_id INTEGER,
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_unresolved_pending ON unresolved_items(resolved)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id INTEGER PRIMARY KEY,
		entry_id INTEGER NOT NULL REFERENCES catalog_entries(id),
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
}

// Migrate applies the schema. Safe to call on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
