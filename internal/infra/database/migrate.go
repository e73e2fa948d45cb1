package database

import (
	"context"
	"database/sql"
)

const schema = `
	CREATE TABLE IF NOT EXISTS leads (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT,
		company TEXT,
		title TEXT,
		linkedin_url TEXT,

		linkedin_posts JSONB,
		enriched_at TIMESTAMPTZ,
		enrichment_attempts INTEGER NOT NULL DEFAULT 0,

		status TEXT NOT NULL DEFAULT 'new',
		current_step INTEGER NOT NULL DEFAULT 0,

		thread_id TEXT,
		last_message_id TEXT,

		imported_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_sent_at TIMESTAMPTZ,
		next_send_at TIMESTAMPTZ,
		replied_at TIMESTAMPTZ,

		first_subject TEXT,
		first_body TEXT,

		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sent_emails (
		id BIGSERIAL PRIMARY KEY,
		lead_id UUID NOT NULL REFERENCES leads(id),
		step INTEGER NOT NULL,
		subject TEXT,
		body TEXT,
		message_id TEXT,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
	CREATE INDEX IF NOT EXISTS idx_leads_next_send ON leads(next_send_at);
	CREATE INDEX IF NOT EXISTS idx_sent_emails_sent_at ON sent_emails(sent_at);
`

// Migrate cria o schema. Idempotente: seguro rodar em todo boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
