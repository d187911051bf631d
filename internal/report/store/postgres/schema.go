package postgres

import (
	"context"
	"database/sql"
)

// Schema is the timeline DDL. Applied by EnsureSchema at startup and by the
// integration suite; production deployments can run it through their own
// migration tooling instead.
const Schema = `
CREATE TABLE IF NOT EXISTS subjects (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
	id            UUID PRIMARY KEY,
	subject_id    TEXT NOT NULL REFERENCES subjects (id),
	source_system TEXT NOT NULL,
	reported_at   TIMESTAMPTZ NOT NULL,
	payload_hash  TEXT NOT NULL,
	entity_counts JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS imports_subject_hash_idx ON imports (subject_id, payload_hash);

CREATE TABLE IF NOT EXISTS tradelines (
	id             UUID PRIMARY KEY,
	import_id      UUID NOT NULL REFERENCES imports (id),
	subject_id     TEXT NOT NULL REFERENCES subjects (id),
	source_system  TEXT NOT NULL,
	lender         TEXT NOT NULL,
	account_number TEXT NOT NULL,
	account_type   TEXT NOT NULL DEFAULT '',
	account_status TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	balance        BIGINT NOT NULL,
	credit_limit   BIGINT NOT NULL DEFAULT 0,
	opened_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS tradelines_import_idx ON tradelines (import_id);

CREATE TABLE IF NOT EXISTS searches (
	id            UUID PRIMARY KEY,
	import_id     UUID NOT NULL REFERENCES imports (id),
	subject_id    TEXT NOT NULL REFERENCES subjects (id),
	source_system TEXT NOT NULL,
	search_type   TEXT NOT NULL,
	organisation  TEXT NOT NULL,
	searched_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS searches_subject_time_idx ON searches (subject_id, searched_at);

CREATE TABLE IF NOT EXISTS scores (
	id            UUID PRIMARY KEY,
	import_id     UUID NOT NULL REFERENCES imports (id),
	subject_id    TEXT NOT NULL REFERENCES subjects (id),
	source_system TEXT NOT NULL,
	provider      TEXT NOT NULL,
	value         INTEGER NOT NULL,
	scored_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS public_records (
	id            UUID PRIMARY KEY,
	import_id     UUID NOT NULL REFERENCES imports (id),
	subject_id    TEXT NOT NULL REFERENCES subjects (id),
	source_system TEXT NOT NULL,
	kind          TEXT NOT NULL,
	amount        BIGINT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT '',
	filed_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS addresses (
	id            UUID PRIMARY KEY,
	import_id     UUID NOT NULL REFERENCES imports (id),
	subject_id    TEXT NOT NULL REFERENCES subjects (id),
	source_system TEXT NOT NULL,
	line1         TEXT NOT NULL,
	line2         TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	postcode      TEXT NOT NULL,
	moved_in      TIMESTAMPTZ
);
`

// EnsureSchema applies the timeline DDL. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
