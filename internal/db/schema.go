package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the reference tables read by the catalog source and the
// learned mapping table written by confirmations
const schema = `
CREATE TABLE IF NOT EXISTS loinc_concept (
	loinc_code       TEXT PRIMARY KEY,
	long_common_name TEXT NOT NULL,
	short_name       TEXT NOT NULL DEFAULT '',
	component        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS concept_synonym (
	loinc_code TEXT NOT NULL REFERENCES loinc_concept(loinc_code),
	synonym    TEXT NOT NULL,
	PRIMARY KEY (loinc_code, synonym)
);

CREATE TABLE IF NOT EXISTS source_system (
	source_system_id SERIAL PRIMARY KEY,
	name             TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS lis_mapping (
	mapping_id       SERIAL PRIMARY KEY,
	source_text      TEXT NOT NULL,
	loinc_code       TEXT NOT NULL REFERENCES loinc_concept(loinc_code),
	source_system_id INTEGER REFERENCES source_system(source_system_id),
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 1.0
);

CREATE TABLE IF NOT EXISTS learned_mapping (
	normalized   TEXT PRIMARY KEY,
	source_text  TEXT NOT NULL,
	identifier   TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	usage_count  BIGINT NOT NULL DEFAULT 1,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates any missing tables
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
