package learning

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clinical-rosetta/internal/model"
)

// PostgresBackend stores learned entries in the learned_mapping table
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend wraps an open database. The table is created by db.Migrate.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) LoadAll(ctx context.Context) ([]model.LearnedEntry, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT normalized, source_text, identifier, confidence, usage_count, created_at, last_updated
		FROM learned_mapping
		ORDER BY normalized
	`)
	if err != nil {
		return nil, fmt.Errorf("querying learned mappings: %w", err)
	}
	defer rows.Close()

	var entries []model.LearnedEntry
	for rows.Next() {
		var e model.LearnedEntry
		var id string
		if err := rows.Scan(&e.Normalized, &e.SourceText, &id, &e.Confidence,
			&e.UsageCount, &e.CreatedAt, &e.LastUpdated); err != nil {
			return nil, fmt.Errorf("scanning learned mapping row: %w", err)
		}
		e.Identifier = model.Identifier(id)
		e.CreatedAt = e.CreatedAt.UTC()
		e.LastUpdated = e.LastUpdated.UTC()
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Upsert inserts or refreshes an entry in one statement so concurrent writers
// from several processes never lose a usage increment
func (b *PostgresBackend) Upsert(ctx context.Context, entry model.LearnedEntry) (model.LearnedEntry, error) {
	var out model.LearnedEntry
	var id string
	err := b.db.QueryRowContext(ctx, `
		INSERT INTO learned_mapping (normalized, source_text, identifier, confidence, usage_count, created_at, last_updated)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT (normalized) DO UPDATE SET
			source_text = EXCLUDED.source_text,
			identifier = EXCLUDED.identifier,
			confidence = EXCLUDED.confidence,
			usage_count = learned_mapping.usage_count + 1,
			last_updated = EXCLUDED.last_updated
		RETURNING normalized, source_text, identifier, confidence, usage_count, created_at, last_updated
	`, entry.Normalized, entry.SourceText, string(entry.Identifier), entry.Confidence, entry.LastUpdated).Scan(
		&out.Normalized, &out.SourceText, &id, &out.Confidence, &out.UsageCount, &out.CreatedAt, &out.LastUpdated)
	if err != nil {
		return model.LearnedEntry{}, fmt.Errorf("upserting learned mapping %q: %w", entry.Normalized, err)
	}

	out.Identifier = model.Identifier(id)
	out.CreatedAt = out.CreatedAt.UTC()
	out.LastUpdated = out.LastUpdated.UTC()
	return out, nil
}

// Close is a no-op; the caller owns the database handle
func (b *PostgresBackend) Close() error {
	return nil
}
