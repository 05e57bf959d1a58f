package catalog

import (
	"context"
	"database/sql"

	"github.com/clinical-rosetta/internal/model"
)

// PostgresSource reads the catalog from the loinc_concept, concept_synonym,
// lis_mapping and source_system tables
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a database catalog source
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Load reads every concept, synonym and curated mapping
func (s *PostgresSource) Load(ctx context.Context) (*Catalog, error) {
	concepts, err := s.loadConcepts(ctx)
	if err != nil {
		return nil, model.Unavailable("loading concepts", err)
	}
	mappings, err := s.loadMappings(ctx)
	if err != nil {
		return nil, model.Unavailable("loading curated mappings", err)
	}
	return &Catalog{Concepts: concepts, Mappings: normalizeMappings(mappings)}, nil
}

func (s *PostgresSource) loadConcepts(ctx context.Context) ([]model.Concept, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT loinc_code, long_common_name, short_name
		FROM loinc_concept
		ORDER BY loinc_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []model.Concept
	position := make(map[model.Identifier]int)
	for rows.Next() {
		var code, longName, shortName string
		if err := rows.Scan(&code, &longName, &shortName); err != nil {
			return nil, err
		}
		c := model.Concept{Identifier: model.Identifier(code), Names: []string{longName}}
		if shortName != "" && shortName != longName {
			c.Names = append(c.Names, shortName)
		}
		position[c.Identifier] = len(concepts)
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	synRows, err := s.db.QueryContext(ctx, `
		SELECT loinc_code, synonym
		FROM concept_synonym
		ORDER BY loinc_code, synonym
	`)
	if err != nil {
		return nil, err
	}
	defer synRows.Close()

	for synRows.Next() {
		var code, synonym string
		if err := synRows.Scan(&code, &synonym); err != nil {
			return nil, err
		}
		if i, ok := position[model.Identifier(code)]; ok {
			concepts[i].Synonyms = append(concepts[i].Synonyms, synonym)
		}
	}
	return concepts, synRows.Err()
}

func (s *PostgresSource) loadMappings(ctx context.Context) ([]model.MappingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.source_text, m.loinc_code, m.confidence, COALESCE(ss.name, '')
		FROM lis_mapping m
		LEFT JOIN source_system ss ON ss.source_system_id = m.source_system_id
		ORDER BY m.mapping_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []model.MappingRecord
	for rows.Next() {
		var m model.MappingRecord
		if err := rows.Scan(&m.SourceText, &m.Identifier, &m.Confidence, &m.SourceSystem); err != nil {
			return nil, err
		}
		m.Provenance = model.ProvenanceCurated
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}
