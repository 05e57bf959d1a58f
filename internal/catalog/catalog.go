// Package catalog loads the read-only reference data behind the synonym
// index: canonical concepts with their names and synonyms, and curated
// mappings from site-specific test names.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/clinical-rosetta/internal/model"
)

// Catalog is one snapshot of reference data
type Catalog struct {
	Concepts []model.Concept       `json:"concepts" yaml:"concepts"`
	Mappings []model.MappingRecord `json:"mappings" yaml:"mappings"`
}

// Source loads a catalog snapshot
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// Postgres is the location that selects the database catalog
const Postgres = "postgres"

// FromLocation picks a source for location: "postgres" reads the reference
// tables through db, a directory reads concepts.csv and mappings.csv, and any
// other path is read as a YAML or JSON file.
func FromLocation(location string, db *sql.DB, logger *zap.Logger) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("no catalog location configured")
	}

	if location == Postgres {
		if db == nil {
			return nil, fmt.Errorf("postgres catalog requires a database connection")
		}
		return NewPostgresSource(db), nil
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, model.Unavailable("opening catalog "+location, err)
	}
	if info.IsDir() {
		return NewCSVSource(location, logger), nil
	}
	return NewFileSource(location), nil
}

// normalizeMappings fills the defaults curated records carry when a source
// leaves them out
func normalizeMappings(mappings []model.MappingRecord) []model.MappingRecord {
	for i := range mappings {
		m := &mappings[i]
		m.SourceText = strings.TrimSpace(m.SourceText)
		m.Identifier = model.Identifier(strings.TrimSpace(string(m.Identifier)))
		m.SourceSystem = strings.TrimSpace(m.SourceSystem)
		if m.Confidence == 0 {
			m.Confidence = 1.0
		}
		if m.Provenance == "" {
			m.Provenance = model.ProvenanceCurated
		}
	}
	return mappings
}
