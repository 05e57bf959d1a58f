package model

import (
	"strings"
	"time"
)

// Identifier is a stable canonical test code (e.g. a LOINC code such as "1558-6")
type Identifier string

// Provenance records which resolution stage produced a match
type Provenance string

const (
	ProvenanceLearned    Provenance = "learned"
	ProvenanceExact      Provenance = "exact"
	ProvenanceCurated    Provenance = "curated"
	ProvenanceFuzzy      Provenance = "fuzzy"
	ProvenanceUnresolved Provenance = "unresolved"
)

// Rank orders provenances for tie-breaking: lower is stronger
func (p Provenance) Rank() int {
	switch p {
	case ProvenanceLearned:
		return 0
	case ProvenanceExact:
		return 1
	case ProvenanceCurated:
		return 2
	case ProvenanceFuzzy:
		return 3
	default:
		return 4
	}
}

// Concept is an immutable reference entity sourced from an external vocabulary
type Concept struct {
	Identifier Identifier `json:"identifier" yaml:"identifier"`
	Names      []string   `json:"names" yaml:"names"`
	Synonyms   []string   `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// PreferredName returns the first official name, or the identifier when none is set
func (c Concept) PreferredName() string {
	for _, n := range c.Names {
		if strings.TrimSpace(n) != "" {
			return n
		}
	}
	return string(c.Identifier)
}

// DedupedSynonyms returns the synonyms with case-insensitive duplicates removed,
// keeping the first spelling seen
func (c Concept) DedupedSynonyms() []string {
	seen := make(map[string]bool, len(c.Synonyms))
	out := make([]string, 0, len(c.Synonyms))
	for _, s := range c.Synonyms {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// MappingRecord associates a source text with a canonical identifier
type MappingRecord struct {
	SourceText   string     `json:"source_text" yaml:"source_text"`
	Identifier   Identifier `json:"identifier" yaml:"identifier"`
	Confidence   float64    `json:"confidence" yaml:"confidence"`
	Provenance   Provenance `json:"provenance" yaml:"provenance"`
	SourceSystem string     `json:"source_system,omitempty" yaml:"source_system,omitempty"`
}

// LearnedEntry is a confirmed association held by the learning store, keyed by
// normalized source text
type LearnedEntry struct {
	Normalized  string     `json:"normalized"`
	SourceText  string     `json:"source_text"`
	Identifier  Identifier `json:"identifier"`
	Confidence  float64    `json:"confidence"`
	UsageCount  int64      `json:"usage_count"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Stats summarises the data behind a resolution engine
type Stats struct {
	Concepts        int `json:"concepts"`
	CuratedMappings int `json:"curated_mappings"`
	LearnedMappings int `json:"learned_mappings"`
	Synonyms        int `json:"synonyms"`
	Abbreviations   int `json:"abbreviations"`
}
