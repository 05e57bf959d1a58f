package match

import (
	"fmt"

	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/model"
)

// Reasons a Result carries no identifier
const (
	ReasonNoInput        = "no_input"
	ReasonNoCandidates   = "no_candidates"
	ReasonBelowThreshold = "below_threshold"
)

// Candidate is a potential canonical identifier for a query
type Candidate struct {
	Identifier   model.Identifier `json:"identifier"`
	Name         string           `json:"name,omitempty"`
	Provenance   model.Provenance `json:"provenance"`
	RawScore     float64          `json:"raw_score"`
	Confidence   float64          `json:"confidence"`
	MatchedText  string           `json:"matched_text,omitempty"`
	SourceSystem string           `json:"source_system,omitempty"`
}

// Result is the outcome of translating one text. An empty Identifier with
// provenance "unresolved" is a normal outcome, not an error.
type Result struct {
	SourceText string           `json:"source_text"`
	Normalized string           `json:"normalized"`
	Identifier model.Identifier `json:"identifier"`
	Name       string           `json:"name,omitempty"`
	Confidence float64          `json:"confidence"`
	Provenance model.Provenance `json:"provenance"`
	Candidates []Candidate      `json:"candidates"` // sorted hi→lo, best first
	Ambiguous  bool             `json:"ambiguous"`
	Reason     string           `json:"reason,omitempty"`
}

// Resolved reports whether the result carries an identifier
func (r Result) Resolved() bool {
	return r.Identifier != ""
}

// RunnerUps returns the candidates after the best one
func (r Result) RunnerUps() []Candidate {
	if len(r.Candidates) < 2 {
		return nil
	}
	return r.Candidates[1:]
}

// Settings holds the engine tunables
type Settings struct {
	TopK             int     // fuzzy candidate cap
	CuratedScore     float64 // raw score for exact hits on an expansion
	FuzzyCalibration float64 // fuzzy similarity multiplier, < 1
	TieMargin        float64 // top-two fuzzy similarity gap treated as a tie
	AmbiguityPenalty float64 // subtracted from fuzzy confidences on a tie
	MinTokenOverlap  float64 // Jaccard prefilter threshold
	MinSimilarity    float64 // floor on fuzzy similarity
	MaxPrefilter     int     // entries surviving the prefilter per search
	MaxExpansions    int     // abbreviation fan-out cap, identity excluded
	BatchWorkers     int     // 0 uses GOMAXPROCS
}

// DefaultSettings returns the default tunables
func DefaultSettings() Settings {
	return Settings{
		TopK:             5,
		CuratedScore:     0.9,
		FuzzyCalibration: 0.95,
		TieMargin:        0.02,
		AmbiguityPenalty: 0.1,
		MinTokenOverlap:  0.3,
		MinSimilarity:    0.0,
		MaxPrefilter:     2000,
		MaxExpansions:    8,
		BatchWorkers:     0,
	}
}

// IndexOptions returns the prefilter bounds an index must be built with to
// serve an engine using these settings
func (s Settings) IndexOptions() index.Options {
	opts := index.DefaultOptions()
	opts.MinTokenOverlap = s.MinTokenOverlap
	opts.MaxPrefilter = s.MaxPrefilter
	return opts
}

// Validate rejects settings outside their meaningful ranges
func (s Settings) Validate() error {
	if s.TopK <= 0 {
		return fmt.Errorf("top k must be positive, got %d", s.TopK)
	}
	if s.MaxPrefilter <= 0 {
		return fmt.Errorf("max prefilter must be positive, got %d", s.MaxPrefilter)
	}
	if s.MaxExpansions <= 0 {
		return fmt.Errorf("max expansions must be positive, got %d", s.MaxExpansions)
	}
	if s.BatchWorkers < 0 {
		return fmt.Errorf("batch workers must not be negative, got %d", s.BatchWorkers)
	}

	unit := []struct {
		name  string
		value float64
	}{
		{"curated score", s.CuratedScore},
		{"fuzzy calibration", s.FuzzyCalibration},
		{"tie margin", s.TieMargin},
		{"ambiguity penalty", s.AmbiguityPenalty},
		{"min token overlap", s.MinTokenOverlap},
		{"min similarity", s.MinSimilarity},
	}
	for _, u := range unit {
		if u.value < 0 || u.value > 1 {
			return fmt.Errorf("%s must be within [0,1], got %g", u.name, u.value)
		}
	}
	if s.CuratedScore == 0 || s.FuzzyCalibration == 0 {
		return fmt.Errorf("curated score and fuzzy calibration must be positive")
	}
	return nil
}
