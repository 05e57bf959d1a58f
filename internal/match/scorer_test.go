package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-rosetta/internal/model"
)

func TestScore(t *testing.T) {
	s := NewScorer(DefaultSettings())

	tests := []struct {
		name          string
		candidates    []Candidate
		wantOrder     []model.Identifier
		wantConf      []float64
		wantAmbiguous bool
	}{
		{
			name: "exact outranks a perfect fuzzy match",
			candidates: []Candidate{
				{Identifier: "B", Provenance: model.ProvenanceFuzzy, RawScore: 1.0},
				{Identifier: "A", Provenance: model.ProvenanceExact, RawScore: 1.0},
			},
			wantOrder: []model.Identifier{"A", "B"},
			wantConf:  []float64{1.0, 0.95},
		},
		{
			name: "close fuzzy scores are penalized together",
			candidates: []Candidate{
				{Identifier: "X", Provenance: model.ProvenanceFuzzy, RawScore: 0.80},
				{Identifier: "Y", Provenance: model.ProvenanceFuzzy, RawScore: 0.81},
			},
			wantOrder:     []model.Identifier{"Y", "X"},
			wantConf:      []float64{0.81*0.95 - 0.1, 0.80*0.95 - 0.1},
			wantAmbiguous: true,
		},
		{
			name: "clear fuzzy winner is not penalized",
			candidates: []Candidate{
				{Identifier: "X", Provenance: model.ProvenanceFuzzy, RawScore: 0.90},
				{Identifier: "Y", Provenance: model.ProvenanceFuzzy, RawScore: 0.70},
			},
			wantOrder: []model.Identifier{"X", "Y"},
			wantConf:  []float64{0.90 * 0.95, 0.70 * 0.95},
		},
		{
			name: "penalty stays with the tied pair",
			candidates: []Candidate{
				{Identifier: "X", Provenance: model.ProvenanceFuzzy, RawScore: 0.81},
				{Identifier: "Y", Provenance: model.ProvenanceFuzzy, RawScore: 0.80},
				{Identifier: "Z", Provenance: model.ProvenanceFuzzy, RawScore: 0.60},
			},
			wantOrder:     []model.Identifier{"X", "Y", "Z"},
			wantConf:      []float64{0.81*0.95 - 0.1, 0.80*0.95 - 0.1, 0.60 * 0.95},
			wantAmbiguous: true,
		},
		{
			name: "untied candidate never overtakes the tied pair",
			candidates: []Candidate{
				{Identifier: "Z", Provenance: model.ProvenanceFuzzy, RawScore: 0.78},
				{Identifier: "X", Provenance: model.ProvenanceFuzzy, RawScore: 0.81},
				{Identifier: "Y", Provenance: model.ProvenanceFuzzy, RawScore: 0.80},
			},
			wantOrder:     []model.Identifier{"X", "Y", "Z"},
			wantConf:      []float64{0.81*0.95 - 0.1, 0.80*0.95 - 0.1, 0.80*0.95 - 0.1},
			wantAmbiguous: true,
		},
		{
			name: "gap equal to the margin is not a tie",
			candidates: []Candidate{
				{Identifier: "X", Provenance: model.ProvenanceFuzzy, RawScore: 0.82},
				{Identifier: "Y", Provenance: model.ProvenanceFuzzy, RawScore: 0.80},
			},
			wantOrder: []model.Identifier{"X", "Y"},
			wantConf:  []float64{0.82 * 0.95, 0.80 * 0.95},
		},
		{
			name: "penalty clamps at zero",
			candidates: []Candidate{
				{Identifier: "X", Provenance: model.ProvenanceFuzzy, RawScore: 0.05},
				{Identifier: "Y", Provenance: model.ProvenanceFuzzy, RawScore: 0.05},
			},
			wantOrder:     []model.Identifier{"X", "Y"},
			wantConf:      []float64{0, 0},
			wantAmbiguous: true,
		},
		{
			name: "equal confidence breaks on provenance then identifier",
			candidates: []Candidate{
				{Identifier: "B", Provenance: model.ProvenanceCurated, RawScore: 0.9},
				{Identifier: "C", Provenance: model.ProvenanceExact, RawScore: 0.9},
				{Identifier: "A", Provenance: model.ProvenanceCurated, RawScore: 0.9},
			},
			wantOrder: []model.Identifier{"C", "A", "B"},
			wantConf:  []float64{0.9, 0.9, 0.9},
		},
		{
			name:      "empty",
			wantOrder: []model.Identifier{},
			wantConf:  []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ambiguous := s.Score(false, tt.candidates)
			require.Len(t, got, len(tt.wantOrder))
			assert.Equal(t, tt.wantAmbiguous, ambiguous)
			for i := range got {
				assert.Equal(t, tt.wantOrder[i], got[i].Identifier)
				assert.InDelta(t, tt.wantConf[i], got[i].Confidence, 1e-9)
			}
		})
	}
}

func TestScoreDoesNotMutateInput(t *testing.T) {
	in := []Candidate{
		{Identifier: "X", Provenance: model.ProvenanceFuzzy, RawScore: 0.5},
		{Identifier: "Y", Provenance: model.ProvenanceFuzzy, RawScore: 0.9},
	}
	NewScorer(DefaultSettings()).Score(false, in)

	assert.Equal(t, model.Identifier("X"), in[0].Identifier)
	assert.Zero(t, in[0].Confidence)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(s *Settings) {}, false},
		{"zero top k", func(s *Settings) { s.TopK = 0 }, true},
		{"zero prefilter", func(s *Settings) { s.MaxPrefilter = 0 }, true},
		{"zero expansions", func(s *Settings) { s.MaxExpansions = 0 }, true},
		{"negative workers", func(s *Settings) { s.BatchWorkers = -1 }, true},
		{"calibration above one", func(s *Settings) { s.FuzzyCalibration = 1.2 }, true},
		{"zero calibration", func(s *Settings) { s.FuzzyCalibration = 0 }, true},
		{"negative penalty", func(s *Settings) { s.AmbiguityPenalty = -0.1 }, true},
		{"zero penalty", func(s *Settings) { s.AmbiguityPenalty = 0 }, false},
		{"min similarity", func(s *Settings) { s.MinSimilarity = 0.5 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
