package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/clinical-rosetta/internal/debug"
	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/learning"
	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/normalize"
	"github.com/clinical-rosetta/internal/symspell"
)

func testConcepts() []model.Concept {
	return []model.Concept{
		{
			Identifier: "1558-6",
			Names:      []string{"Fasting glucose [Mass/volume] in Serum or Plasma"},
			Synonyms:   []string{"glucose fasting", "fasting glucose"},
		},
		{
			Identifier: "2345-7",
			Names:      []string{"Glucose [Mass/volume] in Serum or Plasma"},
			Synonyms:   []string{"glucose", "glucose serum"},
		},
		{
			Identifier: "4548-4",
			Names:      []string{"Hemoglobin A1c/Hemoglobin.total in Blood"},
			Synonyms:   []string{"hemoglobin a1c"},
		},
		{
			Identifier: "718-7",
			Names:      []string{"Hemoglobin [Mass/volume] in Blood"},
			Synonyms:   []string{"hemoglobin"},
		},
		{
			Identifier: "1742-6",
			Names:      []string{"Alanine aminotransferase [Enzymatic activity/volume] in Serum or Plasma"},
			Synonyms:   []string{"alanine aminotransferase"},
		},
		{
			Identifier: "2777-1",
			Names:      []string{"Phosphate [Mass/volume] in Serum or Plasma"},
			Synonyms:   []string{"phosphorus"},
		},
		{
			Identifier: "6768-6",
			Names:      []string{"Alkaline phosphatase [Enzymatic activity/volume] in Serum or Plasma"},
			Synonyms:   []string{"alkaline phosphatase", "phosphatase"},
		},
		{
			Identifier: "10839-9",
			Names:      []string{"Troponin I.cardiac [Mass/volume] in Serum or Plasma"},
			Synonyms:   []string{"troponin i"},
		},
		{
			Identifier: "42757-5",
			Names:      []string{"Troponin I.cardiac [Mass/volume] in Blood"},
			Synonyms:   []string{"troponin i"},
		},
	}
}

func testMappings() []model.MappingRecord {
	return []model.MappingRecord{
		{SourceText: "GLUF", Identifier: "1558-6", Confidence: 1, Provenance: model.ProvenanceCurated, SourceSystem: "Epic"},
	}
}

func testDictionary() *normalize.Dictionary {
	d := normalize.NewDictionary()
	d.Add("glu", "glucose")
	d.Add("fst", "fasting")
	d.Add("hgb", "hemoglobin")
	d.Add("alt", "alanine aminotransferase")
	d.Add("phos", "phosphorus", "phosphatase")
	d.Add("alk phos", "alkaline phosphatase")
	d.Add("hgba1c", "hemoglobin")
	d.AddStripSuffix("level")
	return d
}

type engineOption func(*EngineConfig)

func newTestEngine(t *testing.T, opts ...engineOption) *Engine {
	t.Helper()

	idx, err := index.Build(testConcepts(), testMappings(), index.DefaultOptions())
	require.NoError(t, err)

	store, err := learning.NewStore(context.Background(), learning.NewMemoryBackend(), nil)
	require.NoError(t, err)

	cfg := EngineConfig{
		Index:      idx,
		Dictionary: normalize.NewHolder(testDictionary()),
		Learned:    store,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestTranslate(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name           string
		input          string
		wantID         model.Identifier
		wantProvenance model.Provenance
		wantConfidence float64
		wantCandidates int
	}{
		{
			name:           "exact synonym",
			input:          "Glucose",
			wantID:         "2345-7",
			wantProvenance: model.ProvenanceExact,
			wantConfidence: 1.0,
			wantCandidates: 1,
		},
		{
			name:           "exact curated LIS mapping",
			input:          "GLUF",
			wantID:         "1558-6",
			wantProvenance: model.ProvenanceExact,
			wantConfidence: 1.0,
			wantCandidates: 1,
		},
		{
			name:           "expansion hit",
			input:          "Glu Fst",
			wantID:         "1558-6",
			wantProvenance: model.ProvenanceCurated,
			wantConfidence: 0.9,
			wantCandidates: 1,
		},
		{
			name:           "multi word abbreviation",
			input:          "ALK PHOS",
			wantID:         "6768-6",
			wantProvenance: model.ProvenanceCurated,
			wantConfidence: 0.9,
			wantCandidates: 1,
		},
		{
			name:           "ambiguous abbreviation surfaces both expansions",
			input:          "phos",
			wantID:         "2777-1",
			wantProvenance: model.ProvenanceCurated,
			wantConfidence: 0.9,
			wantCandidates: 2,
		},
		{
			name:           "noise suffix stripped",
			input:          "Glucose Level",
			wantID:         "2345-7",
			wantProvenance: model.ProvenanceCurated,
			wantConfidence: 0.9,
			wantCandidates: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Translate(tt.input, 0)
			assert.Equal(t, tt.wantID, r.Identifier)
			assert.Equal(t, tt.wantProvenance, r.Provenance)
			assert.InDelta(t, tt.wantConfidence, r.Confidence, 1e-9)
			assert.Len(t, r.Candidates, tt.wantCandidates)
			assert.True(t, r.Resolved())
			assert.Empty(t, r.Reason)
		})
	}
}

func TestTranslateMetadata(t *testing.T) {
	e := newTestEngine(t)

	r := e.Translate("  GLUF ", 0)
	assert.Equal(t, "  GLUF ", r.SourceText)
	assert.Equal(t, "gluf", r.Normalized)
	assert.Equal(t, "Fasting glucose [Mass/volume] in Serum or Plasma", r.Name)
	require.Len(t, r.Candidates, 1)
	assert.Equal(t, "Epic", r.Candidates[0].SourceSystem)
	assert.Equal(t, "gluf", r.Candidates[0].MatchedText)
	assert.Nil(t, r.RunnerUps())
}

func TestTranslateNoInput(t *testing.T) {
	e := newTestEngine(t)

	for _, in := range []string{"", "   ", "\t\n", "?!"} {
		r := e.Translate(in, 0)
		assert.False(t, r.Resolved(), in)
		assert.Equal(t, model.ProvenanceUnresolved, r.Provenance)
		assert.Equal(t, 0.0, r.Confidence)
		assert.Equal(t, ReasonNoInput, r.Reason)
		assert.NotNil(t, r.Candidates)
		assert.Empty(t, r.Candidates)
	}
}

func TestTranslateThreshold(t *testing.T) {
	e := newTestEngine(t)

	r := e.Translate("xyz-nonexistent-test", 0.7)
	assert.Equal(t, model.Identifier(""), r.Identifier)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, model.ProvenanceUnresolved, r.Provenance)
	assert.Equal(t, ReasonNoCandidates, r.Reason)

	fuzzy := e.Translate("glucose rndm", 0)
	require.True(t, fuzzy.Resolved())
	assert.Equal(t, model.ProvenanceFuzzy, fuzzy.Provenance)
	assert.LessOrEqual(t, fuzzy.Confidence, 0.95)

	strict := e.Translate("glucose rndm", 0.99)
	assert.False(t, strict.Resolved())
	assert.Equal(t, ReasonBelowThreshold, strict.Reason)
	assert.Empty(t, strict.Candidates)
}

func TestTranslateLearningPrecedence(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	before := e.Translate("HgbA1C", 0)
	assert.Equal(t, model.Identifier("718-7"), before.Identifier)
	assert.Equal(t, model.ProvenanceCurated, before.Provenance)
	assert.InDelta(t, 0.9, before.Confidence, 1e-9)

	_, err := e.Confirm(ctx, "HgbA1C", "4548-4")
	require.NoError(t, err)

	after := e.Translate("HgbA1C", 0)
	assert.Equal(t, model.Identifier("4548-4"), after.Identifier)
	assert.Equal(t, model.ProvenanceLearned, after.Provenance)
	assert.Equal(t, 1.0, after.Confidence)
	assert.Equal(t, "Hemoglobin A1c/Hemoglobin.total in Blood", after.Name)

	// learning beats an exact synonym too
	_, err = e.Confirm(ctx, "glucose", "1558-6")
	require.NoError(t, err)
	assert.Equal(t, model.Identifier("1558-6"), e.Translate("GLUCOSE", 0).Identifier)
}

func TestTranslateSkipsLearnedEntryWithoutConcept(t *testing.T) {
	backend := learning.NewMemoryBackend(model.LearnedEntry{
		Normalized: "glucose",
		SourceText: "glucose",
		Identifier: "0000-0",
		Confidence: 1.0,
		UsageCount: 1,
	})
	store, err := learning.NewStore(context.Background(), backend, nil)
	require.NoError(t, err)

	e := newTestEngine(t, func(c *EngineConfig) { c.Learned = store })

	r := e.Translate("glucose", 0)
	assert.Equal(t, model.Identifier("2345-7"), r.Identifier)
	assert.Equal(t, model.ProvenanceExact, r.Provenance)
}

func TestTranslateExactBeatsFuzzy(t *testing.T) {
	e := newTestEngine(t)

	// "hemoglobin" is also a close fuzzy match for "hemoglobin a1c"
	r := e.Translate("Hemoglobin A1c", 0)
	assert.Equal(t, model.Identifier("4548-4"), r.Identifier)
	assert.Equal(t, model.ProvenanceExact, r.Provenance)
	assert.Equal(t, 1.0, r.Confidence)
	for _, c := range r.RunnerUps() {
		assert.Less(t, c.Confidence, r.Confidence)
	}
}

func TestTranslateAmbiguousFuzzy(t *testing.T) {
	e := newTestEngine(t)

	r := e.Translate("troponin l", 0)
	require.Len(t, r.Candidates, 2)
	assert.True(t, r.Ambiguous)
	assert.Equal(t, model.ProvenanceFuzzy, r.Provenance)

	want := 0.9*0.95 - 0.1
	assert.InDelta(t, want, r.Candidates[0].Confidence, 1e-9)
	assert.InDelta(t, want, r.Candidates[1].Confidence, 1e-9)
	assert.Equal(t, model.Identifier("10839-9"), r.Candidates[0].Identifier)
	assert.Equal(t, model.Identifier("42757-5"), r.Candidates[1].Identifier)
}

func TestTranslateMonotonicConfidence(t *testing.T) {
	e := newTestEngine(t)

	inputs := []string{
		"phos", "troponin l", "glucose rndm", "glucose serum fasting",
		"hemoglobin total", "alanine", "Glu Fst", "fasting glucose plasma",
	}
	for _, in := range inputs {
		r := e.Translate(in, 0)
		for i := 1; i < len(r.Candidates); i++ {
			assert.LessOrEqual(t, r.Candidates[i].Confidence, r.Candidates[i-1].Confidence, in)
		}
		for _, c := range r.Candidates {
			assert.GreaterOrEqual(t, c.Confidence, 0.0)
			assert.LessOrEqual(t, c.Confidence, 1.0)
		}
	}
}

func TestTranslateWithSpellingCorrection(t *testing.T) {
	idx, err := index.Build(testConcepts(), testMappings(), index.DefaultOptions())
	require.NoError(t, err)

	cfg := symspell.DefaultConfig()
	corrector := symspell.NewCorrector(symspell.BuildFromPhrases(idx.Phrases(), cfg), cfg,
		testDictionary().Shorthands()...)

	e := newTestEngine(t, func(c *EngineConfig) {
		c.Index = idx
		c.Corrector = corrector
	})

	r := e.Translate("glucse fastng", 0)
	assert.Equal(t, model.Identifier("1558-6"), r.Identifier)
	assert.Equal(t, model.ProvenanceCurated, r.Provenance)
}

func TestBatchTranslateMatchesSequential(t *testing.T) {
	settings := DefaultSettings()
	settings.BatchWorkers = 4
	e := newTestEngine(t, func(c *EngineConfig) { c.Settings = &settings })

	inputs := []string{
		"Glucose", "Glu Fst", "", "phos", "troponin l", "xyz-nonexistent-test",
		"Glu Fst", "   ", "HgbA1C", "glucose rndm", "ALK PHOS", "Glucose",
	}

	for _, minConfidence := range []float64{0, 0.7} {
		batch := e.BatchTranslate(inputs, minConfidence)
		require.Len(t, batch, len(inputs))
		for i, in := range inputs {
			assert.Equal(t, e.Translate(in, minConfidence), batch[i], "input %d %q", i, in)
		}
	}

	assert.Empty(t, e.BatchTranslate(nil, 0))
}

func TestBatchTranslateAccentedInputInParallel(t *testing.T) {
	settings := DefaultSettings()
	settings.BatchWorkers = 16
	e := newTestEngine(t, func(c *EngineConfig) { c.Settings = &settings })

	base := []string{
		"Glucosé Fastíng", "Hémoglobine", "Phosphatase Alcaline", "Trōponin Ï",
		"Créatinine Sérique", "ÅLT", "HgbA1C",
	}
	inputs := make([]string, 0, 2000)
	for len(inputs) < cap(inputs) {
		inputs = append(inputs, base...)
	}

	want := make(map[string]Result, len(base))
	for _, in := range base {
		want[in] = e.Translate(in, 0)
	}

	batch := e.BatchTranslate(inputs, 0)
	require.Len(t, batch, len(inputs))
	for i, in := range inputs {
		assert.Equal(t, want[in], batch[i], "input %d %q", i, in)
	}
}

func TestConfirmWhileTranslating(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 200; j++ {
				e.Translate("HgbA1C", 0)
				e.Translate("Hémoglobine Glyquée", 0)
			}
			return nil
		})
	}
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for j := 0; j < 50; j++ {
				if _, err := e.Confirm(ctx, "Hémoglobine A1C", "4548-4"); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	r := e.Translate("hemoglobine a1c", 0)
	assert.Equal(t, model.Identifier("4548-4"), r.Identifier)
	assert.Equal(t, model.ProvenanceLearned, r.Provenance)
}

func TestConfirm(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Confirm(ctx, "Glu Fst", "1558-6")
	require.NoError(t, err)
	entry, err := e.Confirm(ctx, "glu  FST", " 1558-6 ")
	require.NoError(t, err)

	assert.Equal(t, int64(2), entry.UsageCount)
	assert.Equal(t, 1, e.Stats().LearnedMappings)
}

func TestConfirmUnknownIdentifier(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Confirm(context.Background(), "Glu Fst", "9999-9")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownIdentifier)

	var unknown *model.UnknownIdentifierError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, model.Identifier("9999-9"), unknown.Identifier)
	assert.Equal(t, 0, e.Stats().LearnedMappings)
}

type brokenBackend struct{}

func (brokenBackend) LoadAll(ctx context.Context) ([]model.LearnedEntry, error) { return nil, nil }

func (brokenBackend) Upsert(ctx context.Context, entry model.LearnedEntry) (model.LearnedEntry, error) {
	return model.LearnedEntry{}, errors.New("disk full")
}

func (brokenBackend) Close() error { return nil }

func TestConfirmStoreUnavailable(t *testing.T) {
	store, err := learning.NewStore(context.Background(), brokenBackend{}, nil)
	require.NoError(t, err)
	e := newTestEngine(t, func(c *EngineConfig) { c.Learned = store })

	_, err = e.Confirm(context.Background(), "Glu Fst", "1558-6")
	assert.ErrorIs(t, err, model.ErrDataStoreUnavailable)

	_, err = e.Confirm(context.Background(), "  ", "1558-6")
	assert.ErrorIs(t, err, model.ErrEmptyInput)
}

func TestStatsAndConcept(t *testing.T) {
	e := newTestEngine(t)

	stats := e.Stats()
	assert.Equal(t, 9, stats.Concepts)
	assert.Equal(t, 1, stats.CuratedMappings)
	assert.Equal(t, 0, stats.LearnedMappings)
	assert.Equal(t, 12, stats.Synonyms)
	assert.Equal(t, 7, stats.Abbreviations)

	c, ok := e.Concept("718-7")
	require.True(t, ok)
	assert.Equal(t, "Hemoglobin [Mass/volume] in Blood", c.PreferredName())

	_, ok = e.Concept("nope")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	e := newTestEngine(t)

	hits := e.Search("Troponin", 0)
	require.Len(t, hits, 2)
	assert.Equal(t, model.Identifier("42757-5"), hits[0].Identifier, "shorter name first")
	assert.Equal(t, model.Identifier("10839-9"), hits[1].Identifier)

	assert.Empty(t, e.Search("", 5))
	glucose := e.Search("glucose", 1)
	require.Len(t, glucose, 1)
	assert.Equal(t, model.Identifier("2345-7"), glucose[0].Identifier)
}

func TestNewEngineValidation(t *testing.T) {
	idx, err := index.Build(testConcepts(), nil, index.DefaultOptions())
	require.NoError(t, err)
	store, err := learning.NewStore(context.Background(), nil, nil)
	require.NoError(t, err)

	_, err = NewEngine(EngineConfig{Learned: store})
	assert.Error(t, err)

	_, err = NewEngine(EngineConfig{Index: idx})
	assert.Error(t, err)

	bad := DefaultSettings()
	bad.TieMargin = 2
	_, err = NewEngine(EngineConfig{Index: idx, Learned: store, Settings: &bad})
	assert.Error(t, err)

	wider := DefaultSettings()
	wider.MinTokenOverlap = 0.1
	_, err = NewEngine(EngineConfig{Index: idx, Learned: store, Settings: &wider})
	assert.ErrorContains(t, err, "min token overlap")

	widerIdx, err := index.Build(testConcepts(), nil, wider.IndexOptions())
	require.NoError(t, err)
	_, err = NewEngine(EngineConfig{Index: widerIdx, Learned: store, Settings: &wider})
	assert.NoError(t, err)

	e, err := NewEngine(EngineConfig{Index: idx, Learned: store})
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), e.Settings())
	assert.Greater(t, e.Stats().Abbreviations, 0)
}

func TestTranslateDebugTracing(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	debug.SetLogger(zap.New(core))
	t.Cleanup(func() { debug.SetLogger(nil) })

	e := newTestEngine(t)
	quiet := e.Translate("Glu Fst", 0)

	e.Debug = true
	traced := e.Translate("Glu Fst", 0)

	assert.Equal(t, quiet, traced)
	assert.NotZero(t, logs.FilterMessageSnippet("Expansion hit").Len())
}
