package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/learning"
	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/normalize"
)

func newTestGenerator(t *testing.T, settings Settings) *Generator {
	t.Helper()
	idx, err := index.Build(testConcepts(), testMappings(), index.DefaultOptions())
	require.NoError(t, err)
	store, err := learning.NewStore(context.Background(), nil, nil)
	require.NoError(t, err)
	return NewGenerator(idx, store, settings)
}

func TestGenerateTiers(t *testing.T) {
	g := newTestGenerator(t, DefaultSettings())
	dict := testDictionary()

	tests := []struct {
		name           string
		input          string
		wantProvenance model.Provenance
		wantIDs        []model.Identifier
	}{
		{"exact", "glucose serum", model.ProvenanceExact, []model.Identifier{"2345-7"}},
		{"curated in expansion order", "phos", model.ProvenanceCurated, []model.Identifier{"2777-1", "6768-6"}},
		{"fuzzy", "troponin l", model.ProvenanceFuzzy, []model.Identifier{"10839-9", "42757-5"}},
		{"nothing", "zzzz", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := normalize.Normalize(tt.input)
			cands := g.Generate(false, q, dict.Expand(q))

			var ids []model.Identifier
			for _, c := range cands {
				assert.Equal(t, tt.wantProvenance, c.Provenance)
				ids = append(ids, c.Identifier)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGenerateFuzzyCap(t *testing.T) {
	settings := DefaultSettings()
	settings.TopK = 1
	g := newTestGenerator(t, settings)

	q := normalize.Normalize("troponin l")
	cands := g.Generate(false, q, []normalize.Text{q})
	require.Len(t, cands, 1)
	assert.Equal(t, model.Identifier("10839-9"), cands[0].Identifier)
	assert.InDelta(t, 0.9, cands[0].RawScore, 1e-9)
}

func TestGenerateFuzzyMinSimilarity(t *testing.T) {
	settings := DefaultSettings()
	settings.MinSimilarity = 0.95
	g := newTestGenerator(t, settings)

	q := normalize.Normalize("troponin l")
	assert.Empty(t, g.Generate(false, q, []normalize.Text{q}))
}

func TestGenerateEmptyQuery(t *testing.T) {
	g := newTestGenerator(t, DefaultSettings())
	assert.Nil(t, g.Generate(false, "", nil))
}

func TestPreferMatch(t *testing.T) {
	a := index.Match{Identifier: "B", MatchedText: "abc", Similarity: 0.8}
	b := index.Match{Identifier: "A", MatchedText: "abcd", Similarity: 0.8}
	c := index.Match{Identifier: "A", MatchedText: "abc", Similarity: 0.8}

	assert.True(t, preferMatch(a, b))
	assert.True(t, preferMatch(c, a))
	assert.False(t, preferMatch(a, c))
	assert.True(t, preferMatch(index.Match{Similarity: 0.9}, a))
}
