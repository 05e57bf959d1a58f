package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(ss ...string) []Text {
	out := make([]Text, len(ss))
	for i, s := range ss {
		out[i] = Text(s)
	}
	return out
}

func TestDictionaryExpand(t *testing.T) {
	dict := DefaultDictionary()

	tests := []struct {
		name  string
		input string
		want  []Text
	}{
		{
			name:  "whole string entry",
			input: "ALT",
			want:  texts("alt", "alanine aminotransferase"),
		},
		{
			name:  "token substitution",
			input: "Glu Fst",
			want:  texts("glu fst", "glucose fasting"),
		},
		{
			name:  "ambiguous entry fans out in insertion order",
			input: "phos",
			want:  texts("phos", "phosphorus", "phosphatase"),
		},
		{
			name:  "multi word key matched before single tokens",
			input: "Alk Phos Ser",
			want:  texts("alk phos ser", "alkaline phosphatase serum"),
		},
		{
			name:  "unknown tokens pass through",
			input: "Hgb whole blood",
			want:  texts("hgb whole blood", "hemoglobin whole blood"),
		},
		{
			name:  "noise suffix removed",
			input: "Glucose Level",
			want:  texts("glucose level", "glucose"),
		},
		{
			name:  "noise suffix removed from substituted form",
			input: "Hgb Lvl",
			want:  texts("hgb lvl", "hemoglobin level", "hemoglobin"),
		},
		{
			name:  "single noise word is not stripped",
			input: "level",
			want:  texts("level"),
		},
		{
			name:  "no dictionary hit yields identity only",
			input: "xyz-nonexistent-test",
			want:  texts("xyz-nonexistent-test"),
		},
		{
			name:  "empty yields empty identity",
			input: "",
			want:  texts(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dict.Expand(Normalize(tt.input)))
		})
	}
}

func TestDictionaryExpandFanOutCap(t *testing.T) {
	dict := NewDictionary()
	dict.Add("a", "a1", "a2", "a3")
	dict.Add("b", "b1", "b2", "b3")

	got := dict.ExpandLimit("a b", 8)
	want := texts(
		"a b",
		"a1 b1", "a1 b2", "a1 b3",
		"a2 b1", "a2 b2", "a2 b3",
		"a3 b1", "a3 b2",
	)
	assert.Equal(t, want, got)

	got = dict.ExpandLimit("a b", 2)
	assert.Equal(t, texts("a b", "a1 b1", "a1 b2"), got)
}

func TestDictionaryExpandBoundedForLongInput(t *testing.T) {
	dict := NewDictionary()
	for i := 0; i < 20; i++ {
		dict.Add(fmt.Sprintf("t%d", i), fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i))
	}

	input := ""
	for i := 0; i < 20; i++ {
		input += fmt.Sprintf("t%d ", i)
	}

	got := dict.Expand(Normalize(input))
	require.Len(t, got, DefaultMaxExpansions+1)
	assert.Equal(t, Normalize(input), got[0])
}

func TestDictionaryAdd(t *testing.T) {
	dict := NewDictionary()
	dict.Add("  PHOS ", "Phosphorus", "phosphorus", "PHOS", "")
	dict.Add("phos", "Phosphatase")
	dict.Add("   ", "ignored")

	assert.Equal(t, 1, dict.Len())
	assert.Equal(t, []string{"phosphorus", "phosphatase"}, dict.Lookup("Phos"))
	assert.Equal(t, []string{"phos"}, dict.Shorthands())
	assert.Nil(t, dict.Lookup("unknown"))
}

func TestDictionaryStripSuffixes(t *testing.T) {
	dict := NewDictionary()
	dict.AddStripSuffix("Level", "count", "level", "")

	assert.Equal(t, []string{"level", "count"}, dict.StripSuffixes())
	assert.Equal(t, texts("platelet count", "platelet"), dict.Expand("platelet count"))
}

func TestNilDictionaryExpand(t *testing.T) {
	var dict *Dictionary
	assert.Equal(t, texts("alt"), dict.Expand("alt"))
}
