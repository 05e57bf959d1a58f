// Package symspell implements the SymSpell spelling correction algorithm
// for lab test name tokens.
//
// SymSpell uses a pre-computed "delete dictionary" approach for O(1) lookup
// performance. The resolution engine uses it to contribute one corrected
// query variant alongside the abbreviation expansions.
package symspell

// Config holds SymSpell configuration parameters.
type Config struct {
	// MaxEditDistance is the maximum Damerau-Levenshtein distance for corrections.
	// Default: 2
	MaxEditDistance int

	// Enabled controls whether spelling correction is active.
	// Default: false (must be explicitly enabled)
	Enabled bool

	// MinTermLength is the minimum token length to attempt correction.
	// Default: 4 (short tokens are almost always abbreviations like "alt", "hgb")
	MinTermLength int

	// MinFrequency is the minimum frequency for a term to be included in dictionary.
	// Default: 1 (include all terms)
	MinFrequency int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxEditDistance: 2,
		Enabled:         false,
		MinTermLength:   4,
		MinFrequency:    1,
	}
}

// Suggestion represents a spelling correction suggestion.
type Suggestion struct {
	// Term is the suggested correct spelling.
	Term string

	// Distance is the edit distance from the input to this suggestion.
	Distance int

	// Frequency is the occurrence count in the dictionary.
	// Higher frequency terms are preferred when distances are equal.
	Frequency int64
}

// CorrectionResult tracks what was corrected for debug tracing.
type CorrectionResult struct {
	Original     string
	Corrected    string
	Distance     int
	WasCorrected bool

	// Confidence is 1 - (distance / maxEditDistance).
	Confidence float64
}

// DictionaryEntry represents a term with its frequency for dictionary building.
type DictionaryEntry struct {
	Term      string
	Frequency int64
}

// DictionaryStats holds statistics about the built dictionary.
type DictionaryStats struct {
	TermCount      int
	DeleteCount    int
	TotalFrequency int64
	MaxFrequency   int64
}
