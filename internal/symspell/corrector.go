package symspell

import (
	"strings"
)

// Corrector applies token-level spelling correction to normalized query text.
// It is immutable after construction and safe for concurrent use.
type Corrector struct {
	symspell  *SymSpell
	config    *Config
	protected map[string]bool
}

// NewCorrector wraps a built dictionary. Protected words (typically the
// abbreviation dictionary's shorthand keys) are never corrected.
func NewCorrector(s *SymSpell, config *Config, protected ...string) *Corrector {
	if config == nil {
		config = DefaultConfig()
	}
	c := &Corrector{
		symspell:  s,
		config:    config,
		protected: make(map[string]bool, len(protected)),
	}
	for _, p := range protected {
		c.protected[strings.ToLower(strings.TrimSpace(p))] = true
	}
	return c
}

// CorrectText corrects spelling in a whitespace-separated string.
// Returns the corrected text and a list of corrections made; when nothing
// changed the input is returned with a nil list.
func (c *Corrector) CorrectText(text string) (string, []CorrectionResult) {
	if c == nil || c.symspell == nil {
		return text, nil
	}

	tokens := strings.Fields(text)
	var corrections []CorrectionResult

	for i, token := range tokens {
		result := c.correctToken(token)
		if result.WasCorrected {
			tokens[i] = result.Corrected
			corrections = append(corrections, result)
		}
	}

	if len(corrections) == 0 {
		return text, nil
	}

	return strings.Join(tokens, " "), corrections
}

// CorrectToken corrects a single token and returns the correction result.
func (c *Corrector) CorrectToken(token string) CorrectionResult {
	if c == nil || c.symspell == nil {
		return CorrectionResult{Original: token, Corrected: token}
	}
	return c.correctToken(token)
}

func (c *Corrector) correctToken(token string) CorrectionResult {
	token = strings.ToLower(strings.TrimSpace(token))
	unchanged := CorrectionResult{Original: token, Corrected: token}

	if len([]rune(token)) < c.config.MinTermLength || !isWord(token) || c.protected[token] {
		return unchanged
	}

	suggestion := c.symspell.LookupBest(token, c.config.MaxEditDistance)
	if suggestion == nil || suggestion.Distance == 0 {
		return unchanged
	}

	return CorrectionResult{
		Original:     token,
		Corrected:    suggestion.Term,
		Distance:     suggestion.Distance,
		WasCorrected: true,
		Confidence:   1.0 - float64(suggestion.Distance)/float64(c.config.MaxEditDistance),
	}
}

// LookupSuggestions returns all suggestions for a token.
func (c *Corrector) LookupSuggestions(token string, maxResults int) []Suggestion {
	if c == nil || c.symspell == nil {
		return nil
	}

	suggestions := c.symspell.Lookup(token, c.config.MaxEditDistance)
	if maxResults > 0 && len(suggestions) > maxResults {
		return suggestions[:maxResults]
	}
	return suggestions
}

// Stats returns dictionary statistics.
func (c *Corrector) Stats() DictionaryStats {
	if c == nil || c.symspell == nil {
		return DictionaryStats{}
	}
	return c.symspell.Stats()
}
