package symspell

import (
	"strings"
	"unicode"
)

// BuildFromPhrases builds a dictionary from the word tokens of reference
// phrases (concept names and synonyms). Token frequency is the number of
// occurrences across all phrases. Tokens containing digits are skipped since
// they are codes rather than words.
func BuildFromPhrases(phrases []string, config *Config) *SymSpell {
	if config == nil {
		config = DefaultConfig()
	}

	freq := make(map[string]int64)
	var order []string
	for _, phrase := range phrases {
		for _, token := range strings.Fields(strings.ToLower(phrase)) {
			if !isWord(token) {
				continue
			}
			if _, ok := freq[token]; !ok {
				order = append(order, token)
			}
			freq[token]++
		}
	}

	entries := make([]DictionaryEntry, 0, len(order))
	for _, term := range order {
		if freq[term] >= config.MinFrequency {
			entries = append(entries, DictionaryEntry{Term: term, Frequency: freq[term]})
		}
	}

	return BuildFromEntries(entries, config)
}

// BuildFromEntries builds a dictionary from pre-provided entries.
func BuildFromEntries(entries []DictionaryEntry, config *Config) *SymSpell {
	if config == nil {
		config = DefaultConfig()
	}
	symspell := New(config)
	symspell.AddTerms(entries)
	return symspell
}

func isWord(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
