package symspell

import (
	"sort"
	"strings"
)

// SymSpell implements the Symmetric Delete spelling correction algorithm.
// It pre-computes all possible deletions within max edit distance for O(1) lookup.
// Terms are stored lowercase. After construction it is read-only.
type SymSpell struct {
	// dictionary maps terms to their frequencies
	dictionary map[string]int64

	// deletes maps delete variants to their original terms
	deletes map[string][]string

	config *Config
}

// New creates a new SymSpell instance with the given configuration.
func New(config *Config) *SymSpell {
	if config == nil {
		config = DefaultConfig()
	}
	return &SymSpell{
		dictionary: make(map[string]int64),
		deletes:    make(map[string][]string),
		config:     config,
	}
}

// AddTerm adds a term to the dictionary, accumulating its frequency.
// It also generates and indexes all delete variants.
func (s *SymSpell) AddTerm(term string, frequency int64) {
	term = strings.ToLower(strings.TrimSpace(term))
	if len([]rune(term)) < s.config.MinTermLength {
		return
	}

	if _, exists := s.dictionary[term]; exists {
		s.dictionary[term] += frequency
		return
	}
	s.dictionary[term] = frequency

	for _, del := range s.generateDeletes(term, s.config.MaxEditDistance) {
		s.deletes[del] = append(s.deletes[del], term)
	}
}

// AddTerms adds multiple terms to the dictionary.
func (s *SymSpell) AddTerms(entries []DictionaryEntry) {
	for _, entry := range entries {
		s.AddTerm(entry.Term, entry.Frequency)
	}
}

// Contains checks if a term exists exactly in the dictionary.
func (s *SymSpell) Contains(term string) bool {
	_, ok := s.dictionary[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

// Lookup finds spelling suggestions for the input term.
// Returns suggestions sorted by edit distance (ascending), then frequency
// (descending), then term.
func (s *SymSpell) Lookup(input string, maxDistance int) []Suggestion {
	input = strings.ToLower(strings.TrimSpace(input))
	if len(input) == 0 {
		return nil
	}

	if maxDistance > s.config.MaxEditDistance {
		maxDistance = s.config.MaxEditDistance
	}

	if freq, ok := s.dictionary[input]; ok {
		return []Suggestion{{Term: input, Distance: 0, Frequency: freq}}
	}

	seen := make(map[string]bool)
	var candidates []Suggestion

	consider := func(term string) {
		if seen[term] {
			return
		}
		seen[term] = true
		dist := editDistance([]rune(input), []rune(term), maxDistance)
		if dist >= 0 && dist <= maxDistance {
			candidates = append(candidates, Suggestion{
				Term:      term,
				Distance:  dist,
				Frequency: s.dictionary[term],
			})
		}
	}

	// The input itself may be a delete variant of dictionary terms
	inputDeletes := append(s.generateDeletes(input, maxDistance), input)

	for _, del := range inputDeletes {
		for _, term := range s.deletes[del] {
			consider(term)
		}
		// input has extra characters
		if _, ok := s.dictionary[del]; ok {
			consider(del)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		if candidates[i].Frequency != candidates[j].Frequency {
			return candidates[i].Frequency > candidates[j].Frequency
		}
		return candidates[i].Term < candidates[j].Term
	})

	return candidates
}

// LookupBest returns the single best suggestion, or nil if none found.
func (s *SymSpell) LookupBest(input string, maxDistance int) *Suggestion {
	suggestions := s.Lookup(input, maxDistance)
	if len(suggestions) == 0 {
		return nil
	}
	return &suggestions[0]
}

// generateDeletes generates all delete variants of a term within maxDistance.
func (s *SymSpell) generateDeletes(term string, maxDistance int) []string {
	if maxDistance <= 0 || len(term) == 0 {
		return nil
	}

	deletes := make(map[string]bool)
	generateDeletesRecursive([]rune(term), maxDistance, deletes)

	result := make([]string, 0, len(deletes))
	for del := range deletes {
		result = append(result, del)
	}
	return result
}

func generateDeletesRecursive(term []rune, distance int, deletes map[string]bool) {
	if distance <= 0 || len(term) <= 1 {
		return
	}

	for i := range term {
		del := make([]rune, 0, len(term)-1)
		del = append(del, term[:i]...)
		del = append(del, term[i+1:]...)
		key := string(del)
		if !deletes[key] {
			deletes[key] = true
			generateDeletesRecursive(del, distance-1, deletes)
		}
	}
}

// editDistance calculates the Damerau-Levenshtein (optimal string alignment)
// distance between two rune slices.
// Returns -1 if distance exceeds maxDistance.
func editDistance(a, b []rune, maxDistance int) int {
	lenA, lenB := len(a), len(b)

	if abs(lenA-lenB) > maxDistance {
		return -1
	}
	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	if lenA > lenB {
		a, b = b, a
		lenA, lenB = lenB, lenA
	}

	prev := make([]int, lenA+1)
	curr := make([]int, lenA+1)
	prevPrev := make([]int, lenA+1)

	for i := 0; i <= lenA; i++ {
		prev[i] = i
	}

	for j := 1; j <= lenB; j++ {
		curr[0] = j
		minDist := j

		for i := 1; i <= lenA; i++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)

			// transposition
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				curr[i] = min(curr[i], prevPrev[i-2]+cost)
			}

			if curr[i] < minDist {
				minDist = curr[i]
			}
		}

		if minDist > maxDistance {
			return -1
		}

		prevPrev, prev, curr = prev, curr, prevPrev
	}

	if prev[lenA] > maxDistance {
		return -1
	}
	return prev[lenA]
}

// Stats returns statistics about the dictionary.
func (s *SymSpell) Stats() DictionaryStats {
	stats := DictionaryStats{
		TermCount:   len(s.dictionary),
		DeleteCount: len(s.deletes),
	}

	for _, freq := range s.dictionary {
		stats.TotalFrequency += freq
		if freq > stats.MaxFrequency {
			stats.MaxFrequency = freq
		}
	}

	return stats
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
