package match

import (
	"sort"

	"github.com/clinical-rosetta/internal/debug"
	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/learning"
	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/normalize"
)

// Generator produces candidates in tiers, stopping at the first tier that
// yields anything: learned, exact, curated expansion, fuzzy.
type Generator struct {
	index    *index.Index
	learned  *learning.Store
	settings Settings
}

// NewGenerator creates a candidate generator
func NewGenerator(idx *index.Index, learned *learning.Store, settings Settings) *Generator {
	return &Generator{
		index:    idx,
		learned:  learned,
		settings: settings,
	}
}

// Generate returns raw-scored candidates for a normalized query. expansions
// holds the query itself first followed by its expansions.
func (g *Generator) Generate(localDebug bool, query normalize.Text, expansions []normalize.Text) []Candidate {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	if query.IsEmpty() {
		return nil
	}

	// Tier 1 - learned
	if cand, ok := g.learnedMatch(localDebug, query); ok {
		return []Candidate{cand}
	}

	// Tier 2 - exact on the literal input
	if hit, ok := g.index.ExactLookup(query); ok {
		debug.DebugOutput(localDebug, "Exact hit: %q -> %s (%s)", query, hit.Identifier, hit.Source)
		return []Candidate{{
			Identifier:   hit.Identifier,
			Provenance:   model.ProvenanceExact,
			RawScore:     1.0,
			MatchedText:  string(hit.MatchedText),
			SourceSystem: hit.SourceSystem,
		}}
	}

	variants := make([]normalize.Text, 0, len(expansions))
	for _, x := range expansions {
		if x != query && !x.IsEmpty() {
			variants = append(variants, x)
		}
	}

	// Tier 3 - exact on each expansion
	if cands := g.curatedMatch(localDebug, variants); len(cands) > 0 {
		return cands
	}

	// Tier 4 - fuzzy over the input and every expansion
	return g.fuzzyMatch(localDebug, append([]normalize.Text{query}, variants...))
}

func (g *Generator) learnedMatch(localDebug bool, query normalize.Text) (Candidate, bool) {
	if g.learned == nil {
		return Candidate{}, false
	}
	entry, ok := g.learned.Lookup(query)
	if !ok {
		return Candidate{}, false
	}
	if !g.index.HasConcept(entry.Identifier) {
		debug.DebugOutput(localDebug, "Learned entry %q -> %s has no concept, skipping", query, entry.Identifier)
		return Candidate{}, false
	}

	debug.DebugOutput(localDebug, "Learned hit: %q -> %s (used %d times)", query, entry.Identifier, entry.UsageCount)
	return Candidate{
		Identifier:  entry.Identifier,
		Provenance:  model.ProvenanceLearned,
		RawScore:    1.0,
		MatchedText: entry.Normalized,
	}, true
}

func (g *Generator) curatedMatch(localDebug bool, variants []normalize.Text) []Candidate {
	var cands []Candidate
	seen := make(map[model.Identifier]bool)

	for _, x := range variants {
		hit, ok := g.index.ExactLookup(x)
		if !ok || seen[hit.Identifier] {
			continue
		}
		seen[hit.Identifier] = true
		debug.DebugOutput(localDebug, "Expansion hit: %q -> %s (%s)", x, hit.Identifier, hit.Source)
		cands = append(cands, Candidate{
			Identifier:   hit.Identifier,
			Provenance:   model.ProvenanceCurated,
			RawScore:     g.settings.CuratedScore,
			MatchedText:  string(hit.MatchedText),
			SourceSystem: hit.SourceSystem,
		})
	}

	return cands
}

func (g *Generator) fuzzyMatch(localDebug bool, texts []normalize.Text) []Candidate {
	best := make(map[model.Identifier]index.Match)

	for _, x := range texts {
		for _, m := range g.index.FuzzySearchDebug(localDebug, x, g.settings.TopK) {
			if m.Similarity <= 0 || m.Similarity < g.settings.MinSimilarity {
				continue
			}
			if cur, ok := best[m.Identifier]; !ok || preferMatch(m, cur) {
				best[m.Identifier] = m
			}
		}
	}

	matches := make([]index.Match, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		return preferMatch(matches[i], matches[j])
	})
	if len(matches) > g.settings.TopK {
		matches = matches[:g.settings.TopK]
	}

	cands := make([]Candidate, len(matches))
	for i, m := range matches {
		cands[i] = Candidate{
			Identifier:  m.Identifier,
			Provenance:  model.ProvenanceFuzzy,
			RawScore:    m.Similarity,
			MatchedText: string(m.MatchedText),
		}
	}

	debug.DebugOutput(localDebug, "Fuzzy candidates: %d from %d query variants", len(cands), len(texts))
	return cands
}

// preferMatch orders fuzzy matches the same way the index does: similarity,
// then shorter matched text, then lexical text, then identifier
func preferMatch(a, b index.Match) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	la, lb := len([]rune(string(a.MatchedText))), len([]rune(string(b.MatchedText)))
	if la != lb {
		return la < lb
	}
	if a.MatchedText != b.MatchedText {
		return a.MatchedText < b.MatchedText
	}
	return a.Identifier < b.Identifier
}
