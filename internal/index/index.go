// Package index holds the read-only synonym index used for exact and fuzzy
// resolution of normalized lab test text to canonical identifiers.
package index

import (
	"fmt"
	"sort"

	"github.com/clinical-rosetta/internal/debug"
	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/normalize"
)

// Source records which kind of reference data produced an index entry
type Source string

const (
	SourceMapping Source = "mapping"
	SourceName    Source = "name"
	SourceSynonym Source = "synonym"
)

// Hit is the result of an exact lookup
type Hit struct {
	Identifier   model.Identifier
	MatchedText  normalize.Text
	Source       Source
	SourceSystem string
}

// Match is a fuzzy search result
type Match struct {
	Identifier  model.Identifier
	MatchedText normalize.Text
	Similarity  float64
}

// Options bounds the fuzzy search
type Options struct {
	// MinTokenOverlap is the Jaccard threshold an entry must reach to be scored
	MinTokenOverlap float64

	// MaxPrefilter caps how many entries survive the prefilter per query
	MaxPrefilter int

	// MaxQueryTokens caps how many distinct query tokens are used for postings lookup
	MaxQueryTokens int
}

// DefaultOptions returns the default prefilter bounds
func DefaultOptions() Options {
	return Options{
		MinTokenOverlap: 0.3,
		MaxPrefilter:    2000,
		MaxQueryTokens:  16,
	}
}

type entry struct {
	text       normalize.Text
	identifier model.Identifier
	tokens     []string
	length     int
}

// Index maps normalized strings to canonical identifiers. It is built once
// and then only read, so it is safe for concurrent use without locking.
type Index struct {
	opts     Options
	concepts map[model.Identifier]model.Concept
	exact    map[normalize.Text]Hit
	entries  []entry
	postings map[string][]int32
	browse   []browseEntry

	curated  int
	synonyms int
}

// Build constructs the index. Exact-lookup collisions resolve in favour of
// curated mappings, then official names, then synonyms; within a kind the
// first record in input order wins. A mapping that references an unknown
// concept fails the build with model.ErrDanglingReference.
func Build(concepts []model.Concept, mappings []model.MappingRecord, opts Options) (*Index, error) {
	return BuildDebug(false, concepts, mappings, opts)
}

// BuildDebug builds the index with optional debug output
func BuildDebug(localDebug bool, concepts []model.Concept, mappings []model.MappingRecord, opts Options) (*Index, error) {
	defer debug.DebugTiming(localDebug, "index build")()

	defaults := DefaultOptions()
	if opts.MaxPrefilter <= 0 {
		opts.MaxPrefilter = defaults.MaxPrefilter
	}
	if opts.MaxQueryTokens <= 0 {
		opts.MaxQueryTokens = defaults.MaxQueryTokens
	}

	idx := &Index{
		opts:     opts,
		concepts: make(map[model.Identifier]model.Concept, len(concepts)),
		exact:    make(map[normalize.Text]Hit),
		postings: make(map[string][]int32),
	}

	for _, c := range concepts {
		if c.Identifier == "" {
			return nil, fmt.Errorf("concept with empty identifier: %w", model.ErrDanglingReference)
		}
		if existing, ok := idx.concepts[c.Identifier]; ok {
			existing.Names = append(existing.Names, c.Names...)
			existing.Synonyms = append(existing.Synonyms, c.Synonyms...)
			idx.concepts[c.Identifier] = existing
			continue
		}
		idx.concepts[c.Identifier] = c
	}

	for i, m := range mappings {
		if _, ok := idx.concepts[m.Identifier]; !ok {
			return nil, fmt.Errorf("mapping %d %q -> %q: %w", i, m.SourceText, m.Identifier, model.ErrDanglingReference)
		}
	}

	seenEntry := make(map[string]bool)
	add := func(raw string, id model.Identifier, src Source, system string) {
		text := normalize.Normalize(raw)
		if text.IsEmpty() {
			return
		}
		if _, ok := idx.exact[text]; !ok {
			idx.exact[text] = Hit{Identifier: id, MatchedText: text, Source: src, SourceSystem: system}
		}

		key := string(text) + "\x00" + string(id)
		if seenEntry[key] {
			return
		}
		seenEntry[key] = true
		idx.addEntry(text, id)
	}

	for _, m := range mappings {
		add(m.SourceText, m.Identifier, SourceMapping, m.SourceSystem)
	}
	idx.curated = len(mappings)

	// iterate concepts in input order so collisions resolve deterministically
	order := conceptOrder(concepts)
	for _, id := range order {
		c := idx.concepts[id]
		for _, n := range c.Names {
			add(n, id, SourceName, "")
		}
	}
	for _, id := range order {
		c := idx.concepts[id]
		syns := c.DedupedSynonyms()
		idx.synonyms += len(syns)
		for _, s := range syns {
			add(s, id, SourceSynonym, "")
		}
	}

	idx.buildBrowse(order)

	debug.DebugOutput(localDebug, "Index built: %d concepts, %d curated mappings, %d synonyms, %d exact keys, %d fuzzy entries, %d tokens",
		len(idx.concepts), idx.curated, idx.synonyms, len(idx.exact), len(idx.entries), len(idx.postings))

	return idx, nil
}

func conceptOrder(concepts []model.Concept) []model.Identifier {
	seen := make(map[model.Identifier]bool, len(concepts))
	order := make([]model.Identifier, 0, len(concepts))
	for _, c := range concepts {
		if seen[c.Identifier] {
			continue
		}
		seen[c.Identifier] = true
		order = append(order, c.Identifier)
	}
	return order
}

func (idx *Index) addEntry(text normalize.Text, id model.Identifier) {
	tokens := uniqueTokens(text.Tokens(), 0)
	pos := int32(len(idx.entries))
	idx.entries = append(idx.entries, entry{
		text:       text,
		identifier: id,
		tokens:     tokens,
		length:     len([]rune(string(text))),
	})
	for _, tok := range tokens {
		idx.postings[tok] = append(idx.postings[tok], pos)
	}
}

// ExactLookup returns the identifier registered for exactly this normalized text
func (idx *Index) ExactLookup(t normalize.Text) (Hit, bool) {
	if t.IsEmpty() {
		return Hit{}, false
	}
	hit, ok := idx.exact[t]
	return hit, ok
}

// FuzzySearch returns at most k matches ordered by similarity descending, with
// ties broken by shorter matched text and then lexical order. Each identifier
// appears once with its best similarity. Only entries sharing at least one
// token with the query and reaching the token-overlap threshold are scored.
func (idx *Index) FuzzySearch(t normalize.Text, k int) []Match {
	return idx.FuzzySearchDebug(false, t, k)
}

// FuzzySearchDebug runs FuzzySearch with optional debug output
func (idx *Index) FuzzySearchDebug(localDebug bool, t normalize.Text, k int) []Match {
	if t.IsEmpty() || k <= 0 {
		return nil
	}

	candidates := idx.prefilter(t.Tokens())
	debug.DebugOutput(localDebug, "Prefilter %q: %d entries survive", t, len(candidates))
	if len(candidates) == 0 {
		return nil
	}

	query := string(t)
	best := make(map[model.Identifier]Match)
	bestLen := make(map[model.Identifier]int)
	for _, pos := range candidates {
		e := idx.entries[pos]
		m := Match{
			Identifier:  e.identifier,
			MatchedText: e.text,
			Similarity:  Similarity(query, string(e.text)),
		}
		cur, ok := best[e.identifier]
		if !ok || better(m, e.length, cur, bestLen[e.identifier]) {
			best[e.identifier] = m
			bestLen[e.identifier] = e.length
		}
	}

	out := make([]Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return better(out[i], bestLen[out[i].Identifier], out[j], bestLen[out[j].Identifier])
	})

	if len(out) > k {
		out = out[:k]
	}

	for _, m := range out {
		debug.DebugOutput(localDebug, "  fuzzy %s %.4f via %q", m.Identifier, m.Similarity, m.MatchedText)
	}
	return out
}

// better orders matches: higher similarity, shorter text, lexical text, identifier
func better(a Match, aLen int, b Match, bLen int) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	if aLen != bLen {
		return aLen < bLen
	}
	if a.MatchedText != b.MatchedText {
		return a.MatchedText < b.MatchedText
	}
	return a.Identifier < b.Identifier
}

// prefilter returns entry positions whose token-set Jaccard similarity with the
// query reaches MinTokenOverlap, capped at MaxPrefilter by best overlap
func (idx *Index) prefilter(tokens []string) []int32 {
	query := uniqueTokens(tokens, idx.opts.MaxQueryTokens)
	if len(query) == 0 {
		return nil
	}

	shared := make(map[int32]int)
	for _, tok := range query {
		for _, pos := range idx.postings[tok] {
			shared[pos]++
		}
	}

	type scored struct {
		pos     int32
		jaccard float64
	}
	survivors := make([]scored, 0, len(shared))
	for pos, inter := range shared {
		union := len(query) + len(idx.entries[pos].tokens) - inter
		j := float64(inter) / float64(union)
		if j >= idx.opts.MinTokenOverlap {
			survivors = append(survivors, scored{pos: pos, jaccard: j})
		}
	}

	if len(survivors) > idx.opts.MaxPrefilter {
		sort.Slice(survivors, func(i, j int) bool {
			if survivors[i].jaccard != survivors[j].jaccard {
				return survivors[i].jaccard > survivors[j].jaccard
			}
			return survivors[i].pos < survivors[j].pos
		})
		survivors = survivors[:idx.opts.MaxPrefilter]
	}

	out := make([]int32, len(survivors))
	for i, s := range survivors {
		out[i] = s.pos
	}
	return out
}

func uniqueTokens(tokens []string, limit int) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Options returns the prefilter bounds the index was built with
func (idx *Index) Options() Options {
	return idx.opts
}

// Concept returns the concept registered for id
func (idx *Index) Concept(id model.Identifier) (model.Concept, bool) {
	c, ok := idx.concepts[id]
	return c, ok
}

// HasConcept reports whether id has a backing concept
func (idx *Index) HasConcept(id model.Identifier) bool {
	_, ok := idx.concepts[id]
	return ok
}

// Phrases returns every indexed text, used to seed spelling correction
func (idx *Index) Phrases() []string {
	out := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = string(e.text)
	}
	return out
}

// ConceptCount returns the number of canonical concepts
func (idx *Index) ConceptCount() int {
	return len(idx.concepts)
}

// CuratedCount returns the number of curated mapping records
func (idx *Index) CuratedCount() int {
	return idx.curated
}

// SynonymCount returns the number of distinct synonyms across all concepts
func (idx *Index) SynonymCount() int {
	return idx.synonyms
}

// Len returns the number of fuzzy-searchable entries
func (idx *Index) Len() int {
	return len(idx.entries)
}
