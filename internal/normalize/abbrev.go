package normalize

import (
	"strings"
)

// DefaultMaxExpansions bounds the abbreviation fan-out per query
const DefaultMaxExpansions = 8

// Dictionary maps shorthand to one or more expansion phrases.
// Keys and expansions are stored normalized. A Dictionary is built once and then
// only read, so it is safe for concurrent use after construction.
type Dictionary struct {
	entries      map[string][]string
	order        []string
	suffixes     map[string]bool
	suffixOrder  []string
	maxKeyTokens int
}

// NewDictionary creates an empty dictionary
func NewDictionary() *Dictionary {
	return &Dictionary{
		entries:  make(map[string][]string),
		suffixes: make(map[string]bool),
	}
}

// Add registers expansions for a shorthand. Repeated calls for the same shorthand
// append further expansions after the existing ones.
func (d *Dictionary) Add(shorthand string, expansions ...string) {
	key := string(Normalize(shorthand))
	if key == "" {
		return
	}

	existing, ok := d.entries[key]
	if !ok {
		d.order = append(d.order, key)
	}

	for _, e := range expansions {
		exp := string(Normalize(e))
		if exp == "" || exp == key || contains(existing, exp) {
			continue
		}
		existing = append(existing, exp)
	}
	d.entries[key] = existing

	if n := len(strings.Fields(key)); n > d.maxKeyTokens {
		d.maxKeyTokens = n
	}
}

// AddStripSuffix registers trailing noise words ("level", "count") whose removal
// yields an extra expansion
func (d *Dictionary) AddStripSuffix(words ...string) {
	for _, w := range words {
		key := string(Normalize(w))
		if key == "" || d.suffixes[key] {
			continue
		}
		d.suffixes[key] = true
		d.suffixOrder = append(d.suffixOrder, key)
	}
}

// Lookup returns the expansions registered for a shorthand
func (d *Dictionary) Lookup(shorthand string) []string {
	return d.entries[string(Normalize(shorthand))]
}

// Len returns the number of shorthand entries
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Shorthands returns the shorthand keys in insertion order
func (d *Dictionary) Shorthands() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// StripSuffixes returns the registered noise suffixes in insertion order
func (d *Dictionary) StripSuffixes() []string {
	out := make([]string, len(d.suffixOrder))
	copy(out, d.suffixOrder)
	return out
}

// Expand returns the identity expansion followed by at most DefaultMaxExpansions
// dictionary-driven expansions
func (d *Dictionary) Expand(t Text) []Text {
	return d.ExpandLimit(t, DefaultMaxExpansions)
}

// ExpandLimit returns t followed by at most limit distinct expansions.
// Order: whole-string match, then token substitution (longest multi-token key
// first, ambiguous tokens fanned out in insertion order with the leftmost token
// varying slowest), then noise-suffix removal.
func (d *Dictionary) ExpandLimit(t Text, limit int) []Text {
	out := []Text{t}
	if t.IsEmpty() || d == nil {
		return out
	}
	if limit <= 0 {
		limit = DefaultMaxExpansions
	}

	seen := map[Text]bool{t: true}
	full := func() bool { return len(out)-1 >= limit }
	add := func(s string) {
		x := Text(s)
		if x == "" || seen[x] || full() {
			return
		}
		seen[x] = true
		out = append(out, x)
	}

	for _, e := range d.entries[string(t)] {
		add(e)
	}

	segments, substituted := d.segment(t.Tokens())
	if substituted {
		d.product(segments, func(s string) bool {
			add(s)
			return !full()
		})
	}

	if len(d.suffixes) > 0 {
		snapshot := make([]Text, len(out))
		copy(snapshot, out)
		for _, x := range snapshot {
			if stripped, ok := d.stripSuffix(x); ok {
				add(stripped)
			}
		}
	}

	return out
}

// segment splits tokens into substitution slots using greedy longest-key matching.
// Each slot holds its alternatives; slots without a dictionary hit hold the token.
func (d *Dictionary) segment(tokens []string) ([][]string, bool) {
	var segments [][]string
	substituted := false

	for i := 0; i < len(tokens); {
		matched := false
		maxN := d.maxKeyTokens
		if rest := len(tokens) - i; rest < maxN {
			maxN = rest
		}
		for n := maxN; n >= 1; n-- {
			key := strings.Join(tokens[i:i+n], " ")
			if exps, ok := d.entries[key]; ok && len(exps) > 0 {
				segments = append(segments, exps)
				i += n
				matched = true
				substituted = true
				break
			}
		}
		if !matched {
			segments = append(segments, []string{tokens[i]})
			i++
		}
	}

	return segments, substituted
}

// product walks the cartesian product of segment alternatives lazily, stopping as
// soon as yield returns false
func (d *Dictionary) product(segments [][]string, yield func(string) bool) {
	idx := make([]int, len(segments))
	parts := make([]string, len(segments))

	for {
		for i, seg := range segments {
			parts[i] = seg[idx[i]]
		}
		if !yield(strings.Join(parts, " ")) {
			return
		}

		// odometer increment, rightmost slot fastest
		i := len(segments) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(segments[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

func (d *Dictionary) stripSuffix(t Text) (string, bool) {
	tokens := t.Tokens()
	if len(tokens) < 2 || !d.suffixes[tokens[len(tokens)-1]] {
		return "", false
	}
	return strings.Join(tokens[:len(tokens)-1], " "), true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
