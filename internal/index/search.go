package index

import (
	"sort"
	"strings"

	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/normalize"
)

// DefaultSearchLimit is used when Search is given a non-positive limit
const DefaultSearchLimit = 20

// SearchHit is a concept whose name or synonym contains the search text
type SearchHit struct {
	Identifier  model.Identifier `json:"identifier"`
	Name        string           `json:"name"`
	MatchedText string           `json:"matched_text"`
}

// browseEntry holds one concept's searchable texts, official names first
type browseEntry struct {
	identifier model.Identifier
	name       string
	nameText   normalize.Text
	nameLen    int
	texts      []normalize.Text
}

func (idx *Index) buildBrowse(order []model.Identifier) {
	idx.browse = make([]browseEntry, 0, len(order))
	for _, id := range order {
		c := idx.concepts[id]
		name := c.PreferredName()
		b := browseEntry{
			identifier: id,
			name:       name,
			nameText:   normalize.Normalize(name),
			nameLen:    len([]rune(name)),
		}
		seen := make(map[normalize.Text]bool)
		for _, raw := range append(append([]string{}, c.Names...), c.DedupedSynonyms()...) {
			t := normalize.Normalize(raw)
			if t.IsEmpty() || seen[t] {
				continue
			}
			seen[t] = true
			b.texts = append(b.texts, t)
		}
		idx.browse = append(idx.browse, b)
	}
}

// Search returns up to limit concepts whose official names or synonyms contain
// query. Concepts whose preferred name starts with query come first, then
// shorter preferred names, then identifier order.
func (idx *Index) Search(query normalize.Text, limit int) []SearchHit {
	if query.IsEmpty() {
		return []SearchHit{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	type ranked struct {
		hit    SearchHit
		prefix bool
		length int
	}
	q := string(query)
	var found []ranked
	for _, b := range idx.browse {
		for _, t := range b.texts {
			if !strings.Contains(string(t), q) {
				continue
			}
			found = append(found, ranked{
				hit:    SearchHit{Identifier: b.identifier, Name: b.name, MatchedText: string(t)},
				prefix: strings.HasPrefix(string(b.nameText), q),
				length: b.nameLen,
			})
			break
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].prefix != found[j].prefix {
			return found[i].prefix
		}
		if found[i].length != found[j].length {
			return found[i].length < found[j].length
		}
		return found[i].hit.Identifier < found[j].hit.Identifier
	})

	if len(found) > limit {
		found = found[:limit]
	}
	out := make([]SearchHit, len(found))
	for i, r := range found {
		out[i] = r.hit
	}
	return out
}
