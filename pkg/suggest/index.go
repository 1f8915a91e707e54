package suggest

import (
	"sort"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Index is the local candidate set built from prefetched records.
// It is written once by NewIndex and read-only after, so lookups need no locking.
type Index struct {
	records []Record
	values  []string
	trie    *patricia.Trie
	fuzzy   bool
}

// NewIndex tokenizes every record value on whitespace and indexes each token,
// so "cal" finds both "California" and "Bank of California".
// With fuzzy set, Match falls back to fuzzy matching when no token prefix matches.
func NewIndex(records []Record, fuzzy bool) *Index {
	ix := &Index{
		records: records,
		values:  make([]string, len(records)),
		trie:    patricia.NewTrie(),
		fuzzy:   fuzzy,
	}

	for pos, rec := range records {
		ix.values[pos] = rec.Value
		for _, tok := range utils.Tokens(rec.Value) {
			var positions []int
			if item := ix.trie.Get(patricia.Prefix(tok)); item != nil {
				positions = item.([]int)
			}
			// a value repeating a token is indexed once
			if n := len(positions); n > 0 && positions[n-1] == pos {
				continue
			}
			ix.trie.Set(patricia.Prefix(tok), append(positions, pos))
		}
	}
	return ix
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.records)
}

// Match returns the records where every query token prefixes some value token,
// in prefetch order.
func (ix *Index) Match(fragment string) []Record {
	if ix.Len() == 0 {
		return nil
	}
	tokens := utils.Tokens(fragment)
	if len(tokens) == 0 {
		return nil
	}

	var hits map[int]bool
	for _, tok := range tokens {
		found := ix.positionsFor(tok)
		if hits == nil {
			hits = found
		} else {
			for pos := range hits {
				if !found[pos] {
					delete(hits, pos)
				}
			}
		}
		if len(hits) == 0 {
			break
		}
	}

	if len(hits) == 0 {
		if ix.fuzzy {
			return ix.fuzzyMatch(fragment)
		}
		return nil
	}

	order := make([]int, 0, len(hits))
	for pos := range hits {
		order = append(order, pos)
	}
	sort.Ints(order)

	matched := make([]Record, len(order))
	for i, pos := range order {
		matched[i] = ix.records[pos]
	}
	return matched
}

func (ix *Index) positionsFor(tok string) map[int]bool {
	found := make(map[int]bool)
	_ = ix.trie.VisitSubtree(patricia.Prefix(tok), func(_ patricia.Prefix, item patricia.Item) error {
		for _, pos := range item.([]int) {
			found[pos] = true
		}
		return nil
	})
	return found
}

func (ix *Index) fuzzyMatch(fragment string) []Record {
	ranks := fuzzy.RankFindFold(fragment, ix.values)
	sort.Stable(ranks)

	matched := make([]Record, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, ix.records[r.OriginalIndex])
	}
	return matched
}
