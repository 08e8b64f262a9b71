// Package search ranks repository paths against a fuzzy query.
package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
)

// DefaultLimit is the maximum number of matches returned by Filter.
const DefaultLimit = 50

// Match is a single ranked hit.
type Match struct {
	Path  string `json:"path"`
	Score int    `json:"score"`
	Index int    `json:"index"` // position in the searched corpus
}

// Rank scores every corpus entry against query and returns at most limit matches,
// best score first. Equal scores keep corpus order. Matching is case-insensitive:
// both sides are lower-cased before scoring. The query is otherwise used as
// given, whitespace included. An empty query matches nothing.
func Rank(corpus []string, query string, limit int) []Match {
	query = strings.ToLower(query)
	if query == "" || len(corpus) == 0 || limit <= 0 {
		return []Match{}
	}

	lowered := make([]string, len(corpus))
	for i, s := range corpus {
		lowered[i] = strings.ToLower(s)
	}

	found := fuzzy.Find(query, lowered)

	// fuzzy sorts by score but its ordering of ties is not stable across runs.
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Score != found[j].Score {
			return found[i].Score > found[j].Score
		}
		return found[i].Index < found[j].Index
	})

	if len(found) > limit {
		found = found[:limit]
	}

	return lo.Map(found, func(m fuzzy.Match, _ int) Match {
		return Match{Path: corpus[m.Index], Score: m.Score, Index: m.Index}
	})
}

// Filter returns the original-case paths of the top matches for query.
func Filter(corpus []string, query string, limit int) []string {
	return lo.Map(Rank(corpus, query, limit), func(m Match, _ int) string {
		return m.Path
	})
}
