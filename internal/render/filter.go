package render

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Filter keeps the items whose name fuzzily matches query, ignoring case and
// diacritics. An empty query keeps everything.
func Filter[T any](items []T, query string, name func(T) string) []T {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	return lo.Filter(items, func(it T, _ int) bool {
		return fuzzy.MatchNormalizedFold(query, name(it))
	})
}
