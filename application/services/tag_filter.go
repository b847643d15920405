package services

import (
	"sort"
	"strings"

	"taskgraph/domain/core/entities"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterTagsByName narrows tags to those whose name contains the search term
// (case-insensitive) and ranks the matches: the exact match first, then
// prefix matches, then everything else in locale-aware alphabetical order.
// A blank term returns the input unchanged and unsorted.
func FilterTagsByName(tags []entities.Node, term string) []entities.Node {
	if strings.TrimSpace(term) == "" {
		return tags
	}

	needle := strings.ToLower(term)

	filtered := make([]entities.Node, 0, len(tags))
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag.Name), needle) {
			filtered = append(filtered, tag)
		}
	}

	collator := collate.New(language.Und, collate.IgnoreCase)

	sort.SliceStable(filtered, func(i, j int) bool {
		a := strings.ToLower(filtered[i].Name)
		b := strings.ToLower(filtered[j].Name)

		if a == needle {
			return b != needle
		}
		if b == needle {
			return false
		}

		aPrefix := strings.HasPrefix(a, needle)
		bPrefix := strings.HasPrefix(b, needle)
		if aPrefix && !bPrefix {
			return true
		}
		if bPrefix && !aPrefix {
			return false
		}

		return collator.CompareString(filtered[i].Name, filtered[j].Name) < 0
	})

	return filtered
}
