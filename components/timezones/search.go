package timezones

import (
	"sort"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// Search returns zones containing query, case-insensitively. Prefix matches
// rank first, then names in order.
func Search(zones []string, query string, limit int, opts Options) []string {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode != EmptySearchTop {
			return nil
		}
		if len(zones) <= limit {
			return append([]string(nil), zones...)
		}
		return append([]string(nil), zones[:limit]...)
	}

	q := strings.ToLower(query)
	type match struct {
		name     string
		isPrefix bool
	}
	matches := make([]match, 0, 32)
	for _, zone := range zones {
		lower := strings.ToLower(zone)
		if strings.Contains(lower, q) {
			matches = append(matches, match{name: zone, isPrefix: strings.HasPrefix(lower, q)})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out
}

// SearchOptions is Search with every zone as its own id and label.
func SearchOptions(zones []string, query string, limit int, opts Options) []model.Option {
	results := Search(zones, query, limit, opts)
	if len(results) == 0 {
		return nil
	}
	out := make([]model.Option, 0, len(results))
	for _, zone := range results {
		out = append(out, model.Option{ID: zone, Label: zone})
	}
	return out
}
