// Package tabs partitions field descriptors into ordered tab groups.
package tabs

import "github.com/goliatone/go-dialogform/pkg/model"

// Group is one tab and the fields placed on it, in declaration order. The
// ungrouped group returned when no tabs are declared has a zero Tab.
type Group struct {
	Tab    model.Tab
	Fields []model.Field
}

// Ungrouped reports whether the group represents the flat, tab-less layout.
func (g Group) Ungrouped() bool {
	return g.Tab.ID == ""
}

// GroupFields assigns every field to exactly one group. Without tabs the
// result is a single ungrouped list. Fields with an empty or unknown TabID
// land on the first tab. Tab order and field order are preserved, and tabs
// without fields are kept so callers can decide whether to show them.
func GroupFields(fields []model.Field, tabs []model.Tab) []Group {
	if len(tabs) == 0 {
		return []Group{{Fields: append([]model.Field(nil), fields...)}}
	}

	groups := make([]Group, len(tabs))
	index := make(map[string]int, len(tabs))
	for i, tab := range tabs {
		groups[i] = Group{Tab: tab}
		if _, exists := index[tab.ID]; !exists {
			index[tab.ID] = i
		}
	}

	for _, field := range fields {
		pos, ok := index[field.TabID]
		if !ok || field.TabID == "" {
			pos = 0
		}
		groups[pos].Fields = append(groups[pos].Fields, field)
	}
	return groups
}

// NonEmpty drops groups without fields, keeping order.
func NonEmpty(groups []Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, group := range groups {
		if len(group.Fields) > 0 {
			out = append(out, group)
		}
	}
	return out
}
