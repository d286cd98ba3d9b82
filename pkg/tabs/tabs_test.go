package tabs

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dialogform/pkg/model"
)

func names(groups []Group) map[string][]string {
	out := make(map[string][]string, len(groups))
	for _, group := range groups {
		out[group.Tab.ID] = model.Names(group.Fields)
	}
	return out
}

func TestGroupFieldsWithoutTabs(t *testing.T) {
	fields := []model.Field{{Name: "a", TabID: "ghost"}, {Name: "b"}}
	groups := GroupFields(fields, nil)
	if len(groups) != 1 || !groups[0].Ungrouped() {
		t.Fatalf("expected one ungrouped list, got %+v", groups)
	}
	if diff := cmp.Diff([]string{"a", "b"}, model.Names(groups[0].Fields)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupFieldsAssignsUnknownToFirstTab(t *testing.T) {
	tabs := []model.Tab{{ID: "general", Label: "General"}, {ID: "lifecycle", Label: "Lifecycle"}, {ID: "empty"}}
	fields := []model.Field{
		{Name: "name", TabID: "general"},
		{Name: "goLive", TabID: "lifecycle"},
		{Name: "orphan", TabID: "missing"},
		{Name: "untabbed"},
		{Name: "endOfLife", TabID: "lifecycle"},
	}

	groups := GroupFields(fields, tabs)
	want := map[string][]string{
		"general":   {"name", "orphan", "untabbed"},
		"lifecycle": {"goLive", "endOfLife"},
		"empty":     nil,
	}
	if diff := cmp.Diff(want, names(groups)); diff != "" {
		t.Fatalf("grouping mismatch (-want +got):\n%s", diff)
	}

	total := 0
	for _, group := range groups {
		total += len(group.Fields)
	}
	if total != len(fields) {
		t.Fatalf("every field must appear exactly once, got %d of %d", total, len(fields))
	}
	if got := NonEmpty(groups); len(got) != 2 || got[1].Tab.ID != "lifecycle" {
		t.Fatalf("unexpected non-empty groups %+v", got)
	}
}
