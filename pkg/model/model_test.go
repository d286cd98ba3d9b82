package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeReference(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  Reference
		ok    bool
	}{
		{name: "raw id", input: " app-1 ", want: Reference{ID: "app-1"}, ok: true},
		{name: "pair", input: map[string]any{"id": "cap-7", "label": "Billing"}, want: Reference{ID: "cap-7", Label: "Billing"}, ok: true},
		{name: "pair with name", input: map[string]any{"id": 12.0, "name": "Ledger"}, want: Reference{ID: "12", Label: "Ledger"}, ok: true},
		{name: "string map", input: map[string]string{"id": "x", "label": "X"}, want: Reference{ID: "x", Label: "X"}, ok: true},
		{name: "integer", input: 42, want: Reference{ID: "42"}, ok: true},
		{name: "reference", input: Reference{ID: "r", Label: "R"}, want: Reference{ID: "r", Label: "R"}, ok: true},
		{name: "blank", input: "  ", ok: false},
		{name: "nil", input: nil, ok: false},
		{name: "map without id", input: map[string]any{"label": "orphan"}, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeReference(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if diff := cmp.Diff(tc.want, got); ok && diff != "" {
				t.Fatalf("reference mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReferencesMixedShapesAndDedupe(t *testing.T) {
	value := []any{"a", map[string]any{"id": "b", "label": "Bee"}, "a", "", nil}
	got := References(value)
	want := []Reference{{ID: "a"}, {ID: "b", Label: "Bee"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}

	if ids := ReferenceIDs([]string{"x", "y"}); !cmp.Equal(ids, []string{"x", "y"}) {
		t.Fatalf("unexpected ids %v", ids)
	}
	if refs := References("solo"); len(refs) != 1 || refs[0].ID != "solo" {
		t.Fatalf("expected single reference, got %v", refs)
	}
}

func TestSameReferenceIgnoresShape(t *testing.T) {
	if !SameReference("cap-1", map[string]any{"id": "cap-1", "label": "Payments"}) {
		t.Fatalf("expected raw id and pair to match")
	}
	if SameReference("cap-1", "cap-2") {
		t.Fatalf("expected different ids to differ")
	}
	if SameReference(nil, nil) {
		t.Fatalf("nil references never match")
	}
}

func TestIsEmpty(t *testing.T) {
	empty := []any{nil, "", "   ", []string{}, []any{}, map[string]any{}, Reference{}, (*float64)(nil)}
	for _, v := range empty {
		if !IsEmpty(v) {
			t.Errorf("expected %#v to be empty", v)
		}
	}
	zero := 0.0
	present := []any{"x", 0, 0.0, false, []string{"a"}, Reference{ID: "1"}, &zero}
	for _, v := range present {
		if IsEmpty(v) {
			t.Errorf("expected %#v to be present", v)
		}
	}
}

func TestChoiceLabelResolution(t *testing.T) {
	options := []Option{{ID: "low", Label: "Low"}, {ID: "high", Label: "High"}}
	choice, ok := ChoiceOf(MultiChoice{Tokens: true, Target: "capability"})
	if !ok || !choice.Multiple || !choice.Tokens || choice.Target != "capability" {
		t.Fatalf("unexpected choice view %+v", choice)
	}

	if got := choice.Label("high", options); got != "High" {
		t.Fatalf("option label lookup = %q", got)
	}
	if got := choice.Label(map[string]any{"id": "x", "label": "Carried"}, options); got != "Carried" {
		t.Fatalf("carried label = %q", got)
	}
	if got := choice.Label("unknown", options); got != "unknown" {
		t.Fatalf("fallback label = %q", got)
	}
	if !choice.Selected([]any{"low"}, options[0]) || choice.Selected([]any{"low"}, options[1]) {
		t.Fatalf("selection check mismatch")
	}

	custom, _ := ChoiceOf(SingleChoice{LabelOf: func(any) string { return "always" }})
	if got := custom.Label("low", options); got != "always" {
		t.Fatalf("LabelOf not honoured: %q", got)
	}
	if _, ok := ChoiceOf(PlainText{}); ok {
		t.Fatalf("plain text is not a choice")
	}
}

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"endOfLife":      "End Of Life",
		"data_object_id": "Data Object Id",
		"tier2Support":   "Tier 2 Support",
		"":               "",
	}
	for in, want := range cases {
		if got := DefaultLabeler(in); got != want {
			t.Errorf("DefaultLabeler(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldHelpers(t *testing.T) {
	field := Field{Name: "summary", Control: StaticDisplay{}}
	if field.Kind() != KindStaticDisplay || field.Editable() {
		t.Fatalf("static display must not be editable")
	}
	if (Field{Name: "name"}).Kind() != KindPlainText {
		t.Fatalf("missing control defaults to plain text")
	}
	if !KindFreeTags.Valid() || Kind("slider").Valid() {
		t.Fatalf("kind validation mismatch")
	}
	if !TimingAlways.Has(TimingSubmit) || TimingChange.Has(TimingSubmit) {
		t.Fatalf("timing bit mismatch")
	}
}
