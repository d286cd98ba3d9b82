package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dialogform/pkg/model"
)

func floatPtr(v float64) *float64 { return &v }

func mustPipeline(t *testing.T, fields []model.Field, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(fields, opts...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestPipelineRequiredShortCircuitsOtherValidators(t *testing.T) {
	called := false
	p := mustPipeline(t, []model.Field{{
		Name:     "name",
		Required: true,
		Rules:    []model.ValidationRule{{Kind: model.ValidationRuleMinLength, Params: map[string]string{"value": "3"}}},
		Validators: []model.Validator{{Timing: model.TimingAlways, Check: func(any, map[string]any) []string {
			called = true
			return nil
		}}},
	}})

	errs := p.Validate(map[string]any{"name": "  "}, TriggerChange)
	if diff := cmp.Diff(Errors{"name": {"Name is required"}}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if called {
		t.Fatalf("custom validator must not run for empty required field")
	}

	errs = p.Validate(map[string]any{"name": "ab"}, TriggerChange)
	if got := errs.For("name"); len(got) != 1 || got[0] != "must be at least 3 characters" {
		t.Fatalf("unexpected messages %v", got)
	}
	if !called {
		t.Fatalf("custom validator should run for present values")
	}
}

func TestPipelineTimingSelectsValidators(t *testing.T) {
	onSubmit := model.Validator{Timing: model.TimingSubmit, Check: func(any, map[string]any) []string {
		return []string{"checked on submit"}
	}}
	onChange := model.Validator{Timing: model.TimingChange, Check: func(any, map[string]any) []string {
		return []string{"checked on change"}
	}}
	p := mustPipeline(t, []model.Field{{Name: "code", Validators: []model.Validator{onSubmit, onChange}}})

	record := map[string]any{"code": "x"}
	if got := p.Validate(record, TriggerChange).For("code"); !cmp.Equal(got, []string{"checked on change"}) {
		t.Fatalf("change trigger ran %v", got)
	}
	if got := p.Validate(record, TriggerSubmit).For("code"); !cmp.Equal(got, []string{"checked on submit"}) {
		t.Fatalf("submit trigger ran %v", got)
	}
}

func TestPipelineNumericBoundsAndRules(t *testing.T) {
	p := mustPipeline(t, []model.Field{
		{Name: "users", Control: model.Numeric{Integer: true, Min: floatPtr(0), Max: floatPtr(100)}},
		{Name: "code", Rules: []model.ValidationRule{{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": "^[A-Z]{3}$", "message": "use three capitals"}}}},
		{Name: "owners", Control: model.MultiChoice{}, Rules: []model.ValidationRule{{Kind: model.ValidationRuleMaxItems, Params: map[string]string{"value": "1"}}}},
	})

	errs := p.Validate(map[string]any{
		"users":  150.5,
		"code":   "abc",
		"owners": []string{"a", "b"},
	}, TriggerChange)

	want := Errors{
		"users":  {"must be a whole number", "must be at most 100"},
		"code":   {"use three capitals"},
		"owners": {"select at most 1"},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if errs := p.Validate(map[string]any{"users": nil, "code": "ABC"}, TriggerChange); !errs.Empty() {
		t.Fatalf("absent optional values must not fail rules: %v", errs)
	}
}

func TestPipelineSkipsHiddenAndStaticFields(t *testing.T) {
	p := mustPipeline(t, []model.Field{
		{Name: "reason", Required: true, Visible: func(r map[string]any) bool { return r["status"] == "retired" }},
		{Name: "summary", Required: true, Control: model.StaticDisplay{}},
	})
	if errs := p.Validate(map[string]any{"status": "active"}, TriggerSubmit); !errs.Empty() {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if errs := p.Validate(map[string]any{"status": "retired"}, TriggerSubmit); len(errs.For("reason")) != 1 {
		t.Fatalf("visible required field should fail, got %v", errs)
	}
}

func TestPipelineRecordValidatorMergesMessages(t *testing.T) {
	record := RecordValidatorFunc(func(r map[string]any) Errors {
		if r["goLive"] != nil && r["endOfLife"] != nil && r["endOfLife"].(string) < r["goLive"].(string) {
			return Errors{"endOfLife": {"must be after go-live"}}
		}
		return nil
	})
	p := mustPipeline(t, []model.Field{{Name: "goLive"}, {Name: "endOfLife"}}, WithRecordValidator(Chain(record, nil)))

	errs := p.Validate(map[string]any{"goLive": "2024-05-01", "endOfLife": "2023-01-01"}, TriggerChange)
	if diff := cmp.Diff(Errors{"endOfLife": {"must be after go-live"}}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineValidatorPanicsPropagate(t *testing.T) {
	p := mustPipeline(t, []model.Field{{Name: "x", Validators: []model.Validator{{Timing: model.TimingAlways, Check: func(any, map[string]any) []string {
		panic("boom")
	}}}}})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic to propagate")
		}
	}()
	p.Validate(map[string]any{"x": "1"}, TriggerChange)
}

func TestNewPipelineRejectsMalformedRules(t *testing.T) {
	_, err := NewPipeline([]model.Field{{Name: "x", Rules: []model.ValidationRule{{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": "("}}}}})
	if err == nil || !strings.Contains(err.Error(), `field "x"`) {
		t.Fatalf("expected compile error, got %v", err)
	}
}

func TestErrorsHelpers(t *testing.T) {
	errs := make(Errors)
	errs.Add("a", " first ", "first", "")
	errs.Add("b")
	if diff := cmp.Diff(Errors{"a": {"first"}}, errs); diff != "" {
		t.Fatalf("Add mismatch (-want +got):\n%s", diff)
	}

	clone := errs.Clone()
	clone.Add("a", "second")
	if len(errs["a"]) != 1 {
		t.Fatalf("clone must not share slices")
	}

	err := &Error{Fields: clone}
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "1 field(s) invalid: a") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMapPayload(t *testing.T) {
	fields := []model.Field{{Name: "name"}, {Name: "owners"}}
	payload := map[string][]string{
		"/body/name":        {"already taken"},
		"data.owners[0]":    {"unknown owner"},
		"non_field_errors":  {"try again"},
		"#/somethingElse/x": {"lost?"},
	}
	got := MapPayload(fields, payload)
	if !cmp.Equal(got.For("name"), []string{"already taken"}) {
		t.Fatalf("name: %v", got.For("name"))
	}
	if !cmp.Equal(got.For("owners"), []string{"unknown owner"}) {
		t.Fatalf("owners: %v", got.For("owners"))
	}
	if len(got.For(FormKey)) != 2 {
		t.Fatalf("form-level messages: %v", got.For(FormKey))
	}

	wrapped := errors.Join(errors.New("store"), &FieldErrors{Payload: payload})
	if fe, ok := AsFieldErrors(wrapped); !ok || len(fe.Payload) != 4 {
		t.Fatalf("AsFieldErrors failed")
	}
}

func TestCUEValidator(t *testing.T) {
	v, err := NewCUEValidator(`
application: {
	budget?:      number & >=0
	criticality?: "low" | "medium" | "high"
}
`, WithCUEPath("application"))
	if err != nil {
		t.Fatalf("NewCUEValidator: %v", err)
	}

	errs := v.ValidateRecord(map[string]any{"name": "Ledger", "budget": -5.0, "criticality": "low", "tags": nil})
	if len(errs.For("budget")) == 0 {
		t.Fatalf("expected budget violation, got %v", errs)
	}
	if len(errs.For("name")) != 0 || len(errs.For("criticality")) != 0 {
		t.Fatalf("unexpected messages %v", errs)
	}

	if errs := v.ValidateRecord(map[string]any{"budget": 10.0, "criticality": "high"}); !errs.Empty() {
		t.Fatalf("expected valid record, got %v", errs)
	}

	if _, err := NewCUEValidator("a: {", WithCUEPath("a")); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := NewCUEValidator("a: {}", WithCUEPath("missing")); err == nil {
		t.Fatalf("expected missing path error")
	}
}
