package visibility

import "testing"

func TestCompileRules(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"enabled":   true,
		"flag":      "true",
		"status":    "retired",
		"cost":      12.0,
		"count":     3,
		"owner":     nil,
		"tags":      []any{"pci", "gdpr"},
		"teams":     []string{"core"},
		"empty":     []any{},
		"cta.title": "Hello",
		"lifecycle": map[string]any{"phase": "sunset"},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"enabled", true},
		{"!enabled", false},
		{"missing", false},
		{"empty", false},
		{"enabled == true", true},
		{"flag == true", true},
		{"enabled != false", true},
		{`status == "retired"`, true},
		{`status == 'retired'`, true},
		{"status == retired", true},
		{`status != "active"`, true},
		{"cost == 12", true},
		{"count == 3", true},
		{"count != 3", false},
		{"owner == null", true},
		{"missing == nil", true},
		{"owner != null", false},
		{`tags == "gdpr"`, true},
		{`tags != "sox"`, true},
		{`teams == "core"`, true},
		{`cta.title == "Hello"`, true},
		{`lifecycle.phase == "sunset"`, true},
		{`lifecycle.phase == "growth" || status == "retired"`, true},
		{`enabled && (cost == 1 || count == 3)`, true},
		{`enabled && !(count == 3)`, false},
		{`status == "it's"`, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.rule, func(t *testing.T) {
			t.Parallel()
			p, err := Compile(tc.rule)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tc.rule, err)
			}
			if got := p(record); got != tc.want {
				t.Fatalf("%q: got %v, want %v", tc.rule, got, tc.want)
			}
		})
	}
}

func TestCompileEscapedStrings(t *testing.T) {
	t.Parallel()

	p := MustCompile(`note == 'it\'s "done"'`)
	if !p(map[string]any{"note": `it's "done"`}) {
		t.Fatal("expected escaped literal to match")
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		"a = 1",
		"a & b",
		"a | b",
		`a == "open`,
		"(a",
		"a == ",
		"== 1",
		"a b",
		"a == 1x",
		"!",
	} {
		if _, err := Compile(rule); err == nil {
			t.Errorf("Compile(%q): expected error", rule)
		}
	}
}

func TestMustCompilePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustCompile("a &&")
}
