package template_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-dialogform/pkg/render/template"
)

func newEngine(t *testing.T) *template.Engine {
	t.Helper()
	files := fstest.MapFS{
		"hello.tmpl":  {Data: []byte(`Hello {{ name }}!`)},
		"global.tmpl": {Data: []byte(`env={{ settings.env }}`)},
		"field.tmpl":  {Data: []byte(`<label class="{{ kind|kebab }}">{{ label }}</label>`)},
	}
	engine, err := template.NewEngine(template.WithFS(files))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngineRenderTemplate(t *testing.T) {
	engine := newEngine(t)

	var out strings.Builder
	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello Ada!" {
		t.Fatalf("got %q", got)
	}
	if out.String() != got {
		t.Fatalf("writer got %q", out.String())
	}
}

func TestEngineUsesJSONNames(t *testing.T) {
	engine := newEngine(t)

	type field struct {
		Kind  string `json:"kind"`
		Label string `json:"label"`
	}
	got, err := engine.RenderTemplate("field.tmpl", field{Kind: "singleChoice", Label: "Owner <ops>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<label class="single-choice">Owner &lt;ops&gt;</label>`
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestEngineGlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{"settings": map[string]any{"env": "staging"}}); err != nil {
		t.Fatalf("global context: %v", err)
	}
	got, err := engine.RenderTemplate("global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "env=staging" {
		t.Fatalf("got %q", got)
	}
}

func TestEngineRegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout_dialog", func(input any, _ any) (any, error) {
		s, _ := input.(string)
		return strings.ToUpper(s) + "!", nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.RegisterFilter("shout_dialog", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatal("expected duplicate filter error")
	}

	got, err := engine.RenderString(`{{ word|shout_dialog }}`, map[string]any{"word": "edit"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "EDIT!" {
		t.Fatalf("got %q", got)
	}
}

func TestEngineRequiresSource(t *testing.T) {
	if _, err := template.NewEngine(); err == nil {
		t.Fatal("expected error without template source")
	}
}

func TestKebab(t *testing.T) {
	cases := map[string]string{
		"singleChoice":  "single-choice",
		"plainText":     "plain-text",
		"owner_team":    "owner-team",
		"  Start Date ": "start-date",
		"dateTime":      "date-time",
		"already-kebab": "already-kebab",
	}
	for in, want := range cases {
		if got := template.Kebab(in); got != want {
			t.Errorf("Kebab(%q) = %q, want %q", in, got, want)
		}
	}
}
