package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dialogform/pkg/renderers/tui"
)

func run(t *testing.T, opts *rootOptions, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	if opts == nil {
		opts = &rootOptions{}
	}
	cmd := newRootCommand(&out, &errOut, opts)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRenderHTML(t *testing.T) {
	out, _, err := run(t, nil, "render", "application", "app-ledger")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"<!DOCTYPE html>", `data-mode="view"`, `value="Ledger"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTextToFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ledger.txt")
	_, errOut, err := run(t, nil, "render", "application", "app-ledger", "--renderer", "tui", "-o", target)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "Name*: Ledger") {
		t.Fatalf("unexpected output:\n%s", data)
	}
	if !strings.Contains(errOut, target) {
		t.Fatalf("expected confirmation on stderr, got %q", errOut)
	}
}

func TestRenderErrors(t *testing.T) {
	cases := [][]string{
		{"render", "application", "missing"},
		{"render", "unknown"},
		{"render", "application", "--mode", "sideways"},
		{"render"},
	}
	for _, args := range cases {
		if _, _, err := run(t, nil, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestRenderWithoutSeed(t *testing.T) {
	if _, _, err := run(t, nil, "render", "application", "app-ledger", "--seed=false"); err == nil {
		t.Fatal("expected missing record without seed data")
	}
}

func TestConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "team.yaml", `
entities:
  team:
    title: Team
    fields:
      - name: name
        required: true
`)
	cfgPath := writeFile(t, dir, "dialogform.yaml", "catalog:\n  dir: "+dir+"\nseed: false\nlog:\n  level: warn\n")

	out, _, err := run(t, nil, "--config", cfgPath, "render", "team", "--renderer", "tui")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "== Team [create] ==") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	t.Setenv("DIALOGFORM_LOG_LEVEL", "shouting")
	if _, _, err := run(t, nil, "--config", cfgPath, "render", "team"); err == nil {
		t.Fatal("expected invalid log level from the environment to fail")
	}
}

func TestThemeManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "theme.yaml", `
name: acme
tokens:
  brand: "#123456"
assets:
  prefix: /static
  files:
    dialog.stylesheet: acme.css
variants:
  dark:
    tokens:
      brand: "#000000"
`)
	out, _, err := run(t, nil, "render", "application", "app-ledger", "--theme-manifest", manifest, "--theme-variant", "dark")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`data-theme="acme"`, `data-theme-variant="dark"`, `href="/static/acme.css"`, "--brand: #000000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := loadManifest(writeFile(t, dir, "nameless.yaml", "tokens: {}\n")); err == nil {
		t.Fatal("expected nameless manifest to fail")
	}
}

type scriptedDriver struct {
	selects []int
	inputs  []string
	menus   [][]string
}

func (d *scriptedDriver) Input(context.Context, tui.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", tui.ErrAborted
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	return false, nil
}

func (d *scriptedDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return 0, tui.ErrAborted
	}
	if cfg.Message == "Action" {
		d.menus = append(d.menus, cfg.Options)
	}
	v := d.selects[0]
	d.selects = d.selects[1:]
	return v, nil
}

func (d *scriptedDriver) MultiSelect(context.Context, tui.SelectConfig) ([]int, error) {
	return nil, tui.ErrAborted
}

func (d *scriptedDriver) TextArea(context.Context, tui.TextAreaConfig) (string, error) {
	return "", tui.ErrAborted
}

func (d *scriptedDriver) Info(context.Context, string) error { return nil }

func TestEditRunsTerminalDialog(t *testing.T) {
	driver := &scriptedDriver{selects: []int{0}, inputs: []string{"Finance & Risk"}}
	_, errOut, err := run(t, &rootOptions{prompts: driver}, "edit", "principle", "pr-reuse")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(errOut, "aborted") {
		t.Fatalf("expected aborted notice, got %q", errOut)
	}
	if len(driver.menus) == 0 || driver.menus[0][0] != "Set Name" {
		t.Fatalf("unexpected first menu %v", driver.menus)
	}
}

func TestLint(t *testing.T) {
	out, _, err := run(t, nil, "lint")
	if err != nil {
		t.Fatalf("lint embedded catalog: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok   embedded catalog (8 entity types)") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.yaml", `
entities:
  team:
    fields:
      - name: lead
        target: person
        loader: person
      - name: region
        loader: regions
`)
	out, _, err = run(t, nil, "lint", broken)
	if err == nil {
		t.Fatalf("expected lint failure:\n%s", out)
	}
	var fails []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "FAIL ") {
			fails = append(fails, line)
		}
	}
	want := []string{
		`FAIL ` + broken + `: team.lead: references unregistered entity type "person"`,
		`FAIL ` + broken + `: team.lead: unknown option loader "person"`,
		`FAIL ` + broken + `: team.region: unknown option loader "regions"`,
	}
	if diff := cmp.Diff(want, fails); diff != "" {
		t.Fatalf("lint output mismatch (-want +got):\n%s", diff)
	}

	openapi := writeFile(t, dir, "api.yaml", `openapi: 3.0.3
info:
  title: Teams
  version: 1.0.0
paths: {}
components:
  schemas:
    Team:
      type: object
      x-dialog-entity: team
      properties:
        name:
          type: string
`)
	out, _, err = run(t, nil, "lint", openapi)
	if err != nil {
		t.Fatalf("lint openapi: %v\n%s", err, out)
	}
	if !strings.Contains(out, "(1 entity types)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
