// Package testsupport holds fixture and golden file helpers shared by the
// package tests.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/render"
	"github.com/goliatone/go-dialogform/pkg/session"
	"github.com/goliatone/go-dialogform/pkg/uischema"
)

// UpdateEnv rewrites golden files instead of comparing against them.
const UpdateEnv = "UPDATE_GOLDENS"

// MustLoadView reads a JSON view fixture.
func MustLoadView(t *testing.T, path string) render.View {
	t.Helper()

	view, err := LoadView(path)
	if err != nil {
		t.Fatalf("load view: %v", err)
	}
	return view
}

// LoadView reads a JSON view fixture, returning an error for callers managing
// setup outside of *testing.T.
func LoadView(path string) (render.View, error) {
	if path == "" {
		return render.View{}, errors.New("testsupport: view path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return render.View{}, fmt.Errorf("testsupport: read view: %w", err)
	}
	var out render.View
	if err := json.Unmarshal(data, &out); err != nil {
		return render.View{}, fmt.Errorf("testsupport: unmarshal view: %w", err)
	}
	return out, nil
}

// MustLoadCatalog builds an adapter registry from an inline catalog
// document.
func MustLoadCatalog(t *testing.T, doc string) *adapter.Registry {
	t.Helper()

	store, err := uischema.Parse([]byte(doc), t.Name())
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	reg, err := adapter.FromStore(store)
	if err != nil {
		t.Fatalf("build adapters: %v", err)
	}
	return reg
}

// SeedStore saves records, keyed by entity type then id, into a new
// in-memory store.
func SeedStore(t *testing.T, records map[string]map[string]map[string]any) *session.MemoryStore {
	t.Helper()

	store := session.NewMemoryStore()
	for entityType, byID := range records {
		for id, values := range byID {
			if _, err := store.Save(Context(), entityType, id, values); err != nil {
				t.Fatalf("seed %s/%s: %v", entityType, id, err)
			}
		}
	}
	return store
}

// Golden compares got with the golden file at path, rewriting the file
// when UPDATE_GOLDENS is set.
func Golden(t *testing.T, path string, got []byte) {
	t.Helper()

	if WriteMaybeGolden(t, path, got) {
		return
	}
	want := MustReadGolden(t, path)
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv(UpdateEnv) == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	WriteMaybeGolden(t, path, payload)
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any, opts ...cmp.Option) string {
	return cmp.Diff(want, got, opts...)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv(UpdateEnv) == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
