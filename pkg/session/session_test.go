package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/dialog"
	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/navigation"
	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/render"
)

func testAdapters() *adapter.Registry {
	reg := adapter.NewRegistry()
	reg.MustRegister(&adapter.Definition{
		Type: "application",
		FieldList: []model.Field{
			{Name: "name", Required: true, Control: model.PlainText{}},
			{Name: "capabilities", Control: model.MultiChoice{Target: "capability", Tokens: true}},
		},
		AllowDelete: true,
	})
	reg.MustRegister(&adapter.Definition{
		Type: "capability",
		FieldList: []model.Field{
			{Name: "name", Required: true, Control: model.PlainText{}},
			{Name: "related", Control: model.MultiChoice{Target: "capability", Tokens: true}},
		},
		AllowDelete: true,
	})
	return reg
}

func testStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	ctx := context.Background()
	seed := []struct {
		entityType, id string
		values         map[string]any
	}{
		{"application", "a1", map[string]any{"name": "Ledger", "capabilities": []any{"c1", "c2", "c9"}}},
		{"capability", "c1", map[string]any{"name": "Billing", "related": []any{"c2"}}},
		{"capability", "c2", map[string]any{"name": "Invoicing", "related": []any{"c1"}}},
	}
	for _, rec := range seed {
		if _, err := store.Save(ctx, rec.entityType, rec.id, rec.values); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func openSession(t *testing.T, store *MemoryStore, entityType, id string, m mode.Mode) *Session {
	t.Helper()
	s, err := Open(context.Background(), testAdapters(), store, entityType, id, m)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestViewTokenOpensNestedViewAndCloseRestoresParent(t *testing.T) {
	s := openSession(t, testStore(t), "application", "a1", mode.View)
	before := s.Root().Snapshot()

	nested, err := s.OpenToken(context.Background(), "capabilities", "c2")
	if err != nil {
		t.Fatalf("OpenToken: %v", err)
	}
	if nested.Mode() != mode.View || nested.EntityID() != "c2" || s.Depth() != 1 || s.Active() != nested {
		t.Fatalf("unexpected nested frame mode=%s id=%s depth=%d", nested.Mode(), nested.EntityID(), s.Depth())
	}

	if err := s.CloseTop(); err != nil {
		t.Fatalf("CloseTop: %v", err)
	}
	if s.Depth() != 0 || s.Active() != s.Root() || !nested.Closed() {
		t.Fatalf("close must pop exactly the nested frame")
	}
	after := s.Root().Snapshot()
	if diff := cmp.Diff(before.Values, after.Values); diff != "" {
		t.Fatalf("parent values changed (-before +after):\n%s", diff)
	}
	if before.Version != after.Version {
		t.Fatalf("parent state was touched: version %d -> %d", before.Version, after.Version)
	}
	if err := s.CloseTop(); !errors.Is(err, navigation.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestNestedSubmitLeavesParentAlone(t *testing.T) {
	store := testStore(t)
	s := openSession(t, store, "application", "a1", mode.Edit)
	if err := s.Root().SetValue("name", "Ledger v2"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	parent := s.Root().Snapshot()

	nested, err := s.OpenToken(context.Background(), "capabilities", "c1")
	if err != nil {
		t.Fatalf("OpenToken: %v", err)
	}
	if nested.Mode() != mode.Edit {
		t.Fatalf("edit parent must open nested edit, got %s", nested.Mode())
	}
	if err := nested.SetValue("name", "Billing & Payments"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := nested.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.CloseTop(); err != nil {
		t.Fatalf("CloseTop: %v", err)
	}

	if diff := cmp.Diff(parent.Values, s.Root().Snapshot().Values); diff != "" {
		t.Fatalf("parent values changed (-want +got):\n%s", diff)
	}
	stored, _ := store.Load(context.Background(), "capability", "c1")
	if stored["name"] != "Billing & Payments" {
		t.Fatalf("nested submit not persisted: %v", stored)
	}
}

func TestSelfReferenceCycleGuard(t *testing.T) {
	s := openSession(t, testStore(t), "application", "a1", mode.View)
	ctx := context.Background()

	c2, err := s.OpenToken(ctx, "capabilities", "c2")
	if err != nil {
		t.Fatalf("open c2: %v", err)
	}
	if _, err := s.OpenToken(ctx, "related", "c1"); err != nil {
		t.Fatalf("open c1: %v", err)
	}
	existing, err := s.OpenToken(ctx, "related", "c2")
	if !errors.Is(err, navigation.ErrAlreadyOpen) {
		t.Fatalf("expected ErrAlreadyOpen, got %v", err)
	}
	if existing != c2 || s.Depth() != 2 {
		t.Fatalf("cycle must not grow the stack, depth=%d", s.Depth())
	}

	got := s.Breadcrumbs()
	want := []render.Crumb{
		{EntityType: "application", EntityID: "a1", Title: "Ledger", Mode: "view"},
		{EntityType: "capability", EntityID: "c2", Title: "Invoicing", Mode: "view"},
		{EntityType: "capability", EntityID: "c1", Title: "Billing", Mode: "view"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}
	if view := s.View(); view.EntityID != "c1" || len(view.Breadcrumbs) != 3 {
		t.Fatalf("session view must show the active frame, got %s", view.EntityID)
	}
}

func TestMissingRecordIsNoOpPush(t *testing.T) {
	s := openSession(t, testStore(t), "application", "a1", mode.View)

	if _, err := s.OpenToken(context.Background(), "capabilities", "c9"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if s.Depth() != 0 || s.Active() != s.Root() {
		t.Fatalf("failed push must leave the stack unchanged")
	}
}

func TestCreateRootOpensNestedEditAndPersists(t *testing.T) {
	store := testStore(t)
	s := openSession(t, store, "application", "", mode.Create)
	ctx := context.Background()

	if err := s.Root().SetInput("capabilities", "c1"); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	nested, err := s.OpenToken(ctx, "capabilities", "c1")
	if err != nil {
		t.Fatalf("OpenToken: %v", err)
	}
	if nested.Mode() != mode.Edit {
		t.Fatalf("create parent must open nested edit, got %s", nested.Mode())
	}
	if err := s.CloseTop(); err != nil {
		t.Fatalf("CloseTop: %v", err)
	}

	if err := s.Root().SetValue("name", "Payroll"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := s.Root().Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	id := s.Root().EntityID()
	if id == "" || s.Root().Mode() != mode.Edit {
		t.Fatalf("root must be persisted and edited, id=%q mode=%s", id, s.Root().Mode())
	}
	if _, err := store.Load(ctx, "application", id); err != nil {
		t.Fatalf("stored record missing: %v", err)
	}

	existing, err := s.OpenKey(ctx, navigation.Key{EntityType: "application", EntityID: id})
	if !errors.Is(err, navigation.ErrAlreadyOpen) || existing != s.Root() {
		t.Fatalf("persisted root must be guarded, got %v", err)
	}
}

func TestNestedModeFollowsStartEditing(t *testing.T) {
	s := openSession(t, testStore(t), "application", "a1", mode.View)
	if err := s.Root().StartEditing(); err != nil {
		t.Fatalf("StartEditing: %v", err)
	}
	nested, err := s.OpenToken(context.Background(), "capabilities", "c1")
	if err != nil {
		t.Fatalf("OpenToken: %v", err)
	}
	if nested.Mode() != mode.Edit {
		t.Fatalf("expected edit after parent started editing, got %s", nested.Mode())
	}
}

func TestDeleteNestedPopsFrame(t *testing.T) {
	store := testStore(t)
	s := openSession(t, store, "application", "a1", mode.Edit)
	ctx := context.Background()

	if _, err := s.OpenToken(ctx, "capabilities", "c1"); err != nil {
		t.Fatalf("OpenToken: %v", err)
	}
	if err := s.Delete(ctx); !errors.Is(err, dialog.ErrDeleteNotConfirmed) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if err := s.Delete(dialog.Confirmed(ctx)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Depth() != 0 || s.Closed() {
		t.Fatalf("nested delete must pop only its frame")
	}
	if _, err := store.Load(ctx, "capability", "c1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("record not deleted: %v", err)
	}
}

func TestOpenValidatesModeAndClose(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	if _, err := Open(ctx, testAdapters(), store, "application", "", mode.Edit); err == nil {
		t.Fatalf("editing without id must fail")
	}
	if _, err := Open(ctx, testAdapters(), store, "application", "a1", mode.Create); err == nil {
		t.Fatalf("creating an existing id must fail")
	}
	if _, err := Open(ctx, testAdapters(), store, "unknown", "x", mode.View); !errors.Is(err, adapter.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s := openSession(t, store, "application", "a1", mode.View)
	nested, _ := s.OpenToken(ctx, "capabilities", "c1")
	s.Close()
	if !nested.Closed() || !s.Root().Closed() {
		t.Fatalf("close must close every dialog")
	}
	if _, err := s.OpenToken(ctx, "capabilities", "c2"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOptionLoadsOutliveOpeningContext(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.MustRegister(&adapter.Definition{
		Type: "application",
		FieldList: []model.Field{
			{Name: "name", Required: true, Control: model.PlainText{}},
			{Name: "capabilities", Control: model.MultiChoice{
				Target: "capability",
				Tokens: true,
				Source: model.OptionSource{Loader: "capability"},
			}},
		},
	})
	reg.MustRegister(&adapter.Definition{
		Type: "capability",
		FieldList: []model.Field{
			{Name: "name", Required: true, Control: model.PlainText{}},
			{Name: "related", Control: model.MultiChoice{
				Target: "capability",
				Tokens: true,
				Source: model.OptionSource{Loader: "capability"},
			}},
		},
	})
	store := testStore(t)
	loaders := options.NewRegistry()
	loaders.MustRegister("capability", options.LoaderFunc(func(ctx context.Context, req options.Request) ([]model.Option, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return store.Options(ctx, req.EntityType), nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	s, err := Open(ctx, reg, store, "application", "a1", mode.Edit, WithOptionLoaders(loaders))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)

	reqCtx, reqCancel := context.WithCancel(context.Background())
	nested, err := s.OpenToken(reqCtx, "capabilities", "c1")
	if err != nil {
		t.Fatalf("OpenToken: %v", err)
	}
	cancel()
	reqCancel()

	want := []string{"c1", "c2"}
	for _, d := range []*dialog.Dialog{s.Root(), nested} {
		d.LoadAllOptions()
		d.WaitOptions()
		field := "capabilities"
		if d == nested {
			field = "related"
		}
		opts, loading := d.Options(field)
		var got []string
		for _, opt := range opts {
			got = append(got, opt.ID)
		}
		if loading {
			t.Fatalf("%s still loading", d.EntityType())
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s options mismatch (-want +got):\n%s", d.EntityType(), diff)
		}
	}

	s.Close()
	if err := s.Root().LoadOptions("capabilities", ""); !errors.Is(err, dialog.ErrClosed) {
		t.Fatalf("closed session must not load options, got %v", err)
	}
}
