package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/validation"
)

func testFields() []model.Field {
	return []model.Field{
		{Name: "name", Required: true},
		{Name: "description", Control: model.LongText{}},
		{Name: "status", Control: model.SingleChoice{}, OnChange: func(value any, _ map[string]any) map[string]any {
			if value == "retired" {
				return map[string]any{"owner": nil}
			}
			return nil
		}},
		{Name: "owner"},
		{Name: "createdAt", Control: model.StaticDisplay{}},
	}
}

func newContainer(t *testing.T, m mode.Mode) *Container {
	t.Helper()
	pipeline, err := validation.NewPipeline(testFields())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return New(pipeline, WithMode(m))
}

func TestInitializePopulatesEveryField(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger", "unknown": "dropped"})

	snap := c.Snapshot()
	want := map[string]any{"name": "Ledger", "description": nil, "status": nil, "owner": nil, "createdAt": nil}
	if diff := cmp.Diff(want, snap.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if !snap.Valid() || snap.IsDirty() || snap.IsSubmitting {
		t.Fatalf("unexpected initial flags %+v", snap)
	}
}

func TestCreateModeRunsEagerValidation(t *testing.T) {
	c := newContainer(t, mode.Create)
	c.Initialize(nil)

	snap := c.Snapshot()
	field, _ := model.Lookup(testFields(), "name")
	if got := snap.VisibleErrors(field); len(got) != 1 {
		t.Fatalf("required field must be flagged immediately in create mode, got %v", got)
	}

	edit := newContainer(t, mode.Edit)
	edit.Initialize(nil)
	if !edit.Snapshot().Valid() {
		t.Fatalf("edit mode must not validate eagerly")
	}
}

func TestSetValueIsNoOpInViewMode(t *testing.T) {
	c := newContainer(t, mode.View)
	c.Initialize(map[string]any{"name": "Ledger"})
	before := c.Snapshot()

	if err := c.SetValue("name", "Changed"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := c.Touch("name"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if diff := cmp.Diff(before, c.Snapshot()); diff != "" {
		t.Fatalf("view mode mutated state (-before +after):\n%s", diff)
	}
	if err := c.Submit(context.Background(), func(context.Context, map[string]any) error { return nil }); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected submit to be rejected in view mode, got %v", err)
	}
}

func TestSetValueRevalidatesSynchronously(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger"})

	if err := c.SetValue("name", ""); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	snap := c.Snapshot()
	if !snap.Dirty["name"] {
		t.Fatalf("field must be dirty")
	}
	if len(snap.Errors.For("name")) != 1 {
		t.Fatalf("validation must observe the new value, errors = %v", snap.Errors)
	}

	field, _ := model.Lookup(testFields(), "name")
	if got := snap.VisibleErrors(field); got != nil {
		t.Fatalf("edit mode hides errors of untouched fields, got %v", got)
	}
	if err := c.Touch("name"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if got := c.Snapshot().VisibleErrors(field); len(got) != 1 {
		t.Fatalf("touched field shows errors, got %v", got)
	}

	if err := c.SetValue("name", "Ledger"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if snap := c.Snapshot(); snap.Dirty["name"] || !snap.Valid() {
		t.Fatalf("restoring the initial value clears dirty and errors: %+v", snap)
	}
}

func TestSetValueRejectsUnknownAndLockedFields(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(nil)
	if err := c.SetValue("ghost", 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := c.SetValue("createdAt", "now"); !errors.Is(err, ErrFieldLocked) {
		t.Fatalf("expected ErrFieldLocked, got %v", err)
	}
}

func TestOnChangeAppliesDerivedUpdates(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger", "owner": "team-a"})

	if err := c.SetValue("status", "retired"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	snap := c.Snapshot()
	if snap.Values["owner"] != nil || !snap.Dirty["owner"] {
		t.Fatalf("derived update not applied: %+v", snap.Values)
	}
}

func TestSubmitSerializesAndClearsSubmitting(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger"})

	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	handler := func(ctx context.Context, values map[string]any) error {
		calls++
		close(started)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), handler) }()
	<-started

	if !c.Snapshot().IsSubmitting {
		t.Fatalf("expected submitting flag while handler runs")
	}
	if err := c.Submit(context.Background(), handler); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	if err := c.SetValue("name", "Other"); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected edits to be rejected while submitting, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
	if snap := c.Snapshot(); snap.IsSubmitting || snap.IsDirty() {
		t.Fatalf("unexpected state after submit %+v", snap)
	}
}

func TestSubmitFailurePropagatesAndStaysSubmittable(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger"})

	boom := errors.New("store unavailable")
	if err := c.Submit(context.Background(), func(context.Context, map[string]any) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if c.Snapshot().IsSubmitting {
		t.Fatalf("submitting flag must be cleared after failure")
	}
	if err := c.Submit(context.Background(), func(context.Context, map[string]any) error { return nil }); err != nil {
		t.Fatalf("container must accept a new submit: %v", err)
	}
}

func TestSubmitPanicRestoresState(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger"})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = c.Submit(context.Background(), func(context.Context, map[string]any) error { panic("bug") })
	}()

	if c.Snapshot().IsSubmitting {
		t.Fatalf("submitting flag must be cleared after panic")
	}
}

func TestSubmitBlockedByValidation(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(nil)

	called := false
	err := c.Submit(context.Background(), func(context.Context, map[string]any) error {
		called = true
		return nil
	})
	var verr *validation.Error
	if !errors.As(err, &verr) || len(verr.Fields.For("name")) != 1 {
		t.Fatalf("expected validation error for name, got %v", err)
	}
	if called {
		t.Fatalf("handler must not run for invalid records")
	}

	field, _ := model.Lookup(testFields(), "name")
	if got := c.Snapshot().VisibleErrors(field); len(got) != 1 {
		t.Fatalf("submit attempt reveals errors, got %v", got)
	}
}

func TestSubmitMapsFieldErrors(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger"})

	err := c.Submit(context.Background(), func(context.Context, map[string]any) error {
		return &validation.FieldErrors{Payload: map[string][]string{"/data/name": {"already exists"}}}
	})
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if got := c.Snapshot().Errors.For("name"); !cmp.Equal(got, []string{"already exists"}) {
		t.Fatalf("server errors not mapped: %v", got)
	}
}

func TestLateSubmitResultAfterCloseIsDropped(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(map[string]any{"name": "Ledger"})

	var mu sync.Mutex
	notified := 0
	c.Subscribe(func(Snapshot) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Submit(context.Background(), func(context.Context, map[string]any) error {
			close(started)
			<-release
			return errors.New("late failure")
		})
	}()
	<-started

	c.Close()
	mu.Lock()
	before := notified
	mu.Unlock()

	close(release)
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("handler error should still be returned to the caller")
		}
	case <-time.After(time.Second):
		t.Fatalf("submit did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if notified != before {
		t.Fatalf("closed container must not notify subscribers")
	}
	if err := c.SetValue("name", "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	c := newContainer(t, mode.Create)
	defaults := map[string]any{"description": "seed"}
	c.Reset(defaults)
	first := c.Snapshot()
	_ = c.SetValue("name", "x")
	_ = c.Touch("name")
	c.Reset(defaults)
	c.Reset(defaults)

	if diff := cmp.Diff(first, c.Snapshot(), cmpopts.IgnoreFields(Snapshot{}, "Version")); diff != "" {
		t.Fatalf("reset not idempotent (-want +got):\n%s", diff)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(nil)

	var seen []uint64
	unsubscribe := c.Subscribe(func(s Snapshot) { seen = append(seen, s.Version) })
	_ = c.SetValue("name", "a")
	_ = c.SetValue("name", "b")
	unsubscribe()
	_ = c.SetValue("name", "c")

	if len(seen) != 2 || seen[0] >= seen[1] {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestSubscribersMayCallBack(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(nil)

	var once []uint64
	var cancel func()
	cancel = c.Subscribe(func(s Snapshot) {
		once = append(once, s.Version)
		cancel()
	})

	var seen []Snapshot
	c.Subscribe(func(s Snapshot) {
		seen = append(seen, s)
		if s.Values["name"] == "Acme" && s.Values["owner"] == nil {
			if err := c.SetValue("owner", "ops"); err != nil {
				t.Errorf("SetValue from subscriber: %v", err)
			}
			if err := c.Touch("owner"); err != nil {
				t.Errorf("Touch from subscriber: %v", err)
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- c.SetValue("name", "Acme") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SetValue: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SetValue blocked on a reentrant subscriber")
	}

	if len(once) != 1 {
		t.Fatalf("self-unsubscribing subscriber ran %d times", len(once))
	}
	if got := c.Snapshot().Values["owner"]; got != "ops" {
		t.Fatalf("owner = %v, want ops", got)
	}
	last := seen[len(seen)-1]
	if last.Version != c.Snapshot().Version || !last.Touched["owner"] {
		t.Fatalf("latest snapshot not delivered: %+v", last)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].Version <= seen[i-1].Version {
			t.Fatalf("snapshots out of order: %d after %d", seen[i].Version, seen[i-1].Version)
		}
	}
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	c := newContainer(t, mode.Edit)
	c.Initialize(nil)

	calls := 0
	c.Subscribe(func(Snapshot) {
		calls++
		if calls == 1 {
			panic("boom")
		}
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected subscriber panic")
			}
		}()
		_ = c.SetValue("name", "a")
	}()
	if err := c.SetValue("name", "b"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}
