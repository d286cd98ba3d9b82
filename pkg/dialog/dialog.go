// Package dialog ties one adapter to a state container, a mode machine and
// an option tracker. A Dialog is the unit a renderer draws and a navigation
// frame holds; dialogs never share state with each other.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/navigation"
	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/state"
	"github.com/goliatone/go-dialogform/pkg/validation"
)

var (
	// ErrDeleteNotAllowed is returned when delete is disabled, the dialog is
	// not editing or the record has no id yet.
	ErrDeleteNotAllowed = errors.New("dialog: delete not allowed")
	// ErrDeleteNotConfirmed is returned when the confirmation step declined.
	ErrDeleteNotConfirmed = errors.New("dialog: delete not confirmed")
	// ErrNotNavigable is returned for tokens that do not reference an entity.
	ErrNotNavigable = errors.New("dialog: token is not navigable")
	// ErrClosed is returned by operations on a closed dialog.
	ErrClosed = errors.New("dialog: closed")
)

// Dialog is one open form. It is safe for concurrent use.
type Dialog struct {
	id       string
	adapter  adapter.Adapter
	fields   []model.Field
	machine  *mode.Machine
	state    *state.Container
	tracker  *options.Tracker
	loaders  *options.Registry
	ctx      context.Context
	logger   *zap.Logger
	onSubmit SubmitHandler
	onDelete DeleteHandler
	confirm  Confirmer
	onClose  CloseHandler

	onOptions func(field string, st options.State)
	hooks     []TransitionHook

	mu        sync.Mutex
	entityID  string
	record    map[string]any
	submitErr error
	closed    bool
}

// New opens a dialog for record (nil when creating) in mode m. Defaults come
// from the adapter; in create mode required fields are validated at once.
func New(a adapter.Adapter, record map[string]any, m mode.Mode, opts ...Option) (*Dialog, error) {
	if a == nil {
		return nil, errors.New("dialog: adapter is required")
	}
	if !m.Valid() {
		return nil, fmt.Errorf("dialog: invalid mode %q", m)
	}

	d := &Dialog{
		id:      uuid.NewString(),
		adapter: a,
		fields:  a.Fields(),
		ctx:     context.Background(),
		logger:  zap.NewNop(),
		confirm: defaultConfirm,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.logger = d.logger.With(
		zap.String("dialog", d.id),
		zap.String("entity_type", a.EntityType()),
	)

	pipeline, err := validation.NewPipeline(d.fields, validation.WithRecordValidator(a))
	if err != nil {
		return nil, fmt.Errorf("dialog: %s: %w", a.EntityType(), err)
	}

	d.record = a.Defaults(record)
	d.state = state.New(pipeline, state.WithMode(m), state.WithLogger(d.logger))
	d.state.Initialize(d.record)
	d.tracker = options.NewTracker(d.ctx,
		options.WithTrackerLogger(d.logger),
		options.WithChangeHook(d.optionsChanged),
	)
	d.machine = mode.NewMachine(m)
	d.machine.OnTransition(d.transitioned)
	return d, nil
}

func (d *Dialog) ID() string { return d.id }
func (d *Dialog) Adapter() adapter.Adapter { return d.adapter }
func (d *Dialog) EntityType() string { return d.adapter.EntityType() }
func (d *Dialog) Mode() mode.Mode { return d.machine.Current() }
func (d *Dialog) Snapshot() state.Snapshot { return d.state.Snapshot() }
func (d *Dialog) Fields() []model.Field { return append([]model.Field(nil), d.fields...) }

// EntityID returns the record id, empty until a created record is persisted.
func (d *Dialog) EntityID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entityID
}

// Key identifies the dialog's record on a navigation stack.
func (d *Dialog) Key() navigation.Key {
	return navigation.Key{EntityType: d.EntityType(), EntityID: d.EntityID()}
}

// Closed reports whether Close was called.
func (d *Dialog) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Subscribe registers fn for state changes. See state.Container.Subscribe.
func (d *Dialog) Subscribe(fn func(state.Snapshot)) func() {
	return d.state.Subscribe(fn)
}

// SetValue stores a typed value. In view mode it returns state.ErrReadOnly
// and changes nothing.
func (d *Dialog) SetValue(name string, value any) error {
	return d.state.SetValue(name, value)
}

// SetInput coerces raw input for the field kind and stores the result.
func (d *Dialog) SetInput(name string, raw ...string) error {
	field, ok := model.Lookup(d.fields, name)
	if !ok {
		return fmt.Errorf("%w: %q", state.ErrUnknownField, name)
	}
	value, err := Coerce(field, raw)
	if err != nil {
		return err
	}
	return d.state.SetValue(name, value)
}

// Touch marks a field as visited.
func (d *Dialog) Touch(name string) error {
	return d.state.Touch(name)
}

// Submit validates and hands the values to the submit handler. A created
// record moves to edit mode once persisted. Handler errors are returned
// unchanged and leave the dialog submittable.
func (d *Dialog) Submit(ctx context.Context) error {
	if d.Closed() {
		return ErrClosed
	}
	var handler state.Handler
	if d.onSubmit != nil {
		handler = func(ctx context.Context, values map[string]any) error {
			id, err := d.onSubmit(ctx, d.EntityType(), d.EntityID(), values)
			if err != nil {
				return err
			}
			d.mu.Lock()
			if id != "" {
				d.entityID = id
			}
			d.record = d.state.Snapshot().Values
			d.mu.Unlock()
			return nil
		}
	}

	err := d.state.Submit(ctx, handler)
	d.mu.Lock()
	switch {
	case err == nil:
		d.submitErr = nil
	case isHandlerFailure(err):
		d.submitErr = err
	}
	closed := d.closed
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if !closed && d.Mode() == mode.Create {
		if _, ferr := d.machine.Fire(mode.Persisted); ferr != nil {
			d.logger.Warn("persisted transition failed", zap.Error(ferr))
		}
	}
	return nil
}

// isHandlerFailure separates persistence failures from rejected submits.
func isHandlerFailure(err error) bool {
	var invalid *validation.Error
	switch {
	case errors.As(err, &invalid),
		errors.Is(err, state.ErrSubmitInProgress),
		errors.Is(err, state.ErrReadOnly),
		errors.Is(err, state.ErrClosed),
		errors.Is(err, state.ErrNoHandler):
		return false
	}
	return true
}

// SubmitError returns the last submit handler failure, cleared by the next
// successful submit.
func (d *Dialog) SubmitError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitErr
}

// StartEditing moves a viewed record into edit mode.
func (d *Dialog) StartEditing() error {
	_, err := d.machine.Fire(mode.StartEditing)
	return err
}

// StopEditing returns to view mode and discards unsaved changes.
func (d *Dialog) StopEditing() error {
	if _, err := d.machine.Fire(mode.StopEditing); err != nil {
		return err
	}
	d.mu.Lock()
	record := d.record
	d.submitErr = nil
	d.mu.Unlock()
	d.state.Reset(record)
	return nil
}

// CanDelete reports whether Delete may run in the current state.
func (d *Dialog) CanDelete() bool {
	return d.onDelete != nil && d.adapter.Deletable() && d.Mode() == mode.Edit && d.EntityID() != "" && !d.Closed()
}

// Delete asks for confirmation, runs the delete handler and closes the
// dialog on success.
func (d *Dialog) Delete(ctx context.Context) error {
	if !d.CanDelete() {
		return ErrDeleteNotAllowed
	}
	if !d.confirm(ctx, d) {
		return ErrDeleteNotConfirmed
	}
	if err := d.onDelete(ctx, d.EntityType(), d.EntityID()); err != nil {
		d.logger.Warn("delete failed", zap.Error(err))
		return err
	}
	d.Close()
	return nil
}

// Close cancels option loads, detaches subscribers and calls the close
// handler once. An in-flight submit completes but its result is dropped.
func (d *Dialog) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.tracker.Close()
	d.state.Close()
	if d.onClose != nil {
		d.onClose(d)
	}
}

func (d *Dialog) transitioned(from, to mode.Mode) {
	d.state.SetMode(to)
	d.logger.Debug("mode transition", zap.String("from", string(from)), zap.String("to", string(to)))
	for _, hook := range d.hooks {
		hook(d, from, to)
	}
}

// TokenTarget resolves the record a token of field refers to. The token must
// be part of the field's current value.
func (d *Dialog) TokenTarget(field, tokenID string) (navigation.Key, error) {
	f, ok := model.Lookup(d.fields, field)
	if !ok {
		return navigation.Key{}, fmt.Errorf("%w: %q", state.ErrUnknownField, field)
	}
	choice, ok := model.ChoiceOf(f.Control)
	if !ok || !choice.Tokens {
		return navigation.Key{}, fmt.Errorf("%w: field %q has no tokens", ErrNotNavigable, field)
	}
	target, ok := d.adapter.EntityTypeFor(field)
	if !ok {
		return navigation.Key{}, fmt.Errorf("%w: field %q has no target entity", ErrNotNavigable, field)
	}
	value, _ := d.state.Value(field)
	for _, ref := range model.References(value) {
		if choice.Same(ref, tokenID) {
			return navigation.Key{EntityType: target, EntityID: ref.ID}, nil
		}
	}
	return navigation.Key{}, fmt.Errorf("%w: %q is not selected in %q", ErrNotNavigable, tokenID, field)
}
