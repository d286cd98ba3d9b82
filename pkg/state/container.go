// Package state holds the reactive form state of a single dialog: values,
// touched and dirty flags, validation messages and the submitting flag.
// Every mutation happens synchronously under the container lock and is
// followed by whole-record validation, so messages always reflect the value
// that triggered them.
package state

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/validation"
)

var (
	// ErrUnknownField is returned for names without a descriptor.
	ErrUnknownField = errors.New("state: unknown field")
	// ErrReadOnly is returned when the mode does not allow mutation.
	ErrReadOnly = errors.New("state: read-only mode")
	// ErrFieldLocked is returned for disabled, read-only or static fields.
	ErrFieldLocked = errors.New("state: field is not editable")
	// ErrSubmitInProgress is returned while a submit handler is running.
	ErrSubmitInProgress = errors.New("state: submit in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("state: container closed")
	// ErrNoHandler is returned when Submit is called without a handler.
	ErrNoHandler = errors.New("state: submit handler required")
)

// Handler persists submitted values. It runs outside the container lock.
type Handler func(ctx context.Context, values map[string]any) error

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for dropped results and handler failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMode sets the initial mode. Defaults to edit.
func WithMode(m mode.Mode) Option {
	return func(c *Container) {
		if m.Valid() {
			c.mode = m
		}
	}
}

// Container owns the FormState of one dialog. Values are deep copied on the
// way in and out so no state is shared by reference.
type Container struct {
	mu sync.Mutex

	pipeline *validation.Pipeline
	fields   []model.Field
	index    map[string]int
	logger   *zap.Logger

	mode        mode.Mode
	initial     map[string]any
	values      map[string]any
	touched     map[string]bool
	dirty       map[string]bool
	errors      validation.Errors
	submitting  bool
	submitCount int
	closed      bool
	generation  uint64
	version     uint64

	// subMu guards the fields below and is never held while subscribers
	// run. One caller at a time drains pending snapshots; publishes made
	// meanwhile, including from subscribers, are picked up by that drain.
	subMu      sync.Mutex
	subs       map[int]func(Snapshot)
	nextSub    int
	published  uint64
	pending    *Snapshot
	delivering bool
}

// New creates a container for the pipeline's fields. Call Initialize before
// use.
func New(pipeline *validation.Pipeline, opts ...Option) *Container {
	fields := pipeline.Fields()
	c := &Container{
		pipeline: pipeline,
		fields:   fields,
		index:    make(map[string]int, len(fields)),
		logger:   zap.NewNop(),
		mode:     mode.Edit,
		subs:     make(map[int]func(Snapshot)),
	}
	for i, field := range fields {
		c.index[field.Name] = i
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.resetLocked(nil)
	return c
}

// Initialize seeds the values from defaults. Every descriptor name receives
// an entry; names missing from defaults are nil. In create mode an eager
// validation pass runs so required-but-empty fields are flagged immediately.
func (c *Container) Initialize(defaults map[string]any) {
	c.Reset(defaults)
}

// Reset returns to the pristine state built from defaults. Calling it twice
// with the same defaults yields the same state.
func (c *Container) Reset(defaults map[string]any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked(defaults)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
}

func (c *Container) resetLocked(defaults map[string]any) {
	values := make(map[string]any, len(c.fields))
	for _, field := range c.fields {
		values[field.Name] = deepCopy(defaults[field.Name])
	}
	c.initial = values
	c.values = cloneValues(values)
	c.touched = make(map[string]bool)
	c.dirty = make(map[string]bool)
	c.submitCount = 0
	c.generation++
	c.errors = make(validation.Errors)
	if c.mode == mode.Create {
		c.errors = c.pipeline.Validate(c.values, validation.TriggerChange)
	}
}

// Mode returns the mode the container enforces.
func (c *Container) Mode() mode.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the enforced mode.
func (c *Container) SetMode(m mode.Mode) {
	if !m.Valid() {
		return
	}
	c.mu.Lock()
	if c.closed || c.mode == m {
		c.mu.Unlock()
		return
	}
	c.mode = m
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// SetValue stores value under name, marks the field dirty when it differs from
// the initial value, applies OnChange derived updates and revalidates the
// whole record. In view mode the call is a no-op returning ErrReadOnly.
func (c *Container) SetValue(name string, value any) error {
	c.mu.Lock()
	field, err := c.editableLocked(name)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInProgress
	}

	c.assignLocked(name, value)
	if field.OnChange != nil {
		for derived, derivedValue := range field.OnChange(deepCopy(value), cloneValues(c.values)) {
			if _, ok := c.index[derived]; ok && derived != name {
				c.assignLocked(derived, derivedValue)
			}
		}
	}
	c.errors = c.pipeline.Validate(c.values, validation.TriggerChange)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

func (c *Container) assignLocked(name string, value any) {
	c.values[name] = deepCopy(value)
	if reflect.DeepEqual(c.values[name], c.initial[name]) {
		delete(c.dirty, name)
	} else {
		c.dirty[name] = true
	}
}

func (c *Container) editableLocked(name string) (model.Field, error) {
	if c.closed {
		return model.Field{}, ErrClosed
	}
	pos, ok := c.index[name]
	if !ok {
		return model.Field{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if !c.mode.CanMutate() {
		return model.Field{}, ErrReadOnly
	}
	field := c.fields[pos]
	if !field.Editable() {
		return model.Field{}, fmt.Errorf("%w: %q", ErrFieldLocked, name)
	}
	return field, nil
}

// Touch marks name as visited so its messages become visible in edit mode.
func (c *Container) Touch(name string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, ok := c.index[name]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if !c.mode.CanMutate() || c.touched[name] {
		c.mu.Unlock()
		return nil
	}
	c.touched[name] = true
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// Submit validates with submit timing and, when the record is valid, calls
// handler with a copy of the values. Only one submit runs at a time;
// concurrent calls fail with ErrSubmitInProgress. The submitting flag is
// always cleared when handler returns, and its error is returned unchanged.
// A *validation.FieldErrors returned by handler is mapped onto the fields.
// Results arriving after Close are dropped.
func (c *Container) Submit(ctx context.Context, handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case !c.mode.CanMutate():
		c.mu.Unlock()
		return ErrReadOnly
	case c.submitting:
		c.mu.Unlock()
		return ErrSubmitInProgress
	}

	c.submitCount++
	c.errors = c.pipeline.Validate(c.values, validation.TriggerSubmit)
	if !c.errors.Empty() {
		blocked := &validation.Error{Fields: c.errors.Clone()}
		snap := c.commitLocked()
		c.mu.Unlock()
		c.publish(snap)
		return blocked
	}

	c.submitting = true
	generation := c.generation
	values := cloneValues(c.values)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	err := c.run(ctx, handler, values, generation)
	c.finish(generation, values, err)
	return err
}

func (c *Container) run(ctx context.Context, handler Handler, values map[string]any, generation uint64) error {
	defer func() {
		if r := recover(); r != nil {
			c.finish(generation, values, fmt.Errorf("state: submit handler panicked: %v", r))
			panic(r)
		}
	}()
	return handler(ctx, cloneValues(values))
}

func (c *Container) finish(generation uint64, submitted map[string]any, err error) {
	c.mu.Lock()
	if !c.submitting {
		c.mu.Unlock()
		return
	}
	c.submitting = false
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping late submit result", zap.Error(err))
		return
	}

	if generation == c.generation {
		switch {
		case err == nil:
			c.initial = cloneValues(submitted)
			c.dirty = make(map[string]bool)
			for name, value := range c.values {
				if !reflect.DeepEqual(value, c.initial[name]) {
					c.dirty[name] = true
				}
			}
		default:
			c.logger.Warn("submit failed", zap.Error(err))
			if fieldErrs, ok := validation.AsFieldErrors(err); ok {
				c.errors.Merge(validation.MapPayload(c.fields, fieldErrs.Payload))
			}
		}
	}
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// Value returns a copy of the value stored under name.
func (c *Container) Value(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	return deepCopy(v), ok
}

// Snapshot returns a deep copy of the current state.
func (c *Container) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for state changes and returns the function that
// removes it. Subscribers run outside every container lock, so they may call
// back into the container or unsubscribe. They never observe an older
// snapshot after a newer one; intermediate snapshots may be skipped.
func (c *Container) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// Close detaches subscribers and rejects further mutation. An in-flight
// submit keeps running but its result is dropped.
func (c *Container) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.subMu.Lock()
	c.subs = make(map[int]func(Snapshot))
	c.subMu.Unlock()
}

func (c *Container) commitLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Container) snapshotLocked() Snapshot {
	return Snapshot{
		Version:      c.version,
		Mode:         c.mode,
		Values:       cloneValues(c.values),
		Touched:      cloneFlags(c.touched),
		Dirty:        cloneFlags(c.dirty),
		Errors:       c.errors.Clone(),
		IsSubmitting: c.submitting,
		SubmitCount:  c.submitCount,
		Closed:       c.closed,
	}
}

func (c *Container) publish(snap Snapshot) {
	c.subMu.Lock()
	if snap.Version <= c.published {
		c.subMu.Unlock()
		return
	}
	if c.pending == nil || snap.Version > c.pending.Version {
		c.pending = &snap
	}
	if c.delivering {
		c.subMu.Unlock()
		return
	}
	c.delivering = true
	for c.pending != nil {
		next := *c.pending
		c.pending = nil
		if next.Version <= c.published {
			continue
		}
		c.published = next.Version
		fns := c.subscribersLocked()
		c.subMu.Unlock()
		c.deliver(fns, next)
		c.subMu.Lock()
	}
	c.delivering = false
	c.subMu.Unlock()
}

// deliver calls fns without holding subMu. A panicking subscriber ends the
// drain so later publishes are delivered again.
func (c *Container) deliver(fns []func(Snapshot), snap Snapshot) {
	completed := false
	defer func() {
		if completed {
			return
		}
		c.subMu.Lock()
		c.delivering = false
		c.pending = nil
		c.subMu.Unlock()
	}()
	for _, fn := range fns {
		fn(snap)
	}
	completed = true
}

// subscribersLocked lists subscribers in subscription order.
func (c *Container) subscribersLocked() []func(Snapshot) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), len(ids))
	for i, id := range ids {
		fns[i] = c.subs[id]
	}
	return fns
}
