package options

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// State is the option state of one field.
type State struct {
	Options []model.Option
	Loading bool
	Loaded  bool
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger used for loader failures.
func WithTrackerLogger(logger *zap.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithChangeHook is called after a field's option state changed.
func WithChangeHook(fn func(field string, st State)) TrackerOption {
	return func(t *Tracker) {
		t.onChange = fn
	}
}

// Tracker runs option loads for one dialog. Loads of different fields are
// independent and run concurrently; identical in-flight requests share one
// loader call. Close cancels outstanding loads and freezes the state.
type Tracker struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	wg     sync.WaitGroup

	states map[string]State
	seq    map[string]uint64
	closed bool

	logger   *zap.Logger
	onChange func(field string, st State)
}

// NewTracker derives the load context from parent.
func NewTracker(parent context.Context, opts ...TrackerOption) *Tracker {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	t := &Tracker{
		ctx:    ctx,
		cancel: cancel,
		states: make(map[string]State),
		seq:    make(map[string]uint64),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Load starts an asynchronous load for field and flags it as loading. Options
// from a previous load stay visible until the new result arrives. A newer
// Load for the same field supersedes older ones. It returns false when the
// tracker is closed.
func (t *Tracker) Load(field string, loader Loader, req Request) bool {
	t.mu.Lock()
	if t.closed || loader == nil {
		t.mu.Unlock()
		return false
	}
	t.seq[field]++
	token := t.seq[field]
	prev := t.states[field]
	st := State{Options: prev.Options, Loading: true, Loaded: prev.Loaded}
	t.states[field] = st
	t.wg.Add(1)
	t.mu.Unlock()
	t.notify(field, st)

	if req.Field == "" {
		req.Field = field
	}
	go func() {
		defer t.wg.Done()
		v, err, _ := t.group.Do(req.key(), func() (any, error) {
			return loader.Load(t.ctx, req)
		})
		var loaded []model.Option
		if err == nil {
			loaded, _ = v.([]model.Option)
		}
		t.complete(field, token, loaded, err)
	}()
	return true
}

func (t *Tracker) complete(field string, token uint64, loaded []model.Option, err error) {
	t.mu.Lock()
	if t.closed || t.seq[field] != token {
		t.mu.Unlock()
		return
	}
	if err != nil {
		t.logger.Warn("option load failed, continuing without options",
			zap.String("field", field), zap.Error(err))
		loaded = nil
	}
	st := State{Options: append([]model.Option(nil), loaded...), Loaded: true}
	t.states[field] = st
	t.mu.Unlock()
	t.notify(field, st)
}

func (t *Tracker) notify(field string, st State) {
	if t.onChange != nil {
		t.onChange(field, st)
	}
}

// State returns a copy of the option state of field.
func (t *Tracker) State(field string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.states[field]
	st.Options = append([]model.Option(nil), st.Options...)
	return st
}

// Wait blocks until every started load has returned.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close cancels outstanding loads. Results arriving afterwards are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cancel()
}

// Closed reports whether Close was called.
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
