// Package session drives one root dialog and the stack of nested dialogs
// opened from its reference tokens. Each frame owns an independent Dialog;
// closing a frame never touches the frames below it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/dialog"
	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/navigation"
	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/render"
)

// ErrRecordNotFound is returned by stores for unknown ids.
var ErrRecordNotFound = errors.New("session: record not found")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session: closed")

// RecordSource loads stored records for nested frames.
type RecordSource interface {
	Load(ctx context.Context, entityType, id string) (map[string]any, error)
}

// Store is the persistence collaborator. Save returns the id of the stored
// record; an empty id creates one.
type Store interface {
	RecordSource
	Save(ctx context.Context, entityType, id string, values map[string]any) (string, error)
	Delete(ctx context.Context, entityType, id string) error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOptionLoaders sets the loader registry handed to every dialog.
func WithOptionLoaders(reg *options.Registry) Option {
	return func(s *Session) {
		s.loaders = reg
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithDialogOptions appends options applied to every dialog the session
// builds, after the session's own.
func WithDialogOptions(opts ...dialog.Option) Option {
	return func(s *Session) {
		s.dialogOpts = append(s.dialogOpts, opts...)
	}
}

// WithAutoLoadOptions starts option loads as soon as a dialog opens.
func WithAutoLoadOptions(enabled bool) Option {
	return func(s *Session) {
		s.autoLoad = enabled
	}
}

// Session is safe for concurrent use.
type Session struct {
	id       string
	adapters *adapter.Registry
	store    Store
	loaders  *options.Registry
	logger   *zap.Logger
	autoLoad bool

	dialogOpts []dialog.Option

	// ctx bounds the option loads of every dialog. It outlives the call
	// that opened the session and ends with Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	root   *dialog.Dialog
	stack  *navigation.Stack[*dialog.Dialog]
	closed bool
}

// Open starts a session on the record entityType/id. An empty id creates a
// new record and requires mode.Create.
func Open(ctx context.Context, adapters *adapter.Registry, store Store, entityType, id string, m mode.Mode, opts ...Option) (*Session, error) {
	if adapters == nil || store == nil {
		return nil, errors.New("session: adapters and store are required")
	}
	s := &Session{
		id:       uuid.NewString(),
		adapters: adapters,
		store:    store,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(zap.String("session", s.id))

	if id == "" && m != mode.Create {
		return nil, fmt.Errorf("session: %s without id must be created, got mode %q", entityType, m)
	}
	if id != "" && m == mode.Create {
		return nil, fmt.Errorf("session: %s/%s already exists, cannot create", entityType, id)
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	key := navigation.Key{EntityType: entityType, EntityID: id}
	root, err := s.build(ctx, key, m)
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.root = root
	s.stack = navigation.NewStack[*dialog.Dialog](key, m, navigation.WithLogger(s.logger))
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Root returns the base dialog.
func (s *Session) Root() *dialog.Dialog { return s.root }

// build loads the record under ctx when it has an id and opens a dialog
// for it. The dialog's option loads run under the session context. build
// runs under the stack lock for nested frames and must not call back into
// the stack.
func (s *Session) build(ctx context.Context, key navigation.Key, m mode.Mode) (*dialog.Dialog, error) {
	a, err := s.adapters.Get(key.EntityType)
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if key.EntityID != "" {
		record, err = s.store.Load(ctx, key.EntityType, key.EntityID)
		if err != nil {
			return nil, fmt.Errorf("session: load %s: %w", key, err)
		}
	}

	opts := []dialog.Option{
		dialog.WithEntityID(key.EntityID),
		dialog.WithLogger(s.logger),
		dialog.WithContext(s.ctx),
		dialog.WithOptionLoaders(s.loaders),
		dialog.WithSubmitHandler(func(ctx context.Context, entityType, entityID string, values map[string]any) (string, error) {
			return s.store.Save(ctx, entityType, entityID, values)
		}),
		dialog.WithDeleteHandler(func(ctx context.Context, entityType, entityID string) error {
			return s.store.Delete(ctx, entityType, entityID)
		}),
		dialog.WithTransitionHook(s.transitioned),
	}
	opts = append(opts, s.dialogOpts...)

	d, err := dialog.New(a, record, m, opts...)
	if err != nil {
		return nil, err
	}
	if s.autoLoad {
		d.LoadAllOptions()
	}
	return d, nil
}

// transitioned keeps the stack's view of frame modes current so frames
// opened later inherit the mode their parent has now.
func (s *Session) transitioned(d *dialog.Dialog, from, to mode.Mode) {
	if s.stack == nil {
		return
	}
	if from == mode.Create && to == mode.Edit && d == s.root {
		s.stack.SetRoot(d.Key(), to)
		return
	}
	s.stack.SetMode(d.Key(), to)
}

// Active returns the dialog currently on top: the innermost frame or the
// root.
func (s *Session) Active() *dialog.Dialog {
	if top, ok := s.stack.Top(); ok {
		return top.Value
	}
	return s.root
}

// Depth is the number of nested frames above the root.
func (s *Session) Depth() int { return s.stack.Depth() }

// OpenToken follows the token tokenID of field on the active dialog. When the
// record is already open the existing dialog is returned together with
// navigation.ErrAlreadyOpen and the stack is unchanged.
func (s *Session) OpenToken(ctx context.Context, field, tokenID string) (*dialog.Dialog, error) {
	if s.Closed() {
		return nil, ErrClosed
	}
	key, err := s.Active().TokenTarget(field, tokenID)
	if err != nil {
		return nil, err
	}
	return s.OpenKey(ctx, key)
}

// OpenKey pushes a frame for key. Failing loads leave the stack unchanged.
func (s *Session) OpenKey(ctx context.Context, key navigation.Key) (*dialog.Dialog, error) {
	if s.Closed() {
		return nil, ErrClosed
	}
	frame, err := s.stack.Open(key, func(key navigation.Key, m mode.Mode) (*dialog.Dialog, error) {
		return s.build(ctx, key, m)
	})
	if errors.Is(err, navigation.ErrAlreadyOpen) {
		existing := frame.Value
		if existing == nil {
			existing = s.root
		}
		return existing, err
	}
	if err != nil {
		s.logger.Info("nested dialog not opened", zap.Stringer("key", key), zap.Error(err))
		return nil, err
	}
	return frame.Value, nil
}

// CloseTop closes the innermost nested dialog. The dialog below regains
// focus with its state untouched.
func (s *Session) CloseTop() error {
	frame, err := s.stack.Close()
	if err != nil {
		return err
	}
	frame.Value.Close()
	return nil
}

// Delete deletes the record of the active dialog. A deleted nested record
// pops its frame; deleting the root closes the session.
func (s *Session) Delete(ctx context.Context) error {
	active := s.Active()
	if err := active.Delete(ctx); err != nil {
		return err
	}
	if active == s.root {
		s.Close()
		return nil
	}
	if top, ok := s.stack.Top(); ok && top.Value == active {
		frame, err := s.stack.Close()
		if err != nil {
			return err
		}
		frame.Value.Close()
	}
	return nil
}

// Close closes every nested dialog from the top down and then the root.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for {
		frame, err := s.stack.Close()
		if err != nil {
			break
		}
		frame.Value.Close()
	}
	s.root.Close()
	s.cancel()
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Breadcrumbs lists the root and every nested frame, outermost first.
func (s *Session) Breadcrumbs() []render.Crumb {
	crumbs := []render.Crumb{crumb(s.root)}
	for _, frame := range s.stack.Frames() {
		crumbs = append(crumbs, crumb(frame.Value))
	}
	return crumbs
}

// crumb titles a stored record by its name value when it has one.
func crumb(d *dialog.Dialog) render.Crumb {
	title := d.Adapter().Title()
	if id := d.EntityID(); id != "" {
		if v, ok := d.Snapshot().Values["name"].(string); ok && v != "" {
			title = v
		}
	}
	return render.Crumb{
		EntityType: d.EntityType(),
		EntityID:   d.EntityID(),
		Title:      title,
		Mode:       string(d.Mode()),
	}
}

// View renders the active dialog with the session breadcrumbs attached.
func (s *Session) View() render.View {
	view := s.Active().View()
	view.Breadcrumbs = s.Breadcrumbs()
	return view
}
