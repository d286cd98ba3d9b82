package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/render"
	"github.com/goliatone/go-dialogform/pkg/renderers/html"
	"github.com/goliatone/go-dialogform/pkg/renderers/tui"
	"github.com/goliatone/go-dialogform/pkg/session"
)

const defaultRendererName = "html"

// ErrSessionNotFound is returned for unknown or closed session ids.
var ErrSessionNotFound = errors.New("orchestrator: session not found")

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithAdapters sets the entity type registry.
func WithAdapters(reg *adapter.Registry) Option {
	return func(o *Orchestrator) {
		o.adapters = reg
	}
}

// WithStore sets the persistence collaborator. Defaults to an in-memory
// store.
func WithStore(store session.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithOptionLoaders sets the option loader registry handed to every session.
func WithOptionLoaders(reg *options.Registry) Option {
	return func(o *Orchestrator) {
		o.loaders = reg
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithLogger sets the logger shared with every session.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSessionOptions appends options applied to every opened session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *Orchestrator) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// Orchestrator opens dialog sessions over the configured adapters and store,
// keeps them addressable by id and renders them. It applies defaults (HTML
// and terminal renderers, in-memory store) while remaining open to
// dependency injection.
type Orchestrator struct {
	adapters        *adapter.Registry
	store           session.Store
	loaders         *options.Registry
	registry        *render.Registry
	defaultRenderer string
	logger          *zap.Logger
	sessionOpts     []session.Option
	themes          themeSettings
	initialiseErr   error

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zap.NewNop(),
		sessions:        make(map[string]*session.Session),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes a dialog to open and how to render it.
type Request struct {
	EntityType string
	// EntityID is empty when creating a record.
	EntityID string
	// Mode defaults to view for stored records and create otherwise.
	Mode mode.Mode

	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string

	// ThemeName and ThemeVariant override the configured theme defaults.
	ThemeName    string
	ThemeVariant string

	// RenderOptions carries per-request instructions such as the action
	// prefix. A nil Theme is filled from the theme selection.
	RenderOptions render.RenderOptions

	// FormErrors are shown above the fields next to the dialog's own
	// form-level messages.
	FormErrors []string
}

func (r Request) mode() mode.Mode {
	if r.Mode != "" {
		return r.Mode
	}
	if r.EntityID == "" {
		return mode.Create
	}
	return mode.View
}

// Output is a rendered dialog.
type Output struct {
	Body        []byte
	ContentType string
}

// Adapters returns the entity type registry.
func (o *Orchestrator) Adapters() *adapter.Registry { return o.adapters }

// Store returns the persistence collaborator.
func (o *Orchestrator) Store() session.Store { return o.store }

// Renderers returns the renderer registry.
func (o *Orchestrator) Renderers() *render.Registry { return o.registry }

// Open starts a session for req and keeps it until CloseSession.
func (o *Orchestrator) Open(ctx context.Context, req Request) (*session.Session, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if req.EntityType == "" {
		return nil, errors.New("orchestrator: entity type is required")
	}

	opts := []session.Option{session.WithLogger(o.logger)}
	if o.loaders != nil {
		opts = append(opts, session.WithOptionLoaders(o.loaders))
	}
	opts = append(opts, o.sessionOpts...)

	sess, err := session.Open(ctx, o.adapters, o.store, req.EntityType, req.EntityID, req.mode(), opts...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open %s: %w", req.EntityType, err)
	}

	o.mu.Lock()
	o.sessions[sess.ID()] = sess
	o.mu.Unlock()
	o.logger.Debug("session opened",
		zap.String("session", sess.ID()),
		zap.String("entity_type", req.EntityType),
		zap.String("entity_id", req.EntityID),
	)
	return sess, nil
}

// Session returns the open session id. Sessions closed elsewhere, for example
// by deleting their root record, are forgotten.
func (o *Orchestrator) Session(id string) (*session.Session, error) {
	o.mu.RLock()
	sess, ok := o.sessions[id]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if sess.Closed() {
		o.forget(id)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Sessions lists the ids of open sessions.
func (o *Orchestrator) Sessions() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.sessions))
	for id, sess := range o.sessions {
		if !sess.Closed() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CloseSession closes and forgets the session id.
func (o *Orchestrator) CloseSession(id string) error {
	o.mu.Lock()
	sess, ok := o.sessions[id]
	delete(o.sessions, id)
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Close()
	return nil
}

// Close closes every open session.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	sessions := o.sessions
	o.sessions = make(map[string]*session.Session)
	o.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	delete(o.sessions, id)
	o.mu.Unlock()
}

// Render renders the active dialog of sess. Option loads still in flight
// render with their loading affordance.
func (o *Orchestrator) Render(ctx context.Context, sess *session.Session, req Request) (Output, error) {
	if ctx == nil {
		return Output{}, errors.New("orchestrator: context is required")
	}
	if sess == nil || sess.Closed() {
		return Output{}, session.ErrClosed
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return Output{}, err
	}

	opts := req.RenderOptions
	if opts.Theme == nil {
		cfg, err := o.ThemeConfig(req.ThemeName, req.ThemeVariant)
		if err != nil {
			return Output{}, err
		}
		opts.Theme = cfg
	}

	view := sess.View()
	view.FormErrors = append(view.FormErrors, req.FormErrors...)
	body, err := renderer.Render(ctx, view, opts)
	if err != nil {
		return Output{}, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return Output{Body: body, ContentType: renderer.ContentType()}, nil
}

// Generate opens a transient session, waits for its option loads, renders it
// and closes it.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	sess, err := o.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = o.CloseSession(sess.ID())
	}()

	active := sess.Active()
	active.LoadAllOptions()
	active.WaitOptions()

	out, err := o.Render(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}
	renderer, err := o.registry.Resolve(name, o.defaultRenderer)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.adapters == nil {
		o.adapters = adapter.NewRegistry()
	}
	if o.store == nil {
		o.store = session.NewMemoryStore()
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := html.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
		o.registry.MustRegister(tui.NewRenderer(tui.DefaultTheme))
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
	if o.themes.fallbacks == nil {
		o.themes.fallbacks = defaultThemeFallbacks()
	}
}
