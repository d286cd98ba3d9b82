// Package options loads the selectable entries of choice fields. Loaders are
// asynchronous collaborators; a Tracker runs them per dialog, exposes a
// loading flag per field, degrades failures to an empty option list and stops
// applying results once the owning dialog closes.
package options

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-dialogform/pkg/model"
)

var (
	// ErrLoaderNotFound is returned when no loader is registered under a name.
	ErrLoaderNotFound = errors.New("options: loader not found")
	// ErrDuplicateLoader is returned when a name is registered twice.
	ErrDuplicateLoader = errors.New("options: loader already registered")
)

// Request describes one option lookup.
type Request struct {
	// EntityType is the entity the options refer to (the choice target).
	EntityType string
	// Field is the requesting field name.
	Field string
	// Query optionally narrows the result.
	Query  string
	Params map[string]string
}

func (r Request) key() string {
	var b strings.Builder
	b.WriteString(r.EntityType)
	b.WriteString("|")
	b.WriteString(r.Field)
	b.WriteString("|")
	b.WriteString(r.Query)
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(";")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(r.Params[k])
	}
	return b.String()
}

// Loader fetches options. Implementations must honour ctx cancellation.
type Loader interface {
	Load(ctx context.Context, req Request) ([]model.Option, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, req Request) ([]model.Option, error)

func (fn LoaderFunc) Load(ctx context.Context, req Request) ([]model.Option, error) {
	return fn(ctx, req)
}

// Static serves a fixed option list, filtered by a case-insensitive label
// match on Request.Query.
type Static []model.Option

func (s Static) Load(ctx context.Context, req Request) ([]model.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Filter(s, req.Query), nil
}

// Filter keeps options whose label or id contains query.
func Filter(options []model.Option, query string) []model.Option {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Option, 0, len(options))
	for _, option := range options {
		if query == "" ||
			strings.Contains(strings.ToLower(option.Label), query) ||
			strings.Contains(strings.ToLower(option.ID), query) {
			out = append(out, option)
		}
	}
	return out
}

// Registry maps loader names to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register adds loader under name.
func (r *Registry) Register(name string, loader Loader) error {
	name = strings.TrimSpace(name)
	if name == "" || loader == nil {
		return errors.New("options: loader name and implementation required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.loaders[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLoader, name)
	}
	r.loaders[name] = loader
	return nil
}

// Replace registers loader under name, replacing any loader already there.
func (r *Registry) Replace(name string, loader Loader) error {
	name = strings.TrimSpace(name)
	if name == "" || loader == nil {
		return errors.New("options: loader name and implementation required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[name] = loader
	return nil
}

// MustRegister panics when Register fails.
func (r *Registry) MustRegister(name string, loader Loader) {
	if err := r.Register(name, loader); err != nil {
		panic(err)
	}
}

// Get resolves name.
func (r *Registry) Get(name string) (Loader, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrLoaderNotFound, name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.loaders[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLoaderNotFound, name)
	}
	return loader, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
