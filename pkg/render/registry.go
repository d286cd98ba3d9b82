package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrRendererNotFound  = errors.New("render: renderer not found")
	ErrDuplicateRenderer = errors.New("render: renderer already registered")
	ErrNoRenderers       = errors.New("render: no renderers registered")
)

// Registry holds renderers by name and remembers registration order, which
// decides the fallback when a request names no renderer.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Renderer
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Renderer)}
}

// Register adds renderer under its Name().
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return errors.New("render: renderer is required")
	}
	name := strings.TrimSpace(renderer.Name())
	if name == "" {
		return errors.New("render: renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRenderer, name)
	}
	r.byKey[name] = renderer
	r.order = append(r.order, name)
	return nil
}

// MustRegister panics when Register fails.
func (r *Registry) MustRegister(renderer Renderer) {
	if err := r.Register(renderer); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.byKey[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRendererNotFound, name)
	}
	return renderer, nil
}

// Resolve returns the renderer called name. An empty name tries fallback
// and then the first registered renderer. A name that is set but unknown is
// an error.
func (r *Registry) Resolve(name, fallback string) (Renderer, error) {
	if strings.TrimSpace(name) != "" {
		return r.Get(name)
	}
	if renderer, err := r.Get(fallback); err == nil {
		return renderer, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil, ErrNoRenderers
	}
	return r.byKey[r.order[0]], nil
}

// List returns the renderer names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}
