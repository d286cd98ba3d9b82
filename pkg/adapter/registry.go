package adapter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when no adapter is registered for an entity type.
var ErrNotFound = errors.New("adapter: entity type not registered")

// Registry maps entity types to adapters. Nested navigation resolves the
// adapter of a referenced record through it.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter by its EntityType. Duplicates return an error.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return errors.New("adapter: adapter is required")
	}
	name := normalizeName(a.EntityType())
	if name == "" {
		return errors.New("adapter: entity type is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter: entity type %q already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(a Adapter) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// Get retrieves the adapter for entityType.
func (r *Registry) Get(entityType string) (Adapter, error) {
	key := normalizeName(entityType)
	if r == nil || key == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, entityType)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return a, nil
}

// Has reports whether entityType is registered.
func (r *Registry) Has(entityType string) bool {
	_, err := r.Get(entityType)
	return err == nil
}

// List returns the registered entity types, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
