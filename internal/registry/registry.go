// Package registry provides name-keyed component registries.
//
// Stages, model builders, and dataset factories are registered under string
// keys at init time and looked up when a run is assembled from configuration.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps component names to values of type T (usually factory
// functions). Registration happens from init functions; a Registry is not
// safe for concurrent mutation.
type Registry[T any] struct {
	kind    string
	entries map[string]T
}

// New creates an empty registry. The kind string ("stage", "model",
// "dataset") appears in error messages.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: make(map[string]T),
	}
}

// Register adds an entry. Registering the same name twice is an error.
func (r *Registry[T]) Register(name string, v T) error {
	if name == "" {
		return fmt.Errorf("%s registry: empty name", r.kind)
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%q is already registered in the %s registry", name, r.kind)
	}
	r.entries[name] = v
	return nil
}

// MustRegister is Register for init-time use; it panics on error.
func (r *Registry[T]) MustRegister(name string, v T) {
	if err := r.Register(name, v); err != nil {
		panic(err)
	}
}

// Get returns the entry for name.
func (r *Registry[T]) Get(name string) (T, bool) {
	v, ok := r.entries[name]
	return v, ok
}

// Lookup returns the entry for name, or an error listing the known names.
func (r *Registry[T]) Lookup(name string) (T, error) {
	v, ok := r.entries[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%q is not in the %s registry (known: %s)",
			name, r.kind, strings.Join(r.Names(), ", "))
	}
	return v, nil
}

// Names returns all registered names in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered entries.
func (r *Registry[T]) Len() int {
	return len(r.entries)
}
