// Package service provides the named service registry plugins and builtin
// components use to share capabilities (for example the "mt" machine
// translation service). Values are opaque to the registry; callers assert
// the concrete type on lookup.
package service

import (
	"fmt"
	"sort"
	"sync"
)

// entry is one registered service.
type entry struct {
	value  any
	source string
}

// Registry is a named service registry with source tracking so a plugin's
// services can be released together on unload.
type Registry struct {
	mu       sync.RWMutex
	services map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]entry),
	}
}

// Register adds a service under name. The source identifies the owner,
// e.g. "app" or "plugin:spellcheck".
func (r *Registry) Register(name string, value any, source string) error {
	if name == "" {
		return ErrEmptyName
	}
	if value == nil {
		return ErrNilService
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrServiceExists, name)
	}
	r.services[name] = entry{value: value, source: source}
	return nil
}

// Get returns the service registered under name.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.services[name]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Unregister removes the service registered under name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.services[name]; !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	delete(r.services, name)
	return nil
}

// UnregisterBySource removes all services owned by source and returns how
// many were removed.
func (r *Registry) UnregisterBySource(source string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for name, e := range r.services {
		if e.source == source {
			delete(r.services, name)
			removed++
		}
	}
	return removed
}

// Names returns all registered service names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered services.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
