// Package command provides the registry of named operations exposed
// through the command palette and the plugin API. Commands carry a
// source tag so everything a plugin registered can be removed in one
// sweep when the plugin unloads.
package command

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds registered commands and dispatches executions.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command

	// onChange callbacks are called when commands are added/removed.
	onChange []func()
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
	}
}

// Register adds a command to the registry.
// If a command with the same ID exists, it is replaced.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if cmd.ID == "" {
		return ErrEmptyID
	}
	if cmd.Title == "" {
		return ErrEmptyTitle
	}

	r.mu.Lock()
	r.commands[cmd.ID] = cmd
	r.mu.Unlock()

	r.notifyChange()
	return nil
}

// RegisterAll adds multiple commands to the registry.
func (r *Registry) RegisterAll(commands []*Command) error {
	for _, cmd := range commands {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes a command from the registry.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	_, exists := r.commands[id]
	if exists {
		delete(r.commands, id)
	}
	r.mu.Unlock()

	if exists {
		r.notifyChange()
	}
	return exists
}

// UnregisterBySource removes all commands from a specific source.
// It returns how many commands were removed.
func (r *Registry) UnregisterBySource(source string) int {
	r.mu.Lock()
	count := 0
	for id, cmd := range r.commands {
		if cmd.Source == source {
			delete(r.commands, id)
			count++
		}
	}
	r.mu.Unlock()

	if count > 0 {
		r.notifyChange()
	}
	return count
}

// Get retrieves a command by ID.
func (r *Registry) Get(id string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[id]
}

// Has checks if a command exists.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.commands[id]
	return exists
}

// All returns all registered commands.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		result = append(result, cmd)
	}

	// Sort by title for consistent ordering
	sort.Slice(result, func(i, j int) bool {
		return result[i].Title < result[j].Title
	})

	return result
}

// ByCategory returns commands in the specified category, sorted by title.
func (r *Registry) ByCategory(category string) []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Command, 0)
	for _, cmd := range r.commands {
		if cmd.Category == category {
			result = append(result, cmd)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Title < result[j].Title
	})

	return result
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Execute runs a command by ID with the given arguments.
func (r *Registry) Execute(id string, args map[string]any) error {
	r.mu.RLock()
	cmd, exists := r.commands[id]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return cmd.Execute(args)
}

// OnChange registers a callback for command list changes.
// Callbacks are invoked after command registration/unregistration.
// Callbacks may safely read/execute commands but should avoid
// registering/unregistering commands to prevent infinite loops.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// notifyChange calls all registered change callbacks.
// Callbacks are invoked without holding locks to prevent deadlocks.
func (r *Registry) notifyChange() {
	r.mu.RLock()
	callbacks := make([]func(), len(r.onChange))
	copy(callbacks, r.onChange)
	r.mu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Clear removes all commands.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.commands = make(map[string]*Command)
	r.mu.Unlock()

	r.notifyChange()
}
