// Package device glues the wire protocol to the quadrature subsystem: it
// owns the command registry, decodes incoming frames and dispatches them
// to the core.
package device

import (
	"fmt"
	"sync"
)

// Handler processes one command. It decodes its own arguments from the
// payload remainder, advancing the slice.
type Handler func(data *[]byte) error

// Command is one registered wire command. Format documents the argument
// layout in the conventional "name=%type" notation.
type Command struct {
	ID      uint32
	Name    string
	Format  string
	Handler Handler
}

// Registry maps command IDs to handlers.
type Registry struct {
	mu       sync.RWMutex
	commands map[uint32]*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[uint32]*Command)}
}

// Register adds a command. Registering an ID twice is a programming
// error and panics.
func (r *Registry) Register(id uint32, name, format string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[id]; exists {
		panic(fmt.Sprintf("device: command %d (%s) registered twice", id, name))
	}
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: handler}
}

// Dispatch runs the handler for id against the remaining payload.
func (r *Registry) Dispatch(id uint32, data *[]byte) error {
	r.mu.RLock()
	cmd, ok := r.commands[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("device: unknown command id %d", id)
	}
	if err := cmd.Handler(data); err != nil {
		return fmt.Errorf("device: %s: %w", cmd.Name, err)
	}
	return nil
}

// Lookup returns the command registered under id.
func (r *Registry) Lookup(id uint32) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}
