package roster

import (
	"sync"

	domain "github.com/example/chat-relay-demo/domain/chat"
)

// Registry tracks which (roomID, userID) identity each live connection is
// bound to. A binding is written once at a successful join and cleared at
// disconnect; it is never reassigned.
type Registry struct {
	mu       sync.Mutex
	bindings map[string]domain.Binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]domain.Binding),
	}
}

// Bind records the identity for connID. Returns ErrAlreadyBound if the
// connection already holds a binding.
func (r *Registry) Bind(connID, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[connID]; ok {
		return ErrAlreadyBound
	}
	r.bindings[connID] = domain.Binding{RoomID: roomID, UserID: userID}
	return nil
}

// Unbind atomically reads and clears the binding for connID. ok is false if
// the connection never completed a join, in which case no membership cleanup
// is needed.
func (r *Registry) Unbind(connID string) (binding domain.Binding, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok = r.bindings[connID]
	if ok {
		delete(r.bindings, connID)
	}
	return binding, ok
}

// Lookup returns the current binding for connID without clearing it.
func (r *Registry) Lookup(connID string) (domain.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.bindings[connID]
	return binding, ok
}

// Count returns the number of bound connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}
