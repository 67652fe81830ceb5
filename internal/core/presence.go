package core

import (
	"slices"
	"sync"
)

// Registry tracks registered connections in insertion order.
// Unregistering a connection returns its slot to the allocator.
type Registry struct {
	mu        sync.RWMutex
	allocator *Allocator
	clients   map[string]*Client
	order     []string
}

// NewRegistry creates an empty registry that releases slots into allocator.
func NewRegistry(allocator *Allocator) *Registry {
	return &Registry{
		allocator: allocator,
		clients:   make(map[string]*Client),
	}
}

// Register adds a client. Registering the same ID twice replaces the entry in place.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ID]; !exists {
		r.order = append(r.order, c.ID)
	}
	r.clients[c.ID] = c
}

// Unregister removes a client and frees its slot. Returns false if the ID was unknown.
func (r *Registry) Unregister(id string) (*Client, bool) {
	r.mu.Lock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
		if i := slices.Index(r.order, id); i >= 0 {
			r.order = slices.Delete(r.order, i, i+1)
		}
	}
	r.mu.Unlock()

	if ok && r.allocator != nil {
		r.allocator.Release(c.Slot)
	}
	return c, ok
}

// Lookup resolves a connection ID.
func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Names returns a snapshot of display names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.clients[id].Name)
	}
	return names
}

// Clients returns a snapshot of registered clients in registration order.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.clients[id])
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
