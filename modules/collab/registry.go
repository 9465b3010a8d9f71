package collab

import "sync"

// Registry maps a socket id to the display name it joined with. It is owned by
// the collab module and handed to the broadcast hub at construction so tests
// can swap it for a fresh instance.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]string),
	}
}

// Register stores or overwrites the display name for a socket. Display names
// are not unique; collisions are allowed.
func (r *Registry) Register(socketID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[socketID] = username
}

// Lookup returns the display name for a socket, or ok=false if the socket
// never joined.
func (r *Registry) Lookup(socketID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[socketID]
	return name, ok
}

// Unregister removes the mapping for a socket. Removing an absent entry is a
// no-op.
func (r *Registry) Unregister(socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, socketID)
}

// Count returns the number of registered sockets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
