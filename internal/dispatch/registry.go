package dispatch

import "sync"

// Registry maps driver and customer identities to their live connection
// handle. It is a pure mapping with explicit lifecycle: no side effects
// happen here, the Dispatcher derives them. All operations are in-memory and
// complete in bounded time.
type Registry struct {
	mu    sync.RWMutex
	conns map[Identity]Conn
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{conns: make(map[Identity]Conn)}
}

// Register binds the identity to the handle, replacing any prior handle for
// that identity. Last write wins on reconnect.
func (r *Registry) Register(identity Identity, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[identity] = conn
}

// Lookup returns the live handle for the identity, if any.
func (r *Registry) Lookup(identity Identity) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[identity]
	return conn, ok
}

// Unregister removes the identity's entry.
func (r *Registry) Unregister(identity Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, identity)
}

// UnregisterConn removes the entry only if it still points at the given
// connection. A reconnect that already replaced the handle is left alone.
func (r *Registry) UnregisterConn(identity Identity, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.conns[identity]
	if !ok || cur.ConnID() != connID {
		return false
	}
	delete(r.conns, identity)
	return true
}

// Len returns the number of registered connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
