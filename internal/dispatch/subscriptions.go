package dispatch

import "sync"

// SubscriptionTable maps an in-progress delivery to the set of connections
// currently observing it. Subscribing twice is idempotent; the set is deleted
// outright when its last observer leaves.
type SubscriptionTable struct {
	mu        sync.RWMutex
	observers map[string]map[string]Conn // deliveryID -> connID -> conn
}

// NewSubscriptionTable creates an empty subscription table
func NewSubscriptionTable() *SubscriptionTable {
	return &SubscriptionTable{observers: make(map[string]map[string]Conn)}
}

// Subscribe adds the connection to the delivery's observer set, creating the
// set if absent.
func (t *SubscriptionTable) Subscribe(deliveryID string, conn Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.observers[deliveryID]
	if !ok {
		set = make(map[string]Conn)
		t.observers[deliveryID] = set
	}
	set[conn.ConnID()] = conn
}

// Unsubscribe removes the connection from the delivery's observer set and
// deletes the set when empty.
func (t *SubscriptionTable) Unsubscribe(deliveryID, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.observers[deliveryID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.observers, deliveryID)
	}
}

// Observers returns a snapshot of the delivery's observer connections.
// The snapshot is safe to iterate without holding the table's lock.
func (t *SubscriptionTable) Observers(deliveryID string) []Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.observers[deliveryID]
	if !ok {
		return nil
	}
	conns := make([]Conn, 0, len(set))
	for _, conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// HasObservers reports whether any connection observes the delivery.
func (t *SubscriptionTable) HasObservers(deliveryID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.observers[deliveryID]
	return ok
}

// Purge removes the connection from every observer set it belongs to.
// Called on connection teardown so no set references a dead connection.
func (t *SubscriptionTable) Purge(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for deliveryID, set := range t.observers {
		delete(set, connID)
		if len(set) == 0 {
			delete(t.observers, deliveryID)
		}
	}
}

// Drop removes the delivery's observer set entirely, used when the delivery
// reaches a terminal state.
func (t *SubscriptionTable) Drop(deliveryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.observers, deliveryID)
}
