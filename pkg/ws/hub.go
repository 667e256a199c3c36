package ws

import (
	"encoding/json"
	"sync"

	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
)

// Hub owns the set of live WebSocket clients and the per-delivery broadcast
// rooms. It implements the dispatch core's Broadcaster port: room members and
// late joiners receive delivery events even without an explicit tracking
// subscription.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *logger.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("client registered",
				logger.String("conn_id", client.id),
				logger.String("role", string(client.identity.Role)),
				logger.String("user_id", client.identity.ID),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.logger.Info("client unregistered",
					logger.String("conn_id", client.id),
				)
			}
			h.mu.Unlock()
		}
	}
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastToDelivery sends an event to every client that joined the
// delivery's room. Sends are non-blocking; a full buffer drops the frame for
// that client rather than stalling the caller.
func (h *Hub) BroadcastToDelivery(deliveryID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to marshal delivery broadcast", logger.Err(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.inRoom(deliveryID) {
			continue
		}
		if !client.enqueue(data) {
			h.logger.Warn("dropped delivery broadcast for slow client",
				logger.String("delivery_id", deliveryID),
				logger.String("conn_id", client.id),
			)
		}
	}
}

// ActiveConnections returns the number of live clients
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
