package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ErrSendBufferFull reports a slow client whose outbound buffer overflowed.
var ErrSendBufferFull = errors.New("client send buffer full")

// Client is one live WebSocket connection. It implements dispatch.Conn: the
// registry and subscription table hold it as an opaque handle. The read pump
// delivers this connection's events to the dispatcher serially, which is what
// keeps per-driver report ordering.
type Client struct {
	id       string
	identity dispatch.Identity

	hub        *Hub
	dispatcher *dispatch.Dispatcher
	conn       *websocket.Conn
	send       chan []byte

	roomsMu sync.RWMutex
	rooms   map[string]bool // deliveryIDs whose broadcast room this client joined

	closeOnce sync.Once
	logger    *logger.Logger
}

// frame is the wire shape of every inbound message.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, dispatcher *dispatch.Dispatcher, conn *websocket.Conn, identity dispatch.Identity, log *logger.Logger) *Client {
	return &Client{
		id:         uuid.New().String(),
		identity:   identity,
		hub:        hub,
		dispatcher: dispatcher,
		conn:       conn,
		send:       make(chan []byte, 256),
		rooms:      make(map[string]bool),
		logger:     log,
	}
}

// ConnID returns the connection's unique id
func (c *Client) ConnID() string {
	return c.id
}

// Identity returns the connected party
func (c *Client) Identity() dispatch.Identity {
	return c.identity
}

// Send marshals and enqueues an event without blocking. A full buffer is an
// error for the caller to swallow; the client's own teardown handles cleanup.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		return ErrSendBufferFull
	}
	return nil
}

// Close closes the underlying connection
func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) inRoom(deliveryID string) bool {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	return c.rooms[deliveryID]
}

func (c *Client) joinRoom(deliveryID string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	c.rooms[deliveryID] = true
}

func (c *Client) leaveRoom(deliveryID string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	delete(c.rooms, deliveryID)
}

// ReadPump pumps messages from the connection to the dispatcher. It exits on
// any read error, at which point the connection is torn down everywhere.
func (c *Client) ReadPump() {
	defer func() {
		c.dispatcher.Disconnected(context.Background(), c.identity, c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error",
					logger.Err(err),
					logger.String("conn_id", c.id),
				)
			}
			break
		}
		c.handleFrame(message)
	}
}

// WritePump pumps enqueued messages to the connection with ping keepalives.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one wire frame into a dispatch event, runs it, and
// pushes the acknowledgment back. Room membership frames are handled at the
// transport level; everything else goes through the dispatcher.
func (c *Client) handleFrame(message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		c.sendAck(dispatch.Ack{Type: "ack", Event: "unknown", OK: false, Code: "BAD_REQUEST", Message: "malformed frame"})
		return
	}

	switch f.Type {
	case "ping":
		_ = c.Send(dispatch.Envelope{Type: "pong", Data: nil})
		return
	case "join_delivery":
		var e dispatch.TrackEvent
		if err := json.Unmarshal(f.Data, &e); err != nil || e.DeliveryID == "" {
			c.sendAck(dispatch.Ack{Type: "ack", Event: f.Type, OK: false, Code: "BAD_REQUEST", Message: "delivery_id required"})
			return
		}
		c.joinRoom(e.DeliveryID)
		c.sendAck(dispatch.Ack{Type: "ack", Event: f.Type, OK: true})
		return
	case "leave_delivery":
		var e dispatch.UntrackEvent
		if err := json.Unmarshal(f.Data, &e); err != nil || e.DeliveryID == "" {
			c.sendAck(dispatch.Ack{Type: "ack", Event: f.Type, OK: false, Code: "BAD_REQUEST", Message: "delivery_id required"})
			return
		}
		c.leaveRoom(e.DeliveryID)
		c.sendAck(dispatch.Ack{Type: "ack", Event: f.Type, OK: true})
		return
	}

	ev, err := decodeInbound(f)
	if err != nil {
		c.sendAck(dispatch.Ack{Type: "ack", Event: f.Type, OK: false, Code: "BAD_REQUEST", Message: err.Error()})
		return
	}

	ack := c.dispatcher.Dispatch(context.Background(), c.identity, c, ev)
	c.sendAck(ack)
}

func decodeInbound(f frame) (dispatch.Inbound, error) {
	switch f.Type {
	case "location_report":
		var e dispatch.LocationReportEvent
		return e, json.Unmarshal(f.Data, &e)
	case "status_update":
		var e dispatch.StatusUpdateEvent
		return e, json.Unmarshal(f.Data, &e)
	case "availability_update":
		var e dispatch.AvailabilityEvent
		return e, json.Unmarshal(f.Data, &e)
	case "offer_response":
		var e dispatch.OfferResponseEvent
		return e, json.Unmarshal(f.Data, &e)
	case "track_delivery":
		var e dispatch.TrackEvent
		return e, json.Unmarshal(f.Data, &e)
	case "untrack_delivery":
		var e dispatch.UntrackEvent
		return e, json.Unmarshal(f.Data, &e)
	}
	return nil, errors.New("unknown event type")
}

func (c *Client) sendAck(ack dispatch.Ack) {
	if err := c.Send(ack); err != nil {
		c.logger.Warn("failed to send acknowledgment",
			logger.String("conn_id", c.id),
			logger.Err(err),
		)
	}
}
