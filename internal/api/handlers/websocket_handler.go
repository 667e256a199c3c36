package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
	"github.com/swiftdrop/delivery-dispatch/pkg/ws"
)

// HandleWebSocket handles GET /v1/ws. Drivers connect with ?driver_id=...,
// customers with ?customer_id=....
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	upgrader := gorilla.Upgrader{
		ReadBufferSize:  h.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: h.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins in development
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	var identity dispatch.Identity
	switch {
	case c.Query("driver_id") != "":
		identity = dispatch.DriverIdentity(c.Query("driver_id"))
	case c.Query("customer_id") != "":
		identity = dispatch.CustomerIdentity(c.Query("customer_id"))
	default:
		h.Logger.Warn("websocket connection without driver_id or customer_id")
		conn.Close()
		return
	}

	client := ws.NewClient(h.Hub, h.Dispatcher, conn, identity, h.Logger)

	ctx := c.Request.Context()
	if identity.Role == dispatch.RoleDriver {
		err = h.Dispatcher.DriverConnected(ctx, identity.ID, client)
	} else {
		err = h.Dispatcher.CustomerConnected(ctx, identity.ID, client)
	}
	if err != nil {
		h.Logger.Warn("websocket connection refused",
			logger.String("role", string(identity.Role)),
			logger.String("id", identity.ID),
			logger.Err(err),
		)
		conn.Close()
		return
	}

	h.Hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}
