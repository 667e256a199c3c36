package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/swiftdrop/delivery-dispatch/internal/api/handlers"
	"github.com/swiftdrop/delivery-dispatch/pkg/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, m *metrics.Metrics, nrApp *newrelic.Application) {
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := r.Group("/v1")
	{
		// WebSocket connection
		v1.GET("/ws", h.HandleWebSocket)

		// Driver endpoints
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", h.RegisterDriver)
			drivers.GET("/:id", h.GetDriver)
			drivers.POST("/:id/availability", h.UpdateDriverAvailability)
		}

		// Delivery endpoints
		deliveries := v1.Group("/deliveries")
		{
			deliveries.POST("", h.CreateDelivery)
			deliveries.GET("/:id", h.GetDelivery)
			deliveries.POST("/:id/offer", h.DispatchOffer)
			deliveries.POST("/:id/cancel", h.CancelDelivery)
		}
	}
}
