package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/swiftdrop/delivery-dispatch/internal/config"
	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/driver"
	"github.com/swiftdrop/delivery-dispatch/internal/service/candidates"
	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
	"github.com/swiftdrop/delivery-dispatch/pkg/ws"
)

// Handlers holds all handler dependencies
type Handlers struct {
	Drivers    driver.Repository
	Deliveries delivery.Repository
	Candidates *candidates.Service
	Dispatcher *dispatch.Dispatcher
	Hub        *ws.Hub
	Config     *config.Config
	Logger     *logger.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	drivers driver.Repository,
	deliveries delivery.Repository,
	cand *candidates.Service,
	dispatcher *dispatch.Dispatcher,
	hub *ws.Hub,
	cfg *config.Config,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		Drivers:    drivers,
		Deliveries: deliveries,
		Candidates: cand,
		Dispatcher: dispatcher,
		Hub:        hub,
		Config:     cfg,
		Logger:     log,
	}
}

// respondError writes the AppError mapping for err.
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.Code == apperrors.CodeInternal {
		h.Logger.Error("request failed", logger.Err(err))
	}
	c.JSON(appErr.Status, gin.H{"code": appErr.Code, "message": appErr.Message})
}
