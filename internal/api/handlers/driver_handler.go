package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/swiftdrop/delivery-dispatch/internal/api/dto"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/driver"
	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
)

// RegisterDriver handles POST /v1/drivers
func (h *Handlers) RegisterDriver(c *gin.Context) {
	var req dto.RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("invalid request payload", err))
		return
	}

	d := &driver.Driver{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Status:       driver.StatusOffline,
		VehiclePlate: req.VehiclePlate,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := d.IsValid(); err != nil {
		h.respondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.Drivers.Create(c.Request.Context(), d); err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("driver registered", logger.String("driver_id", d.ID.String()))
	c.JSON(http.StatusCreated, d)
}

// GetDriver handles GET /v1/drivers/:id
func (h *Handlers) GetDriver(c *gin.Context) {
	d, err := h.Drivers.GetByID(c.Request.Context(), c.Param("id"))
	if err == driver.ErrDriverNotFound {
		h.respondError(c, apperrors.ErrDriverNotFound)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateDriverAvailability handles POST /v1/drivers/:id/availability
func (h *Handlers) UpdateDriverAvailability(c *gin.Context) {
	driverID := c.Param("id")

	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("invalid request payload", err))
		return
	}

	status := driver.StatusUnavailable
	if *req.IsAvailable {
		status = driver.StatusAvailable
	}
	if err := h.Drivers.UpdateStatus(c.Request.Context(), driverID, status); err != nil {
		if err == driver.ErrDriverNotFound {
			h.respondError(c, apperrors.ErrDriverNotFound)
			return
		}
		h.respondError(c, err)
		return
	}

	if err := h.Candidates.SetAvailable(c.Request.Context(), driverID, *req.IsAvailable); err != nil {
		// Index update is best-effort; the durable status already changed.
		h.Logger.Warn("failed to update availability index",
			logger.String("driver_id", driverID),
			logger.Err(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"driver_id":    driverID,
		"is_available": *req.IsAvailable,
	})
}
