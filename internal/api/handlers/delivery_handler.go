package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/swiftdrop/delivery-dispatch/internal/api/dto"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
)

// CreateDelivery handles POST /v1/deliveries
func (h *Handlers) CreateDelivery(c *gin.Context) {
	var req dto.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("invalid request payload", err))
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.respondError(c, apperrors.BadRequest("customer_id must be a UUID", err))
		return
	}

	now := time.Now().UTC()
	d := &delivery.Delivery{
		ID:               uuid.New(),
		CustomerID:       customerID,
		Status:           delivery.StatusPending,
		PickupLatitude:   req.PickupLatitude,
		PickupLongitude:  req.PickupLongitude,
		DropoffLatitude:  req.DropoffLatitude,
		DropoffLongitude: req.DropoffLongitude,
		PickupAddress:    req.PickupAddress,
		DropoffAddress:   req.DropoffAddress,
		RequestedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.Deliveries.Create(c.Request.Context(), d); err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("delivery created",
		logger.String("delivery_id", d.ID.String()),
		logger.String("customer_id", req.CustomerID),
	)
	c.JSON(http.StatusCreated, d)
}

// GetDelivery handles GET /v1/deliveries/:id
func (h *Handlers) GetDelivery(c *gin.Context) {
	d, err := h.Deliveries.GetByID(c.Request.Context(), c.Param("id"))
	if err == delivery.ErrDeliveryNotFound {
		h.respondError(c, apperrors.ErrDeliveryNotFound)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DispatchOffer handles POST /v1/deliveries/:id/offer: it finds nearby
// available drivers and broadcasts the delivery offer to them. The offer is
// resolved by the acceptance arbiter, first accept wins.
func (h *Handlers) DispatchOffer(c *gin.Context) {
	ctx := c.Request.Context()
	deliveryID := c.Param("id")

	d, err := h.Deliveries.GetByID(ctx, deliveryID)
	if err == delivery.ErrDeliveryNotFound {
		h.respondError(c, apperrors.ErrDeliveryNotFound)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	found, err := h.Candidates.Find(ctx, d.PickupLatitude, d.PickupLongitude)
	if err != nil {
		h.respondError(c, apperrors.Transient("candidate search failed", err))
		return
	}
	if len(found) == 0 {
		h.respondError(c, apperrors.ErrNoDriversAvailable)
		return
	}

	candidateIDs := make([]string, 0, len(found))
	for _, cand := range found {
		candidateIDs = append(candidateIDs, cand.DriverID)
	}

	offer, err := h.Dispatcher.Arbiter().Open(ctx, d, candidateIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.OfferResponse{
		DeliveryID: deliveryID,
		Candidates: candidateIDs,
		ExpiresAt:  offer.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// CancelDelivery handles POST /v1/deliveries/:id/cancel. A pending delivery
// is cancelled via the conditional transition and any open offer withdrawn.
func (h *Handlers) CancelDelivery(c *gin.Context) {
	ctx := c.Request.Context()
	deliveryID := c.Param("id")

	swapped, err := h.Deliveries.CompareAndSetStatus(ctx, deliveryID, delivery.StatusPending, delivery.StatusCancelled)
	if err != nil {
		h.respondError(c, apperrors.Transient("failed to cancel delivery", err))
		return
	}
	if !swapped {
		h.respondError(c, apperrors.AlreadyResolved("delivery is no longer pending"))
		return
	}

	if err := h.Dispatcher.Arbiter().Withdraw(deliveryID); err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
		h.Logger.Warn("failed to withdraw offer",
			logger.String("delivery_id", deliveryID),
			logger.Err(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"delivery_id": deliveryID, "status": string(delivery.StatusCancelled)})
}
