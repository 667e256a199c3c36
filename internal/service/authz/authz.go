// Package authz answers the entitlement questions the dispatch core
// delegates: whether an identity may view a delivery's live location.
package authz

import (
	"context"

	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
)

// Service authorizes track requests against delivery ownership.
type Service struct {
	deliveries delivery.Repository
}

// NewService creates an authorization service
func NewService(deliveries delivery.Repository) *Service {
	return &Service{deliveries: deliveries}
}

// OwnsDelivery reports whether the identity is the delivery's customer or
// its assigned driver.
func (s *Service) OwnsDelivery(ctx context.Context, identity dispatch.Identity, deliveryID string) (bool, error) {
	d, err := s.deliveries.GetByID(ctx, deliveryID)
	if err == delivery.ErrDeliveryNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch identity.Role {
	case dispatch.RoleCustomer:
		return d.CustomerID.String() == identity.ID, nil
	case dispatch.RoleDriver:
		return d.DriverID != nil && d.DriverID.String() == identity.ID, nil
	}
	return false, nil
}
