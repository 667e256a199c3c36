package driver

import (
	"time"

	"github.com/google/uuid"
)

// Status represents driver availability status
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusBusy        Status = "busy"
	StatusOffline     Status = "offline"
)

// Driver represents a courier profile
type Driver struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Status            Status     `json:"status"`
	VehiclePlate      string     `json:"vehicle_plate,omitempty"`
	CurrentDeliveryID *uuid.UUID `json:"current_delivery_id,omitempty"`
	Rating            float64    `json:"rating"`
	TotalDeliveries   int        `json:"total_deliveries"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsValid validates the driver entity
func (d *Driver) IsValid() error {
	if d.Name == "" {
		return ErrInvalidDriverName
	}
	if d.Email == "" {
		return ErrInvalidDriverEmail
	}
	if !d.Status.IsValid() {
		return ErrInvalidDriverStatus
	}
	return nil
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusUnavailable, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// CanAcceptOffers returns true if the driver can be offered deliveries
func (d *Driver) CanAcceptOffers() bool {
	return d.Status == StatusAvailable
}
