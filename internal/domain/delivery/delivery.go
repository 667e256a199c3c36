package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents delivery status
type Status string

const (
	StatusPending          Status = "pending"
	StatusAccepted         Status = "accepted"
	StatusDriverEnRoute    Status = "driver_en_route"
	StatusArrivedAtPickup  Status = "arrived_at_pickup"
	StatusInTransit        Status = "in_transit"
	StatusArrivedAtDropoff Status = "arrived_at_dropoff"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
)

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDriverEnRoute, StatusArrivedAtPickup,
		StatusInTransit, StatusArrivedAtDropoff, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// InProgress reports whether the delivery has an assigned driver and is not
// yet terminal. Location fan-out happens only for in-progress deliveries.
func (s Status) InProgress() bool {
	switch s {
	case StatusAccepted, StatusDriverEnRoute, StatusArrivedAtPickup,
		StatusInTransit, StatusArrivedAtDropoff:
		return true
	}
	return false
}

// IsTerminal reports whether the status is final
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// driverTransitions enumerates the in-flight transitions the assigned driver
// may request. pending->accepted is excluded: that transition belongs to the
// acceptance arbiter alone.
var driverTransitions = map[Status][]Status{
	StatusAccepted:         {StatusDriverEnRoute, StatusCancelled},
	StatusDriverEnRoute:    {StatusArrivedAtPickup},
	StatusArrivedAtPickup:  {StatusInTransit},
	StatusInTransit:        {StatusArrivedAtDropoff},
	StatusArrivedAtDropoff: {StatusCompleted},
}

// CanTransitionTo reports whether the assigned driver may move the delivery
// from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range driverTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Delivery represents a delivery order. The dispatch core references it by id
// and never invents a transition not explicitly requested.
type Delivery struct {
	ID               uuid.UUID  `json:"id"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	DriverID         *uuid.UUID `json:"driver_id,omitempty"`
	Status           Status     `json:"status"`
	PickupLatitude   float64    `json:"pickup_latitude"`
	PickupLongitude  float64    `json:"pickup_longitude"`
	DropoffLatitude  *float64   `json:"dropoff_latitude,omitempty"`
	DropoffLongitude *float64   `json:"dropoff_longitude,omitempty"`
	PickupAddress    string     `json:"pickup_address,omitempty"`
	DropoffAddress   string     `json:"dropoff_address,omitempty"`
	RequestedAt      time.Time  `json:"requested_at"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Repository interface
type Repository interface {
	Create(ctx context.Context, d *Delivery) error
	GetByID(ctx context.Context, id string) (*Delivery, error)

	// CompareAndSetStatus atomically transitions the delivery from expected
	// to next. Returns false when the current status no longer matches.
	CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error)

	// BindDriver records the accepting driver. Called only by the winner of
	// the CompareAndSetStatus(pending, accepted) race.
	BindDriver(ctx context.Context, id, driverID string) error

	// ActiveByDriver returns the driver's in-progress delivery, nil when none.
	ActiveByDriver(ctx context.Context, driverID string) (*Delivery, error)

	// AppendTrack appends a location sample to the delivery's tracking history.
	AppendTrack(ctx context.Context, id string, lat, lng float64, recordedAt time.Time) error
}

// Errors
var (
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrInvalidStatus    = errors.New("invalid status transition")
)

// HasDestination reports whether dropoff coordinates are known.
func (d *Delivery) HasDestination() bool {
	return d.DropoffLatitude != nil && d.DropoffLongitude != nil
}
