package dispatch

import (
	"time"

	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
)

// Role distinguishes the two kinds of connected identities.
type Role string

const (
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)

// Identity names a connected party. It is the key of the connection registry.
type Identity struct {
	Role Role
	ID   string
}

// DriverIdentity builds a driver identity
func DriverIdentity(id string) Identity {
	return Identity{Role: RoleDriver, ID: id}
}

// CustomerIdentity builds a customer identity
func CustomerIdentity(id string) Identity {
	return Identity{Role: RoleCustomer, ID: id}
}

// Conn is an opaque handle to a live transport connection. Send must never
// block: implementations drop or buffer on a slow receiver and report the
// failure, which triggers eventual teardown rather than stalling the sender.
type Conn interface {
	ConnID() string
	Send(v interface{}) error
	Close()
}

// LocationReport is a single position sample from a driver connection.
// Immutable once constructed.
type LocationReport struct {
	DriverID  string    `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Bearing   *float64  `json:"bearing,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
}

// Validate rejects out-of-range coordinates. Violations fail, they are never
// clamped.
func (r *LocationReport) Validate() error {
	if r.Latitude < -90 || r.Latitude > 90 {
		return apperrors.InvalidCoordinates("latitude must be within [-90, 90]")
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return apperrors.InvalidCoordinates("longitude must be within [-180, 180]")
	}
	return nil
}

// Inbound events. The transport layer decodes wire frames into these and
// hands them to the Dispatcher; each one receives exactly one Ack.

// Inbound is the closed set of events a connection can send.
type Inbound interface {
	inboundName() string
}

// LocationReportEvent carries a driver position sample.
type LocationReportEvent struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Bearing   *float64  `json:"bearing,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
}

// StatusUpdateEvent is the assigned driver moving the delivery forward.
type StatusUpdateEvent struct {
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`
	Notes      string `json:"notes,omitempty"`
}

// AvailabilityEvent toggles a driver's availability for new offers.
type AvailabilityEvent struct {
	IsAvailable bool `json:"is_available"`
}

// OfferResponseEvent is a candidate driver answering a delivery offer.
type OfferResponseEvent struct {
	DeliveryID string `json:"delivery_id"`
	Decision   string `json:"decision"` // "accept" or "reject"
	Reason     string `json:"reason,omitempty"`
}

// TrackEvent subscribes the sender to a delivery's location updates.
type TrackEvent struct {
	DeliveryID string `json:"delivery_id"`
}

// UntrackEvent removes the sender from a delivery's observer set.
type UntrackEvent struct {
	DeliveryID string `json:"delivery_id"`
}

func (LocationReportEvent) inboundName() string { return "location_report" }
func (StatusUpdateEvent) inboundName() string   { return "status_update" }
func (AvailabilityEvent) inboundName() string   { return "availability_update" }
func (OfferResponseEvent) inboundName() string  { return "offer_response" }
func (TrackEvent) inboundName() string          { return "track_delivery" }
func (UntrackEvent) inboundName() string        { return "untrack_delivery" }

// Ack is the single terminal acknowledgment for an inbound event.
type Ack struct {
	Type    string      `json:"type"`
	Event   string      `json:"event"`
	OK      bool        `json:"ok"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func okAck(event string, data interface{}) Ack {
	return Ack{Type: "ack", Event: event, OK: true, Data: data}
}

func errAck(event string, err error) Ack {
	appErr := apperrors.GetAppError(err)
	return Ack{Type: "ack", Event: event, OK: false, Code: appErr.Code, Message: appErr.Message}
}

// Outbound events pushed to connections.

// Envelope is the wire shape of every outbound push.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LocationUpdate fans out an accepted position report to delivery observers.
type LocationUpdate struct {
	DeliveryID string    `json:"delivery_id"`
	DriverID   string    `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  time.Time `json:"timestamp"`
	Bearing    *float64  `json:"bearing,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	// ETASeconds is present only when the delivery's destination is known.
	ETASeconds *float64 `json:"eta_seconds,omitempty"`
}

// StatusUpdate notifies observers of a delivery status change.
type StatusUpdate struct {
	DeliveryID string    `json:"delivery_id"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OfferEvent is a delivery offer pushed to a candidate driver.
type OfferEvent struct {
	DeliveryID      string    `json:"delivery_id"`
	PickupLatitude  float64   `json:"pickup_latitude"`
	PickupLongitude float64   `json:"pickup_longitude"`
	PickupAddress   string    `json:"pickup_address,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// OfferUnavailable tells a candidate the offer is gone (won by another
// driver, withdrawn, or expired).
type OfferUnavailable struct {
	DeliveryID string `json:"delivery_id"`
	Reason     string `json:"reason"`
}

// AssignmentConfirmed tells the customer a driver accepted their delivery.
type AssignmentConfirmed struct {
	DeliveryID string `json:"delivery_id"`
	DriverID   string `json:"driver_id"`
}
