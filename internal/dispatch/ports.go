package dispatch

import (
	"context"
	"time"

	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/driver"
)

// Collaborator interfaces. The core depends on these only; adapters live in
// internal/storage and internal/service.

// DeliveryStore is the durable authority for delivery records. Its
// CompareAndSetStatus is the sole arbiter of the pending->accepted race.
type DeliveryStore interface {
	GetByID(ctx context.Context, id string) (*delivery.Delivery, error)
	CompareAndSetStatus(ctx context.Context, id string, expected, next delivery.Status) (bool, error)
	BindDriver(ctx context.Context, id, driverID string) error
	ActiveByDriver(ctx context.Context, driverID string) (*delivery.Delivery, error)
	AppendTrack(ctx context.Context, id string, lat, lng float64, recordedAt time.Time) error
}

// LocationHistory is the append-only durable log of position reports.
type LocationHistory interface {
	Append(ctx context.Context, report LocationReport) error
}

// LocationCache holds the single most-recent location per driver with a TTL.
// Get returns nil when no entry exists or the entry has expired; it never
// returns stale data. Expiry may be passive (checked on read).
type LocationCache interface {
	Set(ctx context.Context, report LocationReport, ttl time.Duration) error
	Get(ctx context.Context, driverID string) (*LocationReport, error)
}

// DriverDirectory is the durable driver-profile collaborator.
type DriverDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status driver.Status) error
	SetBusy(ctx context.Context, id, deliveryID string) error
}

// DriverIndex is the ephemeral geo/availability index used for candidate
// search. Updates are best-effort from the dispatch paths.
type DriverIndex interface {
	SetAvailable(ctx context.Context, driverID string, available bool) error
	UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error
}

// Authorizer answers entitlement questions for track requests.
type Authorizer interface {
	OwnsDelivery(ctx context.Context, identity Identity, deliveryID string) (bool, error)
}

// Broadcaster is the shared per-delivery broadcast channel: room members and
// late joiners receive fan-out events through it in addition to the explicit
// observer set.
type Broadcaster interface {
	BroadcastToDelivery(deliveryID string, v interface{})
}
