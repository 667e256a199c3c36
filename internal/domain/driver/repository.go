package driver

import "context"

// Repository defines the interface for driver data access
type Repository interface {
	// Create creates a new driver profile
	Create(ctx context.Context, driver *Driver) error

	// GetByID retrieves a driver by ID
	GetByID(ctx context.Context, id string) (*Driver, error)

	// Exists reports whether a driver profile exists
	Exists(ctx context.Context, id string) (bool, error)

	// UpdateStatus updates driver status
	UpdateStatus(ctx context.Context, id string, status Status) error

	// SetBusy marks the driver busy with the given delivery
	SetBusy(ctx context.Context, id, deliveryID string) error
}
