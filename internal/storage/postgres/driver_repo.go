package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/swiftdrop/delivery-dispatch/internal/domain/driver"
)

// DriverRepo is the PostgreSQL adapter for driver profiles. It implements
// driver.Repository and the dispatch core's DriverDirectory port.
type DriverRepo struct {
	db *sql.DB
}

// NewDriverRepo creates a driver repository
func NewDriverRepo(db *sql.DB) *DriverRepo {
	return &DriverRepo{db: db}
}

// Create creates a new driver profile
func (r *DriverRepo) Create(ctx context.Context, d *driver.Driver) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drivers (id, name, email, phone, status, vehicle_plate, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, d.ID, d.Name, d.Email, d.Phone, d.Status, d.VehiclePlate, d.Rating)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

// GetByID retrieves a driver by ID
func (r *DriverRepo) GetByID(ctx context.Context, id string) (*driver.Driver, error) {
	var d driver.Driver
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, status, vehicle_plate, current_delivery_id,
		       rating, total_deliveries, created_at, updated_at
		FROM drivers
		WHERE id = $1
	`, id).Scan(
		&d.ID, &d.Name, &d.Email, &d.Phone, &d.Status, &d.VehiclePlate,
		&d.CurrentDeliveryID, &d.Rating, &d.TotalDeliveries, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, driver.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	return &d, nil
}

// Exists reports whether a driver profile exists
func (r *DriverRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check driver existence: %w", err)
	}
	return exists, nil
}

// UpdateStatus updates driver status
func (r *DriverRepo) UpdateStatus(ctx context.Context, id string, status driver.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE drivers
		SET status = $1,
		    current_delivery_id = CASE WHEN $1 = 'busy' THEN current_delivery_id ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update driver status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return driver.ErrDriverNotFound
	}
	return nil
}

// SetBusy marks the driver busy with the given delivery
func (r *DriverRepo) SetBusy(ctx context.Context, id, deliveryID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE drivers
		SET status = 'busy',
		    current_delivery_id = $1,
		    updated_at = NOW()
		WHERE id = $2
	`, deliveryID, id)
	if err != nil {
		return fmt.Errorf("failed to mark driver busy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return driver.ErrDriverNotFound
	}
	return nil
}
