package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
)

// DeliveryRepo is the PostgreSQL adapter for delivery records. Its
// CompareAndSetStatus is a single conditional UPDATE: the database row is the
// authority on the pending->accepted race, so a crash before the statement
// commits leaves the offer open and a crash after leaves it resolved, with no
// partially-committed state in between.
type DeliveryRepo struct {
	db *sql.DB
}

// NewDeliveryRepo creates a delivery repository
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// Create creates a new delivery
func (r *DeliveryRepo) Create(ctx context.Context, d *delivery.Delivery) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			id, customer_id, status,
			pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
			pickup_address, dropoff_address, requested_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, d.ID, d.CustomerID, d.Status,
		d.PickupLatitude, d.PickupLongitude, d.DropoffLatitude, d.DropoffLongitude,
		d.PickupAddress, d.DropoffAddress, d.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

// GetByID retrieves a delivery by ID
func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*delivery.Delivery, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, driver_id, status,
		       pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
		       pickup_address, dropoff_address,
		       requested_at, accepted_at, completed_at, created_at, updated_at
		FROM deliveries
		WHERE id = $1
	`, id))
}

// CompareAndSetStatus atomically transitions the delivery from expected to
// next. Returns false without error when the current status no longer
// matches.
func (r *DeliveryRepo) CompareAndSetStatus(ctx context.Context, id string, expected, next delivery.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deliveries
		SET status = $1,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to transition delivery status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// BindDriver records the accepting driver
func (r *DeliveryRepo) BindDriver(ctx context.Context, id, driverID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deliveries
		SET driver_id = $1, updated_at = NOW()
		WHERE id = $2
	`, driverID, id)
	if err != nil {
		return fmt.Errorf("failed to bind driver: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return delivery.ErrDeliveryNotFound
	}
	return nil
}

// ActiveByDriver returns the driver's in-progress delivery, nil when none
func (r *DeliveryRepo) ActiveByDriver(ctx context.Context, driverID string) (*delivery.Delivery, error) {
	d, err := r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, driver_id, status,
		       pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
		       pickup_address, dropoff_address,
		       requested_at, accepted_at, completed_at, created_at, updated_at
		FROM deliveries
		WHERE driver_id = $1
		  AND status IN ('accepted', 'driver_en_route', 'arrived_at_pickup', 'in_transit', 'arrived_at_dropoff')
		ORDER BY accepted_at DESC
		LIMIT 1
	`, driverID))
	if err == delivery.ErrDeliveryNotFound {
		return nil, nil
	}
	return d, err
}

// AppendTrack appends a location sample to the delivery's tracking history
func (r *DeliveryRepo) AppendTrack(ctx context.Context, id string, lat, lng float64, recordedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_tracks (delivery_id, latitude, longitude, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, id, lat, lng, recordedAt)
	if err != nil {
		return fmt.Errorf("failed to append delivery track: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) scanOne(row *sql.Row) (*delivery.Delivery, error) {
	var d delivery.Delivery
	err := row.Scan(
		&d.ID, &d.CustomerID, &d.DriverID, &d.Status,
		&d.PickupLatitude, &d.PickupLongitude, &d.DropoffLatitude, &d.DropoffLongitude,
		&d.PickupAddress, &d.DropoffAddress,
		&d.RequestedAt, &d.AcceptedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, delivery.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}
	return &d, nil
}
