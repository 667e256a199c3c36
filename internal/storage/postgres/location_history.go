package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
)

// LocationHistoryRepo is the append-only PostgreSQL log of driver position
// reports. Failures are surfaced to the caller so the report can be retried;
// the repo never retries on its own.
type LocationHistoryRepo struct {
	db *sql.DB
}

// NewLocationHistoryRepo creates a location history repository
func NewLocationHistoryRepo(db *sql.DB) *LocationHistoryRepo {
	return &LocationHistoryRepo{db: db}
}

// Append appends one position report
func (r *LocationHistoryRepo) Append(ctx context.Context, report dispatch.LocationReport) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO location_history (driver_id, latitude, longitude, bearing, speed, accuracy, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, report.DriverID, report.Latitude, report.Longitude,
		report.Bearing, report.Speed, report.Accuracy, report.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append location history: %w", err)
	}
	return nil
}
