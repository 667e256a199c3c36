// Package candidates finds eligible drivers for a delivery offer using the
// Redis geospatial index, expanding the search radius progressively when the
// initial ring is empty.
package candidates

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
)

const (
	geoKey       = "drivers:geo"
	availableKey = "drivers:available"
)

// Config holds candidate search configuration
type Config struct {
	// SearchRadiusKM is the initial search radius.
	SearchRadiusKM float64
	// MaxSearchRadiusKM caps progressive expansion.
	MaxSearchRadiusKM float64
	// MaxCandidates bounds how many drivers one offer reaches.
	MaxCandidates int
}

// Candidate is a nearby available driver.
type Candidate struct {
	DriverID   string
	DistanceKM float64
}

// Service performs candidate search and maintains the ephemeral driver index.
type Service struct {
	redis  *redis.Client
	logger *logger.Logger
	config Config
}

// NewService creates a candidate search service
func NewService(client *redis.Client, log *logger.Logger, cfg Config) *Service {
	return &Service{redis: client, logger: log, config: cfg}
}

// searchRadii returns the progressive radius ladder: the initial radius, then
// 2x, 4x and 10x, capped at the configured maximum.
func searchRadii(cfg Config) []float64 {
	maxRadius := cfg.MaxSearchRadiusKM
	if maxRadius <= 0 {
		maxRadius = 50.0
	}
	radii := []float64{cfg.SearchRadiusKM}
	for _, mult := range []float64{2, 4, 10} {
		if r := cfg.SearchRadiusKM * mult; r <= maxRadius {
			radii = append(radii, r)
		}
	}
	return radii
}

// Find returns up to MaxCandidates available drivers near the pickup point,
// closest first. Unavailable drivers in the geo ring are filtered out, not
// claimed: claiming is the acceptance arbiter's job.
func (s *Service) Find(ctx context.Context, pickupLat, pickupLng float64) ([]Candidate, error) {
	for _, radius := range searchRadii(s.config) {
		found, err := s.searchRadius(ctx, pickupLat, pickupLng, radius)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
		s.logger.Debug("no available drivers in radius, expanding search",
			logger.Float64("radius_km", radius),
		)
	}

	s.logger.Warn("no available drivers within maximum search radius",
		logger.Float64("max_radius_km", s.config.MaxSearchRadiusKM),
		logger.Float64("pickup_lat", pickupLat),
		logger.Float64("pickup_lng", pickupLng),
	)
	return nil, nil
}

func (s *Service) searchRadius(ctx context.Context, lat, lng, radius float64) ([]Candidate, error) {
	results, err := s.redis.GeoRadius(ctx, geoKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:   radius,
		Unit:     "km",
		WithDist: true,
		Count:    s.config.MaxCandidates,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby drivers: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, result := range results {
		available, err := s.redis.SIsMember(ctx, availableKey, result.Name).Result()
		if err != nil {
			s.logger.Warn("failed to check driver availability",
				logger.String("driver_id", result.Name),
				logger.Err(err),
			)
			continue
		}
		if !available {
			continue
		}
		candidates = append(candidates, Candidate{
			DriverID:   result.Name,
			DistanceKM: result.Dist,
		})
	}
	return candidates, nil
}

// SetAvailable adds or removes the driver from the availability set.
func (s *Service) SetAvailable(ctx context.Context, driverID string, available bool) error {
	if available {
		return s.redis.SAdd(ctx, availableKey, driverID).Err()
	}
	return s.redis.SRem(ctx, availableKey, driverID).Err()
}

// UpdatePosition refreshes the driver's entry in the geo index.
func (s *Service) UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error {
	return s.redis.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      driverID,
		Latitude:  lat,
		Longitude: lng,
	}).Err()
}
