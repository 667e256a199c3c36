// Package locationcache holds the single most-recent location per driver
// with a time-to-live. A read past the TTL behaves as "no known location";
// it never returns stale data.
package locationcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
)

// RedisCache is the production adapter. Redis handles expiry itself via the
// key TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed location cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func locationKey(driverID string) string {
	return fmt.Sprintf("driver:%s:location", driverID)
}

// Set overwrites the driver's cached latest location with the given TTL.
func (c *RedisCache) Set(ctx context.Context, report dispatch.LocationReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}
	if err := c.client.Set(ctx, locationKey(report.DriverID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache location: %w", err)
	}
	return nil
}

// Get returns the cached latest location, or nil when absent or expired.
func (c *RedisCache) Get(ctx context.Context, driverID string) (*dispatch.LocationReport, error) {
	data, err := c.client.Get(ctx, locationKey(driverID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached location: %w", err)
	}
	var report dispatch.LocationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached location: %w", err)
	}
	return &report, nil
}
