package locationcache

import (
	"context"
	"sync"
	"time"

	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
)

// MemoryCache is an in-process location cache with passive expiry: an entry
// past its deadline is treated as absent on the next read and removed then,
// rather than being actively swept.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	report    dispatch.LocationReport
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory location cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the cache's time source. Used by tests to probe TTL
// boundaries deterministically.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Set overwrites the driver's cached latest location with the given TTL.
func (c *MemoryCache) Set(_ context.Context, report dispatch.LocationReport, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[report.DriverID] = memoryEntry{
		report:    report,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Get returns the cached latest location, or nil when absent or expired.
func (c *MemoryCache) Get(_ context.Context, driverID string) (*dispatch.LocationReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[driverID]
	if !ok {
		return nil, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, driverID)
		return nil, nil
	}
	report := entry.report
	return &report, nil
}
