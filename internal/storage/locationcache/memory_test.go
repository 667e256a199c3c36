package locationcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()

	report := dispatch.LocationReport{
		DriverID:  "driver-1",
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	}
	require.NoError(t, cache.Set(context.Background(), report, 30*time.Second))

	got, err := cache.Get(context.Background(), "driver-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 37.0, got.Latitude)
	assert.Equal(t, -122.0, got.Longitude)
}

func TestMemoryCache_GetMissingDriver(t *testing.T) {
	cache := NewMemoryCache()

	got, err := cache.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCache_SetOverwritesPreviousReport(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, dispatch.LocationReport{DriverID: "driver-1", Latitude: 37.0}, time.Minute))
	require.NoError(t, cache.Set(ctx, dispatch.LocationReport{DriverID: "driver-1", Latitude: 38.0}, time.Minute))

	got, err := cache.Get(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 38.0, got.Latitude)
}

func TestMemoryCache_TTLBoundary(t *testing.T) {
	const ttl = 30 * time.Second
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cache := NewMemoryCache()
	now := base
	cache.SetClock(func() time.Time { return now })

	require.NoError(t, cache.Set(context.Background(), dispatch.LocationReport{
		DriverID: "driver-1",
		Latitude: 37.0,
	}, ttl))

	// Just inside the window the entry is still fresh.
	now = base.Add(ttl - time.Millisecond)
	got, err := cache.Get(context.Background(), "driver-1")
	require.NoError(t, err)
	assert.NotNil(t, got)

	// At and past the deadline the entry reads as absent.
	now = base.Add(ttl)
	got, err = cache.Get(context.Background(), "driver-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCache_ExpiredEntryIsRemovedOnRead(t *testing.T) {
	const ttl = 10 * time.Second
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cache := NewMemoryCache()
	now := base
	cache.SetClock(func() time.Time { return now })

	require.NoError(t, cache.Set(context.Background(), dispatch.LocationReport{DriverID: "driver-1"}, ttl))

	now = base.Add(ttl + time.Second)
	got, err := cache.Get(context.Background(), "driver-1")
	require.NoError(t, err)
	require.Nil(t, got)

	// A fresh write after expiry behaves like a first write.
	now = base.Add(2 * ttl)
	require.NoError(t, cache.Set(context.Background(), dispatch.LocationReport{DriverID: "driver-1", Latitude: 39.0}, ttl))
	got, err = cache.Get(context.Background(), "driver-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 39.0, got.Latitude)
}
