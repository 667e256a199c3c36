package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
	"github.com/swiftdrop/delivery-dispatch/pkg/metrics"
)

type pipelineFixture struct {
	pipeline  *Pipeline
	history   *fakeHistory
	cache     *fakeCache
	store     *fakeDeliveryStore
	subs      *SubscriptionTable
	broadcast *fakeBroadcaster
}

func newPipelineFixture() *pipelineFixture {
	history := &fakeHistory{}
	cache := newFakeCache()
	store := newFakeDeliveryStore()
	subs := NewSubscriptionTable()
	broadcast := newFakeBroadcaster()

	p := NewPipeline(history, cache, store, subs, broadcast, PipelineConfig{
		LocationTTL:     30 * time.Second,
		AssumedSpeedKMH: 30,
	}, logger.NewNop(), metrics.New())

	return &pipelineFixture{
		pipeline:  p,
		history:   history,
		cache:     cache,
		store:     store,
		subs:      subs,
		broadcast: broadcast,
	}
}

func inTransitDelivery(driverID string, withDestination bool) *delivery.Delivery {
	parsed := uuid.MustParse(driverID)
	d := &delivery.Delivery{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		DriverID:        &parsed,
		Status:          delivery.StatusInTransit,
		PickupLatitude:  37.0,
		PickupLongitude: -122.0,
	}
	if withDestination {
		lat, lng := 37.05, -122.05
		d.DropoffLatitude = &lat
		d.DropoffLongitude = &lng
	}
	return d
}

func TestPipeline_IngestRejectsInvalidCoordinates(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{name: "latitude too low", lat: -90.5, lng: 0},
		{name: "latitude too high", lat: 91, lng: 0},
		{name: "longitude too low", lat: 0, lng: -180.5},
		{name: "longitude too high", lat: 0, lng: 181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()

			update, err := f.pipeline.Ingest(context.Background(), LocationReport{
				DriverID:  uuid.NewString(),
				Latitude:  tt.lat,
				Longitude: tt.lng,
				Timestamp: time.Now(),
			})

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCoordinates))
			assert.Nil(t, update)
			assert.Equal(t, 0, f.history.count())
		})
	}
}

func TestPipeline_IngestHistoryFailureHappensBeforeCache(t *testing.T) {
	f := newPipelineFixture()
	f.history.err = errors.New("db down")
	driverID := uuid.NewString()

	_, err := f.pipeline.Ingest(context.Background(), LocationReport{
		DriverID:  driverID,
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransient))

	cached, cerr := f.cache.Get(context.Background(), driverID)
	require.NoError(t, cerr)
	assert.Nil(t, cached, "cache must stay untouched when the history write fails")
}

func TestPipeline_IngestCacheFailureIsTransient(t *testing.T) {
	f := newPipelineFixture()
	f.cache.err = errors.New("redis down")

	_, err := f.pipeline.Ingest(context.Background(), LocationReport{
		DriverID:  uuid.NewString(),
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransient))
}

func TestPipeline_IngestWithoutActiveDeliveryEndsQuietly(t *testing.T) {
	f := newPipelineFixture()
	driverID := uuid.NewString()

	update, err := f.pipeline.Ingest(context.Background(), LocationReport{
		DriverID:  driverID,
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	})

	require.NoError(t, err)
	assert.Nil(t, update)

	cached, cerr := f.cache.Get(context.Background(), driverID)
	require.NoError(t, cerr)
	require.NotNil(t, cached, "cache is updated even without an active delivery")
	assert.Equal(t, 37.0, cached.Latitude)
}

func TestPipeline_IngestFansOutToObservers(t *testing.T) {
	f := newPipelineFixture()
	driverID := uuid.NewString()
	d := inTransitDelivery(driverID, true)
	f.store.put(d)

	observer := newFakeConn("conn-obs")
	f.subs.Subscribe(d.ID.String(), observer)

	update, err := f.pipeline.Ingest(context.Background(), LocationReport{
		DriverID:  driverID,
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	})

	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Equal(t, d.ID.String(), update.DeliveryID)
	assert.Equal(t, driverID, update.DriverID)
	require.NotNil(t, update.ETASeconds, "destination is known, ETA must be attached")
	assert.Greater(t, *update.ETASeconds, 0.0)

	require.Len(t, observer.envelopes("location_update"), 1)
	assert.Equal(t, 1, f.broadcast.count(d.ID.String()))
	assert.Equal(t, 1, f.store.tracks[d.ID.String()])
}

func TestPipeline_IngestOmitsETAWithoutDestination(t *testing.T) {
	f := newPipelineFixture()
	driverID := uuid.NewString()
	d := inTransitDelivery(driverID, false)
	f.store.put(d)

	update, err := f.pipeline.Ingest(context.Background(), LocationReport{
		DriverID:  driverID,
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	})

	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Nil(t, update.ETASeconds)
}

func TestPipeline_IngestFailedObserverSendIsIsolated(t *testing.T) {
	f := newPipelineFixture()
	driverID := uuid.NewString()
	d := inTransitDelivery(driverID, false)
	f.store.put(d)

	broken := newFakeConn("conn-broken")
	broken.failSend = true
	healthy := newFakeConn("conn-healthy")
	f.subs.Subscribe(d.ID.String(), broken)
	f.subs.Subscribe(d.ID.String(), healthy)

	_, err := f.pipeline.Ingest(context.Background(), LocationReport{
		DriverID:  driverID,
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	})

	require.NoError(t, err, "a failed send to one observer must not fail ingestion")
	assert.Len(t, healthy.envelopes("location_update"), 1)
}

func TestPipeline_IngestTrackFailureIsTransient(t *testing.T) {
	f := newPipelineFixture()
	driverID := uuid.NewString()
	d := inTransitDelivery(driverID, false)
	f.store.put(d)
	f.store.trackErr = errors.New("db down")

	update, err := f.pipeline.Ingest(context.Background(), LocationReport{
		DriverID:  driverID,
		Latitude:  37.0,
		Longitude: -122.0,
		Timestamp: time.Now(),
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransient))
	assert.Nil(t, update)
}
