package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/internal/service/geo"
	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
	"github.com/swiftdrop/delivery-dispatch/pkg/metrics"
)

// PipelineConfig tunes the ingest pipeline.
type PipelineConfig struct {
	// LocationTTL is the freshness window for the cached latest location.
	LocationTTL time.Duration
	// AssumedSpeedKMH is the average speed used for ETA computation.
	AssumedSpeedKMH float64
}

// Pipeline validates and records incoming position reports, updates the
// ephemeral cache, and fans accepted reports out to delivery observers.
//
// Per-driver ordering holds because each connection's read loop delivers its
// events serially; the pipeline additionally serializes append+fan-out per
// delivery so observers never see report N+1 before report N.
type Pipeline struct {
	history    LocationHistory
	cache      LocationCache
	deliveries DeliveryStore
	subs       *SubscriptionTable
	broadcast  Broadcaster
	cfg        PipelineConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics

	perDelivery sync.Map // deliveryID -> *sync.Mutex
}

// NewPipeline creates a location ingest pipeline
func NewPipeline(
	history LocationHistory,
	cache LocationCache,
	deliveries DeliveryStore,
	subs *SubscriptionTable,
	broadcast Broadcaster,
	cfg PipelineConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		history:    history,
		cache:      cache,
		deliveries: deliveries,
		subs:       subs,
		broadcast:  broadcast,
		cfg:        cfg,
		logger:     log,
		metrics:    m,
	}
}

// Ingest processes one position report. On success it returns the fan-out
// event that was emitted, or nil when the driver has no active delivery.
//
// Failure semantics: a malformed report is rejected before anything is
// written; a history failure is surfaced before the cache is touched, so the
// report is applied both-or-neither. The pipeline never retries internally:
// a retry here could duplicate history writes, the caller owns bounded retry.
func (p *Pipeline) Ingest(ctx context.Context, report LocationReport) (*LocationUpdate, error) {
	if err := report.Validate(); err != nil {
		if p.metrics != nil {
			p.metrics.ReportsRejected.Inc()
		}
		return nil, err
	}

	if err := p.history.Append(ctx, report); err != nil {
		return nil, apperrors.Transient("failed to append location history", err)
	}

	if err := p.cache.Set(ctx, report, p.cfg.LocationTTL); err != nil {
		return nil, apperrors.Transient("failed to cache location", err)
	}

	if p.metrics != nil {
		p.metrics.ReportsIngested.Inc()
	}

	active, err := p.deliveries.ActiveByDriver(ctx, report.DriverID)
	if err != nil {
		return nil, apperrors.Transient("failed to look up active delivery", err)
	}
	if active == nil {
		// No in-progress delivery: ingestion ends here, no fan-out.
		return nil, nil
	}

	return p.fanOut(ctx, active, report)
}

// fanOut appends the report to the delivery's tracking history and pushes a
// location-update event to every observer plus the shared delivery channel.
// The per-delivery lock preserves fan-out ordering; the sends themselves are
// non-blocking so a slow or dead observer never stalls ingestion.
func (p *Pipeline) fanOut(ctx context.Context, active *delivery.Delivery, report LocationReport) (*LocationUpdate, error) {
	deliveryID := active.ID.String()

	muAny, _ := p.perDelivery.LoadOrStore(deliveryID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if err := p.deliveries.AppendTrack(ctx, deliveryID, report.Latitude, report.Longitude, report.Timestamp); err != nil {
		return nil, apperrors.Transient("failed to append delivery track", err)
	}

	update := &LocationUpdate{
		DeliveryID: deliveryID,
		DriverID:   report.DriverID,
		Latitude:   report.Latitude,
		Longitude:  report.Longitude,
		Timestamp:  report.Timestamp,
		Bearing:    report.Bearing,
		Speed:      report.Speed,
	}

	if active.HasDestination() {
		if eta, ok := geo.ETASeconds(
			report.Latitude, report.Longitude,
			*active.DropoffLatitude, *active.DropoffLongitude,
			p.cfg.AssumedSpeedKMH,
		); ok {
			update.ETASeconds = &eta
		}
	}

	envelope := Envelope{Type: "location_update", Data: update}

	for _, conn := range p.subs.Observers(deliveryID) {
		if err := conn.Send(envelope); err != nil {
			// Per-recipient isolation: a failed send is swallowed and the
			// connection's own teardown path cleans it up.
			p.logger.Warn("failed to deliver location update",
				logger.String("delivery_id", deliveryID),
				logger.String("conn_id", conn.ConnID()),
				logger.Err(err),
			)
		}
	}
	if p.broadcast != nil {
		p.broadcast.BroadcastToDelivery(deliveryID, envelope)
	}
	if p.metrics != nil {
		p.metrics.FanoutEvents.Inc()
	}

	return update, nil
}

// ReleaseDelivery drops the per-delivery ordering state once the delivery is
// terminal.
func (p *Pipeline) ReleaseDelivery(deliveryID string) {
	p.perDelivery.Delete(deliveryID)
}
