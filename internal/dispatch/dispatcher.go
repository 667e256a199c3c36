package dispatch

import (
	"context"
	"time"

	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/driver"
	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
	"github.com/swiftdrop/delivery-dispatch/pkg/metrics"
)

// Dispatcher composes the dispatch core: it receives inbound events from the
// transport layer, routes them to the registry, subscription table, ingest
// pipeline and arbiter, and emits outbound events. Every inbound event gets
// exactly one terminal Ack.
type Dispatcher struct {
	registry *Registry
	subs     *SubscriptionTable
	pipeline *Pipeline
	arbiter  *Arbiter

	deliveries DeliveryStore
	drivers    DriverDirectory
	index      DriverIndex
	cache      LocationCache
	auth       Authorizer
	broadcast  Broadcaster

	logger  *logger.Logger
	metrics *metrics.Metrics
}

// Deps bundles the dispatcher's collaborators.
type Deps struct {
	Registry   *Registry
	Subs       *SubscriptionTable
	Pipeline   *Pipeline
	Arbiter    *Arbiter
	Deliveries DeliveryStore
	Drivers    DriverDirectory
	Index      DriverIndex
	Cache      LocationCache
	Auth       Authorizer
	Broadcast  Broadcaster
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// NewDispatcher creates the dispatch façade
func NewDispatcher(d Deps) *Dispatcher {
	return &Dispatcher{
		registry:   d.Registry,
		subs:       d.Subs,
		pipeline:   d.Pipeline,
		arbiter:    d.Arbiter,
		deliveries: d.Deliveries,
		drivers:    d.Drivers,
		index:      d.Index,
		cache:      d.Cache,
		auth:       d.Auth,
		broadcast:  d.Broadcast,
		logger:     d.Logger,
		metrics:    d.Metrics,
	}
}

// DriverConnected validates the driver profile and registers the connection.
// A reconnect replaces the previous handle (last write wins).
func (d *Dispatcher) DriverConnected(ctx context.Context, driverID string, conn Conn) error {
	exists, err := d.drivers.Exists(ctx, driverID)
	if err != nil {
		return apperrors.Transient("failed to verify driver profile", err)
	}
	if !exists {
		return apperrors.ErrDriverNotFound
	}

	d.registry.Register(DriverIdentity(driverID), conn)
	if d.metrics != nil {
		d.metrics.ActiveConnections.Inc()
	}
	d.logger.Info("driver connected",
		logger.String("driver_id", driverID),
		logger.String("conn_id", conn.ConnID()),
	)
	return nil
}

// CustomerConnected registers a customer connection.
func (d *Dispatcher) CustomerConnected(ctx context.Context, customerID string, conn Conn) error {
	d.registry.Register(CustomerIdentity(customerID), conn)
	if d.metrics != nil {
		d.metrics.ActiveConnections.Inc()
	}
	d.logger.Info("customer connected",
		logger.String("customer_id", customerID),
		logger.String("conn_id", conn.ConnID()),
	)
	return nil
}

// Disconnected tears down a connection: unregister (only if this conn is
// still the registered handle), purge every subscription referencing it, and
// for drivers best-effort mark them offline in the store. A failed status
// write never rolls back the disconnect.
func (d *Dispatcher) Disconnected(ctx context.Context, identity Identity, conn Conn) {
	replaced := !d.registry.UnregisterConn(identity, conn.ConnID())
	d.subs.Purge(conn.ConnID())
	if d.metrics != nil {
		d.metrics.ActiveConnections.Dec()
	}

	if identity.Role == RoleDriver && !replaced {
		if err := d.drivers.UpdateStatus(ctx, identity.ID, driver.StatusOffline); err != nil {
			d.logger.Warn("failed to mark driver offline",
				logger.String("driver_id", identity.ID),
				logger.Err(err),
			)
		}
		if d.index != nil {
			if err := d.index.SetAvailable(ctx, identity.ID, false); err != nil {
				d.logger.Warn("failed to clear driver availability index",
					logger.String("driver_id", identity.ID),
					logger.Err(err),
				)
			}
		}
	}

	d.logger.Info("connection closed",
		logger.String("role", string(identity.Role)),
		logger.String("id", identity.ID),
		logger.String("conn_id", conn.ConnID()),
	)
}

// Dispatch routes one inbound event to its handler and returns the terminal
// acknowledgment. Validation and authorization failures are resolved here and
// never reach the shared state structures.
func (d *Dispatcher) Dispatch(ctx context.Context, sender Identity, conn Conn, ev Inbound) Ack {
	name := ev.inboundName()

	switch e := ev.(type) {
	case LocationReportEvent:
		return d.handleLocationReport(ctx, sender, name, e)
	case StatusUpdateEvent:
		return d.handleStatusUpdate(ctx, sender, name, e)
	case AvailabilityEvent:
		return d.handleAvailability(ctx, sender, name, e)
	case OfferResponseEvent:
		return d.handleOfferResponse(ctx, sender, name, e)
	case TrackEvent:
		return d.handleTrack(ctx, sender, conn, name, e)
	case UntrackEvent:
		return d.handleUntrack(ctx, sender, conn, name, e)
	default:
		return errAck(name, apperrors.BadRequest("unknown event", nil))
	}
}

func (d *Dispatcher) handleLocationReport(ctx context.Context, sender Identity, name string, e LocationReportEvent) Ack {
	if sender.Role != RoleDriver {
		return errAck(name, apperrors.Unauthorized("only driver connections may report locations"))
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	report := LocationReport{
		DriverID:  sender.ID,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		Timestamp: ts,
		Bearing:   e.Bearing,
		Speed:     e.Speed,
		Accuracy:  e.Accuracy,
	}

	update, err := d.pipeline.Ingest(ctx, report)
	if err != nil {
		return errAck(name, err)
	}

	// Keep the geo index fresh for candidate search. Best-effort.
	if d.index != nil {
		if ierr := d.index.UpdatePosition(ctx, sender.ID, e.Latitude, e.Longitude); ierr != nil {
			d.logger.Warn("failed to update driver position index",
				logger.String("driver_id", sender.ID),
				logger.Err(ierr),
			)
		}
	}

	return okAck(name, update)
}

func (d *Dispatcher) handleStatusUpdate(ctx context.Context, sender Identity, name string, e StatusUpdateEvent) Ack {
	if sender.Role != RoleDriver {
		return errAck(name, apperrors.Unauthorized("only driver connections may update delivery status"))
	}

	next := delivery.Status(e.Status)
	if !next.IsValid() {
		return errAck(name, apperrors.BadRequest("unknown delivery status", nil))
	}

	del, err := d.deliveries.GetByID(ctx, e.DeliveryID)
	if err != nil {
		return errAck(name, apperrors.ErrDeliveryNotFound)
	}
	if del.DriverID == nil || del.DriverID.String() != sender.ID {
		return errAck(name, apperrors.ErrNotAssignedDriver)
	}
	if !del.Status.CanTransitionTo(next) {
		return errAck(name, apperrors.BadRequest("status transition not allowed", nil))
	}

	// Conditional update from the observed status: a concurrent transition
	// loses cleanly instead of silently overwriting.
	swapped, err := d.deliveries.CompareAndSetStatus(ctx, e.DeliveryID, del.Status, next)
	if err != nil {
		return errAck(name, apperrors.Transient("failed to update delivery status", err))
	}
	if !swapped {
		return errAck(name, apperrors.AlreadyResolved("delivery status changed concurrently"))
	}

	update := StatusUpdate{
		DeliveryID: e.DeliveryID,
		Status:     string(next),
		Notes:      e.Notes,
		UpdatedAt:  time.Now().UTC(),
	}
	envelope := Envelope{Type: "status_update", Data: update}

	if conn, ok := d.registry.Lookup(CustomerIdentity(del.CustomerID.String())); ok {
		if serr := conn.Send(envelope); serr != nil {
			d.logger.Warn("failed to push status update to customer",
				logger.String("delivery_id", e.DeliveryID),
				logger.Err(serr),
			)
		}
	}
	for _, conn := range d.subs.Observers(e.DeliveryID) {
		if serr := conn.Send(envelope); serr != nil {
			d.logger.Warn("failed to push status update to observer",
				logger.String("delivery_id", e.DeliveryID),
				logger.String("conn_id", conn.ConnID()),
				logger.Err(serr),
			)
		}
	}
	if d.broadcast != nil {
		d.broadcast.BroadcastToDelivery(e.DeliveryID, envelope)
	}

	if next.IsTerminal() {
		d.subs.Drop(e.DeliveryID)
		d.pipeline.ReleaseDelivery(e.DeliveryID)
		if next == delivery.StatusCompleted {
			if uerr := d.drivers.UpdateStatus(ctx, sender.ID, driver.StatusAvailable); uerr != nil {
				d.logger.Warn("failed to release driver after completion",
					logger.String("driver_id", sender.ID),
					logger.Err(uerr),
				)
			}
		}
	}

	return okAck(name, update)
}

func (d *Dispatcher) handleAvailability(ctx context.Context, sender Identity, name string, e AvailabilityEvent) Ack {
	if sender.Role != RoleDriver {
		return errAck(name, apperrors.Unauthorized("only driver connections may update availability"))
	}

	status := driver.StatusUnavailable
	if e.IsAvailable {
		status = driver.StatusAvailable
	}
	if err := d.drivers.UpdateStatus(ctx, sender.ID, status); err != nil {
		return errAck(name, apperrors.Transient("failed to update availability", err))
	}
	if d.index != nil {
		if err := d.index.SetAvailable(ctx, sender.ID, e.IsAvailable); err != nil {
			d.logger.Warn("failed to update availability index",
				logger.String("driver_id", sender.ID),
				logger.Err(err),
			)
		}
	}

	return okAck(name, map[string]bool{"is_available": e.IsAvailable})
}

func (d *Dispatcher) handleOfferResponse(ctx context.Context, sender Identity, name string, e OfferResponseEvent) Ack {
	if sender.Role != RoleDriver {
		return errAck(name, apperrors.Unauthorized("only driver connections may respond to offers"))
	}

	if err := d.arbiter.Respond(ctx, e.DeliveryID, sender.ID, e.Decision); err != nil {
		return errAck(name, err)
	}
	return okAck(name, map[string]string{
		"delivery_id": e.DeliveryID,
		"decision":    e.Decision,
	})
}

func (d *Dispatcher) handleTrack(ctx context.Context, sender Identity, conn Conn, name string, e TrackEvent) Ack {
	owns, err := d.auth.OwnsDelivery(ctx, sender, e.DeliveryID)
	if err != nil {
		return errAck(name, apperrors.Transient("failed to authorize track request", err))
	}
	if !owns {
		return errAck(name, apperrors.ErrNotDeliveryViewer)
	}

	d.subs.Subscribe(e.DeliveryID, conn)

	// Push the latest cached location immediately so the subscriber is not
	// left waiting for the next report. Expired or absent means no snapshot.
	var snapshot *LocationUpdate
	if del, derr := d.deliveries.GetByID(ctx, e.DeliveryID); derr == nil && del.DriverID != nil {
		if cached, cerr := d.cache.Get(ctx, del.DriverID.String()); cerr == nil && cached != nil {
			snapshot = &LocationUpdate{
				DeliveryID: e.DeliveryID,
				DriverID:   cached.DriverID,
				Latitude:   cached.Latitude,
				Longitude:  cached.Longitude,
				Timestamp:  cached.Timestamp,
				Bearing:    cached.Bearing,
				Speed:      cached.Speed,
			}
			if serr := conn.Send(Envelope{Type: "location_update", Data: snapshot}); serr != nil {
				d.logger.Warn("failed to push location snapshot",
					logger.String("delivery_id", e.DeliveryID),
					logger.Err(serr),
				)
			}
		}
	}

	return okAck(name, map[string]interface{}{
		"delivery_id": e.DeliveryID,
		"snapshot":    snapshot,
	})
}

func (d *Dispatcher) handleUntrack(_ context.Context, _ Identity, conn Conn, name string, e UntrackEvent) Ack {
	d.subs.Unsubscribe(e.DeliveryID, conn.ConnID())
	return okAck(name, map[string]string{"delivery_id": e.DeliveryID})
}

// Registry exposes the connection registry to the transport layer.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Arbiter exposes the acceptance arbiter to the REST layer for opening offers.
func (d *Dispatcher) Arbiter() *Arbiter {
	return d.arbiter
}
