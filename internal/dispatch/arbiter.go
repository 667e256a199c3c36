package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/pkg/apperrors"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
	"github.com/swiftdrop/delivery-dispatch/pkg/metrics"
)

// Offer states. Terminal once resolved.
type offerState int

const (
	offerOpen offerState = iota
	offerAccepted
	offerWithdrawn
	offerExpired
)

func (s offerState) String() string {
	switch s {
	case offerOpen:
		return "open"
	case offerAccepted:
		return "accepted"
	case offerWithdrawn:
		return "withdrawn"
	case offerExpired:
		return "expired"
	}
	return "unknown"
}

// Offer is an ephemeral broadcast record for a pending delivery sent to one
// or more candidate drivers. Resolved exactly once.
type Offer struct {
	DeliveryID string
	CreatedAt  time.Time
	ExpiresAt  time.Time

	mu         sync.Mutex
	state      offerState
	candidates map[string]bool
	rejected   map[string]bool
	winner     string
	timer      *time.Timer
}

func (o *Offer) isCandidate(driverID string) bool {
	return o.candidates[driverID]
}

// resolvedRetention keeps a resolved offer in the table long enough that a
// late candidate response gets a definitive ALREADY_RESOLVED rather than
// NOT_FOUND.
const resolvedRetention = time.Minute

// Arbiter resolves the single-winner race when a delivery offer is broadcast
// to multiple eligible drivers. The accept path is an atomic conditional
// transition against the durable store, performed under the offer's own lock:
// two concurrent accepts can never both observe "still pending".
type Arbiter struct {
	mu     sync.Mutex
	offers map[string]*Offer // keyed by deliveryID

	deliveries DeliveryStore
	drivers    DriverDirectory
	registry   *Registry
	expiry     time.Duration
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewArbiter creates an acceptance arbiter
func NewArbiter(
	deliveries DeliveryStore,
	drivers DriverDirectory,
	registry *Registry,
	expiry time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *Arbiter {
	return &Arbiter{
		offers:     make(map[string]*Offer),
		deliveries: deliveries,
		drivers:    drivers,
		registry:   registry,
		expiry:     expiry,
		logger:     log,
		metrics:    m,
	}
}

// Open creates an offer for the delivery and pushes it to every candidate
// driver that has a live connection. The offer expires after the configured
// window if nobody accepts.
func (a *Arbiter) Open(ctx context.Context, d *delivery.Delivery, candidateIDs []string) (*Offer, error) {
	if d.Status != delivery.StatusPending {
		return nil, apperrors.AlreadyResolved("delivery is no longer pending")
	}
	if len(candidateIDs) == 0 {
		return nil, apperrors.ErrNoDriversAvailable
	}

	deliveryID := d.ID.String()
	now := time.Now()

	offer := &Offer{
		DeliveryID: deliveryID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(a.expiry),
		state:      offerOpen,
		candidates: make(map[string]bool, len(candidateIDs)),
		rejected:   make(map[string]bool),
	}
	for _, id := range candidateIDs {
		offer.candidates[id] = true
	}

	a.mu.Lock()
	if existing, ok := a.offers[deliveryID]; ok {
		existing.mu.Lock()
		stillOpen := existing.state == offerOpen
		existing.mu.Unlock()
		if stillOpen {
			a.mu.Unlock()
			return nil, apperrors.AlreadyResolved("offer already open for this delivery")
		}
	}
	a.offers[deliveryID] = offer
	a.mu.Unlock()

	offer.timer = time.AfterFunc(a.expiry, func() {
		a.expire(deliveryID)
	})

	event := Envelope{Type: "delivery_offer", Data: OfferEvent{
		DeliveryID:      deliveryID,
		PickupLatitude:  d.PickupLatitude,
		PickupLongitude: d.PickupLongitude,
		PickupAddress:   d.PickupAddress,
		ExpiresAt:       offer.ExpiresAt,
	}}
	for _, driverID := range candidateIDs {
		if conn, ok := a.registry.Lookup(DriverIdentity(driverID)); ok {
			if err := conn.Send(event); err != nil {
				a.logger.Warn("failed to push offer to candidate",
					logger.String("delivery_id", deliveryID),
					logger.String("driver_id", driverID),
					logger.Err(err),
				)
			}
		}
	}

	if a.metrics != nil {
		a.metrics.OffersOpened.Inc()
	}
	a.logger.Info("offer opened",
		logger.String("delivery_id", deliveryID),
		logger.Int("candidates", len(candidateIDs)),
		logger.Time("expires_at", offer.ExpiresAt),
	)

	return offer, nil
}

// Respond handles a candidate driver's answer to an open offer.
//
// accept performs the atomic check "is the delivery still pending" via the
// store's conditional transition while holding the offer lock. Exactly one
// accept can succeed; every other accepting driver receives AlreadyResolved.
// The loser is told explicitly, never left to assume success.
func (a *Arbiter) Respond(ctx context.Context, deliveryID, driverID, decision string) error {
	a.mu.Lock()
	offer, ok := a.offers[deliveryID]
	a.mu.Unlock()
	if !ok {
		return apperrors.ErrOfferNotFound
	}

	offer.mu.Lock()

	if !offer.isCandidate(driverID) {
		offer.mu.Unlock()
		return apperrors.ErrNotACandidate
	}
	if offer.state != offerOpen {
		offer.mu.Unlock()
		return apperrors.ErrOfferResolved
	}

	switch decision {
	case "reject":
		offer.rejected[driverID] = true
		offer.mu.Unlock()
		a.logger.Info("offer rejected by candidate",
			logger.String("delivery_id", deliveryID),
			logger.String("driver_id", driverID),
		)
		return nil

	case "accept":
		swapped, err := a.deliveries.CompareAndSetStatus(ctx, deliveryID, delivery.StatusPending, delivery.StatusAccepted)
		if err != nil {
			offer.mu.Unlock()
			return apperrors.Transient("failed to transition delivery status", err)
		}
		if !swapped {
			// The delivery left pending through some other path (cancel,
			// withdrawal). The offer outcome is decided either way.
			offer.mu.Unlock()
			return apperrors.ErrOfferResolved
		}

		offer.state = offerAccepted
		offer.winner = driverID
		if offer.timer != nil {
			offer.timer.Stop()
		}
		losers := offer.unresolvedCandidatesLocked()
		offer.mu.Unlock()

		a.settleAccepted(ctx, deliveryID, driverID, losers)
		return nil

	default:
		offer.mu.Unlock()
		return apperrors.BadRequest("decision must be accept or reject", nil)
	}
}

// unresolvedCandidatesLocked lists every candidate except the winner.
// Caller holds offer.mu.
func (o *Offer) unresolvedCandidatesLocked() []string {
	out := make([]string, 0, len(o.candidates))
	for id := range o.candidates {
		if id != o.winner {
			out = append(out, id)
		}
	}
	return out
}

// settleAccepted runs the post-acceptance side effects: bind the winner,
// mark them busy, confirm to the customer, and tell the losers. All of these
// are best-effort pushes; the conditional transition has already committed
// and is the sole authority on the outcome.
func (a *Arbiter) settleAccepted(ctx context.Context, deliveryID, driverID string, losers []string) {
	if err := a.deliveries.BindDriver(ctx, deliveryID, driverID); err != nil {
		a.logger.Error("failed to bind winning driver",
			logger.String("delivery_id", deliveryID),
			logger.String("driver_id", driverID),
			logger.Err(err),
		)
	}
	if err := a.drivers.SetBusy(ctx, driverID, deliveryID); err != nil {
		a.logger.Warn("failed to mark driver busy",
			logger.String("driver_id", driverID),
			logger.Err(err),
		)
	}

	if d, err := a.deliveries.GetByID(ctx, deliveryID); err == nil {
		if conn, ok := a.registry.Lookup(CustomerIdentity(d.CustomerID.String())); ok {
			_ = conn.Send(Envelope{Type: "assignment_confirmed", Data: AssignmentConfirmed{
				DeliveryID: deliveryID,
				DriverID:   driverID,
			}})
		}
	}

	a.notifyUnavailable(deliveryID, losers, "accepted_by_another_driver")
	a.removeLater(deliveryID)

	if a.metrics != nil {
		a.metrics.OffersResolved.WithLabelValues("accepted").Inc()
	}
	a.logger.Info("offer accepted",
		logger.String("delivery_id", deliveryID),
		logger.String("driver_id", driverID),
	)
}

// Withdraw resolves an open offer without a winner, e.g. when the customer
// cancels the delivery. Candidates are notified the same way as on expiry.
func (a *Arbiter) Withdraw(deliveryID string) error {
	return a.resolveWithoutWinner(deliveryID, offerWithdrawn, "withdrawn")
}

func (a *Arbiter) expire(deliveryID string) {
	_ = a.resolveWithoutWinner(deliveryID, offerExpired, "expired")
}

func (a *Arbiter) resolveWithoutWinner(deliveryID string, state offerState, reason string) error {
	a.mu.Lock()
	offer, ok := a.offers[deliveryID]
	a.mu.Unlock()
	if !ok {
		return apperrors.ErrOfferNotFound
	}

	offer.mu.Lock()
	if offer.state != offerOpen {
		offer.mu.Unlock()
		return apperrors.ErrOfferResolved
	}
	offer.state = state
	if offer.timer != nil {
		offer.timer.Stop()
	}
	candidates := make([]string, 0, len(offer.candidates))
	for id := range offer.candidates {
		candidates = append(candidates, id)
	}
	offer.mu.Unlock()

	a.notifyUnavailable(deliveryID, candidates, reason)
	a.removeLater(deliveryID)

	if a.metrics != nil {
		a.metrics.OffersResolved.WithLabelValues(state.String()).Inc()
	}
	a.logger.Info("offer resolved without winner",
		logger.String("delivery_id", deliveryID),
		logger.String("outcome", state.String()),
	)
	return nil
}

func (a *Arbiter) notifyUnavailable(deliveryID string, driverIDs []string, reason string) {
	event := Envelope{Type: "offer_unavailable", Data: OfferUnavailable{
		DeliveryID: deliveryID,
		Reason:     reason,
	}}
	for _, driverID := range driverIDs {
		if conn, ok := a.registry.Lookup(DriverIdentity(driverID)); ok {
			if err := conn.Send(event); err != nil {
				a.logger.Warn("failed to notify candidate",
					logger.String("delivery_id", deliveryID),
					logger.String("driver_id", driverID),
					logger.Err(err),
				)
			}
		}
	}
}

func (a *Arbiter) removeLater(deliveryID string) {
	time.AfterFunc(resolvedRetention, func() {
		a.mu.Lock()
		if offer, ok := a.offers[deliveryID]; ok {
			offer.mu.Lock()
			resolved := offer.state != offerOpen
			offer.mu.Unlock()
			if resolved {
				delete(a.offers, deliveryID)
			}
		}
		a.mu.Unlock()
	})
}

// OpenOffers returns the number of unresolved offers
func (a *Arbiter) OpenOffers() int {
	a.mu.Lock()
	offers := make([]*Offer, 0, len(a.offers))
	for _, offer := range a.offers {
		offers = append(offers, offer)
	}
	a.mu.Unlock()

	open := 0
	for _, offer := range offers {
		offer.mu.Lock()
		if offer.state == offerOpen {
			open++
		}
		offer.mu.Unlock()
	}
	return open
}
