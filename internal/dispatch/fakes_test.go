package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/delivery"
	"github.com/swiftdrop/delivery-dispatch/internal/domain/driver"
)

// In-memory collaborators used across the dispatch tests.

type fakeConn struct {
	id string

	mu       sync.Mutex
	sent     []Envelope
	acks     []Ack
	failSend bool
	closed   bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ConnID() string { return c.id }

func (c *fakeConn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("send failed")
	}
	switch msg := v.(type) {
	case Envelope:
		c.sent = append(c.sent, msg)
	case Ack:
		c.acks = append(c.acks, msg)
	}
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) envelopes(eventType string) []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Envelope
	for _, e := range c.sent {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeDeliveryStore struct {
	mu         sync.Mutex
	deliveries map[string]*delivery.Delivery
	tracks     map[string]int
	trackErr   error
}

func newFakeDeliveryStore() *fakeDeliveryStore {
	return &fakeDeliveryStore{
		deliveries: make(map[string]*delivery.Delivery),
		tracks:     make(map[string]int),
	}
}

func (s *fakeDeliveryStore) put(d *delivery.Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[d.ID.String()] = d
}

func (s *fakeDeliveryStore) GetByID(_ context.Context, id string) (*delivery.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, delivery.ErrDeliveryNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *fakeDeliveryStore) CompareAndSetStatus(_ context.Context, id string, expected, next delivery.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok {
		return false, delivery.ErrDeliveryNotFound
	}
	if d.Status != expected {
		return false, nil
	}
	d.Status = next
	return true, nil
}

func (s *fakeDeliveryStore) BindDriver(_ context.Context, id, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok {
		return delivery.ErrDeliveryNotFound
	}
	parsed, err := uuid.Parse(driverID)
	if err != nil {
		return err
	}
	d.DriverID = &parsed
	return nil
}

func (s *fakeDeliveryStore) ActiveByDriver(_ context.Context, driverID string) (*delivery.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries {
		if d.DriverID != nil && d.DriverID.String() == driverID && d.Status.InProgress() {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeDeliveryStore) AppendTrack(_ context.Context, id string, _, _ float64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trackErr != nil {
		return s.trackErr
	}
	s.tracks[id]++
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	reports []LocationReport
	err     error
}

func (h *fakeHistory) Append(_ context.Context, report LocationReport) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.reports = append(h.reports, report)
	return nil
}

func (h *fakeHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reports)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]LocationReport
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]LocationReport)}
}

func (c *fakeCache) Set(_ context.Context, report LocationReport, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[report.DriverID] = report
	return nil
}

func (c *fakeCache) Get(_ context.Context, driverID string) (*LocationReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.entries[driverID]
	if !ok {
		return nil, nil
	}
	return &report, nil
}

type fakeDirectory struct {
	mu       sync.Mutex
	existing map[string]bool
	statuses map[string]driver.Status
	busyWith map[string]string
}

func newFakeDirectory(driverIDs ...string) *fakeDirectory {
	d := &fakeDirectory{
		existing: make(map[string]bool),
		statuses: make(map[string]driver.Status),
		busyWith: make(map[string]string),
	}
	for _, id := range driverIDs {
		d.existing[id] = true
	}
	return d
}

func (d *fakeDirectory) Exists(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.existing[id], nil
}

func (d *fakeDirectory) UpdateStatus(_ context.Context, id string, status driver.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[id] = status
	return nil
}

func (d *fakeDirectory) SetBusy(_ context.Context, id, deliveryID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[id] = driver.StatusBusy
	d.busyWith[id] = deliveryID
	return nil
}

func (d *fakeDirectory) statusOf(id string) driver.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statuses[id]
}

type fakeIndex struct {
	mu        sync.Mutex
	available map[string]bool
	positions map[string][2]float64
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		available: make(map[string]bool),
		positions: make(map[string][2]float64),
	}
}

func (i *fakeIndex) SetAvailable(_ context.Context, driverID string, available bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.available[driverID] = available
	return nil
}

func (i *fakeIndex) UpdatePosition(_ context.Context, driverID string, lat, lng float64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.positions[driverID] = [2]float64{lat, lng}
	return nil
}

type fakeAuthorizer struct {
	allow map[string]bool // identityID:deliveryID
}

func newFakeAuthorizer() *fakeAuthorizer {
	return &fakeAuthorizer{allow: make(map[string]bool)}
}

func (a *fakeAuthorizer) permit(identityID, deliveryID string) {
	a.allow[identityID+":"+deliveryID] = true
}

func (a *fakeAuthorizer) OwnsDelivery(_ context.Context, identity Identity, deliveryID string) (bool, error) {
	return a.allow[identity.ID+":"+deliveryID], nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events map[string][]interface{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{events: make(map[string][]interface{})}
}

func (b *fakeBroadcaster) BroadcastToDelivery(deliveryID string, v interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[deliveryID] = append(b.events[deliveryID], v)
}

func (b *fakeBroadcaster) count(deliveryID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events[deliveryID])
}
