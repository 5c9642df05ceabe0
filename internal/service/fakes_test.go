package service

// In-memory fakes mirroring the conditional-update semantics of the sqlx
// repositories, so state machine behavior is testable without Postgres.

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aditya/go-dispatch/internal/cache"
	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/geo"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
)

type fakeTripRepo struct {
	mu    sync.Mutex
	trips map[string]*models.Trip
	seq   int
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[string]*models.Trip)}
}

func (r *fakeTripRepo) Create(ctx context.Context, trip *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if trip.ID == "" {
		trip.ID = fmt.Sprintf("trip-%d", r.seq)
	}
	trip.Status = models.TripStatusRequested
	trip.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	trip.UpdatedAt = trip.CreatedAt
	cp := *trip
	r.trips[trip.ID] = &cp
	return nil
}

func (r *fakeTripRepo) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[id]
	if !ok {
		return nil, nil
	}
	cp := *trip
	return &cp, nil
}

func (r *fakeTripRepo) AcceptDriver(ctx context.Context, tripID, driverID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok || trip.Status != models.TripStatusRequested || trip.DriverID != nil {
		return false, nil
	}
	d := driverID
	trip.DriverID = &d
	trip.Status = models.TripStatusAccepted
	return true, nil
}

func (r *fakeTripRepo) Pickup(ctx context.Context, tripID, driverID, otp string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok || trip.DriverID == nil || *trip.DriverID != driverID ||
		trip.Status != models.TripStatusAccepted || trip.OTP != otp {
		return false, nil
	}
	trip.Status = models.TripStatusOnTrip
	return true, nil
}

func (r *fakeTripRepo) Complete(ctx context.Context, tripID, driverID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok || trip.DriverID == nil || *trip.DriverID != driverID ||
		trip.Status != models.TripStatusOnTrip {
		return false, nil
	}
	trip.Status = models.TripStatusCompleted
	return true, nil
}

func (r *fakeTripRepo) CancelIf(ctx context.Context, tripID, cancelledBy string, fromStatuses []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok {
		return false, nil
	}
	for _, status := range fromStatuses {
		if trip.Status == status {
			trip.Status = models.TripStatusCancelled
			by := cancelledBy
			trip.CancelledBy = &by
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTripRepo) SetProposedPrice(ctx context.Context, tripID string, amount float64, enableNegotiation bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[tripID]
	if !ok || trip.Status != models.TripStatusRequested {
		return false, nil
	}
	a := amount
	trip.ProposedPrice = &a
	if enableNegotiation {
		trip.NegotiationEnabled = true
	}
	return true, nil
}

func (r *fakeTripRepo) GetOldestRequested(ctx context.Context, limit int) ([]*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.Status == models.TripStatusRequested && trip.DriverID == nil {
			cp := *trip
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTripRepo) ListByRider(ctx context.Context, riderID string) ([]*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.RiderID == riderID {
			cp := *trip
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTripRepo) ListByDriver(ctx context.Context, driverID string) ([]*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.DriverID != nil && *trip.DriverID == driverID {
			cp := *trip
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeOfferRepo struct {
	mu     sync.Mutex
	offers map[string]*models.PriceOffer
	trips  *fakeTripRepo
	seq    int
}

func newFakeOfferRepo(trips *fakeTripRepo) *fakeOfferRepo {
	return &fakeOfferRepo{offers: make(map[string]*models.PriceOffer), trips: trips}
}

func (r *fakeOfferRepo) Create(ctx context.Context, offer *models.PriceOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if offer.ID == "" {
		offer.ID = fmt.Sprintf("offer-%d", r.seq)
	}
	offer.Status = models.OfferStatusPending
	offer.CreatedAt = time.Now()
	cp := *offer
	r.offers[offer.ID] = &cp
	return nil
}

func (r *fakeOfferRepo) GetByID(ctx context.Context, id string) (*models.PriceOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	offer, ok := r.offers[id]
	if !ok {
		return nil, nil
	}
	cp := *offer
	return &cp, nil
}

func (r *fakeOfferRepo) ListPendingByTrip(ctx context.Context, tripID string) ([]*models.PriceOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PriceOffer
	for _, offer := range r.offers {
		if offer.TripID == tripID && offer.Status == models.OfferStatusPending {
			cp := *offer
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeOfferRepo) GetByTripAndDriver(ctx context.Context, tripID, driverID string) (*models.PriceOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.PriceOffer
	for _, offer := range r.offers {
		if offer.TripID == tripID && offer.DriverID == driverID {
			if latest == nil || offer.CreatedAt.After(latest.CreatedAt) {
				latest = offer
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeOfferRepo) UpdateStatusIfPending(ctx context.Context, id, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	offer, ok := r.offers[id]
	if !ok || offer.Status != models.OfferStatusPending {
		return false, nil
	}
	offer.Status = status
	now := time.Now()
	offer.RespondedAt = &now
	return true, nil
}

func (r *fakeOfferRepo) ExpirePending(ctx context.Context, tripID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, offer := range r.offers {
		if offer.TripID == tripID && offer.Status == models.OfferStatusPending && offer.IsExpired(now) {
			offer.Status = models.OfferStatusExpired
			t := now
			offer.RespondedAt = &t
			n++
		}
	}
	return n, nil
}

func (r *fakeOfferRepo) AcceptOffer(ctx context.Context, offerID string, now time.Time) (*repository.AcceptOfferResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	offer, ok := r.offers[offerID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if offer.Status != models.OfferStatusPending {
		return nil, apperrors.ErrOfferNotPending
	}
	if offer.IsExpired(now) {
		offer.Status = models.OfferStatusExpired
		return nil, apperrors.ErrOfferExpired
	}

	r.trips.mu.Lock()
	defer r.trips.mu.Unlock()
	trip, ok := r.trips.trips[offer.TripID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if trip.Status != models.TripStatusRequested || trip.DriverID != nil {
		return nil, apperrors.ErrTripAlreadyAssigned
	}

	offer.Status = models.OfferStatusAccepted
	offer.RespondedAt = &now
	d := offer.DriverID
	trip.DriverID = &d
	trip.Fare = offer.Amount
	trip.Status = models.TripStatusAccepted

	var rejected int64
	for _, sibling := range r.offers {
		if sibling.TripID == trip.ID && sibling.ID != offerID && sibling.Status == models.OfferStatusPending {
			sibling.Status = models.OfferStatusRejected
			t := now
			sibling.RespondedAt = &t
			rejected++
		}
	}

	cp := *offer
	return &repository.AcceptOfferResult{
		Offer:            &cp,
		TripID:           trip.ID,
		RiderID:          trip.RiderID,
		DriverID:         offer.DriverID,
		Fare:             offer.Amount,
		RejectedSiblings: rejected,
	}, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	user.Rating = 5.0
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Phone == phone {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeDriverRepo struct {
	mu      sync.Mutex
	drivers map[string]*models.Driver
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{drivers: make(map[string]*models.Driver)}
}

func (r *fakeDriverRepo) Create(ctx context.Context, driver *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if driver.ID == "" {
		driver.ID = fmt.Sprintf("driver-%d", len(r.drivers)+1)
	}
	driver.Rating = 5.0
	cp := *driver
	r.drivers[driver.ID] = &cp
	return nil
}

func (r *fakeDriverRepo) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return nil, nil
	}
	cp := *driver
	return &cp, nil
}

func (r *fakeDriverRepo) GetByPhone(ctx context.Context, phone string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, driver := range r.drivers {
		if driver.Phone == phone {
			cp := *driver
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeDriverRepo) IncrementTotalTrips(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if driver, ok := r.drivers[id]; ok {
		driver.TotalTrips++
	}
	return nil
}

type fakeDriverCache struct {
	mu        sync.Mutex
	locations map[string]*cache.DriverLocation
	pooling   map[string]bool
}

func newFakeDriverCache() *fakeDriverCache {
	return &fakeDriverCache{
		locations: make(map[string]*cache.DriverLocation),
		pooling:   make(map[string]bool),
	}
}

func (c *fakeDriverCache) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, inTrip bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations[driverID] = &cache.DriverLocation{Lat: lat, Lng: lng, UpdatedAt: time.Now().Unix()}
	c.pooling[driverID] = !inTrip
	return nil
}

func (c *fakeDriverCache) GetDriverLocation(ctx context.Context, driverID string) (*cache.DriverLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.locations[driverID]
	if !ok {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

func (c *fakeDriverCache) GetNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]cache.DriverWithDistance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cache.DriverWithDistance
	for id, loc := range c.locations {
		if !c.pooling[id] {
			continue
		}
		dist := geo.HaversineKm(lat, lng, loc.Lat, loc.Lng)
		if dist > radiusKm {
			continue
		}
		out = append(out, cache.DriverWithDistance{DriverID: id, Distance: dist})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *fakeDriverCache) RemoveDriver(ctx context.Context, driverID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locations, driverID)
	c.pooling[driverID] = false
	return nil
}

type fakeTripLocationCache struct {
	mu        sync.Mutex
	locations map[string]*cache.DriverLocation
	cleared   []string
}

func newFakeTripLocationCache() *fakeTripLocationCache {
	return &fakeTripLocationCache{locations: make(map[string]*cache.DriverLocation)}
}

func (c *fakeTripLocationCache) Set(ctx context.Context, tripID string, lat, lng float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations[tripID] = &cache.DriverLocation{Lat: lat, Lng: lng, UpdatedAt: time.Now().Unix()}
	return nil
}

func (c *fakeTripLocationCache) Get(ctx context.Context, tripID string) (*cache.DriverLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.locations[tripID]
	if !ok {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

func (c *fakeTripLocationCache) Clear(ctx context.Context, tripID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locations, tripID)
	c.cleared = append(c.cleared, tripID)
	return nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	trips      []events.TripEvent
	offers     []events.OfferEvent
	locations  []events.LocationEvent
	candidates []events.CandidateEvent
}

func (p *recordingPublisher) PublishTrip(ctx context.Context, ev events.TripEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trips = append(p.trips, ev)
}

func (p *recordingPublisher) PublishOffer(ctx context.Context, ev events.OfferEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers = append(p.offers, ev)
}

func (p *recordingPublisher) PublishLocation(ctx context.Context, ev events.LocationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locations = append(p.locations, ev)
}

func (p *recordingPublisher) PublishCandidate(ctx context.Context, ev events.CandidateEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candidates = append(p.candidates, ev)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) candidateTrips() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for _, ev := range p.candidates {
		ids = append(ids, ev.TripID)
	}
	return ids
}
