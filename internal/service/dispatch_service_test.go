package service

import (
	"context"
	"testing"
	"time"

	"github.com/aditya/go-dispatch/internal/config"
	"github.com/aditya/go-dispatch/internal/models"
)

type dispatchFixture struct {
	svc         DispatchService
	tripRepo    *fakeTripRepo
	offerRepo   *fakeOfferRepo
	userRepo    *fakeUserRepo
	driverCache *fakeDriverCache
	publisher   *recordingPublisher
}

func newDispatchFixture() *dispatchFixture {
	tripRepo := newFakeTripRepo()
	offerRepo := newFakeOfferRepo(tripRepo)
	userRepo := newFakeUserRepo()
	driverCache := newFakeDriverCache()
	publisher := &recordingPublisher{}
	cfg := &config.Config{
		MatchRadiusKM:    5,
		PendingTripBatch: 5,
		OfferExpiry:      5 * time.Minute,
	}

	return &dispatchFixture{
		svc:         NewDispatchService(tripRepo, offerRepo, userRepo, driverCache, publisher, cfg),
		tripRepo:    tripRepo,
		offerRepo:   offerRepo,
		userRepo:    userRepo,
		driverCache: driverCache,
		publisher:   publisher,
	}
}

// seedRequestedTrip plants an unassigned REQUESTED trip with its origin at the
// given point.
func (f *dispatchFixture) seedRequestedTrip(t *testing.T, id string, lat, lng float64) {
	t.Helper()
	err := f.tripRepo.Create(context.Background(), &models.Trip{
		ID:        id,
		RiderID:   "r1",
		OriginLat: lat,
		OriginLng: lng,
		DestLat:   lat + 0.1,
		DestLng:   lng + 0.1,
		Capacity:  2,
		Fare:      20,
	})
	if err != nil {
		t.Fatal(err)
	}
}

// Bengaluru city center; ~1 km and ~50 km offsets along the latitude axis.
const (
	centerLat = 12.9716
	centerLng = 77.5946
	lat1km    = centerLat + 0.009
	lat50km   = centerLat + 0.45
)

func TestEvaluatePendingTripsWithinRadius(t *testing.T) {
	f := newDispatchFixture()
	f.seedRequestedTrip(t, "near", centerLat, centerLng)

	// Driver ~1 km away: inside the 5 km radius, must surface.
	if err := f.svc.EvaluatePendingTrips(context.Background(), "d1", lat1km, centerLng); err != nil {
		t.Fatal(err)
	}

	ids := f.publisher.candidateTrips()
	if len(ids) != 1 || ids[0] != "near" {
		t.Fatalf("candidates = %v, want [near]", ids)
	}
	if f.publisher.candidates[0].DistanceKm > 1.5 {
		t.Fatalf("distance = %v km, expected about 1", f.publisher.candidates[0].DistanceKm)
	}
}

func TestEvaluatePendingTripsOutsideRadius(t *testing.T) {
	f := newDispatchFixture()
	f.seedRequestedTrip(t, "far", centerLat, centerLng)

	// Driver ~50 km away: outside the radius, nothing surfaces.
	if err := f.svc.EvaluatePendingTrips(context.Background(), "d1", lat50km, centerLng); err != nil {
		t.Fatal(err)
	}
	if len(f.publisher.candidateTrips()) != 0 {
		t.Fatalf("candidates = %v, want none", f.publisher.candidateTrips())
	}
}

func TestEvaluatePendingTripsSkipsAssigned(t *testing.T) {
	f := newDispatchFixture()
	f.seedRequestedTrip(t, "open", centerLat, centerLng)
	f.seedRequestedTrip(t, "taken", centerLat, centerLng)
	if ok, _ := f.tripRepo.AcceptDriver(context.Background(), "taken", "other"); !ok {
		t.Fatal("seed accept failed")
	}

	if err := f.svc.EvaluatePendingTrips(context.Background(), "d1", centerLat, centerLng); err != nil {
		t.Fatal(err)
	}

	ids := f.publisher.candidateTrips()
	if len(ids) != 1 || ids[0] != "open" {
		t.Fatalf("candidates = %v, want [open]", ids)
	}
}

func TestEvaluatePendingTripsBoundedWindow(t *testing.T) {
	f := newDispatchFixture()
	for i := 0; i < 8; i++ {
		f.seedRequestedTrip(t, string(rune('a'+i)), centerLat, centerLng)
	}

	if err := f.svc.EvaluatePendingTrips(context.Background(), "d1", centerLat, centerLng); err != nil {
		t.Fatal(err)
	}

	ids := f.publisher.candidateTrips()
	if len(ids) != 5 {
		t.Fatalf("candidates = %d, want the batch limit 5", len(ids))
	}
	// Oldest requests first.
	for i, want := range []string{"a", "b", "c", "d", "e"} {
		if ids[i] != want {
			t.Fatalf("candidate order %v, want oldest five in order", ids)
		}
	}
}

func TestAnnounceTripReachesNearbyPoolingDrivers(t *testing.T) {
	f := newDispatchFixture()
	f.seedRequestedTrip(t, "new", centerLat, centerLng)

	// ~1 km away and pooling: must get a candidate event.
	if err := f.driverCache.UpdateLocation(context.Background(), "d-near", lat1km, centerLng, false); err != nil {
		t.Fatal(err)
	}
	// ~50 km away: outside the radius.
	if err := f.driverCache.UpdateLocation(context.Background(), "d-far", lat50km, centerLng, false); err != nil {
		t.Fatal(err)
	}
	// In range but mid-trip, so not pooling.
	if err := f.driverCache.UpdateLocation(context.Background(), "d-busy", centerLat, centerLng, true); err != nil {
		t.Fatal(err)
	}

	trip, _ := f.tripRepo.GetByID(context.Background(), "new")
	if err := f.svc.AnnounceTrip(context.Background(), trip); err != nil {
		t.Fatal(err)
	}

	if len(f.publisher.candidates) != 1 {
		t.Fatalf("candidate events = %d, want only the near pooling driver", len(f.publisher.candidates))
	}
	got := f.publisher.candidates[0]
	if got.DriverID != "d-near" || got.TripID != "new" {
		t.Fatalf("candidate = %+v, want trip new for d-near", got)
	}
	if got.DistanceKm > 1.5 {
		t.Fatalf("distance = %v km, expected about 1", got.DistanceKm)
	}
}

func TestAnnounceTripSkipsDriverGoneOffline(t *testing.T) {
	f := newDispatchFixture()
	f.seedRequestedTrip(t, "new", centerLat, centerLng)

	if err := f.driverCache.UpdateLocation(context.Background(), "d1", lat1km, centerLng, false); err != nil {
		t.Fatal(err)
	}
	if err := f.driverCache.RemoveDriver(context.Background(), "d1"); err != nil {
		t.Fatal(err)
	}

	trip, _ := f.tripRepo.GetByID(context.Background(), "new")
	if err := f.svc.AnnounceTrip(context.Background(), trip); err != nil {
		t.Fatal(err)
	}
	if len(f.publisher.candidates) != 0 {
		t.Fatalf("candidates = %d, want none after the driver went offline", len(f.publisher.candidates))
	}
}

func TestQueryAvailableTrips(t *testing.T) {
	f := newDispatchFixture()
	if err := f.userRepo.Create(context.Background(), &models.User{ID: "r1", Phone: "91", Name: "Maria"}); err != nil {
		t.Fatal(err)
	}
	f.seedRequestedTrip(t, "near", centerLat, centerLng)
	f.seedRequestedTrip(t, "far", lat50km, centerLng)

	if err := f.driverCache.UpdateLocation(context.Background(), "d1", lat1km, centerLng, false); err != nil {
		t.Fatal(err)
	}

	candidates, err := f.svc.QueryAvailableTrips(context.Background(), "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].ID != "near" {
		t.Fatalf("candidates = %d, want only the near trip", len(candidates))
	}
	if candidates[0].RiderName != "Maria" {
		t.Fatalf("rider name = %q, want Maria", candidates[0].RiderName)
	}
}

func TestQueryAvailableTripsNoKnownPosition(t *testing.T) {
	f := newDispatchFixture()
	f.seedRequestedTrip(t, "near", centerLat, centerLng)

	candidates, err := f.svc.QueryAvailableTrips(context.Background(), "never-reported")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Fatalf("candidates = %d, want none without a position", len(candidates))
	}
}

func TestQueryAvailableTripsMarksExistingOffer(t *testing.T) {
	f := newDispatchFixture()
	f.seedRequestedTrip(t, "near", centerLat, centerLng)
	f.tripRepo.mu.Lock()
	f.tripRepo.trips["near"].NegotiationEnabled = true
	f.tripRepo.mu.Unlock()

	if err := f.offerRepo.Create(context.Background(), &models.PriceOffer{
		TripID:    "near",
		DriverID:  "d1",
		Amount:    42,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.driverCache.UpdateLocation(context.Background(), "d1", centerLat, centerLng, false); err != nil {
		t.Fatal(err)
	}

	candidates, err := f.svc.QueryAvailableTrips(context.Background(), "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if !candidates[0].HasOffered {
		t.Fatal("existing offer not flagged")
	}
	if candidates[0].MyOffer == nil || *candidates[0].MyOffer != 42 {
		t.Fatalf("my offer = %v, want 42", candidates[0].MyOffer)
	}
}
