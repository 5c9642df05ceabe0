package service

import (
	"context"
	"testing"
	"time"

	"github.com/aditya/go-dispatch/internal/config"
	"github.com/aditya/go-dispatch/internal/models"
)

type locationFixture struct {
	svc         LocationService
	tripRepo    *fakeTripRepo
	driverRepo  *fakeDriverRepo
	driverCache *fakeDriverCache
	tripLoc     *fakeTripLocationCache
	publisher   *recordingPublisher
}

func newLocationFixture() *locationFixture {
	tripRepo := newFakeTripRepo()
	offerRepo := newFakeOfferRepo(tripRepo)
	userRepo := newFakeUserRepo()
	driverRepo := newFakeDriverRepo()
	driverCache := newFakeDriverCache()
	tripLoc := newFakeTripLocationCache()
	publisher := &recordingPublisher{}
	cfg := &config.Config{
		MatchRadiusKM:    5,
		PendingTripBatch: 5,
		OfferExpiry:      5 * time.Minute,
	}

	dispatch := NewDispatchService(tripRepo, offerRepo, userRepo, driverCache, publisher, cfg)
	return &locationFixture{
		svc:         NewLocationService(driverRepo, driverCache, tripLoc, dispatch, publisher),
		tripRepo:    tripRepo,
		driverRepo:  driverRepo,
		driverCache: driverCache,
		tripLoc:     tripLoc,
		publisher:   publisher,
	}
}

func (f *locationFixture) seedDriver(t *testing.T, id string) {
	t.Helper()
	if err := f.driverRepo.Create(context.Background(), &models.Driver{
		ID: id, Phone: "8" + id, Name: "Driver", VehicleType: "sedan", VehicleNumber: "XX-" + id,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestPoolingReportTriggersMatching(t *testing.T) {
	f := newLocationFixture()
	f.seedDriver(t, "d1")

	err := f.tripRepo.Create(context.Background(), &models.Trip{
		ID: "t1", RiderID: "r1", OriginLat: centerLat, OriginLng: centerLng, Capacity: 1, Fare: 15,
	})
	if err != nil {
		t.Fatal(err)
	}

	err = f.svc.ReportLocation(context.Background(), "d1", &models.ReportLocationRequest{
		Lat: lat1km, Lng: centerLng,
	})
	if err != nil {
		t.Fatalf("ReportLocation: %v", err)
	}

	loc, _ := f.driverCache.GetDriverLocation(context.Background(), "d1")
	if loc == nil || loc.Lat != lat1km {
		t.Fatal("driver position not cached")
	}
	if !f.driverCache.pooling["d1"] {
		t.Fatal("pooling report must mark the driver pooling")
	}

	ids := f.publisher.candidateTrips()
	if len(ids) != 1 || ids[0] != "t1" {
		t.Fatalf("candidates = %v, want [t1]", ids)
	}
}

func TestInTripReportFeedsTripCacheAndSkipsMatching(t *testing.T) {
	f := newLocationFixture()
	f.seedDriver(t, "d1")

	err := f.tripRepo.Create(context.Background(), &models.Trip{
		ID: "open", RiderID: "r2", OriginLat: centerLat, OriginLng: centerLng, Capacity: 1, Fare: 15,
	})
	if err != nil {
		t.Fatal(err)
	}

	tripID := "t-live"
	err = f.svc.ReportLocation(context.Background(), "d1", &models.ReportLocationRequest{
		Lat: centerLat, Lng: centerLng, TripID: &tripID,
	})
	if err != nil {
		t.Fatalf("ReportLocation: %v", err)
	}

	if f.driverCache.pooling["d1"] {
		t.Fatal("mid-trip driver must not be pooling")
	}

	loc, _ := f.tripLoc.Get(context.Background(), tripID)
	if loc == nil || loc.Lat != centerLat {
		t.Fatal("trip-scoped location not written")
	}

	if len(f.publisher.candidateTrips()) != 0 {
		t.Fatal("mid-trip report must not trigger matching")
	}

	if len(f.publisher.locations) != 1 || f.publisher.locations[0].TripID != tripID {
		t.Fatalf("location event = %+v, want trip-tagged", f.publisher.locations)
	}
}

func TestReportLocationUnknownDriver(t *testing.T) {
	f := newLocationFixture()
	err := f.svc.ReportLocation(context.Background(), "ghost", &models.ReportLocationRequest{
		Lat: centerLat, Lng: centerLng,
	})
	assertAPIErrorCode(t, err, "not_found")
}

func TestReportLocationRejectsBadCoordinates(t *testing.T) {
	f := newLocationFixture()
	f.seedDriver(t, "d1")
	err := f.svc.ReportLocation(context.Background(), "d1", &models.ReportLocationRequest{
		Lat: 91, Lng: 0,
	})
	assertAPIErrorCode(t, err, "bad_request")
}

func TestGoOffline(t *testing.T) {
	f := newLocationFixture()
	f.seedDriver(t, "d1")

	if err := f.svc.ReportLocation(context.Background(), "d1", &models.ReportLocationRequest{
		Lat: centerLat, Lng: centerLng,
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.GoOffline(context.Background(), "d1"); err != nil {
		t.Fatalf("GoOffline: %v", err)
	}

	loc, _ := f.driverCache.GetDriverLocation(context.Background(), "d1")
	if loc != nil {
		t.Fatal("offline driver still has a cached position")
	}
	if f.driverCache.pooling["d1"] {
		t.Fatal("offline driver still pooling")
	}
}
