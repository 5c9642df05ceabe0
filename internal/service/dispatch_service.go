package service

import (
	"context"
	"time"

	"github.com/aditya/go-dispatch/internal/cache"
	"github.com/aditya/go-dispatch/internal/config"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/geo"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/observability"
	"github.com/aditya/go-dispatch/internal/repository"
)

// DispatchService surfaces nearby unassigned trips to pooling drivers. Matches
// are advisory: nothing here writes to a trip, drivers still race through the
// accept path.
type DispatchService interface {
	// EvaluatePendingTrips scans the oldest unassigned trips against a pooling
	// driver's position and publishes a candidate event for each one in range.
	EvaluatePendingTrips(ctx context.Context, driverID string, lat, lng float64) error
	// QueryAvailableTrips is the pull-side variant: the driver asks what is
	// around their last known position.
	QueryAvailableTrips(ctx context.Context, driverID string) ([]*models.TripCandidate, error)
	// AnnounceTrip fans a freshly created trip out to pooling drivers near its
	// origin, one candidate event per driver.
	AnnounceTrip(ctx context.Context, trip *models.Trip) error
}

type dispatchService struct {
	tripRepo    repository.TripRepository
	offerRepo   repository.OfferRepository
	userRepo    repository.UserRepository
	driverCache cache.DriverLocationCache
	publisher   events.Publisher
	cfg         *config.Config
}

func NewDispatchService(
	tripRepo repository.TripRepository,
	offerRepo repository.OfferRepository,
	userRepo repository.UserRepository,
	driverCache cache.DriverLocationCache,
	publisher events.Publisher,
	cfg *config.Config,
) DispatchService {
	return &dispatchService{
		tripRepo:    tripRepo,
		offerRepo:   offerRepo,
		userRepo:    userRepo,
		driverCache: driverCache,
		publisher:   publisher,
		cfg:         cfg,
	}
}

func (s *dispatchService) EvaluatePendingTrips(ctx context.Context, driverID string, lat, lng float64) error {
	timer := time.Now()
	defer func() {
		observability.MatchEvaluation.Observe(time.Since(timer).Seconds())
	}()

	trips, err := s.tripRepo.GetOldestRequested(ctx, s.cfg.PendingTripBatch)
	if err != nil {
		return err
	}

	for _, trip := range trips {
		dist := geo.HaversineKm(lat, lng, trip.OriginLat, trip.OriginLng)
		if dist > s.cfg.MatchRadiusKM {
			continue
		}
		s.publisher.PublishCandidate(ctx, events.CandidateEvent{
			TripID:     trip.ID,
			DriverID:   driverID,
			DistanceKm: dist,
			At:         time.Now(),
		})
		observability.CandidatesSurfaced.Inc()
	}
	return nil
}

func (s *dispatchService) AnnounceTrip(ctx context.Context, trip *models.Trip) error {
	timer := time.Now()
	defer func() {
		observability.MatchEvaluation.Observe(time.Since(timer).Seconds())
	}()

	drivers, err := s.driverCache.GetNearbyDrivers(ctx, trip.OriginLat, trip.OriginLng, s.cfg.MatchRadiusKM, s.cfg.PendingTripBatch)
	if err != nil {
		return err
	}

	for _, d := range drivers {
		s.publisher.PublishCandidate(ctx, events.CandidateEvent{
			TripID:     trip.ID,
			DriverID:   d.DriverID,
			DistanceKm: d.Distance,
			At:         time.Now(),
		})
		observability.CandidatesSurfaced.Inc()
	}
	return nil
}

func (s *dispatchService) QueryAvailableTrips(ctx context.Context, driverID string) ([]*models.TripCandidate, error) {
	loc, err := s.driverCache.GetDriverLocation(ctx, driverID)
	if err != nil {
		return nil, err
	}
	// A driver with no recent report has no position to match against.
	if loc == nil {
		return []*models.TripCandidate{}, nil
	}

	trips, err := s.tripRepo.GetOldestRequested(ctx, s.cfg.PendingTripBatch)
	if err != nil {
		return nil, err
	}

	candidates := make([]*models.TripCandidate, 0, len(trips))
	for _, trip := range trips {
		dist := geo.HaversineKm(loc.Lat, loc.Lng, trip.OriginLat, trip.OriginLng)
		if dist > s.cfg.MatchRadiusKM {
			continue
		}
		candidates = append(candidates, s.buildCandidate(ctx, trip, driverID, dist))
	}
	return candidates, nil
}

func (s *dispatchService) buildCandidate(ctx context.Context, trip *models.Trip, driverID string, distKm float64) *models.TripCandidate {
	candidate := &models.TripCandidate{
		ID:            trip.ID,
		Origin:        models.Location{Name: trip.OriginName, Lat: trip.OriginLat, Lng: trip.OriginLng},
		Destination:   models.Location{Name: trip.DestName, Lat: trip.DestLat, Lng: trip.DestLng},
		Capacity:      trip.Capacity,
		Fare:          trip.Fare,
		ProposedPrice: trip.ProposedPrice,
		DistanceKm:    distKm,
		CreatedAt:     trip.CreatedAt,
	}

	if rider, err := s.userRepo.GetByID(ctx, trip.RiderID); err == nil && rider != nil {
		candidate.RiderName = rider.Name
	}

	if trip.NegotiationEnabled {
		if offer, err := s.offerRepo.GetByTripAndDriver(ctx, trip.ID, driverID); err == nil && offer != nil {
			candidate.HasOffered = true
			if offer.Status == models.OfferStatusPending {
				amount := offer.Amount
				candidate.MyOffer = &amount
			}
		}
	}
	return candidate
}
