package service

import (
	"context"
	"log"
	"time"

	"github.com/aditya/go-dispatch/internal/cache"
	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/geo"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/observability"
	"github.com/aditya/go-dispatch/internal/repository"
	"github.com/aditya/go-dispatch/pkg/utils"
)

type TripService interface {
	CreateTrip(ctx context.Context, req *models.CreateTripRequest) (*models.CreateTripResponse, error)
	GetTrip(ctx context.Context, id string) (*models.TripResponse, error)
	GetTripLocation(ctx context.Context, id string) (*cache.DriverLocation, error)
	AcceptTrip(ctx context.Context, tripID, driverID string) (*models.TripResponse, error)
	Pickup(ctx context.Context, tripID, driverID, otp string) error
	CompleteTrip(ctx context.Context, tripID, driverID string) error
	CancelTrip(ctx context.Context, tripID, actorID, role string) error
	ListTrips(ctx context.Context, riderID, driverID string) ([]*models.TripResponse, error)
}

type tripService struct {
	tripRepo   repository.TripRepository
	userRepo   repository.UserRepository
	driverRepo repository.DriverRepository
	pricing    PricingService
	tripLoc    cache.TripLocationCache
	dispatch   DispatchService
	publisher  events.Publisher
}

func NewTripService(
	tripRepo repository.TripRepository,
	userRepo repository.UserRepository,
	driverRepo repository.DriverRepository,
	pricing PricingService,
	tripLoc cache.TripLocationCache,
	dispatch DispatchService,
	publisher events.Publisher,
) TripService {
	return &tripService{
		tripRepo:   tripRepo,
		userRepo:   userRepo,
		driverRepo: driverRepo,
		pricing:    pricing,
		tripLoc:    tripLoc,
		dispatch:   dispatch,
		publisher:  publisher,
	}
}

func (s *tripService) CreateTrip(ctx context.Context, req *models.CreateTripRequest) (*models.CreateTripResponse, error) {
	if !geo.ValidCoordinates(req.Origin.Lat, req.Origin.Lng) ||
		!geo.ValidCoordinates(req.Destination.Lat, req.Destination.Lng) {
		return nil, apperrors.BadRequest("invalid coordinates")
	}

	rider, err := s.userRepo.GetByID(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}
	if rider == nil {
		return nil, apperrors.NotFound("rider")
	}

	trip := &models.Trip{
		RiderID:    req.RiderID,
		OriginName: req.Origin.Name,
		OriginLat:  req.Origin.Lat,
		OriginLng:  req.Origin.Lng,
		DestName:   req.Destination.Name,
		DestLat:    req.Destination.Lat,
		DestLng:    req.Destination.Lng,
		Capacity:   req.Capacity,
		Fare:       s.pricing.Estimate(req.Origin, req.Destination, req.Capacity),
		OTP:        utils.GenerateOTP(),
	}

	if req.ProposedPrice != nil {
		trip.ProposedPrice = req.ProposedPrice
		trip.NegotiationEnabled = true
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	observability.TripsCreated.Inc()
	s.publisher.PublishTrip(ctx, events.TripEvent{
		TripID:  trip.ID,
		Status:  trip.Status,
		RiderID: trip.RiderID,
		Fare:    trip.Fare,
		At:      time.Now(),
	})

	// Fan-out is advisory; the trip is already durable if it fails.
	if err := s.dispatch.AnnounceTrip(ctx, trip); err != nil {
		log.Printf("failed to announce trip %s to nearby drivers: %v", trip.ID, err)
	}

	resp := trip.ToResponse()
	resp.Rider = rider.ToResponse()

	return &models.CreateTripResponse{Trip: resp, OTP: trip.OTP}, nil
}

func (s *tripService) GetTrip(ctx context.Context, id string) (*models.TripResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperrors.NotFound("trip")
	}

	resp := trip.ToResponse()
	s.attachParticipants(ctx, trip, resp)
	return resp, nil
}

func (s *tripService) GetTripLocation(ctx context.Context, id string) (*cache.DriverLocation, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperrors.NotFound("trip")
	}

	loc, err := s.tripLoc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, apperrors.NotFound("trip location")
	}
	return loc, nil
}

// AcceptTrip is the contested transition: any number of drivers may race for
// one REQUESTED trip, and the conditional update in the repository lets
// exactly one through. Losers get a Conflict and should retry elsewhere.
func (s *tripService) AcceptTrip(ctx context.Context, tripID, driverID string) (*models.TripResponse, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}

	ok, err := s.tripRepo.AcceptDriver(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if trip == nil {
			return nil, apperrors.NotFound("trip")
		}
		observability.AcceptConflicts.Inc()
		return nil, apperrors.TripAlreadyAssigned()
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	observability.TripsAccepted.Inc()
	s.publisher.PublishTrip(ctx, events.TripEvent{
		TripID:   trip.ID,
		Status:   trip.Status,
		RiderID:  trip.RiderID,
		DriverID: driverID,
		Fare:     trip.Fare,
		At:       time.Now(),
	})

	resp := trip.ToResponse()
	resp.Driver = driver.ToResponse()
	return resp, nil
}

// Pickup verifies trip id, assigned driver, ACCEPTED state and exact OTP as a
// single guarded update. Every failure returns the same rejection: nothing
// here may tell a brute-forcer which of the checks it got wrong.
func (s *tripService) Pickup(ctx context.Context, tripID, driverID, otp string) error {
	ok, err := s.tripRepo.Pickup(ctx, tripID, driverID, otp)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.InvalidTripOrOTP()
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}

	s.publisher.PublishTrip(ctx, events.TripEvent{
		TripID:   tripID,
		Status:   models.TripStatusOnTrip,
		RiderID:  trip.RiderID,
		DriverID: driverID,
		Fare:     trip.Fare,
		At:       time.Now(),
	})
	return nil
}

func (s *tripService) CompleteTrip(ctx context.Context, tripID, driverID string) error {
	ok, err := s.tripRepo.Complete(ctx, tripID, driverID)
	if err != nil {
		return err
	}
	if !ok {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if trip == nil {
			return apperrors.NotFound("trip")
		}
		if trip.DriverID == nil || *trip.DriverID != driverID {
			return apperrors.Unauthorized("trip is not assigned to this driver")
		}
		return apperrors.InvalidTransition(trip.Status, models.TripStatusCompleted)
	}

	if err := s.driverRepo.IncrementTotalTrips(ctx, driverID); err != nil {
		log.Printf("failed to increment driver trip count: %v", err)
	}
	// the trip-scoped location cache dies with the trip
	if err := s.tripLoc.Clear(ctx, tripID); err != nil {
		log.Printf("failed to clear trip location cache: %v", err)
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	s.publisher.PublishTrip(ctx, events.TripEvent{
		TripID:   tripID,
		Status:   models.TripStatusCompleted,
		RiderID:  trip.RiderID,
		DriverID: driverID,
		Fare:     trip.Fare,
		At:       time.Now(),
	})
	return nil
}

// CancelTrip applies the cancellation policy: riders may cancel their own
// trip while it is REQUESTED or ACCEPTED, never once the ride is underway;
// drivers may cancel only a trip currently assigned to them.
func (s *tripService) CancelTrip(ctx context.Context, tripID, actorID, role string) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if trip == nil {
		return apperrors.NotFound("trip")
	}

	var fromStatuses []string
	switch role {
	case models.RoleRider:
		if trip.RiderID != actorID {
			return apperrors.Unauthorized("trip does not belong to this rider")
		}
		fromStatuses = []string{models.TripStatusRequested, models.TripStatusAccepted}
	case models.RoleDriver:
		if trip.DriverID == nil || *trip.DriverID != actorID {
			return apperrors.Unauthorized("trip is not assigned to this driver")
		}
		fromStatuses = []string{models.TripStatusAccepted}
	default:
		return apperrors.BadRequest("unknown actor role")
	}

	ok, err := s.tripRepo.CancelIf(ctx, tripID, role, fromStatuses)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.InvalidTransition(trip.Status, models.TripStatusCancelled)
	}

	if err := s.tripLoc.Clear(ctx, tripID); err != nil {
		log.Printf("failed to clear trip location cache: %v", err)
	}

	s.publisher.PublishTrip(ctx, events.TripEvent{
		TripID:   tripID,
		Status:   models.TripStatusCancelled,
		RiderID:  trip.RiderID,
		DriverID: actorIfDriver(trip, role),
		Fare:     trip.Fare,
		At:       time.Now(),
	})
	return nil
}

func (s *tripService) ListTrips(ctx context.Context, riderID, driverID string) ([]*models.TripResponse, error) {
	var (
		trips []*models.Trip
		err   error
	)
	switch {
	case riderID != "":
		trips, err = s.tripRepo.ListByRider(ctx, riderID)
	case driverID != "":
		trips, err = s.tripRepo.ListByDriver(ctx, driverID)
	default:
		return nil, apperrors.BadRequest("rider_id or driver_id is required")
	}
	if err != nil {
		return nil, err
	}

	responses := make([]*models.TripResponse, 0, len(trips))
	for _, trip := range trips {
		responses = append(responses, trip.ToResponse())
	}
	return responses, nil
}

func (s *tripService) attachParticipants(ctx context.Context, trip *models.Trip, resp *models.TripResponse) {
	if rider, err := s.userRepo.GetByID(ctx, trip.RiderID); err == nil && rider != nil {
		resp.Rider = rider.ToResponse()
	}
	if trip.DriverID != nil {
		if driver, err := s.driverRepo.GetByID(ctx, *trip.DriverID); err == nil && driver != nil {
			resp.Driver = driver.ToResponse()
		}
	}
}

func actorIfDriver(trip *models.Trip, role string) string {
	if role == models.RoleDriver && trip.DriverID != nil {
		return *trip.DriverID
	}
	return ""
}
