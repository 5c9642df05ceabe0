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
)

// LocationService ingests driver position reports. A report without a trip id
// means the driver is pooling and doubles as a matching trigger; a report with
// one feeds the rider-facing trip location stream.
type LocationService interface {
	ReportLocation(ctx context.Context, driverID string, req *models.ReportLocationRequest) error
	GoOffline(ctx context.Context, driverID string) error
}

type locationService struct {
	driverRepo  repository.DriverRepository
	driverCache cache.DriverLocationCache
	tripLoc     cache.TripLocationCache
	dispatch    DispatchService
	publisher   events.Publisher
}

func NewLocationService(
	driverRepo repository.DriverRepository,
	driverCache cache.DriverLocationCache,
	tripLoc cache.TripLocationCache,
	dispatch DispatchService,
	publisher events.Publisher,
) LocationService {
	return &locationService{
		driverRepo:  driverRepo,
		driverCache: driverCache,
		tripLoc:     tripLoc,
		dispatch:    dispatch,
		publisher:   publisher,
	}
}

func (s *locationService) ReportLocation(ctx context.Context, driverID string, req *models.ReportLocationRequest) error {
	if !geo.ValidCoordinates(req.Lat, req.Lng) {
		return apperrors.BadRequest("invalid coordinates")
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}
	if driver == nil {
		return apperrors.NotFound("driver")
	}

	inTrip := req.TripID != nil
	if err := s.driverCache.UpdateLocation(ctx, driverID, req.Lat, req.Lng, inTrip); err != nil {
		return err
	}
	observability.LocationReports.Inc()

	ev := events.LocationEvent{
		DriverID: driverID,
		Lat:      req.Lat,
		Lng:      req.Lng,
		At:       time.Now(),
	}

	if inTrip {
		ev.TripID = *req.TripID
		if err := s.tripLoc.Set(ctx, *req.TripID, req.Lat, req.Lng); err != nil {
			log.Printf("failed to cache trip location: %v", err)
		}
		s.publisher.PublishLocation(ctx, ev)
		return nil
	}

	s.publisher.PublishLocation(ctx, ev)

	// Pooling report: every heartbeat is also a matching opportunity.
	if err := s.dispatch.EvaluatePendingTrips(ctx, driverID, req.Lat, req.Lng); err != nil {
		log.Printf("pending trip evaluation failed for driver %s: %v", driverID, err)
	}
	return nil
}

func (s *locationService) GoOffline(ctx context.Context, driverID string) error {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}
	if driver == nil {
		return apperrors.NotFound("driver")
	}
	return s.driverCache.RemoveDriver(ctx, driverID)
}
