package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aditya/go-dispatch/internal/config"
	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/observability"
	"github.com/aditya/go-dispatch/internal/repository"
)

// NegotiationService runs the price-negotiation protocol on top of a trip:
// the rider proposes an anchor price, drivers bid, either side may counter,
// and accepting an offer assigns the trip at the agreed amount.
type NegotiationService interface {
	ProposePrice(ctx context.Context, riderID string, req *models.ProposePriceRequest) (*models.TripResponse, error)
	OfferPrice(ctx context.Context, driverID string, req *models.OfferPriceRequest) (*models.PriceOfferResponse, error)
	AcceptOffer(ctx context.Context, riderID, offerID string) (*models.TripResponse, error)
	RejectOffer(ctx context.Context, riderID, offerID string) error
	CounterOffer(ctx context.Context, riderID string, req *models.CounterOfferRequest) (*models.TripResponse, error)
	ListOffers(ctx context.Context, tripID string) ([]*models.PriceOfferResponse, error)
}

type negotiationService struct {
	tripRepo   repository.TripRepository
	offerRepo  repository.OfferRepository
	driverRepo repository.DriverRepository
	publisher  events.Publisher
	cfg        *config.Config
	now        func() time.Time
}

func NewNegotiationService(
	tripRepo repository.TripRepository,
	offerRepo repository.OfferRepository,
	driverRepo repository.DriverRepository,
	publisher events.Publisher,
	cfg *config.Config,
) NegotiationService {
	return &negotiationService{
		tripRepo:   tripRepo,
		offerRepo:  offerRepo,
		driverRepo: driverRepo,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ProposePrice sets the rider's anchor price and opens the trip for offers.
// Only meaningful while the trip is still unassigned.
func (s *negotiationService) ProposePrice(ctx context.Context, riderID string, req *models.ProposePriceRequest) (*models.TripResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperrors.NotFound("trip")
	}
	if trip.RiderID != riderID {
		return nil, apperrors.Unauthorized("trip does not belong to this rider")
	}

	ok, err := s.tripRepo.SetProposedPrice(ctx, req.TripID, req.Amount, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NegotiationClosed()
	}

	trip, err = s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	return trip.ToResponse(), nil
}

// OfferPrice records a driver's bid on a negotiation-enabled trip. A new bid
// from the same driver supersedes nothing: each offer is its own row, and
// countering links through parent_offer_id.
func (s *negotiationService) OfferPrice(ctx context.Context, driverID string, req *models.OfferPriceRequest) (*models.PriceOfferResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperrors.NotFound("trip")
	}
	if !trip.NegotiationEnabled {
		return nil, apperrors.BadRequest("trip is not open for price offers")
	}
	if trip.Status != models.TripStatusRequested || trip.DriverID != nil {
		return nil, apperrors.TripAlreadyAssigned()
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}

	if req.ParentOfferID != nil {
		parent, err := s.offerRepo.GetByID(ctx, *req.ParentOfferID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.TripID != req.TripID {
			return nil, apperrors.BadRequest("parent offer does not belong to this trip")
		}
	}

	offer := &models.PriceOffer{
		TripID:        req.TripID,
		DriverID:      driverID,
		Amount:        req.Amount,
		ParentOfferID: req.ParentOfferID,
		ExpiresAt:     s.now().Add(s.cfg.OfferExpiry),
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}

	observability.OffersCreated.Inc()
	s.publisher.PublishOffer(ctx, events.OfferEvent{
		OfferID:  offer.ID,
		TripID:   offer.TripID,
		DriverID: offer.DriverID,
		Status:   offer.Status,
		Amount:   offer.Amount,
		At:       s.now(),
	})

	resp := offer.ToResponse()
	attachDriver(resp, driver)
	return resp, nil
}

// AcceptOffer is the rider taking a driver's price. The repository runs the
// whole settlement in one transaction; this layer only authorizes the rider
// and translates the outcome.
func (s *negotiationService) AcceptOffer(ctx context.Context, riderID, offerID string) (*models.TripResponse, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, apperrors.NotFound("offer")
	}

	trip, err := s.tripRepo.GetByID(ctx, offer.TripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperrors.NotFound("trip")
	}
	if trip.RiderID != riderID {
		return nil, apperrors.Unauthorized("trip does not belong to this rider")
	}

	result, err := s.offerRepo.AcceptOffer(ctx, offerID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, apperrors.NotFound("offer")
		case errors.Is(err, apperrors.ErrOfferExpired):
			return nil, apperrors.OfferExpired()
		case errors.Is(err, apperrors.ErrOfferNotPending):
			return nil, apperrors.OfferNotPending()
		case errors.Is(err, apperrors.ErrTripAlreadyAssigned):
			return nil, apperrors.TripAlreadyAssigned()
		}
		return nil, err
	}

	observability.TripsAccepted.Inc()
	s.publisher.PublishOffer(ctx, events.OfferEvent{
		OfferID:  result.Offer.ID,
		TripID:   result.TripID,
		DriverID: result.DriverID,
		Status:   models.OfferStatusAccepted,
		Amount:   result.Fare,
		At:       s.now(),
	})
	s.publisher.PublishTrip(ctx, events.TripEvent{
		TripID:   result.TripID,
		Status:   models.TripStatusAccepted,
		RiderID:  result.RiderID,
		DriverID: result.DriverID,
		Fare:     result.Fare,
		At:       s.now(),
	})

	trip, err = s.tripRepo.GetByID(ctx, result.TripID)
	if err != nil {
		return nil, err
	}
	resp := trip.ToResponse()
	if driver, err := s.driverRepo.GetByID(ctx, result.DriverID); err == nil && driver != nil {
		resp.Driver = driver.ToResponse()
	}
	return resp, nil
}

func (s *negotiationService) RejectOffer(ctx context.Context, riderID, offerID string) error {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return err
	}
	if offer == nil {
		return apperrors.NotFound("offer")
	}

	trip, err := s.tripRepo.GetByID(ctx, offer.TripID)
	if err != nil {
		return err
	}
	if trip == nil {
		return apperrors.NotFound("trip")
	}
	if trip.RiderID != riderID {
		return apperrors.Unauthorized("trip does not belong to this rider")
	}

	ok, err := s.offerRepo.UpdateStatusIfPending(ctx, offerID, models.OfferStatusRejected)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.OfferNotPending()
	}

	s.publisher.PublishOffer(ctx, events.OfferEvent{
		OfferID:  offerID,
		TripID:   offer.TripID,
		DriverID: offer.DriverID,
		Status:   models.OfferStatusRejected,
		Amount:   offer.Amount,
		At:       s.now(),
	})
	return nil
}

// CounterOffer marks the driver's offer COUNTERED and moves the rider's new
// amount onto the trip as the updated anchor. The driver responds by placing
// a fresh offer with parent_offer_id set.
func (s *negotiationService) CounterOffer(ctx context.Context, riderID string, req *models.CounterOfferRequest) (*models.TripResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperrors.NotFound("trip")
	}
	if trip.RiderID != riderID {
		return nil, apperrors.Unauthorized("trip does not belong to this rider")
	}

	offer, err := s.offerRepo.GetByID(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}
	if offer == nil || offer.TripID != req.TripID {
		return nil, apperrors.NotFound("offer")
	}

	// Sweep first so a counter against an already-expired offer fails cleanly.
	if expired, err := s.offerRepo.ExpirePending(ctx, req.TripID, s.now()); err == nil && expired > 0 {
		observability.OffersExpired.Add(float64(expired))
	}

	// The anchor moves before the offer does. If the trip left REQUESTED
	// under a concurrent accept, fail here without touching the offer.
	ok, err := s.tripRepo.SetProposedPrice(ctx, req.TripID, req.Amount, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NegotiationClosed()
	}

	ok, err = s.offerRepo.UpdateStatusIfPending(ctx, req.OfferID, models.OfferStatusCountered)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.OfferNotPending()
	}

	s.publisher.PublishOffer(ctx, events.OfferEvent{
		OfferID:  req.OfferID,
		TripID:   req.TripID,
		DriverID: offer.DriverID,
		Status:   models.OfferStatusCountered,
		Amount:   req.Amount,
		At:       s.now(),
	})

	trip, err = s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	return trip.ToResponse(), nil
}

// ListOffers returns the live offers on a trip. Expiry is lazy: the sweep runs
// here, so a caller never sees a PENDING offer past its deadline.
func (s *negotiationService) ListOffers(ctx context.Context, tripID string) ([]*models.PriceOfferResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperrors.NotFound("trip")
	}

	if expired, err := s.offerRepo.ExpirePending(ctx, tripID, s.now()); err == nil && expired > 0 {
		observability.OffersExpired.Add(float64(expired))
	}

	offers, err := s.offerRepo.ListPendingByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.PriceOfferResponse, 0, len(offers))
	for _, offer := range offers {
		resp := offer.ToResponse()
		if driver, err := s.driverRepo.GetByID(ctx, offer.DriverID); err == nil && driver != nil {
			attachDriver(resp, driver)
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func attachDriver(resp *models.PriceOfferResponse, driver *models.Driver) {
	resp.DriverName = driver.Name
	resp.DriverRating = driver.Rating
	resp.DriverVehicle = fmt.Sprintf("%s %s", driver.VehicleType, driver.VehicleNumber)
	resp.DriverTrips = driver.TotalTrips
}
