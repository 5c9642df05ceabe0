package repository

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AcceptOfferResult carries the state committed by the accept transaction.
type AcceptOfferResult struct {
	Offer            *models.PriceOffer
	TripID           string
	RiderID          string
	DriverID         string
	Fare             float64
	RejectedSiblings int64
}

type OfferRepository interface {
	Create(ctx context.Context, offer *models.PriceOffer) error
	GetByID(ctx context.Context, id string) (*models.PriceOffer, error)
	ListPendingByTrip(ctx context.Context, tripID string) ([]*models.PriceOffer, error)
	GetByTripAndDriver(ctx context.Context, tripID, driverID string) (*models.PriceOffer, error)
	// UpdateStatusIfPending transitions a single offer out of PENDING.
	// Returns false when the offer was not PENDING (already responded,
	// expired, or missing).
	UpdateStatusIfPending(ctx context.Context, id, status string) (bool, error)
	// ExpirePending is the lazy expiry sweep for one trip: every PENDING
	// offer past its expiry becomes EXPIRED. Idempotent.
	ExpirePending(ctx context.Context, tripID string, now time.Time) (int64, error)
	// AcceptOffer is the single atomic unit of the negotiation protocol:
	// offer -> ACCEPTED, trip -> ACCEPTED with the offer's driver and amount,
	// and every sibling PENDING offer -> REJECTED, all or nothing.
	AcceptOffer(ctx context.Context, offerID string, now time.Time) (*AcceptOfferResult, error)
}

type offerRepository struct {
	db *sqlx.DB
}

func NewOfferRepository(db *sqlx.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, offer *models.PriceOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	offer.CreatedAt = time.Now()
	offer.Status = models.OfferStatusPending

	query := `
		INSERT INTO price_offers (id, trip_id, driver_id, amount, parent_offer_id,
			status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		offer.ID, offer.TripID, offer.DriverID, offer.Amount, offer.ParentOfferID,
		offer.Status, offer.CreatedAt, offer.ExpiresAt)
	return err
}

func (r *offerRepository) GetByID(ctx context.Context, id string) (*models.PriceOffer, error) {
	var offer models.PriceOffer
	query := `SELECT * FROM price_offers WHERE id = $1`
	err := r.db.GetContext(ctx, &offer, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &offer, err
}

func (r *offerRepository) ListPendingByTrip(ctx context.Context, tripID string) ([]*models.PriceOffer, error) {
	var offers []*models.PriceOffer
	query := `
		SELECT * FROM price_offers
		WHERE trip_id = $1 AND status = $2
		ORDER BY created_at DESC
	`
	err := r.db.SelectContext(ctx, &offers, query, tripID, models.OfferStatusPending)
	return offers, err
}

func (r *offerRepository) GetByTripAndDriver(ctx context.Context, tripID, driverID string) (*models.PriceOffer, error) {
	var offer models.PriceOffer
	query := `
		SELECT * FROM price_offers
		WHERE trip_id = $1 AND driver_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &offer, query, tripID, driverID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &offer, err
}

func (r *offerRepository) UpdateStatusIfPending(ctx context.Context, id, status string) (bool, error) {
	query := `
		UPDATE price_offers
		SET status = $1, responded_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, status, time.Now(), id, models.OfferStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *offerRepository) ExpirePending(ctx context.Context, tripID string, now time.Time) (int64, error) {
	query := `
		UPDATE price_offers
		SET status = $1, responded_at = $2
		WHERE trip_id = $3 AND status = $4 AND expires_at < $2
	`
	res, err := r.db.ExecContext(ctx, query, models.OfferStatusExpired, now, tripID, models.OfferStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *offerRepository) AcceptOffer(ctx context.Context, offerID string, now time.Time) (*AcceptOfferResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var offer models.PriceOffer
	err = tx.GetContext(ctx, &offer, `SELECT * FROM price_offers WHERE id = $1 FOR UPDATE`, offerID)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if offer.Status != models.OfferStatusPending {
		return nil, apperrors.ErrOfferNotPending
	}
	// The sweep may not have run yet; an expired-but-unswept offer must fail
	// exactly as if it had been swept.
	if offer.IsExpired(now) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE price_offers SET status = $1, responded_at = $2 WHERE id = $3`,
			models.OfferStatusExpired, now, offerID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrOfferExpired
	}

	var trip models.Trip
	err = tx.GetContext(ctx, &trip, `SELECT * FROM trips WHERE id = $1 FOR UPDATE`, offer.TripID)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if trip.Status != models.TripStatusRequested || trip.DriverID != nil {
		return nil, apperrors.ErrTripAlreadyAssigned
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE price_offers SET status = $1, responded_at = $2 WHERE id = $3`,
		models.OfferStatusAccepted, now, offerID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE trips SET driver_id = $1, fare = $2, status = $3, updated_at = $4 WHERE id = $5`,
		offer.DriverID, offer.Amount, models.TripStatusAccepted, now, trip.ID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE price_offers SET status = $1, responded_at = $2 WHERE trip_id = $3 AND id <> $4 AND status = $5`,
		models.OfferStatusRejected, now, trip.ID, offerID, models.OfferStatusPending)
	if err != nil {
		return nil, err
	}
	rejected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	offer.Status = models.OfferStatusAccepted
	offer.RespondedAt = &now

	return &AcceptOfferResult{
		Offer:            &offer,
		TripID:           trip.ID,
		RiderID:          trip.RiderID,
		DriverID:         offer.DriverID,
		Fare:             offer.Amount,
		RejectedSiblings: rejected,
	}, nil
}
