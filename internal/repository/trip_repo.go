package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id string) (*models.Trip, error)
	// AcceptDriver assigns a driver iff the trip is still an unassigned
	// REQUESTED trip. Returns false when the conditional update matched no
	// row, i.e. the caller lost the race.
	AcceptDriver(ctx context.Context, tripID, driverID string) (bool, error)
	// Pickup transitions ACCEPTED -> ON_TRIP iff trip, assigned driver and
	// pickup code all match in one guarded update. A false return carries no
	// detail about which check failed.
	Pickup(ctx context.Context, tripID, driverID, otp string) (bool, error)
	Complete(ctx context.Context, tripID, driverID string) (bool, error)
	// CancelIf cancels the trip iff its status is one of fromStatuses.
	CancelIf(ctx context.Context, tripID, cancelledBy string, fromStatuses []string) (bool, error)
	SetProposedPrice(ctx context.Context, tripID string, amount float64, enableNegotiation bool) (bool, error)
	GetOldestRequested(ctx context.Context, limit int) ([]*models.Trip, error)
	ListByRider(ctx context.Context, riderID string) ([]*models.Trip, error)
	ListByDriver(ctx context.Context, driverID string) ([]*models.Trip, error)
}

type tripRepository struct {
	db *sqlx.DB
}

func NewTripRepository(db *sqlx.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	trip.Status = models.TripStatusRequested

	query := `
		INSERT INTO trips (id, rider_id, origin_name, origin_lat, origin_lng,
			dest_name, dest_lat, dest_lng, capacity, fare, proposed_price,
			negotiation_enabled, otp, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		trip.ID, trip.RiderID, trip.OriginName, trip.OriginLat, trip.OriginLng,
		trip.DestName, trip.DestLat, trip.DestLng, trip.Capacity, trip.Fare,
		trip.ProposedPrice, trip.NegotiationEnabled, trip.OTP, trip.Status,
		trip.CreatedAt, trip.UpdatedAt)
	return err
}

func (r *tripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	query := `SELECT * FROM trips WHERE id = $1`
	err := r.db.GetContext(ctx, &trip, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &trip, err
}

func (r *tripRepository) AcceptDriver(ctx context.Context, tripID, driverID string) (bool, error) {
	query := `
		UPDATE trips
		SET driver_id = $1, status = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND driver_id IS NULL
	`
	res, err := r.db.ExecContext(ctx, query,
		driverID, models.TripStatusAccepted, time.Now(), tripID, models.TripStatusRequested)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *tripRepository) Pickup(ctx context.Context, tripID, driverID, otp string) (bool, error) {
	query := `
		UPDATE trips
		SET status = $1, updated_at = $2
		WHERE id = $3 AND driver_id = $4 AND status = $5 AND otp = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		models.TripStatusOnTrip, time.Now(), tripID, driverID, models.TripStatusAccepted, otp)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *tripRepository) Complete(ctx context.Context, tripID, driverID string) (bool, error) {
	query := `
		UPDATE trips
		SET status = $1, updated_at = $2
		WHERE id = $3 AND driver_id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query,
		models.TripStatusCompleted, time.Now(), tripID, driverID, models.TripStatusOnTrip)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *tripRepository) CancelIf(ctx context.Context, tripID, cancelledBy string, fromStatuses []string) (bool, error) {
	query := `
		UPDATE trips
		SET status = $1, cancelled_by = $2, updated_at = $3
		WHERE id = $4 AND status = ANY($5)
	`
	res, err := r.db.ExecContext(ctx, query,
		models.TripStatusCancelled, cancelledBy, time.Now(), tripID, pq.Array(fromStatuses))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *tripRepository) SetProposedPrice(ctx context.Context, tripID string, amount float64, enableNegotiation bool) (bool, error) {
	var query string
	if enableNegotiation {
		query = `UPDATE trips SET proposed_price = $1, negotiation_enabled = TRUE, updated_at = $2 WHERE id = $3 AND status = $4`
	} else {
		query = `UPDATE trips SET proposed_price = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	}
	res, err := r.db.ExecContext(ctx, query, amount, time.Now(), tripID, models.TripStatusRequested)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// GetOldestRequested returns the bounded window of unassigned pending trips,
// oldest first, so earlier requests get matched before newer ones.
func (r *tripRepository) GetOldestRequested(ctx context.Context, limit int) ([]*models.Trip, error) {
	var trips []*models.Trip
	query := `
		SELECT * FROM trips
		WHERE status = $1 AND driver_id IS NULL
		ORDER BY created_at ASC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &trips, query, models.TripStatusRequested, limit)
	return trips, err
}

func (r *tripRepository) ListByRider(ctx context.Context, riderID string) ([]*models.Trip, error) {
	var trips []*models.Trip
	query := `SELECT * FROM trips WHERE rider_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &trips, query, riderID)
	return trips, err
}

func (r *tripRepository) ListByDriver(ctx context.Context, driverID string) ([]*models.Trip, error) {
	var trips []*models.Trip
	query := `SELECT * FROM trips WHERE driver_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &trips, query, driverID)
	return trips, err
}
