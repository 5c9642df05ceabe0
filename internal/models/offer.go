package models

import (
	"time"
)

// Price offer status constants
const (
	OfferStatusPending   = "PENDING"
	OfferStatusAccepted  = "ACCEPTED"
	OfferStatusRejected  = "REJECTED"
	OfferStatusCountered = "COUNTERED"
	OfferStatusExpired   = "EXPIRED"
)

// PriceOffer is one priced proposal from a driver on a negotiation-enabled
// trip. Counter-offers chain through ParentOfferID; the rider's counter-value
// lives on the trip itself, not in a new offer row.
type PriceOffer struct {
	ID            string     `db:"id" json:"id"`
	TripID        string     `db:"trip_id" json:"trip_id"`
	DriverID      string     `db:"driver_id" json:"driver_id"`
	Amount        float64    `db:"amount" json:"amount"`
	ParentOfferID *string    `db:"parent_offer_id" json:"parent_offer_id,omitempty"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	RespondedAt   *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	ExpiresAt     time.Time  `db:"expires_at" json:"expires_at"`
}

type ProposePriceRequest struct {
	TripID string  `json:"trip_id" validate:"required,uuid"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type OfferPriceRequest struct {
	TripID        string  `json:"trip_id" validate:"required,uuid"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	ParentOfferID *string `json:"parent_offer_id,omitempty" validate:"omitempty,uuid"`
}

type AcceptOfferRequest struct {
	OfferID string `json:"offer_id" validate:"required,uuid"`
}

type RejectOfferRequest struct {
	OfferID string `json:"offer_id" validate:"required,uuid"`
}

type CounterOfferRequest struct {
	TripID  string  `json:"trip_id" validate:"required,uuid"`
	OfferID string  `json:"offer_id" validate:"required,uuid"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
}

type PriceOfferResponse struct {
	ID            string    `json:"id"`
	TripID        string    `json:"trip_id"`
	Amount        float64   `json:"amount"`
	ParentOfferID *string   `json:"parent_offer_id,omitempty"`
	Status        string    `json:"status"`
	DriverID      string    `json:"driver_id"`
	DriverName    string    `json:"driver_name,omitempty"`
	DriverRating  float64   `json:"driver_rating,omitempty"`
	DriverVehicle string    `json:"driver_vehicle,omitempty"`
	DriverTrips   int       `json:"driver_trips,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (o *PriceOffer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsTerminal reports whether the offer can no longer change state.
func (o *PriceOffer) IsTerminal() bool {
	return o.Status == OfferStatusAccepted || o.Status == OfferStatusRejected || o.Status == OfferStatusExpired
}

func (o *PriceOffer) ToResponse() *PriceOfferResponse {
	return &PriceOfferResponse{
		ID:            o.ID,
		TripID:        o.TripID,
		Amount:        o.Amount,
		ParentOfferID: o.ParentOfferID,
		Status:        o.Status,
		DriverID:      o.DriverID,
		CreatedAt:     o.CreatedAt,
		ExpiresAt:     o.ExpiresAt,
	}
}
