package models

import (
	"time"
)

// Trip status constants
const (
	TripStatusRequested = "REQUESTED"
	TripStatusAccepted  = "ACCEPTED"
	TripStatusOnTrip    = "ON_TRIP"
	TripStatusCompleted = "COMPLETED"
	TripStatusCancelled = "CANCELLED"
)

// Actor roles
const (
	RoleRider  = "rider"
	RoleDriver = "driver"
)

// Valid trip state transitions
var ValidTripTransitions = map[string][]string{
	TripStatusRequested: {TripStatusAccepted, TripStatusCancelled},
	TripStatusAccepted:  {TripStatusOnTrip, TripStatusCancelled},
	TripStatusOnTrip:    {TripStatusCompleted},
	TripStatusCompleted: {},
	TripStatusCancelled: {},
}

type Trip struct {
	ID                 string    `db:"id" json:"id"`
	RiderID            string    `db:"rider_id" json:"rider_id"`
	DriverID           *string   `db:"driver_id" json:"driver_id,omitempty"`
	OriginName         string    `db:"origin_name" json:"origin_name"`
	OriginLat          float64   `db:"origin_lat" json:"origin_lat"`
	OriginLng          float64   `db:"origin_lng" json:"origin_lng"`
	DestName           string    `db:"dest_name" json:"dest_name"`
	DestLat            float64   `db:"dest_lat" json:"dest_lat"`
	DestLng            float64   `db:"dest_lng" json:"dest_lng"`
	Capacity           int       `db:"capacity" json:"capacity"`
	Fare               float64   `db:"fare" json:"fare"`
	ProposedPrice      *float64  `db:"proposed_price" json:"proposed_price,omitempty"`
	NegotiationEnabled bool      `db:"negotiation_enabled" json:"negotiation_enabled"`
	OTP                string    `db:"otp" json:"-"`
	Status             string    `db:"status" json:"status"`
	CancelledBy        *string   `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

type Location struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"latitude"`
	Lng  float64 `json:"lng" validate:"longitude"`
}

type CreateTripRequest struct {
	RiderID       string   `json:"rider_id" validate:"required,uuid"`
	Origin        Location `json:"origin" validate:"required"`
	Destination   Location `json:"destination" validate:"required"`
	Capacity      int      `json:"capacity" validate:"required,min=1"`
	ProposedPrice *float64 `json:"proposed_price,omitempty" validate:"omitempty,gt=0"`
}

// CreateTripResponse is the only place the pickup code leaves the core. It is
// returned to the requesting rider and never serialized on Trip itself.
type CreateTripResponse struct {
	Trip *TripResponse `json:"trip"`
	OTP  string        `json:"otp"`
}

type PickupRequest struct {
	OTP string `json:"otp" validate:"required,len=4,numeric"`
}

type CancelTripRequest struct {
	Reason string `json:"reason,omitempty"`
}

type TripResponse struct {
	ID                 string          `json:"id"`
	Status             string          `json:"status"`
	Rider              *UserResponse   `json:"rider,omitempty"`
	Driver             *DriverResponse `json:"driver,omitempty"`
	Origin             Location        `json:"origin"`
	Destination        Location        `json:"destination"`
	Capacity           int             `json:"capacity"`
	Fare               float64         `json:"fare"`
	ProposedPrice      *float64        `json:"proposed_price,omitempty"`
	NegotiationEnabled bool            `json:"negotiation_enabled"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TripCandidate is an advisory match surfaced to a pooling driver. Accepting
// it is still a race decided by the accept operation.
type TripCandidate struct {
	ID            string    `json:"id"`
	Origin        Location  `json:"origin"`
	Destination   Location  `json:"destination"`
	Capacity      int       `json:"capacity"`
	Fare          float64   `json:"fare"`
	ProposedPrice *float64  `json:"proposed_price,omitempty"`
	RiderName     string    `json:"rider_name,omitempty"`
	DistanceKm    float64   `json:"distance_km"`
	HasOffered    bool      `json:"has_offered"`
	MyOffer       *float64  `json:"my_offer,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (t *Trip) ToResponse() *TripResponse {
	return &TripResponse{
		ID:     t.ID,
		Status: t.Status,
		Origin: Location{
			Name: t.OriginName,
			Lat:  t.OriginLat,
			Lng:  t.OriginLng,
		},
		Destination: Location{
			Name: t.DestName,
			Lat:  t.DestLat,
			Lng:  t.DestLng,
		},
		Capacity:           t.Capacity,
		Fare:               t.Fare,
		ProposedPrice:      t.ProposedPrice,
		NegotiationEnabled: t.NegotiationEnabled,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// CanTransitionTo checks if a trip can transition to a new status
func (t *Trip) CanTransitionTo(newStatus string) bool {
	validNextStates, exists := ValidTripTransitions[t.Status]
	if !exists {
		return false
	}

	for _, state := range validNextStates {
		if state == newStatus {
			return true
		}
	}
	return false
}

// IsActive returns true if the trip is not in a terminal state
func (t *Trip) IsActive() bool {
	return t.Status != TripStatusCompleted && t.Status != TripStatusCancelled
}

func IsValidRole(role string) bool {
	return role == RoleRider || role == RoleDriver
}
