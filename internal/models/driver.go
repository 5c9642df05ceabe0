package models

import (
	"time"
)

type Driver struct {
	ID            string    `db:"id" json:"id"`
	Phone         string    `db:"phone" json:"phone"`
	Name          string    `db:"name" json:"name"`
	VehicleType   string    `db:"vehicle_type" json:"vehicle_type"`
	VehicleNumber string    `db:"vehicle_number" json:"vehicle_number"`
	Rating        float64   `db:"rating" json:"rating"`
	TotalTrips    int       `db:"total_trips" json:"total_trips"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type CreateDriverRequest struct {
	Phone         string `json:"phone" validate:"required,min=10,max=15"`
	Name          string `json:"name" validate:"required,min=2,max=100"`
	VehicleType   string `json:"vehicle_type" validate:"required"`
	VehicleNumber string `json:"vehicle_number" validate:"required"`
}

// ReportLocationRequest is a periodic driver position report. TripID present
// means the driver is mid-trip and the position feeds the trip-scoped cache;
// absent means the driver is pooling and eligible for matching.
type ReportLocationRequest struct {
	Lat    float64 `json:"lat" validate:"latitude"`
	Lng    float64 `json:"lng" validate:"longitude"`
	TripID *string `json:"trip_id,omitempty" validate:"omitempty,uuid"`
}

type DriverResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Rating        float64 `json:"rating"`
	TotalTrips    int     `json:"total_trips"`
	VehicleType   string  `json:"vehicle_type"`
	VehicleNumber string  `json:"vehicle_number"`
}

func (d *Driver) ToResponse() *DriverResponse {
	return &DriverResponse{
		ID:            d.ID,
		Name:          d.Name,
		Rating:        d.Rating,
		TotalTrips:    d.TotalTrips,
		VehicleType:   d.VehicleType,
		VehicleNumber: d.VehicleNumber,
	}
}
