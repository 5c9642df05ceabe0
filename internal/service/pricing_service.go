package service

import (
	"math"

	"github.com/aditya/go-dispatch/internal/geo"
	"github.com/aditya/go-dispatch/internal/models"
)

const (
	perKmPerSeatRate = 0.4
	minFare          = 5.0
)

// PricingService produces the starting fare for a new trip. The core treats
// the estimate as an opaque anchor value; negotiation may replace it.
type PricingService interface {
	Estimate(origin, destination models.Location, capacity int) float64
}

type pricingService struct{}

func NewPricingService() PricingService {
	return &pricingService{}
}

// Estimate prices a trip by great-circle distance scaled by requested
// capacity. Deliberately simple: surge and road-routing adjustments belong
// to an upstream estimation collaborator, not the dispatch core.
func (s *pricingService) Estimate(origin, destination models.Location, capacity int) float64 {
	distKm := geo.HaversineKm(origin.Lat, origin.Lng, destination.Lat, destination.Lng)
	fare := distKm * float64(capacity) * perKmPerSeatRate
	if fare < minFare {
		fare = minFare
	}
	return round(fare)
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}
