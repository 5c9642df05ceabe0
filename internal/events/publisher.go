package events

import (
	"context"
	"log"
	"time"
)

// Event types emitted on committed state transitions. Delivery to clients is
// a collaborator concern; the core only guarantees one event per transition.
const (
	TypeTripStatusChanged  = "trip_status_changed"
	TypeOfferStatusChanged = "offer_status_changed"
	TypeDriverLocation     = "driver_location"
	TypeTripCandidate      = "trip_candidate"
)

type TripEvent struct {
	Type     string    `json:"type"`
	TripID   string    `json:"trip_id"`
	Status   string    `json:"status"`
	RiderID  string    `json:"rider_id"`
	DriverID string    `json:"driver_id,omitempty"`
	Fare     float64   `json:"fare,omitempty"`
	At       time.Time `json:"at"`
}

type OfferEvent struct {
	Type     string    `json:"type"`
	OfferID  string    `json:"offer_id"`
	TripID   string    `json:"trip_id"`
	DriverID string    `json:"driver_id"`
	Status   string    `json:"status"`
	Amount   float64   `json:"amount"`
	At       time.Time `json:"at"`
}

type LocationEvent struct {
	Type     string    `json:"type"`
	TripID   string    `json:"trip_id,omitempty"`
	DriverID string    `json:"driver_id"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	At       time.Time `json:"at"`
}

// CandidateEvent tells a pooling driver that a nearby trip is available.
// Advisory only; the driver still races for the accept.
type CandidateEvent struct {
	Type       string    `json:"type"`
	TripID     string    `json:"trip_id"`
	DriverID   string    `json:"driver_id"`
	DistanceKm float64   `json:"distance_km"`
	At         time.Time `json:"at"`
}

// Publisher is the notification boundary of the dispatch core. Publishes are
// fire-and-forget: a failed publish is logged, never propagated into the
// transition that triggered it.
type Publisher interface {
	PublishTrip(ctx context.Context, ev TripEvent)
	PublishOffer(ctx context.Context, ev OfferEvent)
	PublishLocation(ctx context.Context, ev LocationEvent)
	PublishCandidate(ctx context.Context, ev CandidateEvent)
	Close() error
}

// MultiPublisher fans one event out to several backends.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(pubs ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: pubs}
}

func (m *MultiPublisher) PublishTrip(ctx context.Context, ev TripEvent) {
	for _, p := range m.publishers {
		p.PublishTrip(ctx, ev)
	}
}

func (m *MultiPublisher) PublishOffer(ctx context.Context, ev OfferEvent) {
	for _, p := range m.publishers {
		p.PublishOffer(ctx, ev)
	}
}

func (m *MultiPublisher) PublishLocation(ctx context.Context, ev LocationEvent) {
	for _, p := range m.publishers {
		p.PublishLocation(ctx, ev)
	}
}

func (m *MultiPublisher) PublishCandidate(ctx context.Context, ev CandidateEvent) {
	for _, p := range m.publishers {
		p.PublishCandidate(ctx, ev)
	}
}

func (m *MultiPublisher) Close() error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) PublishTrip(ctx context.Context, ev TripEvent)           {}
func (NopPublisher) PublishOffer(ctx context.Context, ev OfferEvent)         {}
func (NopPublisher) PublishLocation(ctx context.Context, ev LocationEvent)   {}
func (NopPublisher) PublishCandidate(ctx context.Context, ev CandidateEvent) {}
func (NopPublisher) Close() error                                            { return nil }

func logPublishError(backend, eventType string, err error) {
	if err != nil {
		log.Printf("events: %s publish failed for %s: %v", backend, eventType, err)
	}
}
