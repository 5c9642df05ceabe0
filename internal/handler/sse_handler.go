package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aditya/go-dispatch/internal/cache"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// SSEHandler streams the assigned driver's position to riders watching an
// active trip. Updates arrive over the Redis location channel; a slow client
// just misses frames, it never blocks the fan-out.
type SSEHandler struct {
	tripRepo repository.TripRepository
	tripLoc  cache.TripLocationCache
	redis    *redis.Client
	clients  map[string]map[chan []byte]bool // tripID -> subscribers
	mu       sync.RWMutex
}

func NewSSEHandler(tripRepo repository.TripRepository, tripLoc cache.TripLocationCache, redisClient *redis.Client) *SSEHandler {
	h := &SSEHandler{
		tripRepo: tripRepo,
		tripLoc:  tripLoc,
		redis:    redisClient,
		clients:  make(map[string]map[chan []byte]bool),
	}

	go h.listen()

	return h
}

func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.Get("/trips/{id}/track", h.TrackTrip)
}

// GET /v1/trips/{id}/track
func (h *SSEHandler) TrackTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	if tripID == "" {
		http.Error(w, "trip id required", http.StatusBadRequest)
		return
	}

	trip, err := h.tripRepo.GetByID(r.Context(), tripID)
	if err != nil || trip == nil {
		http.Error(w, "trip not found", http.StatusNotFound)
		return
	}
	if trip.DriverID == nil || !trip.IsActive() {
		http.Error(w, "trip is not trackable", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan []byte, 10)
	h.register(tripID, clientChan)
	defer h.unregister(tripID, clientChan)

	// Last known position straight away, before the first live update.
	if loc, err := h.tripLoc.Get(r.Context(), tripID); err == nil && loc != nil {
		h.writeLocation(w, flusher, tripID, *trip.DriverID, loc.Lat, loc.Lng)
	}

	ctx := r.Context()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-clientChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: location\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"time\": %q}\n\n", time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) writeLocation(w http.ResponseWriter, flusher http.Flusher, tripID, driverID string, lat, lng float64) {
	data, _ := json.Marshal(map[string]interface{}{
		"trip_id":   tripID,
		"driver_id": driverID,
		"lat":       lat,
		"lng":       lng,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	fmt.Fprintf(w, "event: location\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *SSEHandler) register(tripID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[tripID] == nil {
		h.clients[tripID] = make(map[chan []byte]bool)
	}
	h.clients[tripID][ch] = true
}

func (h *SSEHandler) unregister(tripID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clients[tripID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.clients, tripID)
		}
	}
	close(ch)
}

func (h *SSEHandler) broadcast(tripID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients[tripID] {
		select {
		case ch <- data:
		default:
			// slow client, drop the frame
		}
	}
}

func (h *SSEHandler) listen() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, events.ChannelDriverLocation)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var ev events.LocationEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		if ev.TripID == "" {
			continue
		}

		data, _ := json.Marshal(map[string]interface{}{
			"trip_id":   ev.TripID,
			"driver_id": ev.DriverID,
			"lat":       ev.Lat,
			"lng":       ev.Lng,
			"timestamp": ev.At.Format(time.RFC3339),
		})
		h.broadcast(ev.TripID, data)
	}
}
