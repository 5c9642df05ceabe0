package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type TripHandler struct {
	tripService service.TripService
	validate    *validator.Validate
}

func NewTripHandler(tripService service.TripService) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		validate:    validator.New(),
	}
}

func (h *TripHandler) RegisterRoutes(r chi.Router) {
	r.Post("/trips", h.CreateTrip)
	r.Get("/trips", h.ListTrips)
	r.Get("/trips/{id}", h.GetTrip)
	r.Get("/trips/{id}/location", h.GetTripLocation)
	r.Post("/trips/{id}/accept", h.AcceptTrip)
	r.Post("/trips/{id}/pickup", h.Pickup)
	r.Post("/trips/{id}/complete", h.CompleteTrip)
	r.Post("/trips/{id}/cancel", h.CancelTrip)
}

// POST /v1/trips
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	resp, err := h.tripService.CreateTrip(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, resp)
}

// GET /v1/trips/{id}
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "trip id is required")
		return
	}

	trip, err := h.tripService.GetTrip(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, trip)
}

// GET /v1/trips/{id}/location
func (h *TripHandler) GetTripLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "trip id is required")
		return
	}

	loc, err := h.tripService.GetTripLocation(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, loc)
}

// POST /v1/trips/{id}/accept
func (h *TripHandler) AcceptTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "trip id is required")
		return
	}

	driver := middleware.DriverFrom(r.Context())
	if driver == nil {
		utils.Error(w, apperrors.Unauthorized("driver identity required"))
		return
	}

	trip, err := h.tripService.AcceptTrip(r.Context(), id, driver.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, trip)
}

// POST /v1/trips/{id}/pickup
func (h *TripHandler) Pickup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "trip id is required")
		return
	}

	driver := middleware.DriverFrom(r.Context())
	if driver == nil {
		utils.Error(w, apperrors.Unauthorized("driver identity required"))
		return
	}

	var req models.PickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		// Malformed codes get the same uniform rejection as wrong ones.
		utils.Error(w, apperrors.InvalidTripOrOTP())
		return
	}

	if err := h.tripService.Pickup(r.Context(), id, driver.ID, req.OTP); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]string{
		"status": models.TripStatusOnTrip,
	})
}

// POST /v1/trips/{id}/complete
func (h *TripHandler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "trip id is required")
		return
	}

	driver := middleware.DriverFrom(r.Context())
	if driver == nil {
		utils.Error(w, apperrors.Unauthorized("driver identity required"))
		return
	}

	if err := h.tripService.CompleteTrip(r.Context(), id, driver.ID); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]string{
		"status": models.TripStatusCompleted,
	})
}

// POST /v1/trips/{id}/cancel
func (h *TripHandler) CancelTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "trip id is required")
		return
	}

	actor := middleware.ActorFrom(r.Context())
	if actor == nil {
		utils.Error(w, apperrors.Unauthorized("actor identity required"))
		return
	}

	if err := h.tripService.CancelTrip(r.Context(), id, actor.ID, actor.Role); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]string{
		"status": models.TripStatusCancelled,
	})
}

// GET /v1/trips?rider_id=|driver_id=
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	riderID := r.URL.Query().Get("rider_id")
	driverID := r.URL.Query().Get("driver_id")

	trips, err := h.tripService.ListTrips(r.Context(), riderID, driverID)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, trips)
}

func handleError(w http.ResponseWriter, err error) {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		utils.Error(w, apiErr)
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		utils.NotFound(w, "resource")
	case errors.Is(err, apperrors.ErrTripAlreadyAssigned):
		utils.Error(w, apperrors.TripAlreadyAssigned())
	case errors.Is(err, apperrors.ErrInvalidTripOrOTP):
		utils.Error(w, apperrors.InvalidTripOrOTP())
	case errors.Is(err, apperrors.ErrOfferExpired):
		utils.Error(w, apperrors.OfferExpired())
	case errors.Is(err, apperrors.ErrOfferNotPending):
		utils.Error(w, apperrors.OfferNotPending())
	default:
		utils.InternalError(w, "internal server error")
	}
}
