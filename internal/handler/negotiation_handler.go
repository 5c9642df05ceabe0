package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type NegotiationHandler struct {
	negotiationService service.NegotiationService
	validate           *validator.Validate
}

func NewNegotiationHandler(negotiationService service.NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{
		negotiationService: negotiationService,
		validate:           validator.New(),
	}
}

func (h *NegotiationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/negotiation/propose", h.ProposePrice)
	r.Post("/negotiation/offer", h.OfferPrice)
	r.Post("/negotiation/accept", h.AcceptOffer)
	r.Post("/negotiation/reject", h.RejectOffer)
	r.Post("/negotiation/counter", h.CounterOffer)
	r.Get("/negotiation/trips/{tripId}/offers", h.ListOffers)
}

// POST /v1/negotiation/propose
func (h *NegotiationHandler) ProposePrice(w http.ResponseWriter, r *http.Request) {
	rider := middleware.RiderFrom(r.Context())
	if rider == nil {
		utils.Error(w, apperrors.Unauthorized("rider identity required"))
		return
	}

	var req models.ProposePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	trip, err := h.negotiationService.ProposePrice(r.Context(), rider.ID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, trip)
}

// POST /v1/negotiation/offer
func (h *NegotiationHandler) OfferPrice(w http.ResponseWriter, r *http.Request) {
	driver := middleware.DriverFrom(r.Context())
	if driver == nil {
		utils.Error(w, apperrors.Unauthorized("driver identity required"))
		return
	}

	var req models.OfferPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	offer, err := h.negotiationService.OfferPrice(r.Context(), driver.ID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, offer)
}

// POST /v1/negotiation/accept
func (h *NegotiationHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	rider := middleware.RiderFrom(r.Context())
	if rider == nil {
		utils.Error(w, apperrors.Unauthorized("rider identity required"))
		return
	}

	var req models.AcceptOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	trip, err := h.negotiationService.AcceptOffer(r.Context(), rider.ID, req.OfferID)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, trip)
}

// POST /v1/negotiation/reject
func (h *NegotiationHandler) RejectOffer(w http.ResponseWriter, r *http.Request) {
	rider := middleware.RiderFrom(r.Context())
	if rider == nil {
		utils.Error(w, apperrors.Unauthorized("rider identity required"))
		return
	}

	var req models.RejectOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	if err := h.negotiationService.RejectOffer(r.Context(), rider.ID, req.OfferID); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]string{
		"status": models.OfferStatusRejected,
	})
}

// POST /v1/negotiation/counter
func (h *NegotiationHandler) CounterOffer(w http.ResponseWriter, r *http.Request) {
	rider := middleware.RiderFrom(r.Context())
	if rider == nil {
		utils.Error(w, apperrors.Unauthorized("rider identity required"))
		return
	}

	var req models.CounterOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	trip, err := h.negotiationService.CounterOffer(r.Context(), rider.ID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, trip)
}

// GET /v1/negotiation/trips/{tripId}/offers
func (h *NegotiationHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	if tripID == "" {
		utils.BadRequest(w, "trip id is required")
		return
	}

	offers, err := h.negotiationService.ListOffers(r.Context(), tripID)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, offers)
}
