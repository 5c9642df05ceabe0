package handler

import (
	"encoding/json"
	"net/http"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type DriverHandler struct {
	locationService service.LocationService
	dispatchService service.DispatchService
	accountService  service.AccountService
	validate        *validator.Validate
}

func NewDriverHandler(
	locationService service.LocationService,
	dispatchService service.DispatchService,
	accountService service.AccountService,
) *DriverHandler {
	return &DriverHandler{
		locationService: locationService,
		dispatchService: dispatchService,
		accountService:  accountService,
		validate:        validator.New(),
	}
}

func (h *DriverHandler) RegisterRoutes(r chi.Router) {
	r.Post("/drivers", h.Register)
	r.Get("/drivers/{id}", h.GetDriver)
	r.Post("/drivers/{id}/location", h.ReportLocation)
	r.Post("/drivers/{id}/offline", h.GoOffline)
	r.Get("/drivers/{id}/trips/available", h.AvailableTrips)
}

// POST /v1/drivers
func (h *DriverHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	driver, err := h.accountService.RegisterDriver(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, driver)
}

// GET /v1/drivers/{id}
func (h *DriverHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "driver id is required")
		return
	}

	driver, err := h.accountService.GetDriver(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, driver)
}

// POST /v1/drivers/{id}/location
func (h *DriverHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "driver id is required")
		return
	}

	var req models.ReportLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	if err := h.locationService.ReportLocation(r.Context(), id, &req); err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// POST /v1/drivers/{id}/offline
func (h *DriverHandler) GoOffline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "driver id is required")
		return
	}

	if err := h.locationService.GoOffline(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	utils.NoContent(w)
}

// GET /v1/drivers/{id}/trips/available
func (h *DriverHandler) AvailableTrips(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "driver id is required")
		return
	}

	candidates, err := h.dispatchService.QueryAvailableTrips(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, candidates)
}
