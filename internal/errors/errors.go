package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Business errors
	ErrTripAlreadyAssigned = errors.New("trip already assigned")
	ErrInvalidTripOrOTP    = errors.New("invalid trip or otp")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrOfferExpired        = errors.New("offer expired")
	ErrOfferNotPending     = errors.New("offer already responded")
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Common API errors
func NotFound(resource string) *APIError {
	return NewAPIError("not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func BadRequest(message string) *APIError {
	return NewAPIError("bad_request", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return NewAPIError("conflict", message, http.StatusConflict)
}

func InternalError(message string) *APIError {
	return NewAPIError("internal_error", message, http.StatusInternalServerError)
}

func Unauthorized(message string) *APIError {
	return NewAPIError("unauthorized", message, http.StatusUnauthorized)
}

func TripAlreadyAssigned() *APIError {
	return NewAPIError("trip_already_assigned", "this trip has been assigned to another driver", http.StatusConflict)
}

// InvalidTripOrOTP covers every failed pickup attempt with one shape. The
// message is deliberately uniform: it must not reveal whether the trip, the
// driver assignment, the state, or the code itself was wrong.
func InvalidTripOrOTP() *APIError {
	return NewAPIError("invalid_trip_or_otp", "invalid trip or otp", http.StatusBadRequest)
}

func InvalidTransition(from, to string) *APIError {
	return NewAPIError("invalid_transition", fmt.Sprintf("cannot transition from %s to %s", from, to), http.StatusConflict)
}

// NegotiationClosed covers any price action against a trip that has left
// REQUESTED: assigned, cancelled, or otherwise settled.
func NegotiationClosed() *APIError {
	return NewAPIError("negotiation_closed", "trip is no longer open for negotiation", http.StatusConflict)
}

func OfferExpired() *APIError {
	return NewAPIError("offer_expired", "this price offer has expired", http.StatusGone)
}

func OfferNotPending() *APIError {
	return NewAPIError("offer_not_pending", "this price offer has already been responded to", http.StatusConflict)
}
