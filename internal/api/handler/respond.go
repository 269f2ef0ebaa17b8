package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"status": statusError, "message": msg})
}

// statusFor translates domain sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAllocationNotAssigned):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidWeek),
		errors.Is(err, domain.ErrInvalidFacilitator),
		errors.Is(err, domain.ErrInvalidAllocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrQueueUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// mapError writes the error response for err.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusInternalServerError:
		respondError(w, status, "internal server error")
	case errors.Is(err, domain.ErrQueueUnavailable):
		respondError(w, status, domain.ErrQueueUnavailable.Error())
	default:
		respondError(w, status, err.Error())
	}
}
