package http

import (
	"errors"
	"net/http"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/pkg/logger"
)

// retryAfterSeconds is sent with 503 responses caused by lock contention.
const retryAfterSeconds = "1"

// statusFor maps a ledger error kind to its HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrValidation, domain.ErrInvariantViolation:
		return http.StatusUnprocessableEntity
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrInsufficientStock:
		return http.StatusConflict
	case domain.ErrContention:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes err using the status of its kind. Unclassified
// errors are logged and hidden behind a generic message.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respondError(w, status, "Internal server error")
		return
	}

	message := err.Error()
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Message != "" {
		message = derr.Message
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	respondError(w, status, message)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}
