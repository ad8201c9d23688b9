// Package response writes JSON bodies and maps service errors to HTTP statuses.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/lib/logger/sl"
)

type (
	ErrorResponse struct {
		Error ErrorDetail `json:"error"`
	}

	ErrorDetail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeLimitExceeded = "LIMIT_EXCEEDED"
	CodeLockBusy      = "LOCK_UNAVAILABLE"
	CodeInternal      = "INTERNAL_ERROR"
)

// StatusFor maps err to an HTTP status and an error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotLoggedIn), errors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, apperrors.ErrAuthorization):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, apperrors.ErrLimitExceeded):
		return http.StatusUnprocessableEntity, CodeLimitExceeded
	case errors.Is(err, apperrors.ErrLockService):
		return http.StatusServiceUnavailable, CodeLockBusy
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func JSON(w http.ResponseWriter, log *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("failed to encode JSON response", sl.Err(err))
	}
}

// Error writes err as an ErrorResponse. Details of internal failures are
// not exposed to the client.
func Error(w http.ResponseWriter, log *slog.Logger, err error) {
	status, code := StatusFor(err)

	message := apperrors.Message(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		message = "internal error"
	}

	JSON(w, log, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
