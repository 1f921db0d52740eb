package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/conradkoh/jcep-sub000/internal/service"
)

// respondWithServiceError maps service sentinel errors to HTTP status codes.
// Anything unexpected becomes a 500 without leaking internals.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, ErrMsgNotFound)
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, ErrMsgPermissionDenied)
	case errors.Is(err, service.ErrTokenExpired):
		// Expired is deliberately distinct from unknown: the link was real
		// but is no longer usable.
		respondWithError(w, http.StatusGone, ErrMsgTokenExpired)
	case errors.Is(err, service.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFormSubmitted):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrIncompleteForm):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrAlreadyArchived), errors.Is(err, service.ErrNotArchived):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrUserInactive):
		respondWithError(w, http.StatusForbidden, "Account is inactive")
	default:
		slog.Error("Unhandled service error", "error", err)
		respondWithError(w, http.StatusInternalServerError, ErrMsgInternalError)
	}
}
