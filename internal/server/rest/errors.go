package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/axiscapital/vault/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps service errors onto HTTP status codes and the message that
// is safe to show. Anything unrecognised is an internal error whose details
// stay in the log.
func statusFor(err error) (int, string) {
	var dup *common.DuplicateIdentityError
	var ve *common.ValidationError

	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, dup.Error()
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrAuthenticationFailed):
		return http.StatusUnauthorized, common.ErrAuthenticationFailed.Error()
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, "could not validate credentials"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, common.ErrForbidden.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "identity not found"
	case errors.Is(err, common.ErrRevocationDisabled):
		return http.StatusNotImplemented, common.ErrRevocationDisabled.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}
