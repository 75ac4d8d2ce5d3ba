// Package handler provides the JSON HTTP handlers of the arcade API and of
// the global highscore server.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/pkg/auth"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
	"github.com/Jay160412/jay-website/internal/repository"
	"github.com/Jay160412/jay-website/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

// ErrBadRequest is returned for bodies that are not valid JSON.
var ErrBadRequest = errors.New("malformed request body")

// errorStatus maps known errors to HTTP statuses, checked in order.
var errorStatus = []struct {
	target error
	status int
}{
	{ErrBadRequest, http.StatusBadRequest},
	{service.ErrMissingFields, http.StatusBadRequest},
	{service.ErrInvalidScore, http.StatusBadRequest},
	{service.ErrInsufficientCoins, http.StatusBadRequest},
	{service.ErrUsernameTaken, http.StatusConflict},
	{service.ErrAlreadyOwned, http.StatusConflict},
	{service.ErrNotOwned, http.StatusConflict},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrMissingBearer, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrCosmeticNotFound, http.StatusNotFound},
	{service.ErrSkinNotFound, http.StatusNotFound},
	{service.ErrUnknownGame, http.StatusNotFound},
	{service.ErrRemoteUnavailable, http.StatusServiceUnavailable},
	{kv.ErrUnavailable, http.StatusServiceUnavailable},
	{lock.ErrLockTimeout, http.StatusServiceUnavailable},
}

// StatusFromError returns the HTTP status for err, 500 when it is unknown.
func StatusFromError(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.target) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response body")
	}
}

// WriteError writes err as {"error": "..."}. Messages of validation errors
// reach the client; storage details do not.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFromError(err)
	msg := err.Error()

	switch {
	case status == http.StatusInternalServerError:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		msg = http.StatusText(status)
		if errors.Is(err, repository.ErrCorruptRecord) {
			msg = "stored data is damaged"
		}
	case errors.Is(err, kv.ErrUnavailable):
		log.Ctx(r.Context()).Warn().Err(err).Msg("Store unavailable")
		msg = "storage is not available"
	case errors.Is(err, lock.ErrLockTimeout):
		log.Ctx(r.Context()).Warn().Err(err).Msg("Record lock wait timed out")
		msg = "storage is busy, try again"
	}

	WriteJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
