// Package handler exposes the session, auth, profile, catalog and admin
// operations over the local JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/anivault/anivault/internal/http/response"
	"github.com/anivault/anivault/internal/i18n"
	"github.com/anivault/anivault/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errBadRequest = errors.New("bad request")

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// writeServiceError maps service failures to the response envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *service.AuthError
	switch {
	case errors.As(err, &ae):
		response.Error(w, r, http.StatusUnauthorized, "AUTH_FAILED", ae.Message, nil)
	case errors.Is(err, errBadRequest):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, service.ErrUnauthenticated):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", i18n.SessionExpired, nil)
	case errors.Is(err, service.ErrProfileMissing):
		response.Error(w, r, http.StatusUnauthorized, "PROFILE_MISSING", i18n.ProfileMissing, nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", i18n.Forbidden, nil)
	case errors.Is(err, service.ErrEntryNotFound), errors.Is(err, service.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidEntry), errors.Is(err, service.ErrInvalidRole):
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", i18n.Unexpected, nil)
	}
}
