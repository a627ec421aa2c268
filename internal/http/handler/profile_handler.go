package handler

import (
	"net/http"

	"github.com/anivault/anivault/internal/http/response"
	"github.com/anivault/anivault/internal/service"
)

type ProfileHandler struct {
	profiles service.ProfileServiceInterface
}

func NewProfileHandler(profiles service.ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch service.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}
	user, err := h.profiles.UpdateProfile(r.Context(), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}
