package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/http/response"
	"github.com/anivault/anivault/internal/repository"
	"github.com/anivault/anivault/internal/service"
)

type AdminHandler struct {
	admin service.AdminServiceInterface
}

func NewAdminHandler(admin service.AdminServiceInterface) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := repository.ProfileListQuery{
		PageRequest: repository.PageRequest{
			Page:     queryInt(q.Get("page")),
			PageSize: queryInt(q.Get("page_size")),
		},
		Email: strings.TrimSpace(q.Get("email")),
	}
	if raw := strings.TrimSpace(q.Get("role")); raw != "" {
		role := domain.Role(strings.ToLower(raw))
		if !role.Valid() {
			writeServiceError(w, r, service.ErrInvalidRole)
			return
		}
		query.Role = role.String()
	}
	page, err := h.admin.ListUsers(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Page(w, r, page.Items, response.PageMeta{
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (h *AdminHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	user, err := h.admin.SetUserRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

// queryInt returns 0 for missing or malformed values so pagination defaults
// apply.
func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
