package handler

import (
	"net/http"
	"strings"

	"github.com/anivault/anivault/internal/catalog"
	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/http/response"
	"github.com/anivault/anivault/internal/service"
)

type CatalogHandler struct {
	catalog service.CatalogServiceInterface
}

func NewCatalogHandler(catalog service.CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// criteriaFromQuery reads filter selectors; missing ones default to the
// wildcard.
func criteriaFromQuery(r *http.Request) catalog.Criteria {
	q := r.URL.Query()
	sel := func(key string) string {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
		return catalog.Wildcard
	}
	return catalog.Criteria{
		Query:  q.Get("q"),
		Genre:  sel("genre"),
		Year:   sel("year"),
		Season: sel("season"),
		Studio: sel("studio"),
	}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.List(r.Context(), criteriaFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AnimeEntry{}
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}

func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, stats)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	entry, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, entry)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.AnimeInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	entry, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, entry)
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var in service.AnimeInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	entry, err := h.catalog.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, entry)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.NoContent(w, r)
}
