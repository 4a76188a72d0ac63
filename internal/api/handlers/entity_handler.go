package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/services"
)

// EntityHandler serves the CRUD routes of one entity kind.
type EntityHandler struct {
	service services.EntityServiceProvider
	kind    models.Kind
}

// NewEntityHandler creates a new EntityHandler for kind.
func NewEntityHandler(service services.EntityServiceProvider, kind models.Kind) *EntityHandler {
	return &EntityHandler{service: service, kind: kind}
}

// List handles retrieving every entity of the kind.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := entities(r, h.service).List(h.kind)
	if err != nil {
		writeServiceError(w, err, "Failed to list "+h.kind.Plural())
		return
	}
	writeJSON(w, http.StatusOK, publicList(all))
}

// Get handles retrieving a single entity.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := entities(r, h.service).Get(h.kind, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get "+string(h.kind))
		return
	}
	writeJSON(w, http.StatusOK, models.PublicMap(e))
}

// Create handles creating a new entity.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	attrs, ok := decodeObject(r)
	if !ok {
		writeError(w, http.StatusBadRequest, MsgNotJSON)
		return
	}
	h.create(w, r, attrs)
}

// Update handles updating an existing entity. Protected and immutable
// attributes in the body are ignored.
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := entities(r, h.service).Get(h.kind, id); err != nil {
		writeServiceError(w, err, "Failed to get "+string(h.kind))
		return
	}
	attrs, ok := decodeObject(r)
	if !ok {
		writeError(w, http.StatusBadRequest, MsgNotJSON)
		return
	}
	e, err := entities(r, h.service).Update(h.kind, id, attrs)
	if err != nil {
		writeServiceError(w, err, "Failed to update "+string(h.kind))
		return
	}
	writeJSON(w, http.StatusOK, models.PublicMap(e))
}

// Delete handles deleting an entity.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := entities(r, h.service).Delete(h.kind, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "Failed to delete "+string(h.kind))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// ListUnder lists the entities whose field points at the parent named by
// the {id} URL parameter.
func (h *EntityHandler) ListUnder(field string, parent models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := entities(r, h.service).ListChildren(h.kind, field, parent, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err, "Failed to list "+h.kind.Plural())
			return
		}
		writeJSON(w, http.StatusOK, publicList(all))
	}
}

// CreateUnder creates an entity whose field is set to the parent named by
// the {id} URL parameter, overriding any value in the body.
func (h *EntityHandler) CreateUnder(field string, parent models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID := chi.URLParam(r, "id")
		if _, err := entities(r, h.service).Get(parent, parentID); err != nil {
			writeServiceError(w, err, "Failed to get "+string(parent))
			return
		}
		attrs, ok := decodeObject(r)
		if !ok {
			writeError(w, http.StatusBadRequest, MsgNotJSON)
			return
		}
		attrs[field] = parentID
		h.create(w, r, attrs)
	}
}

func (h *EntityHandler) create(w http.ResponseWriter, r *http.Request, attrs map[string]any) {
	e, err := entities(r, h.service).Create(h.kind, attrs)
	if err != nil {
		writeServiceError(w, err, "Failed to create "+string(h.kind))
		return
	}
	writeJSON(w, http.StatusCreated, models.PublicMap(e))
}
