package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/services"
)

// PlaceHandler serves the place amenity links and the place search.
type PlaceHandler struct {
	service services.EntityServiceProvider
}

// NewPlaceHandler creates a new PlaceHandler.
func NewPlaceHandler(service services.EntityServiceProvider) *PlaceHandler {
	return &PlaceHandler{service: service}
}

// Amenities lists the amenities of a place.
func (h *PlaceHandler) Amenities(w http.ResponseWriter, r *http.Request) {
	amenities, err := entities(r, h.service).PlaceAmenities(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to list place amenities")
		return
	}
	writeJSON(w, http.StatusOK, publicList(amenities))
}

// LinkAmenity links an amenity to a place. A new link answers 201, an
// existing one 200.
func (h *PlaceHandler) LinkAmenity(w http.ResponseWriter, r *http.Request) {
	a, created, err := entities(r, h.service).LinkAmenity(chi.URLParam(r, "id"), chi.URLParam(r, "amenity_id"))
	if err != nil {
		writeServiceError(w, err, "Failed to link amenity")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, models.PublicMap(a))
}

// UnlinkAmenity removes an amenity from a place.
func (h *PlaceHandler) UnlinkAmenity(w http.ResponseWriter, r *http.Request) {
	if err := entities(r, h.service).UnlinkAmenity(chi.URLParam(r, "id"), chi.URLParam(r, "amenity_id")); err != nil {
		writeServiceError(w, err, "Failed to unlink amenity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// Search returns the places matching the states, cities and amenities
// filters in the body.
func (h *PlaceHandler) Search(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgNotJSON)
		return
	}
	var q services.PlaceSearch
	var probe map[string]json.RawMessage
	if json.Unmarshal(body, &probe) != nil || probe == nil || json.Unmarshal(body, &q) != nil {
		writeError(w, http.StatusBadRequest, MsgNotJSON)
		return
	}
	places, err := entities(r, h.service).SearchPlaces(q)
	if err != nil {
		writeServiceError(w, err, "Failed to search places")
		return
	}
	writeJSON(w, http.StatusOK, publicList(places))
}
