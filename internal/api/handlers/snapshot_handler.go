package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/hbnb-api/internal/services"
)

// SnapshotHandler handles requests for registry snapshots.
type SnapshotHandler struct {
	service services.SnapshotServiceProvider
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(service services.SnapshotServiceProvider) *SnapshotHandler {
	return &SnapshotHandler{service: service}
}

// List returns the available snapshots, newest first.
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.service.ListSnapshots()
	if err != nil {
		writeServiceError(w, err, "Failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// Create takes a new snapshot.
func (h *SnapshotHandler) Create(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.CreateSnapshot()
	if err != nil {
		writeServiceError(w, err, "Failed to create snapshot")
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// Get returns the objects stored in one snapshot.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	objects, err := h.service.Load(chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err, "Failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, publicList(objects))
}
