package handlers

import (
	"net/http"

	"github.com/isdelr/hbnb-api/internal/services"
)

// IndexHandler serves the service status and object counts.
type IndexHandler struct {
	service services.EntityServiceProvider
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(service services.EntityServiceProvider) *IndexHandler {
	return &IndexHandler{service: service}
}

// Status reports that the API is up.
func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Stats reports the number of stored objects per kind.
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := entities(r, h.service).Stats()
	if err != nil {
		writeServiceError(w, err, "Failed to count objects")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
