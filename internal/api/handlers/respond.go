package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/storage"
	"github.com/rs/zerolog/log"
)

// Error bodies shared by every route.
const (
	MsgNotFound         = "Not found"
	MsgNotJSON          = "Not a JSON"
	MsgMethodNotAllowed = "Method not allowed"
	MsgInternal         = "Internal server error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// NotFound answers unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, MsgNotFound)
}

// MethodNotAllowed answers routes matched with an unsupported method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// writeServiceError maps service errors onto status codes. Anything that is
// neither a missing entity nor a bad attribute is a server fault.
func writeServiceError(w http.ResponseWriter, err error, msg string) {
	var fe *models.FieldError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, MsgNotFound)
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, fe.Error())
	default:
		log.Error().Err(err).Msg(msg)
		writeError(w, http.StatusInternalServerError, MsgInternal)
	}
}

// decodeObject reads a JSON object body. Numbers are kept as json.Number so
// integer attributes survive untouched.
func decodeObject(r *http.Request) (map[string]any, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil || attrs == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return attrs, true
}

func publicList(entities []models.Entity) []map[string]any {
	out := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		out = append(out, models.PublicMap(e))
	}
	return out
}
