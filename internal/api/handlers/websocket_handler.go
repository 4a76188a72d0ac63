package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/isdelr/hbnb-api/internal/models"
	ws "github.com/isdelr/hbnb-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP connections to change-event feeds.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. An empty origins list
// accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, origins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// topicOf validates a kind name from a client. Empty means every kind.
func topicOf(kind string) (string, bool) {
	if kind == "" {
		return ws.AllTopics, true
	}
	k, err := models.ParseKind(kind)
	if err != nil || k == models.KindBase {
		return "", false
	}
	return string(k), true
}

// Serve handles the WebSocket connection request. The optional kind query
// parameter narrows the feed to one entity kind.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	topic, ok := topicOf(r.URL.Query().Get("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid value for kind")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, topic)
	h.hub.Register <- client

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		client.WritePump()
	}()
	go func() {
		defer wg.Done()
		client.ReadPump(h.handleIncomingWSMessage)
	}()

	go func() {
		wg.Wait()
		h.hub.Unregister <- client
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, msg ws.Message) {
	switch msg.Action {
	case "subscribe":
		topic, ok := topicOf(msg.Kind)
		if !ok {
			client.Reply(ws.NewErrorMessage("Invalid value for kind"))
			return
		}
		client.Subscribe(topic)
	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.Reply(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}
