package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Kind    string `json:"kind,omitempty"`
	Payload any    `json:"payload"`
}

func encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("action", msg.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return data
}

// NewErrorMessage builds an error frame for a single client.
func NewErrorMessage(text string) []byte {
	return encode(Message{Action: "error", Payload: map[string]string{"error": text}})
}
