package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Topic is the entity kind the client follows, AllTopics for everything.
	Topic string

	// Buffered channel of outbound messages.
	Send chan []byte
}

// NewClient creates a client following topic.
func NewClient(hub *Hub, conn *websocket.Conn, topic string) *Client {
	return &Client{hub: hub, conn: conn, Topic: topic, Send: make(chan []byte, 256)}
}

// Subscribe asks the hub to switch the client to topic. The hub confirms
// with a "subscribed" message.
func (c *Client) Subscribe(topic string) {
	select {
	case c.hub.subscribe <- subscription{client: c, topic: topic}:
	case <-c.hub.done:
	}
}

// ReadPump pumps messages from the websocket connection to handle until the
// connection fails.
func (c *Client) ReadPump(handle func(*Client, Message)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Websocket read failed")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.trySend(NewErrorMessage("Not a JSON"))
			continue
		}
		handle(c, msg)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend is for replies produced outside the hub. Send may already be
// closed by the hub, so the attempt must not panic.
func (c *Client) trySend(data []byte) {
	defer func() { recover() }()
	select {
	case c.Send <- data:
	default:
	}
}

// Reply queues a direct message to this client only.
func (c *Client) Reply(data []byte) {
	c.trySend(data)
}
