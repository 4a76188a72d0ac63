package websocket

import "github.com/rs/zerolog/log"

// AllTopics subscribes a client to every entity event.
const AllTopics = ""

type envelope struct {
	topic string
	data  []byte
}

type subscription struct {
	client *Client
	topic  string
}

// Hub maintains the set of active clients and fans entity change events out
// to them. All of its maps are owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of topics (entity kinds) to the clients subscribed to them.
	subscriptions map[string]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	publish   chan envelope
	subscribe chan subscription
	done      chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		publish:       make(chan envelope, 256),
		subscribe:     make(chan subscription),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.Topic)
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			h.removeSubscription(sub.client)
			sub.client.Topic = sub.topic
			h.addSubscription(sub.client, sub.topic)
			h.deliver(sub.client, encode(Message{Action: "subscribed", Kind: sub.topic}))
		case env := <-h.publish:
			for client := range h.subscriptions[env.topic] {
				h.deliver(client, env.data)
			}
			if env.topic != AllTopics {
				for client := range h.subscriptions[AllTopics] {
					h.deliver(client, env.data)
				}
			}
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues an event for the subscribers of topic and of AllTopics.
func (h *Hub) Publish(topic, action string, payload any) {
	data := encode(Message{Action: action, Kind: topic, Payload: payload})
	if data == nil {
		return
	}
	select {
	case h.publish <- envelope{topic: topic, data: data}:
	case <-h.done:
	default:
		log.Warn().Str("action", action).Msg("Websocket hub backlog full, dropping event")
	}
}

// deliver sends without blocking; a client that cannot keep up is dropped.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for topic, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
}
