// Package websocket pushes encounter lifecycle events to connected clients.
// Clients subscribe to "encounter:<id>" topics, or to "*" for every event.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/platform/auth"
	"github.com/ehr/encounter/internal/platform/events"
)

// AllTopics receives every event.
const AllTopics = "*"

// ClientMessage represents an inbound message from a WebSocket client.
type ClientMessage struct {
	Action string   `json:"action"` // subscribe | unsubscribe
	Topics []string `json:"topics"`
}

// Client represents a single WebSocket connection.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

func NewClient(topics ...string) *Client {
	return &Client{ID: uuid.NewString(), Topics: topics, Send: make(chan []byte, 256)}
}

// Hub tracks clients and their topic subscriptions. It implements
// events.Publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		h.add(topic, client)
	}
}

func (h *Hub) add(topic string, client *Client) {
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) remove(topic string, client *Client) {
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		h.remove(topic, client)
	}
	delete(h.all, client)
	close(client.Send)
}

// ProcessMessage applies a subscribe or unsubscribe request.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	switch msg.Action {
	case "subscribe":
		if narrows(client.Topics, msg.Topics) {
			h.remove(AllTopics, client)
			client.Topics = nil
		}
		for _, topic := range msg.Topics {
			h.add(topic, client)
		}
		client.Topics = append(client.Topics, msg.Topics...)
	case "unsubscribe":
		drop := make(map[string]bool, len(msg.Topics))
		for _, topic := range msg.Topics {
			drop[topic] = true
			h.remove(topic, client)
		}
		remaining := client.Topics[:0]
		for _, t := range client.Topics {
			if !drop[t] {
				remaining = append(remaining, t)
			}
		}
		client.Topics = remaining
	}
}

// narrows reports whether a subscription replaces the default feed: a client
// that only follows AllTopics and asks for specific topics stops receiving
// everything else.
func narrows(current, requested []string) bool {
	if len(current) != 1 || current[0] != AllTopics || len(requested) == 0 {
		return false
	}
	for _, t := range requested {
		if t == AllTopics {
			return false
		}
	}
	return true
}

// message is what clients receive.
type message struct {
	Type      string    `json:"type"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Publish sends the event to subscribers of its topic and of AllTopics.
// Slow clients whose buffer is full miss the event.
func (h *Hub) Publish(_ context.Context, eventType string, data any) error {
	topic := AllTopics
	if t, ok := data.(interface{ Topic() string }); ok {
		topic = t.Topic()
	}
	payload, err := json.Marshal(message{Type: eventType, Topic: topic, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := map[*Client]bool{}
	for _, t := range []string{topic, AllTopics} {
		for client := range h.clients[t] {
			if seen[client] {
				continue
			}
			seen[client] = true
			select {
			case client.Send <- payload:
			default:
				h.logger.Warn().Str("client_id", client.ID).Str("event", eventType).Msg("websocket client buffer full")
			}
		}
	}
	return nil
}

var _ events.Publisher = (*Hub)(nil)

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a specific topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Handler upgrades HTTP connections and pumps messages.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler accepts connections from the given origins. An empty list or
// "*" accepts any origin.
func NewHandler(hub *Hub, origins []string) *Handler {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/events/ws", h.Connect, auth.RequireRole(auth.ReadRoles...))
}

// Connect upgrades the request. ?topic= may be repeated to subscribe up front;
// without it the client receives every event.
func (h *Handler) Connect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	topics := c.QueryParams()["topic"]
	if len(topics) == 0 {
		topics = []string{AllTopics}
	}
	client := NewClient(topics...)
	h.hub.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		h.hub.ProcessMessage(client, msg)
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for data := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, data); err != nil {
			return
		}
	}
}
