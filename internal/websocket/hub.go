package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a change notification pushed to connected clients. Clients
// re-fetch the affected view; the message carries identifiers, not data.
type Message struct {
	Type        string         `json:"type"`
	Entity      string         `json:"entity"`
	Action      string         `json:"action"`
	ID          string         `json:"id,omitempty"`
	HouseholdID string         `json:"household_id,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id, householdID string) Message {
	return Message{
		Type:        fmt.Sprintf("%s_%s", entity, action),
		Entity:      entity,
		Action:      action,
		ID:          id,
		HouseholdID: householdID,
	}
}

// Hub maintains the set of connected clients and routes messages to the
// household or user they concern. Cross-household leakage is prevented
// here as well as at the query layer: a client only ever receives messages
// for the household it subscribed with.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// BroadcastHousehold sends a message to every client watching householdID.
func (h *Hub) BroadcastHousehold(householdID string, msg Message) {
	h.broadcast(msg, func(c *Client) bool {
		return c.householdID == householdID
	})
}

// BroadcastUser sends a message to every connection the user has open,
// regardless of which household each is watching.
func (h *Hub) BroadcastUser(userID string, msg Message) {
	h.broadcast(msg, func(c *Client) bool {
		return c.userID == userID
	})
}

func (h *Hub) broadcast(msg Message, match func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
