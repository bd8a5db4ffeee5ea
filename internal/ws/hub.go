// Package ws pushes realtime events to connected users over websockets.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Event types pushed to clients.
const (
	EventMessageCreated = "message.created"
	EventMessagesRead   = "messages.read"
)

// Event is one frame sent to a client.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type userEvent struct {
	UserID uuid.UUID
	Event  Event
}

// Hub tracks open connections per user. A user may hold several connections
// (tabs, devices) and every one of them receives the user's events.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *userEvent
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.userID] == nil {
				h.rooms[client.userID] = make(map[*Client]bool)
			}
			h.rooms[client.userID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev.Event)
			if err != nil {
				log.Printf("ERROR: ws marshal %s: %v", ev.Event.Type, err)
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[ev.UserID] {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.userID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToUser queues event for every connection of userID. It never
// blocks the caller; events are dropped when the hub is saturated.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &userEvent{UserID: userID, Event: event}:
	default:
		log.Printf("ws: dropping %s for user %s, hub busy", event.Type, userID)
	}
}

// Notify marshals payload and sends it to userID as an event of type eventType.
func (h *Hub) Notify(userID uuid.UUID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: ws marshal %s payload: %v", eventType, err)
		return
	}
	h.BroadcastToUser(userID, Event{Type: eventType, Payload: data})
}

// Online reports whether userID has at least one open connection.
func (h *Hub) Online(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}
