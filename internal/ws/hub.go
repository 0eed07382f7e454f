package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kiwari-pos/tablepos/internal/logger"
)

// Event types pushed to clients.
const (
	EventTicketFired    = "ticket.fired"
	EventTableUpdated   = "table.updated"
	EventTableMoved     = "table.transferred"
	EventInvoiceCreated = "invoice.created"
	EventNotice         = "notice"
	EventSettled        = "settlement"
	EventCart           = "cart.updated"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// roomEvent routes an event to one room
type roomEvent struct {
	Room  string
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Rooms are keyed by POS profile on the data service and by terminal on
// the console.
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	log *logger.Logger

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance. log may be nil.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		log:        log,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error(ctx, "marshal websocket event", err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Room] {
				select {
				case client.send <- message:
				default:
					// Slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client from its room and closes its send channel.
// Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Broadcast sends an event to every client in room.
func (h *Hub) Broadcast(room string, event Event) {
	select {
	case h.broadcast <- &roomEvent{Room: room, Event: event}:
	case <-h.done:
	}
}

// Publish marshals payload and broadcasts it. Marshal failures are logged.
func (h *Hub) Publish(ctx context.Context, room, eventType string, payload any) {
	if h == nil {
		return
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		h.log.Error(ctx, "build websocket event", err)
		return
	}
	h.Broadcast(room, event)
}

// ClientCount reports the number of clients in room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
