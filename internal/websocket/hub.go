package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains active WebSocket connections and broadcasts plan/aggregation
// change events so concurrent browser tabs converge after last-writer-wins
// plan writes.
type Hub struct {
	// Registered clients (connection id -> Client)
	clients map[string]*Client

	// Inbound events to broadcast
	broadcast chan *Event

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Event is one project-scoped change notification.
type Event struct {
	ProjectID string
	Data      interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client connected: user %s (%d total)", client.UserID, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("🔴 [WEBSOCKET] Client disconnected: user %s (%d remaining)", client.UserID, h.ClientCount())

		case event := <-h.broadcast:
			data, err := json.Marshal(event.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal event: %v", err)
				continue
			}

			h.mu.Lock()
			for id, client := range h.clients {
				if !client.SubscribedTo(event.ProjectID) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, id)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyPlanUpdated tells every tab watching the project that the plan
// document changed and should be re-read.
func (h *Hub) NotifyPlanUpdated(projectID, documentID string) {
	data := map[string]interface{}{
		"type":       "plan_updated",
		"project_id": projectID,
	}
	if documentID != "" {
		data["document_id"] = documentID
	}
	h.broadcast <- &Event{ProjectID: projectID, Data: data}
}

// NotifyAggregationChanged tells watching tabs that forecast items changed
// and derived totals are stale.
func (h *Hub) NotifyAggregationChanged(projectID string) {
	h.broadcast <- &Event{
		ProjectID: projectID,
		Data: map[string]interface{}{
			"type":       "aggregation_changed",
			"project_id": projectID,
		},
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
