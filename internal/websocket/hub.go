package websocket

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/config"
)

var log = config.GetLogger().WithField("module", "websocket")

// Hub maintains the set of active clients and routes messages to users
type Hub struct {
	// Registered clients: UserID -> open connections
	clients map[string]map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]bool),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			log.WithField("userId", client.UserID).Info("📱 User connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok && conns[client] {
				delete(conns, client)
				close(client.send)
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
				log.WithField("userId", client.UserID).Info("📴 User disconnected")
			}
			h.mu.Unlock()
		}
	}
}

// IsOnline reports whether userID has at least one open connection
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUser sends a message to every connection of a user and reports
// whether at least one accepted it
func (h *Hub) SendToUser(userID string, message interface{}) bool {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.WithFields(logrus.Fields{"userId": userID}).Errorf("Error marshaling message: %v", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for client := range h.clients[userID] {
		select {
		case client.send <- jsonMsg:
			delivered = true
		default:
			// Buffer full or client dead
		}
	}
	return delivered
}
