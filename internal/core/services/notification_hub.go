package services

import (
	"log"
	"sync"

	"stockvel-tracker/internal/adapters/persistence/models"
)

// hubClientBuffer is how many events a slow client may fall behind before drops
const hubClientBuffer = 32

// HubEvent is one server-sent event
type HubEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// HubClient is one open event stream
type HubClient struct {
	ID       string
	MemberID uint
	Channel  chan HubEvent
}

// NotificationHub fans stored notifications out to members' open streams
type NotificationHub struct {
	mu      sync.RWMutex
	clients map[string]*HubClient
}

// NewNotificationHub creates an empty hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{clients: make(map[string]*HubClient)}
}

// Subscribe opens a stream for a member
func (h *NotificationHub) Subscribe(id string, memberID uint) *HubClient {
	client := &HubClient{ID: id, MemberID: memberID, Channel: make(chan HubEvent, hubClientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = client
	log.Printf("📡 Stream opened: %s (member=%d) | total=%d", id, memberID, len(h.clients))
	return client
}

// Unsubscribe closes a stream. Unknown IDs are ignored.
func (h *NotificationHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[id]; ok {
		close(client.Channel)
		delete(h.clients, id)
		log.Printf("📡 Stream closed: %s | total=%d", id, len(h.clients))
	}
}

// Publish sends a notification to every stream of its member without blocking
func (h *NotificationHub) Publish(n *models.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.MemberID != n.MemberID {
			continue
		}
		select {
		case client.Channel <- HubEvent{Event: "notification", Data: n}:
			sent++
		default:
			log.Printf("⚠️ Stream %s is full, dropping %s notification", client.ID, n.Type)
		}
	}
	return sent
}

// ClientCount returns the number of open streams
func (h *NotificationHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
