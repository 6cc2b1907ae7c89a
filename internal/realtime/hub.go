package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// Event names pushed to admin dashboards.
const (
	EventCampaignProgress     = "campaign_progress"
	EventCampaignCompleted    = "campaign_completed"
	EventRegistrationsUpdated = "registrations_updated"
)

// Hub maintains hackathon_id -> set of admin connections and broadcasts progress.
type Hub struct {
	rooms  map[uuid.UUID]map[string]*Client
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		logger: logger,
	}
}

// Register adds a client to a hackathon room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.HackathonID] == nil {
		h.rooms[c.HackathonID] = make(map[string]*Client)
	}
	h.rooms[c.HackathonID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("admin subscribed", zap.String("client_id", c.ID), zap.String("hackathon_id", c.HackathonID.String()))
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.HackathonID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.HackathonID)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("admin unsubscribed", zap.String("client_id", c.ID), zap.String("hackathon_id", c.HackathonID.String()))
}

// Broadcast sends an event to every client watching hackathonID.
// Slow clients whose buffer is full miss the event.
func (h *Hub) Broadcast(hackathonID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal broadcast payload", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[hackathonID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Subscribers returns the number of clients watching hackathonID.
func (h *Hub) Subscribers(hackathonID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[hackathonID])
}
