package services

import (
	"sync"

	"foodlink/internal/core/domain"

	"go.uber.org/zap"
)

// ============================================================
// SSE Hub: live lifecycle events for browsers
// ============================================================

// EventClient represents a connected SSE client.
// UserID 0 subscribes to the public availability feed.
type EventClient struct {
	ID      string
	UserID  uint
	Channel chan domain.Event
}

// EventHub manages all SSE connections
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*EventClient
	log     *zap.Logger
}

// NewEventHub creates a new SSE hub
func NewEventHub(log *zap.Logger) *EventHub {
	return &EventHub{
		clients: make(map[string]*EventClient),
		log:     log,
	}
}

// Register adds a new SSE client
func (h *EventHub) Register(client *EventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.log.Debug("sse client registered",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID),
		zap.Int("total", len(h.clients)))
}

// Unregister removes an SSE client
func (h *EventHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Channel)
		delete(h.clients, clientID)
		h.log.Debug("sse client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)))
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers event to the donor and NGO involved, and to public
// subscribers when it changes what can be claimed
func (h *EventHub) Publish(event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	public := affectsAvailability(event.Type)
	for _, client := range h.clients {
		var wanted bool
		if client.UserID == 0 {
			wanted = public
		} else {
			wanted = client.UserID == event.DonorID || (event.NGOID != 0 && client.UserID == event.NGOID)
		}
		if !wanted {
			continue
		}

		select {
		case client.Channel <- event:
		default:
			// Client channel full, skip
			h.log.Warn("sse channel full, dropping event",
				zap.String("client_id", client.ID),
				zap.String("event", string(event.Type)))
		}
	}
}

func affectsAvailability(t domain.EventType) bool {
	switch t {
	case domain.EventDonationCreated, domain.EventDonationClaimed,
		domain.EventDonationExpired, domain.EventClaimCancelled:
		return true
	}
	return false
}
