package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/events"
)

// Hub fans events out to connections. Rooms are client-driven: a
// connection only receives a conversation's events after an explicit
// join, regardless of store-level membership. Publishing to an empty
// room is a no-op; there is no queue or retry.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client             // connID -> client
	rooms    map[string]map[string]struct{} // roomID -> set of connIDs
	presence PresenceRegistry
	mirror   *events.Publisher
	log      *zap.SugaredLogger
}

func NewHub(presence PresenceRegistry, mirror *events.Publisher, log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]struct{}),
		presence: presence,
		mirror:   mirror,
		log:      log,
	}
}

// Register adds an authenticated connection. The user goes online the
// moment their connection set becomes non-empty.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	if h.presence.Add(c.User.ID, c.ID) {
		h.BroadcastAll(EvUserOnline, PresencePayload{UserID: c.User.ID, Name: c.User.Name})
	}
}

// Unregister drops the connection and all its room memberships; no
// drain period. Emits user:offline only when the last connection of
// the user closed.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	for room, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	if h.presence.Remove(c.User.ID, c.ID) {
		h.BroadcastAll(EvUserOffline, PresencePayload{UserID: c.User.ID})
	}
}

func (h *Hub) Join(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]struct{})
	}
	h.rooms[roomID][connID] = struct{}{}
}

func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Publish fans an event out to every connection in the room and
// mirrors it to Kafka.
func (h *Hub) Publish(roomID, event string, payload any) {
	h.publish(roomID, "", event, payload)
}

// PublishExcept is Publish minus one connection; used for typing
// relays so the sender does not echo to itself.
func (h *Hub) PublishExcept(roomID, exceptConnID, event string, payload any) {
	h.publish(roomID, exceptConnID, event, payload)
}

func (h *Hub) publish(roomID, exceptConnID, event string, payload any) {
	b, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.log.Warnw("marshal envelope", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	members := h.rooms[roomID]
	targets := make([]*Client, 0, len(members))
	for connID := range members {
		if connID == exceptConnID {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(b)
	}
	h.mirror.Publish(context.Background(), roomID, event, payload)
}

// BroadcastAll sends to every open connection; used only for global
// presence transitions.
func (h *Hub) BroadcastAll(event string, payload any) {
	b, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.log.Warnw("marshal envelope", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(b)
	}
	h.mirror.Publish(context.Background(), "presence", event, payload)
}
