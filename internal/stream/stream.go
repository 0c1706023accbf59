// Package stream fans posted messages out to live websocket subscribers.
// Delivery is per-process and best-effort; durable history always comes
// from the room's message log, not from here.
package stream

import (
	"encoding/json"
	"sync"
)

// Subscriber receives encoded messages for one room.
type Subscriber interface {
	Send(data []byte)
}

// Hub tracks live subscribers per room id.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Subscriber]bool)}
}

// Subscribe registers s for messages posted to roomID.
func (h *Hub) Subscribe(roomID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[Subscriber]bool)
		h.rooms[roomID] = subs
	}
	subs[s] = true
}

// Unsubscribe removes s from roomID, dropping the room entry when it
// was the last subscriber.
func (h *Hub) Unsubscribe(roomID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
}

// Publish encodes v once and sends it to every subscriber of roomID.
func (h *Hub) Publish(roomID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[roomID] {
		s.Send(data)
	}
}

// SubscriberCount returns the number of live subscribers for roomID.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
