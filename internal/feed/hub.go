package feed

import "sync"

// Hub fans change events out to per-user subscribers. It implements the
// realtime subscription side of the collaborator boundary: the Kafka consumer
// publishes into the hub and every live session store subscribed for the owning
// user receives the event.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]func(ChangeEvent)
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{handlers: make(map[string]map[int]func(ChangeEvent))}
}

// Subscribe registers a handler for events owned by userID and returns an
// idempotent unsubscribe closure.
func (h *Hub) Subscribe(userID string, handler func(ChangeEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	byID, ok := h.handlers[userID]
	if !ok {
		byID = make(map[int]func(ChangeEvent))
		h.handlers[userID] = byID
	}
	byID[id] = handler

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if byID, ok := h.handlers[userID]; ok {
			delete(byID, id)
			if len(byID) == 0 {
				delete(h.handlers, userID)
			}
		}
	}
}

// Publish delivers the event to every handler subscribed for userID.
func (h *Hub) Publish(userID string, ev ChangeEvent) {
	h.mu.RLock()
	snapshot := make([]func(ChangeEvent), 0, len(h.handlers[userID]))
	for _, handler := range h.handlers[userID] {
		snapshot = append(snapshot, handler)
	}
	h.mu.RUnlock()

	for _, handler := range snapshot {
		handler(ev)
	}
}

// SubscriberCount reports the number of live handlers for userID.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[userID])
}
