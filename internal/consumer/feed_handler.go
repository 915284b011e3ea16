package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Mehdi-code-93/fitrun/internal/events"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
	"github.com/Mehdi-code-93/fitrun/internal/observability"
)

// FeedHandler translates training change events into the in-process feed hub,
// fanning them out to live subscribers.
type FeedHandler struct {
	hub    *feed.Hub
	logger *log.Logger
}

// NewFeedHandler constructs a handler publishing to the given hub.
func NewFeedHandler(hub *feed.Hub, logger *log.Logger) *FeedHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[feed] ", log.LstdFlags)
	}
	return &FeedHandler{hub: hub, logger: logger}
}

// Handle decodes a training change payload and publishes it to the hub.
// Unrecognized change type tags are counted and logged, never retried.
func (h *FeedHandler) Handle(_ context.Context, msg Message) error {
	if msg.EventType != events.TypeTrainingChanged {
		h.logger.Printf("ignoring event_type=%s", msg.EventType)
		return nil
	}

	var changed events.TrainingChanged
	if err := json.Unmarshal(msg.Payload, &changed); err != nil {
		return fmt.Errorf("decode training change: %w", err)
	}

	ev, ok := changed.ToChangeEvent()
	if !ok {
		observability.RecordUnknownChange()
		h.logger.Printf("unknown change type %q (user=%s)", changed.ChangeType, changed.UserID)
		return nil
	}

	h.hub.Publish(changed.UserID, ev)
	return nil
}
