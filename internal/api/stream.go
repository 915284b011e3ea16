package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Mehdi-code-93/fitrun/internal/auth"
	"github.com/Mehdi-code-93/fitrun/internal/events"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
)

const streamHeartbeatInterval = 25 * time.Second

// StreamHandler pushes training change events to clients over Server-Sent
// Events. Each connection subscribes to the hub under the caller's user id.
type StreamHandler struct {
	hub *feed.Hub
}

// NewStreamHandler builds a StreamHandler.
func NewStreamHandler(hub *feed.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// RegisterRoutes wires the stream endpoint to the mux.
func (s *StreamHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/stream", s.stream)
}

func (s *StreamHandler) stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Buffered so a slow client never blocks the hub's publish path.
	changes := make(chan feed.ChangeEvent, 16)
	unsubscribe := s.hub.Subscribe(claims.UserID, func(ev feed.ChangeEvent) {
		select {
		case changes <- ev:
		default:
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-changes:
			payload, err := json.Marshal(toStreamEvent(claims.UserID, ev))
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: training.changed\ndata: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func toStreamEvent(userID string, ev feed.ChangeEvent) events.TrainingChanged {
	changed := events.TrainingChanged{
		ChangeType: string(ev.Type),
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	if ev.New != nil {
		row := events.FromRecord(*ev.New)
		changed.New = &row
	}
	if ev.Old != nil {
		row := events.FromRecord(*ev.Old)
		changed.Old = &row
	}
	return changed
}
