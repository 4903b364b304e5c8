package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zjrosen/symtab/internal/flags"
	"github.com/zjrosen/symtab/internal/log"
	"github.com/zjrosen/symtab/internal/pubsub"
	"github.com/zjrosen/symtab/internal/symtab"
)

// heartbeatInterval keeps idle SSE connections open through proxies.
var heartbeatInterval = 30 * time.Second

// StreamEvents streams registry lifecycle events via SSE.
// GET /events?name=<name>
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	broker := h.reg.Events()
	if !h.flags.Enabled(flags.FlagEventStream) || broker == nil {
		h.writeError(w, http.StatusNotFound, "feature_disabled", "Event stream is disabled", "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported", "")
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	name := r.URL.Query().Get("name")
	events := broker.SubscribeFunc(r.Context(), func(ev pubsub.Event[symtab.Event]) bool {
		return name == "" || ev.Payload.Name == name || ev.Payload.Target == name
	})

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Send initial connection event
	_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}

			data, err := json.Marshal(eventToResponse(ev))
			if err != nil {
				log.Error(log.CatAPI, "Failed to marshal event", "error", err)
				continue
			}

			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func eventToResponse(ev pubsub.Event[symtab.Event]) EventResponse {
	return EventResponse{
		Type:      string(ev.Type),
		Name:      ev.Payload.Name,
		Target:    ev.Payload.Target,
		DType:     ev.Payload.DType,
		Size:      ev.Payload.Size,
		Timestamp: ev.Timestamp,
	}
}
