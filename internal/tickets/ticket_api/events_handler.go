package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-invites/internal/sse"
)

// StreamEvents handles GET /api/tickets/events, streaming issued and purged
// events as server-sent events until the client disconnects.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// the server write timeout would otherwise cut the stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	events := h.Events.Subscribe(ctx)

	stats, err := h.TicketService.GetStats(ctx)
	if err == nil {
		writeEvent(w, sse.Event{Name: "stats", Data: stats})
	} else {
		h.Logger.Warn("SSE", fmt.Sprintf("initial stats unavailable: %v", err))
		fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	}
	flusher.Flush()
	h.Logger.Info("SSE", "Client connected to ticket events")

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize %s event: %v", ev.Name, err))
				continue
			}
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", "Client disconnected from ticket events")
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev sse.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}
