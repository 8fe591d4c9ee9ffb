package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MissChina/ai-chat/bus"
)

// eventBacklog bounds how many bus events may pile up for a slow SSE client
// before further events are dropped for that client. Dropping keeps the
// engine's synchronous emit path from ever blocking on the network.
const eventBacklog = 64

// handleEvents streams a session's events over Server-Sent Events. The
// subscription is installed before the snapshot read, so no event emitted
// after the snapshot can be missed; the snapshot itself is delivered first
// as a synthetic state event, compensating for the bus's no-replay contract.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	sessionID := r.PathValue("id")

	events := make(chan bus.Event, eventBacklog)
	unsubscribe := s.engine.Bus().Subscribe(sessionID, func(ev bus.Event) {
		select {
		case events <- ev:
		default:
			s.logger.Warn("dropping event for slow subscriber",
				"session_id", sessionID, "kind", string(ev.Kind))
		}
	})
	defer unsubscribe()

	snapshot, err := s.engine.Session(sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, bus.Event{Kind: bus.KindState, SessionID: sessionID, Session: snapshot})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev bus.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
}
