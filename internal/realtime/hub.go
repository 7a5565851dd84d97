package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pmonetwork/pmo-network/internal/auth"
)

// DefaultHeartbeat keeps idle SSE connections open through proxies.
const DefaultHeartbeat = 25 * time.Second

// Hub serves broker events to browsers as Server-Sent Events.
type Hub struct {
	broker    Broker
	heartbeat time.Duration
	clients   atomic.Int64
}

// NewHub creates a hub. A non-positive heartbeat uses DefaultHeartbeat.
func NewHub(broker Broker, heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Hub{broker: broker, heartbeat: heartbeat}
}

// Broker is the broker the hub reads from.
func (h *Hub) Broker() Broker { return h.broker }

// Clients is the number of open SSE connections on this instance.
func (h *Hub) Clients() int64 { return h.clients.Load() }

// HandleSSE streams the authenticated user's events until the client
// disconnects.
func (h *Hub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx := r.Context()
	events, cancel := h.broker.Subscribe(ctx, claims.UserID())
	defer cancel()

	h.clients.Add(1)
	defer h.clients.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				rlog.Error("encode event", "event_id", e.ID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
