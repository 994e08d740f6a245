package feed

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/tvitter-go/logging"
)

const keepAliveInterval = 25 * time.Second

type Handlers struct {
	broadcaster *Broadcaster
	log         logging.Logger
	keepAlive   time.Duration
}

func NewHandlers(broadcaster *Broadcaster, log logging.Logger) *Handlers {
	return &Handlers{broadcaster: broadcaster, log: log, keepAlive: keepAliveInterval}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.HandleEvents())
}

// HandleEvents streams new tvits until the client goes away.
func (h *Handlers) HandleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		id, events := h.broadcaster.Subscribe()
		defer h.broadcaster.Unsubscribe(id)

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				if _, err := event.WriteTo(w); err != nil {
					h.log.Debug(ctx, "feed client write failed", "subscriber_id", id, "error", err)
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
