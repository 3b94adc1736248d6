package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/cartstate/cart-service/internal/notify"
)

// NotificationFeed is satisfied by *notify.Feed.
type NotificationFeed interface {
	Recent() []notify.Notification
	Subscribe(buffer int) (<-chan notify.Notification, func())
}

type EventsHandler struct {
	cart      CartManager
	feed      NotificationFeed
	log       *slog.Logger
	keepAlive time.Duration
}

func NewEventsHandler(cart CartManager, feed NotificationFeed, log *slog.Logger) *EventsHandler {
	return &EventsHandler{
		cart:      cart,
		feed:      feed,
		log:       log,
		keepAlive: 15 * time.Second,
	}
}

func (h *EventsHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	recent := h.feed.Recent()
	if recent == nil {
		recent = []notify.Notification{}
	}
	respondJSON(w, http.StatusOK, recent)
}

// Stream writes server-sent events: "cart" with every published cart (the
// current one first) and "notification" for every failure reported while
// the client is connected.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response does not support streaming")
		return
	}

	carts, stopCarts := h.cart.Subscribe()
	defer stopCarts()
	notes, stopNotes := h.feed.Subscribe(8)
	defer stopNotes()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-carts:
			if !ok {
				return
			}
			err = writeEvent(w, "cart", newCartResponse(c, nil))
		case n, ok := <-notes:
			if !ok {
				return
			}
			err = writeEvent(w, "notification", n)
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": keep-alive\n\n")
		}
		if err != nil {
			h.log.DebugContext(r.Context(), "event stream closed", "err", err)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
