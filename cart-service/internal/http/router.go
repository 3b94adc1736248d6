package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Cart           CartManager
	Feed           NotificationFeed
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wires the cart routes the UI drives.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	cartHandler := NewCartHandler(cfg.Cart, cfg.RequestTimeout)
	eventsHandler := NewEventsHandler(cfg.Cart, cfg.Feed, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.RequestSize(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", cartHandler.GetCart)
		r.Get("/events", eventsHandler.Stream)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{product_id}", cartHandler.UpdateAmount)
		r.Delete("/items/{product_id}", cartHandler.RemoveItem)
	})
	r.Get("/notifications", eventsHandler.Notifications)

	return otelhttp.NewHandler(r, "cart-ui",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
