package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjod/cartstate/inventory-service/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type StockHandler struct {
	store store.InventoryStore
	log   *slog.Logger
}

func NewStockHandler(s store.InventoryStore, log *slog.Logger) *StockHandler {
	return &StockHandler{store: s, log: log}
}

type SetStockRequestDTO struct {
	Amount *int `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewRouter serves GET /stock, GET /stock/{id} and PUT /stock/{id}.
func NewRouter(s store.InventoryStore, log *slog.Logger) http.Handler {
	h := NewStockHandler(s, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/stock", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.GetStock)
		r.Put("/{id}", h.SetStock)
	})

	return otelhttp.NewHandler(r, "inventory")
}

func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.List())
}

func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	stock, err := h.store.GetStock(id)
	if errors.Is(err, store.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "no stock entry for product")
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "get stock", "product_id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, stock)
}

func (h *StockHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req SetStockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must be {\"amount\": n}")
		return
	}

	if err := h.store.SetStock(id, *req.Amount); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	}
	h.log.InfoContext(r.Context(), "stock updated", "product_id", id, "amount", *req.Amount)

	stock, _ := h.store.GetStock(id)
	respondJSON(w, http.StatusOK, stock)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
