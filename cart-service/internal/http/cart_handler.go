package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/cartstate/cart-service/internal/domain"
	"github.com/fjod/cartstate/cart-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// CartManager is the part of service.CartService the bridge drives.
type CartManager interface {
	Cart() domain.Cart
	Subscribe() (<-chan domain.Cart, func())
	AddProduct(ctx context.Context, productID int64) (domain.Cart, error)
	RemoveProduct(ctx context.Context, productID int64) (domain.Cart, error)
	UpdateProductAmount(ctx context.Context, upd domain.AmountUpdate) (domain.Cart, error)
}

type CartHandler struct {
	cart    CartManager
	timeout time.Duration
}

func NewCartHandler(cart CartManager, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateAmountRequestDTO struct {
	Amount *int `json:"amount"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CartResponse always carries the current cart. Error is set when the
// operation was rejected; the cart is then the unchanged one.
type CartResponse struct {
	Items      domain.Cart    `json:"items"`
	TotalItems int            `json:"total_items"`
	Subtotal   float64        `json:"subtotal"`
	Error      *ErrorResponse `json:"error,omitempty"`
}

func newCartResponse(c domain.Cart, err error) CartResponse {
	if c == nil {
		c = domain.Cart{}
	}
	resp := CartResponse{
		Items:      c,
		TotalItems: c.TotalItems(),
		Subtotal:   c.Subtotal(),
	}
	if err != nil {
		resp.Error = &ErrorResponse{Error: err.Error(), Code: errorCode(err)}
	}
	return resp
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Cart(), nil))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	cart, err := h.cart.AddProduct(ctx, req.ProductID)
	respondJSON(w, http.StatusOK, newCartResponse(cart, err))
}

func (h *CartHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateAmountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount is required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	// non-positive amounts reach the manager, which ignores them
	cart, err := h.cart.UpdateProductAmount(ctx, domain.AmountUpdate{ProductID: productID, Amount: *req.Amount})
	respondJSON(w, http.StatusOK, newCartResponse(cart, err))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	cart, err := h.cart.RemoveProduct(ctx, productID)
	respondJSON(w, http.StatusOK, newCartResponse(cart, err))
}

func (h *CartHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, service.ErrStockLookup):
		return "stock_not_found"
	case errors.Is(err, service.ErrProductLookup):
		return "product_not_found"
	case errors.Is(err, service.ErrProductNotFound):
		return "not_in_cart"
	case errors.Is(err, service.ErrTransport):
		return "unavailable"
	default:
		return "internal_error"
	}
}
