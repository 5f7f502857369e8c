package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles the session cart and checkout.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// View handles GET /api/cart.
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.View(r.Context(), middleware.SessionID(r.Context())))
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req model.AddToCartRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	view, err := h.service.AddItem(r.Context(), middleware.SessionID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// UpdateItem handles PUT /api/cart/items. A quantity of zero or less removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateCartItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "productId is required", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, h.service.UpdateItem(r.Context(), middleware.SessionID(r.Context()), &req))
}

// RemoveItem handles DELETE /api/cart/items?productId=&size=&color=.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := model.LineKey{
		ProductID: q.Get("productId"),
		Size:      q.Get("size"),
		Color:     q.Get("color"),
	}
	if key.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "productId is required", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, h.service.RemoveItem(r.Context(), middleware.SessionID(r.Context()), key))
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.service.Clear(r.Context(), middleware.SessionID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/checkout. Guests check out without X-User-ID.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	ctx := r.Context()
	result, err := h.service.Checkout(ctx, middleware.SessionID(ctx), middleware.UserID(ctx), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
