package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/internal/checkout"
	"github.com/fjod/go_cart/internal/domain"
)

type CheckoutCoordinator interface {
	Checkout(ctx context.Context, req checkout.Request) (*domain.Confirmation, error)
	Status() checkout.Status
}

type CheckoutHandler struct {
	coordinator CheckoutCoordinator
}

func NewCheckoutHandler(coordinator CheckoutCoordinator) *CheckoutHandler {
	return &CheckoutHandler{coordinator: coordinator}
}

type CheckoutRequestDTO struct {
	ShippingInfo json.RawMessage `json:"shipping_info"`
	PaymentInfo  json.RawMessage `json:"payment_info"`
}

// POST /api/v1/checkout
//
// The request context is passed through without an extra timeout: a client that
// disconnects mid-checkout cancels it, and the backend response is then ignored.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	conf, err := h.coordinator.Checkout(r.Context(), checkout.Request{
		Shipping: req.ShippingInfo,
		Payment:  req.PaymentInfo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, conf)
}

// GET /api/v1/checkout/status
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coordinator.Status())
}
