package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersClient interface {
	List(ctx context.Context) ([]orders.Order, error)
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	Cancel(ctx context.Context, orderID string) error
}

type OrdersHandler struct {
	ordersClient OrdersClient
	timeout      time.Duration
}

func NewOrdersHandler(client OrdersClient, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		ordersClient: client,
		timeout:      timeout,
	}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.ordersClient.List(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.ordersClient.Get(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	if err := h.ordersClient.Cancel(ctx, orderID); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "canceled", "order_id": orderID})
}
