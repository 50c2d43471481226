package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	BreakerState       func() string // reported on /health when set
}

func NewRouter(cfg RouterConfig, cart *CartHandler, products *ProductHandler, checkout *CheckoutHandler, orders *OrdersHandler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(BearerTokenMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "ok"}
		if cfg.BreakerState != nil {
			health["upstream"] = cfg.BreakerState()
		}
		respondJSON(w, http.StatusOK, health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/recipes", cart.AttachRecipe)
			r.Post("/products", cart.AddProduct)
			r.Route("/entries/{entry_id}", func(r chi.Router) {
				r.Delete("/", cart.RemoveEntry)
				r.Post("/toggle", cart.ToggleSelection)
				r.Patch("/lines/{product_id}", cart.UpdateQuantity)
				r.Delete("/lines/{product_id}", cart.RemoveLine)
			})
		})

		r.Post("/checkout", checkout.Checkout)
		r.Get("/checkout/status", checkout.Status)

		r.Get("/products/search", products.Search)
		r.Get("/products/{product_id}", products.Get)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Get("/{order_id}", orders.GetOrder)
			r.Post("/{order_id}/cancel", orders.CancelOrder)
		})
	})

	return r
}
