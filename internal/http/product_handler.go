package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/internal/catalog"
	"github.com/fjod/go_cart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewProductHandler(catalog Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductResponse struct {
	ProductID   string        `json:"product_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Brand       string        `json:"brand"`
	Size        string        `json:"size"`
	SoldBy      string        `json:"sold_by"`
	Price       domain.Cents  `json:"price"`
	PromoPrice  *domain.Cents `json:"promo_price,omitempty"`
	Status      string        `json:"status,omitempty"`
	ImageURL    string        `json:"image_url"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func convertProduct(p catalog.Product) ProductResponse {
	line := p.Line()
	return ProductResponse{
		ProductID:   line.ProductID,
		Name:        line.Name,
		Description: line.Description,
		Brand:       line.Brand,
		Size:        line.Size,
		SoldBy:      line.SoldBy,
		Price:       line.UnitPrice,
		PromoPrice:  line.PromoPrice,
		Status:      line.Status,
		ImageURL:    p.FeaturedImage(),
	}
}

// GET /api/v1/products/search?query=
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	query := r.URL.Query().Get("query")
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}

	res, err := h.catalog.SearchProducts(ctx, query)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	products := make([]ProductResponse, len(res))
	for i, p := range res {
		products[i] = convertProduct(p)
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.FetchProduct(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProduct(*p))
}
