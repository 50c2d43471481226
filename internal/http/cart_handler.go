package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/internal/catalog"
	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/pricing"
	"github.com/fjod/go_cart/internal/service"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	AttachRecipeEntry(ctx context.Context, req service.AttachRecipeRequest) (*domain.Snapshot, error)
	MergeStandaloneProduct(ctx context.Context, req service.ProductRequest) (*domain.Snapshot, error)
	SetLineQuantity(ctx context.Context, entryID, productID string, delta int) (*domain.Snapshot, error)
	RemoveLine(ctx context.Context, entryID, productID string) (*domain.Snapshot, error)
	ToggleEntrySelection(ctx context.Context, entryID string) (*domain.Snapshot, error)
	RemoveEntry(ctx context.Context, entryID string) (*domain.Snapshot, error)
	ClearCart(ctx context.Context) (*domain.Snapshot, error)
}

type Catalog interface {
	FetchRecipe(ctx context.Context, recipeID string) (*catalog.Recipe, error)
	FetchProduct(ctx context.Context, productID string) (*catalog.Product, error)
	SearchProducts(ctx context.Context, query string) ([]catalog.Product, error)
}

type CartHandler struct {
	cart    CartService
	catalog Catalog
	timeout time.Duration
}

func NewCartHandler(cart CartService, catalog Catalog, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		catalog: catalog,
		timeout: timeout,
	}
}

type AttachRecipeRequestDTO struct {
	RecipeID string `json:"recipe_id"`
}

type AddProductRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CartLineDTO struct {
	domain.IngredientLine
	Quantity  int          `json:"quantity"`
	LineTotal domain.Cents `json:"line_total"`
}

type CartEntryDTO struct {
	EntryID  string        `json:"entry_id"`
	Title    string        `json:"title"`
	Image    string        `json:"image"`
	Selected bool          `json:"selected"`
	Lines    []CartLineDTO `json:"lines"`
	Total    domain.Cents  `json:"total"`
}

type CartResponseDTO struct {
	Entries       []CartEntryDTO `json:"entries"`
	SelectedCount int            `json:"selected_count"`
	CartTotal     domain.Cents   `json:"cart_total"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

func convertSnapshot(snap *domain.Snapshot) CartResponseDTO {
	summary := pricing.Summarize(snap)
	resp := CartResponseDTO{
		Entries:       make([]CartEntryDTO, 0, len(snap.Entries)),
		SelectedCount: summary.SelectedCount,
		CartTotal:     summary.CartTotal,
	}
	if !snap.UpdatedAt.IsZero() {
		ts := snap.UpdatedAt
		resp.UpdatedAt = &ts
	}

	for _, e := range snap.Entries {
		entry := CartEntryDTO{
			EntryID:  e.EntryID,
			Title:    e.Title,
			Image:    e.Image,
			Selected: e.Selected,
			Lines:    make([]CartLineDTO, 0, len(e.Lines)),
			Total:    pricing.EntryTotal(e),
		}
		for _, line := range e.Lines {
			qty := e.Quantity(line.ProductID)
			entry.Lines = append(entry.Lines, CartLineDTO{
				IngredientLine: line,
				Quantity:       qty,
				LineTotal:      pricing.LineTotal(line, qty),
			})
		}
		resp.Entries = append(resp.Entries, entry)
	}
	return resp
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.cart.Snapshot(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSnapshot(snap))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.cart.ClearCart(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSnapshot(snap))
}

// POST /api/v1/cart/recipes
func (h *CartHandler) AttachRecipe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AttachRecipeRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.RecipeID) == "" {
		respondError(w, http.StatusBadRequest, "missing_recipe_id", "recipe_id is required")
		return
	}

	recipe, err := h.catalog.FetchRecipe(ctx, req.RecipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	snap, err := h.cart.AttachRecipeEntry(ctx, catalog.AttachRequest(recipe))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertSnapshot(snap))
}

// POST /api/v1/cart/products
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddProductRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "missing_product_id", "product_id is required")
		return
	}

	product, err := h.catalog.FetchProduct(ctx, req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	snap, err := h.cart.MergeStandaloneProduct(ctx, catalog.MergeRequest(product))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertSnapshot(snap))
}

// PATCH /api/v1/cart/entries/{entry_id}/lines/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entryID, productID := chi.URLParam(r, "entry_id"), chi.URLParam(r, "product_id")
	if entryID == "" || productID == "" {
		respondError(w, http.StatusBadRequest, "missing_path_param", "entry_id and product_id are required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "invalid_delta", "delta must not be zero")
		return
	}

	snap, err := h.cart.SetLineQuantity(ctx, entryID, productID, req.Delta)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSnapshot(snap))
}

// DELETE /api/v1/cart/entries/{entry_id}/lines/{product_id}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.cart.RemoveLine(ctx, chi.URLParam(r, "entry_id"), chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSnapshot(snap))
}

// POST /api/v1/cart/entries/{entry_id}/toggle
func (h *CartHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.cart.ToggleEntrySelection(ctx, chi.URLParam(r, "entry_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSnapshot(snap))
}

// DELETE /api/v1/cart/entries/{entry_id}
func (h *CartHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.cart.RemoveEntry(ctx, chi.URLParam(r, "entry_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSnapshot(snap))
}
