package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/internal/catalog"
	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/repository"
	"github.com/fjod/go_cart/internal/service"
	"github.com/fjod/go_cart/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock ---

type CatalogMock struct {
	m        sync.RWMutex
	recipes  map[string]*catalog.Recipe
	products map[string]*catalog.Product
	err      error
	fetches  int
}

func (c *CatalogMock) FetchRecipe(_ context.Context, id string) (*catalog.Recipe, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.fetches++
	if c.err != nil {
		return nil, c.err
	}
	r, ok := c.recipes[id]
	if !ok {
		return nil, domain.NewUpstreamError(http.StatusNotFound, "Recipe not found")
	}
	return r, nil
}

func (c *CatalogMock) FetchProduct(_ context.Context, id string) (*catalog.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.fetches++
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, domain.NewUpstreamError(http.StatusNotFound, "Product not found")
	}
	return p, nil
}

func (c *CatalogMock) SearchProducts(_ context.Context, _ string) ([]catalog.Product, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make([]catalog.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	return out, nil
}

// --- helpers ---

func price(c domain.Cents) *domain.Cents { return &c }

func testCatalog() *CatalogMock {
	return &CatalogMock{
		recipes: map[string]*catalog.Recipe{
			"716429": {
				ID: "716429", Title: "Pasta", Image: "pasta.jpg",
				KrogerIngredients: []catalog.Product{
					{ProductID: "A", Description: "Spaghetti", Items: []catalog.KrogerItem{{Price: catalog.KrogerPrice{Regular: price(250)}}}},
					{ProductID: "B", Description: "Garlic", Items: []catalog.KrogerItem{{Price: catalog.KrogerPrice{Regular: price(100)}}}},
				},
			},
		},
		products: map[string]*catalog.Product{
			"M1": {ProductID: "M1", Description: "Milk", Items: []catalog.KrogerItem{{Price: catalog.KrogerPrice{Regular: price(349)}}}},
		},
	}
}

func newTestCartHandler(t *testing.T) (*CartHandler, *service.CartService, *CatalogMock) {
	t.Helper()
	repo := repository.NewSnapshotRepository(store.NewMemoryStore(), "cartRecipes", zap.NewNop())
	svc := service.NewCartService(repo, zap.NewNop())
	cat := testCatalog()
	return NewCartHandler(svc, cat, 5*time.Second), svc, cat
}

func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponseDTO {
	t.Helper()
	var resp CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func attachRecipe(t *testing.T, h *CartHandler, id string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.AttachRecipe(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/recipes", strings.NewReader(`{"recipe_id":"`+id+`"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// --- tests ---

func TestGetCart_Empty(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	rec := httptest.NewRecorder()

	h.GetCart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[],"selected_count":0,"cart_total":0.00}`, rec.Body.String())
}

func TestAttachRecipe_Success(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	rec := httptest.NewRecorder()

	h.AttachRecipe(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/recipes", strings.NewReader(`{"recipe_id":"716429"}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Entries, 1)
	e := resp.Entries[0]
	assert.Equal(t, "716429", e.EntryID)
	assert.True(t, e.Selected)
	require.Len(t, e.Lines, 2)
	assert.Equal(t, 1, e.Lines[0].Quantity)
	assert.Equal(t, domain.Cents(350), e.Total)
	assert.Equal(t, domain.Cents(350), resp.CartTotal)
	assert.NotNil(t, resp.UpdatedAt)
}

func TestAttachRecipe_Duplicate(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	attachRecipe(t, h, "716429")
	rec := httptest.NewRecorder()

	h.AttachRecipe(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/recipes", strings.NewReader(`{"recipe_id":"716429"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "already_exists", errResp.Code)
}

func TestAttachRecipe_InvalidBody(t *testing.T) {
	h, _, cat := newTestCartHandler(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{"recipe_id":`, "invalid_request"},
		{"unknown field", `{"id":"1"}`, "invalid_request"},
		{"empty id", `{"recipe_id":" "}`, "missing_recipe_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.AttachRecipe(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/recipes", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.Equal(t, tt.code, errResp.Code)
		})
	}
	assert.Zero(t, cat.fetches, "no catalog call for a bad request")
}

func TestAttachRecipe_UpstreamNotFound(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	rec := httptest.NewRecorder()

	h.AttachRecipe(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/recipes", strings.NewReader(`{"recipe_id":"999"}`)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddProduct_MergesIntoGrocery(t *testing.T) {
	h, _, _ := newTestCartHandler(t)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.AddProduct(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/products", strings.NewReader(`{"product_id":"M1"}`)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.GetCart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	resp := decodeCart(t, rec)
	require.Len(t, resp.Entries, 1)
	g := resp.Entries[0]
	assert.Equal(t, domain.GroceryEntryID, g.EntryID)
	require.Len(t, g.Lines, 1)
	assert.Equal(t, 2, g.Lines[0].Quantity)
	assert.Equal(t, domain.Cents(698), g.Lines[0].LineTotal)
}

func TestUpdateQuantity(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	attachRecipe(t, h, "716429")

	rec := httptest.NewRecorder()
	req := withParams(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"delta":-3}`)),
		"entry_id", "716429", "product_id", "A")
	h.UpdateQuantity(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Equal(t, 0, resp.Entries[0].Lines[0].Quantity, "quantity clamps at zero")
	assert.Equal(t, domain.Cents(100), resp.Entries[0].Total)
}

func TestUpdateQuantity_ZeroDelta(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	rec := httptest.NewRecorder()
	req := withParams(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"delta":0}`)),
		"entry_id", "716429", "product_id", "A")

	h.UpdateQuantity(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateQuantity_LineNotFound(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	attachRecipe(t, h, "716429")
	rec := httptest.NewRecorder()
	req := withParams(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"delta":1}`)),
		"entry_id", "716429", "product_id", "nope")

	h.UpdateQuantity(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveLineAndEntry(t *testing.T) {
	h, svc, _ := newTestCartHandler(t)
	attachRecipe(t, h, "716429")

	rec := httptest.NewRecorder()
	h.RemoveLine(rec, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "entry_id", "716429", "product_id", "A"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeCart(t, rec).Entries[0].Lines, 1)

	rec = httptest.NewRecorder()
	h.RemoveEntry(rec, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "entry_id", "716429"))
	require.Equal(t, http.StatusOK, rec.Code)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Entries)
}

func TestToggleSelection(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	attachRecipe(t, h, "716429")
	rec := httptest.NewRecorder()

	h.ToggleSelection(rec, withParams(httptest.NewRequest(http.MethodPost, "/", nil), "entry_id", "716429"))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.False(t, resp.Entries[0].Selected)
	assert.Equal(t, 0, resp.SelectedCount)
	assert.Equal(t, domain.Cents(0), resp.CartTotal)
	assert.Equal(t, domain.Cents(350), resp.Entries[0].Total, "entry keeps its own total")
}

func TestClearCart(t *testing.T) {
	h, _, _ := newTestCartHandler(t)
	attachRecipe(t, h, "716429")
	rec := httptest.NewRecorder()

	h.ClearCart(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Entries)
}
