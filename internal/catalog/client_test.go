package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	api := upstream.NewClientWithHTTP(upstream.Config{BaseURL: srv.URL}, srv.Client(), zap.NewNop())
	return NewClient(api, upstream.RequestCredentials{Static: "tok"}, zap.NewNop())
}

const recipeBody = `{
	"id": 716429,
	"title": "Pasta with Garlic",
	"image": "https://img/716429.jpg",
	"krogerIngredients": [
		{"productId": "0001", "description": "Spaghetti", "brand": "Kroger",
		 "items": [{"price": {"regular": 1.99, "promo": 0}, "size": "16 oz", "soldBy": "UNIT"}]},
		{"description": "no id"},
		{"productId": 2, "description": "Garlic",
		 "items": [{"price": {"regular": "0.50", "promo": 0.40}}]}
	]
}`

func TestFetchRecipe_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipedetail/716429", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(recipeBody))
	})

	recipe, err := c.FetchRecipe(context.Background(), "716429")
	require.NoError(t, err)

	assert.Equal(t, domain.FlexibleID("716429"), recipe.ID)
	require.Len(t, recipe.KrogerIngredients, 2, "ingredient without productId is skipped")

	req := AttachRequest(recipe)
	assert.Equal(t, "716429", req.EntryID)
	assert.Equal(t, "Pasta with Garlic", req.Title)
	require.Len(t, req.Lines, 2)

	spaghetti := req.Lines[0]
	assert.Equal(t, "0001", spaghetti.ProductID)
	assert.Equal(t, "Spaghetti", spaghetti.Name)
	assert.Equal(t, domain.Cents(199), spaghetti.UnitPrice)
	assert.Nil(t, spaghetti.PromoPrice, "zero promo means no promo")
	assert.Equal(t, "16 oz", spaghetti.Size)

	garlic := req.Lines[1]
	assert.Equal(t, "2", garlic.ProductID)
	assert.Equal(t, domain.Cents(50), garlic.UnitPrice)
	require.NotNil(t, garlic.PromoPrice)
	assert.Equal(t, domain.Cents(40), *garlic.PromoPrice)
}

func TestFetchRecipe_MissingTitle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "image": "x"}`))
	})

	_, err := c.FetchRecipe(context.Background(), "1")
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestFetchRecipe_RequiresCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()
	api := upstream.NewClientWithHTTP(upstream.Config{BaseURL: srv.URL}, srv.Client(), zap.NewNop())
	c := NewClient(api, upstream.RequestCredentials{}, zap.NewNop())

	_, err := c.FetchRecipe(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
	assert.False(t, called)
}

func TestFetchProduct_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kroger/product/0001", r.URL.Path)
		w.Write([]byte(`{"productId":"0001","description":"Milk","items":[{"price":{"regular":3.49}}],
			"images":[{"featured":true,"sizes":[{"size":"thumbnail","url":"t.jpg"},{"size":"large","url":"l.jpg"}]}]}`))
	})

	p, err := c.FetchProduct(context.Background(), "0001")
	require.NoError(t, err)
	assert.Equal(t, "l.jpg", p.FeaturedImage())

	req := MergeRequest(p)
	assert.Equal(t, "0001", req.Line.ProductID)
	assert.Equal(t, domain.Cents(349), req.Line.UnitPrice)
}

func TestFetchProduct_InvalidProductData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"description":"Milk"}`))
	})

	_, err := c.FetchProduct(context.Background(), "0001")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestFetchProduct_UpstreamNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Product not found"}`))
	})

	_, err := c.FetchProduct(context.Background(), "0001")

	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusNotFound, upErr.Status)
	assert.Equal(t, "Product not found", upErr.Message)
}

func TestSearchProducts_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/krogerSearchItem", r.URL.Path)
		assert.Equal(t, "whole milk", r.URL.Query().Get("query"))
		w.Write([]byte(`{"products":[{"productId":"1"},{"description":"bad"},{"productId":"2"}]}`))
	})

	products, err := c.SearchProducts(context.Background(), " whole milk ")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, domain.FlexibleID("1"), products[0].ProductID)
	assert.Equal(t, domain.FlexibleID("2"), products[1].ProductID)
}

func TestSearchProducts_InvalidResponseFormat(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"object", `{"products":{"productId":"1"}}`},
		{"null", `{"products":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := c.SearchProducts(context.Background(), "milk")
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestSearchProducts_EmptyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.SearchProducts(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
