package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *CoordinatorMock) {
	t.Helper()
	cartHandler, _, cat := newTestCartHandler(t)
	coord := &CoordinatorMock{}
	router := NewRouter(
		RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 1 << 20},
		cartHandler,
		NewProductHandler(cat, 5*time.Second),
		NewCheckoutHandler(coord),
		NewOrdersHandler(newOrdersMock(), 5*time.Second),
	)
	return router, coord
}

func TestRouter_Routes(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		method   string
		path     string
		body     string
		wantCode int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/cart", "", http.StatusOK},
		{http.MethodPost, "/api/v1/cart/recipes", `{"recipe_id":"716429"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/cart/entries/716429/toggle", "", http.StatusOK},
		{http.MethodPatch, "/api/v1/cart/entries/716429/lines/A", `{"delta":2}`, http.StatusOK},
		{http.MethodDelete, "/api/v1/cart/entries/716429/lines/B", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/cart/entries/716429", "", http.StatusOK},
		{http.MethodPost, "/api/v1/cart/products", `{"product_id":"M1"}`, http.StatusCreated},
		{http.MethodDelete, "/api/v1/cart", "", http.StatusOK},
		{http.MethodGet, "/api/v1/checkout/status", "", http.StatusOK},
		{http.MethodGet, "/api/v1/products/search?query=milk", "", http.StatusOK},
		{http.MethodGet, "/api/v1/products/M1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/orders", "", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/orders/1/cancel", "", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	// cases share one cart and run in order
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		router.ServeHTTP(rec, req)
		assert.Equal(t, tt.wantCode, rec.Code, "%s %s: %s", tt.method, tt.path, rec.Body.String())
	}
}

func TestRouter_SetsRequestID(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_HealthReportsBreakerState(t *testing.T) {
	cartHandler, _, cat := newTestCartHandler(t)
	router := NewRouter(
		RouterConfig{
			RequestTimeout:     5 * time.Second,
			MaxRequestBodySize: 1 << 20,
			BreakerState:       func() string { return "open" },
		},
		cartHandler,
		NewProductHandler(cat, 5*time.Second),
		NewCheckoutHandler(&CoordinatorMock{}),
		NewOrdersHandler(newOrdersMock(), 5*time.Second),
	)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","upstream":"open"}`, rec.Body.String())
}

func TestRouter_BodyTooLarge(t *testing.T) {
	cartHandler, _, cat := newTestCartHandler(t)
	router := NewRouter(
		RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 16},
		cartHandler,
		NewProductHandler(cat, 5*time.Second),
		NewCheckoutHandler(&CoordinatorMock{}),
		NewOrdersHandler(newOrdersMock(), 5*time.Second),
	)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/recipes",
		strings.NewReader(`{"recipe_id":"7164297164297164297164"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, cat.fetches)
}

func TestBearerTokenMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantOK    bool
	}{
		{"bearer", "Bearer abc", "abc", true},
		{"no header", "", "", false},
		{"wrong scheme", "Basic abc", "", false},
		{"empty bearer", "Bearer  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotToken string
			var gotOK bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotToken, gotOK = upstream.RequestCredentials{}.Token(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			BearerTokenMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantToken, gotToken)
		})
	}
}

func TestBearerTokenMiddleware_StaticFallback(t *testing.T) {
	creds := upstream.RequestCredentials{Static: "service-token"}
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = creds.Token(r.Context())
	})

	BearerTokenMiddleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "service-token", got)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	BearerTokenMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "user-token", got)
}

func TestHandleServiceError_Deadline(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, context.DeadlineExceeded)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}
