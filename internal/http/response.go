package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/orders"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps errors from the cart, catalog, checkout and orders
// layers to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	var upErr *domain.UpstreamError

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrAuthenticationRequired):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, domain.ErrEntryNotFound), errors.Is(err, domain.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicateEntry):
		respondError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, domain.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, orders.ErrNotCancelable):
		respondError(w, http.StatusConflict, "not_cancelable", err.Error())
	case errors.Is(err, domain.ErrNoItemsSelected):
		respondError(w, http.StatusUnprocessableEntity, "no_items_selected", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusRequestTimeout, "cancelled", "request cancelled")
	case errors.As(err, &upErr):
		switch {
		case upErr.Status == http.StatusUnauthorized:
			respondError(w, http.StatusUnauthorized, "unauthenticated", upErr.Message)
		case upErr.Status == http.StatusNotFound:
			respondError(w, http.StatusNotFound, "not_found", upErr.Message)
		case upErr.Status == http.StatusServiceUnavailable:
			respondError(w, http.StatusServiceUnavailable, "service_unavailable", upErr.Message)
		default:
			respondError(w, http.StatusBadGateway, "upstream_error", upErr.Message)
		}
	case errors.Is(err, domain.ErrUpstream):
		respondError(w, http.StatusBadGateway, "upstream_error", err.Error())
	case errors.Is(err, domain.ErrPersistence):
		respondError(w, http.StatusInternalServerError, "storage_error", "cart storage unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
