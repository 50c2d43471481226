package checkout

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/upstream"
)

// OrderSubmitter places an order with the backend.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, token, idempotencyKey string, order *domain.OrderRequest) (*domain.OrderAck, error)
}

type Doer interface {
	Do(ctx context.Context, method, path string, in, out any, opts ...upstream.RequestOption) error
}

type HTTPSubmitter struct {
	api Doer
}

func NewHTTPSubmitter(api Doer) *HTTPSubmitter {
	return &HTTPSubmitter{api: api}
}

func (s *HTTPSubmitter) SubmitOrder(ctx context.Context, token, idempotencyKey string, order *domain.OrderRequest) (*domain.OrderAck, error) {
	var ack domain.OrderAck
	err := s.api.Do(ctx, http.MethodPost, "/checkout", order, &ack,
		upstream.WithBearer(token),
		upstream.WithHeader("Idempotency-Key", idempotencyKey),
		upstream.WithFallbackMessage(domain.DefaultUpstreamMessage))
	if err != nil {
		return nil, err
	}
	return &ack, nil
}
