package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/pkg/circuitbreaker"
	"github.com/fjod/go_cart/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBody = 4 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker circuitbreaker.Settings
}

// Client talks JSON to the backend API behind one circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker[*response]
	log     *zap.Logger
}

type response struct {
	body []byte
}

type requestOptions struct {
	token    string
	headers  map[string]string
	fallback string
}

type RequestOption func(*requestOptions)

func WithBearer(token string) RequestOption {
	return func(o *requestOptions) { o.token = token }
}

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.headers[key] = value }
}

// WithFallbackMessage sets the message used when an error response carries none.
func WithFallbackMessage(msg string) RequestOption {
	return func(o *requestOptions) { o.fallback = msg }
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	return NewClientWithHTTP(cfg, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, log)
}

func NewClientWithHTTP(cfg Config, hc *http.Client, log *zap.Logger) *Client {
	if cfg.Breaker.Name == "" {
		cfg.Breaker = circuitbreaker.DefaultSettings("upstream")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		breaker: circuitbreaker.New[*response](cfg.Breaker, isServerFailure, log),
		log:     log,
	}
}

// Do sends in as the JSON body (when non-nil) and decodes a 2xx body into out
// (when non-nil). Non-2xx responses become *domain.UpstreamError.
func (c *Client) Do(ctx context.Context, method, path string, in, out any, opts ...RequestOption) error {
	o := requestOptions{headers: map[string]string{}}
	for _, opt := range opts {
		opt(&o)
	}

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(ctx, method, path, payload, o)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return domain.NewUpstreamError(http.StatusServiceUnavailable, "service temporarily unavailable")
	}
	if err != nil {
		var upErr *domain.UpstreamError
		if errors.As(err, &upErr) && upErr.Message == "" {
			upErr.Message = o.fallback
			if upErr.Message == "" {
				upErr.Message = http.StatusText(upErr.Status)
			}
		}
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", domain.ErrUpstream, method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, o requestOptions) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrUpstream, method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", domain.ErrUpstream, method, path, err)
	}
	logger.WithContext(ctx, c.log).Debug("upstream call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Message left empty here is filled from the caller's fallback.
		return nil, &domain.UpstreamError{Status: res.StatusCode, Message: errorMessage(data)}
	}
	return &response{body: data}, nil
}

// BreakerState reports the upstream circuit breaker state: closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Error != "":
		return payload.Error
	default:
		return payload.Detail
	}
}

// isServerFailure decides which errors count against the breaker.
func isServerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Status >= 500
	}
	return true
}
