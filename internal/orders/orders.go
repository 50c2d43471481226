package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/upstream"
	"github.com/fjod/go_cart/pkg/logger"
	"go.uber.org/zap"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// ErrNotCancelable is returned when cancelling an order that is no longer pending.
var ErrNotCancelable = errors.New("order cannot be canceled")

type OrderedProduct struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name"`
	Price     domain.Cents `json:"price"`
	Quantity  int          `json:"quantity"`
}

type Item struct {
	RecipeID       domain.RecipeRef `json:"recipe_id"`
	RecipeName     string           `json:"recipe_name"`
	IngredientName string           `json:"ingredient_name"`
	KrogerItem     OrderedProduct   `json:"kroger_item"`
}

type Order struct {
	ID           domain.FlexibleID `json:"id"`
	OrderNumber  string            `json:"order_number"`
	TotalPrice   domain.Cents      `json:"total_price"`
	Status       Status            `json:"status"`
	ItemsCount   int               `json:"items_count"`
	CreatedAt    string            `json:"created_at"`
	Items        []Item            `json:"items,omitempty"`
	ShippingInfo json.RawMessage   `json:"shipping_info,omitempty"`
	PaymentInfo  json.RawMessage   `json:"payment_info,omitempty"`
}

func (o *Order) Cancelable() bool {
	return strings.EqualFold(string(o.Status), string(StatusPending))
}

// ItemsTotal sums price times quantity over the order's items.
func (o *Order) ItemsTotal() domain.Cents {
	var total domain.Cents
	for _, it := range o.Items {
		total += it.KrogerItem.Price.Mul(it.KrogerItem.Quantity)
	}
	return total
}

type Doer interface {
	Do(ctx context.Context, method, path string, in, out any, opts ...upstream.RequestOption) error
}

// Client reads and cancels orders placed through checkout.
type Client struct {
	api   Doer
	creds upstream.CredentialProvider
	log   *zap.Logger
}

func NewClient(api Doer, creds upstream.CredentialProvider, log *zap.Logger) *Client {
	return &Client{api: api, creds: creds, log: log}
}

func (c *Client) List(ctx context.Context) ([]Order, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.api.Do(ctx, http.MethodGet, "/orders", nil, &resp,
		upstream.WithBearer(token), upstream.WithFallbackMessage("Failed to fetch orders")); err != nil {
		return nil, err
	}
	if resp.Orders == nil {
		resp.Orders = []Order{}
	}
	return resp.Orders, nil
}

func (c *Client) Get(ctx context.Context, orderID string) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidArgument)
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := c.api.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order,
		upstream.WithBearer(token), upstream.WithFallbackMessage("Failed to fetch order details")); err != nil {
		return nil, err
	}
	return &order, nil
}

// Cancel cancels a pending order. The order is read first so non-pending orders
// are refused without a cancel request.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	order, err := c.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Cancelable() {
		return fmt.Errorf("%w: order %s is %s", ErrNotCancelable, orderID, order.Status)
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if order.ID == "" {
		order.ID = domain.FlexibleID(strings.TrimSpace(orderID))
	}
	if err := c.api.Do(ctx, http.MethodPost, "/orders/"+url.PathEscape(string(order.ID))+"/cancel", nil, nil,
		upstream.WithBearer(token), upstream.WithFallbackMessage("Failed to cancel order")); err != nil {
		return err
	}

	logger.WithContext(ctx, c.log).Info("order canceled", zap.String("order_id", string(order.ID)), zap.String("order_number", order.OrderNumber))
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	token, ok := c.creds.Token(ctx)
	if !ok {
		return "", domain.ErrAuthenticationRequired
	}
	return token, nil
}
