package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/service"
	"github.com/fjod/go_cart/internal/upstream"
	"github.com/fjod/go_cart/pkg/logger"
	"go.uber.org/zap"
)

// ErrInvalidPayload marks an upstream response that decoded but failed validation.
var ErrInvalidPayload = errors.New("invalid upstream payload")

// Doer is the part of upstream.Client the catalog needs.
type Doer interface {
	Do(ctx context.Context, method, path string, in, out any, opts ...upstream.RequestOption) error
}

// Client fetches recipes and products from the backend and validates them before
// they reach the cart.
type Client struct {
	api   Doer
	creds upstream.CredentialProvider
	log   *zap.Logger
}

func NewClient(api Doer, creds upstream.CredentialProvider, log *zap.Logger) *Client {
	return &Client{api: api, creds: creds, log: log}
}

func (c *Client) FetchRecipe(ctx context.Context, recipeID string) (*Recipe, error) {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return nil, fmt.Errorf("%w: recipe id is required", domain.ErrInvalidArgument)
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var recipe Recipe
	if err := c.api.Do(ctx, http.MethodGet, "/recipedetail/"+url.PathEscape(recipeID), nil, &recipe,
		upstream.WithBearer(token)); err != nil {
		return nil, err
	}

	if recipe.ID == "" {
		recipe.ID = domain.FlexibleID(recipeID)
	}
	if strings.TrimSpace(recipe.Title) == "" {
		return nil, fmt.Errorf("%w: %w: recipe %s has no title", domain.ErrUpstream, ErrInvalidPayload, recipeID)
	}

	valid := recipe.KrogerIngredients[:0]
	for _, p := range recipe.KrogerIngredients {
		if err := validateProduct(p); err != nil {
			logger.WithContext(ctx, c.log).Warn("skipping ingredient",
				zap.String("recipe_id", recipeID),
				zap.String("product_id", string(p.ProductID)),
				zap.Error(err))
			continue
		}
		valid = append(valid, p)
	}
	recipe.KrogerIngredients = valid
	return &recipe, nil
}

func (c *Client) FetchProduct(ctx context.Context, productID string) (*Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidArgument)
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var product Product
	if err := c.api.Do(ctx, http.MethodGet, "/kroger/product/"+url.PathEscape(productID), nil, &product,
		upstream.WithBearer(token)); err != nil {
		return nil, err
	}
	if err := validateProduct(product); err != nil {
		return nil, fmt.Errorf("%w: %w: invalid product data: %v", domain.ErrUpstream, ErrInvalidPayload, err)
	}
	return &product, nil
}

// SearchProducts queries the catalog. Products that fail validation are left out.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Products json.RawMessage `json:"products"`
	}
	path := "/krogerSearchItem?" + url.Values{"query": {query}}.Encode()
	if err := c.api.Do(ctx, http.MethodGet, path, nil, &raw, upstream.WithBearer(token)); err != nil {
		return nil, err
	}
	if len(raw.Products) == 0 || bytes.TrimSpace(raw.Products)[0] != '[' {
		return nil, fmt.Errorf("%w: %w: invalid response format", domain.ErrUpstream, ErrInvalidPayload)
	}

	var products []Product
	if err := json.Unmarshal(raw.Products, &products); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrUpstream, ErrInvalidPayload, err)
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if validateProduct(p) != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	token, ok := c.creds.Token(ctx)
	if !ok {
		return "", domain.ErrAuthenticationRequired
	}
	return token, nil
}

func validateProduct(p Product) error {
	if p.ProductID == "" {
		return errors.New("missing productId")
	}
	for _, item := range p.Items {
		if item.Price.Regular != nil && *item.Price.Regular < 0 {
			return fmt.Errorf("negative price %s", *item.Price.Regular)
		}
	}
	return nil
}

// AttachRequest turns a fetched recipe into a cart entry request.
func AttachRequest(r *Recipe) service.AttachRecipeRequest {
	req := service.AttachRecipeRequest{
		EntryID: string(r.ID),
		Title:   r.Title,
		Image:   r.Image,
		Lines:   make([]domain.IngredientLine, 0, len(r.KrogerIngredients)),
	}
	for _, p := range r.KrogerIngredients {
		req.Lines = append(req.Lines, p.Line())
	}
	return req
}

func MergeRequest(p *Product) service.ProductRequest {
	return service.ProductRequest{Line: p.Line()}
}
