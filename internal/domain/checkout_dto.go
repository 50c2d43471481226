package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// OrderRequest is the body accepted by the order-creation endpoint.
type OrderRequest struct {
	RecipeItems  []RecipeItem    `json:"recipe_items"`
	ShippingInfo json.RawMessage `json:"shipping_info"`
	PaymentInfo  json.RawMessage `json:"payment_info"`
}

type RecipeItem struct {
	RecipeID    RecipeRef         `json:"recipe_id"`
	RecipeName  string            `json:"recipe_name"`
	Ingredients []OrderIngredient `json:"ingredients"`
}

// RecipeRef is an entry id on the wire: catalog recipe ids go out as numbers,
// the grocery aggregate id as a string.
type RecipeRef string

func (r RecipeRef) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(r), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(r))
}

func (r *RecipeRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RecipeRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = RecipeRef(n.String())
	return nil
}

type OrderIngredient struct {
	Name       string     `json:"name"`
	Quantity   int        `json:"quantity"`
	KrogerItem KrogerItem `json:"kroger_item"`
}

type KrogerItem struct {
	ProductID   string           `json:"productId"`
	Description string           `json:"description"`
	Items       []KrogerItemSale `json:"items"`
}

type KrogerItemSale struct {
	Price KrogerPrice `json:"price"`
}

type KrogerPrice struct {
	Regular Cents  `json:"regular"`
	Promo   *Cents `json:"promo,omitempty"`
}

type OrderAck struct {
	OrderNumber string `json:"order_number"`
}

type Confirmation struct {
	OrderNumber       string    `json:"order_number"`
	SubmittedEntryIDs []string  `json:"submitted_entry_ids"`
	Total             Cents     `json:"total"`
	PlacedAt          time.Time `json:"placed_at"`
}

// OrderPlacedEvent is published after a successful checkout.
type OrderPlacedEvent struct {
	EventID     string    `json:"event_id"`
	OrderNumber string    `json:"order_number"`
	EntryIDs    []string  `json:"entry_ids"`
	Total       Cents     `json:"total"`
	PlacedAt    time.Time `json:"placed_at"`
}
