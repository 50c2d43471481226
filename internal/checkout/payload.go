package checkout

import (
	"encoding/json"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/pricing"
)

type Request struct {
	Shipping json.RawMessage `json:"shipping_info"`
	Payment  json.RawMessage `json:"payment_info"`
}

// Submission is what one checkout sends: the order body plus the entry ids it
// consumes on success.
type Submission struct {
	Order    *domain.OrderRequest
	EntryIDs []string
	Total    domain.Cents
}

// BuildSubmission captures the selected entries of snap. Lines with a zero
// quantity are left out of the order.
func BuildSubmission(snap *domain.Snapshot, req Request) *Submission {
	sub := &Submission{
		Order: &domain.OrderRequest{
			RecipeItems:  []domain.RecipeItem{},
			ShippingInfo: orNull(req.Shipping),
			PaymentInfo:  orNull(req.Payment),
		},
		Total: pricing.CartTotal(snap),
	}

	for _, e := range snap.Entries {
		if !e.Selected {
			continue
		}
		item := domain.RecipeItem{
			RecipeID:    domain.RecipeRef(e.EntryID),
			RecipeName:  e.Title,
			Ingredients: make([]domain.OrderIngredient, 0, len(e.Lines)),
		}
		for _, line := range e.Lines {
			qty := e.Quantity(line.ProductID)
			if qty <= 0 {
				continue
			}
			item.Ingredients = append(item.Ingredients, domain.OrderIngredient{
				Name:     line.Name,
				Quantity: qty,
				KrogerItem: domain.KrogerItem{
					ProductID:   line.ProductID,
					Description: line.Description,
					Items: []domain.KrogerItemSale{{
						Price: domain.KrogerPrice{Regular: line.UnitPrice, Promo: line.PromoPrice},
					}},
				},
			})
		}
		sub.Order.RecipeItems = append(sub.Order.RecipeItems, item)
		sub.EntryIDs = append(sub.EntryIDs, e.EntryID)
	}
	return sub
}

// IngredientCount is the number of order lines across all records.
func (s *Submission) IngredientCount() int {
	n := 0
	for _, item := range s.Order.RecipeItems {
		n += len(item.Ingredients)
	}
	return n
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
