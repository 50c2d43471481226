package pricing

import "github.com/fjod/go_cart/internal/domain"

// LineTotal is the regular unit price times quantity. Non-positive quantities cost nothing.
func LineTotal(line domain.IngredientLine, quantity int) domain.Cents {
	if quantity <= 0 {
		return 0
	}
	return line.UnitPrice.Mul(quantity)
}

// EntryTotal sums the line totals of an entry regardless of selection.
func EntryTotal(entry domain.CartEntry) domain.Cents {
	var total domain.Cents
	for _, line := range entry.Lines {
		total += LineTotal(line, entry.Quantity(line.ProductID))
	}
	return total
}

// CartTotal sums selected entries only.
func CartTotal(snapshot *domain.Snapshot) domain.Cents {
	if snapshot == nil {
		return 0
	}
	var total domain.Cents
	for _, entry := range snapshot.Entries {
		if entry.Selected {
			total += EntryTotal(entry)
		}
	}
	return total
}

// Recompute refreshes the stored total of every entry.
func Recompute(snapshot *domain.Snapshot) {
	for i := range snapshot.Entries {
		snapshot.Entries[i].Total = EntryTotal(snapshot.Entries[i])
	}
}

// EntrySummary is the priced view of one entry.
type EntrySummary struct {
	EntryID  string       `json:"entry_id"`
	Selected bool         `json:"selected"`
	Lines    int          `json:"lines"`
	Total    domain.Cents `json:"total"`
}

// Summary is the priced view of the whole cart.
type Summary struct {
	Entries       []EntrySummary `json:"entries"`
	SelectedCount int            `json:"selected_count"`
	CartTotal     domain.Cents   `json:"cart_total"`
}

// Summarize prices every entry and the selected cart total.
func Summarize(snapshot *domain.Snapshot) Summary {
	sum := Summary{Entries: make([]EntrySummary, 0)}
	if snapshot == nil {
		return sum
	}
	for _, entry := range snapshot.Entries {
		sum.Entries = append(sum.Entries, EntrySummary{
			EntryID:  entry.EntryID,
			Selected: entry.Selected,
			Lines:    len(entry.Lines),
			Total:    EntryTotal(entry),
		})
		if entry.Selected {
			sum.SelectedCount++
		}
	}
	sum.CartTotal = CartTotal(snapshot)
	return sum
}
