package domain

import "time"

const (
	// GroceryEntryID is reserved for the single ad-hoc aggregate of standalone products.
	GroceryEntryID    = "grocery"
	GroceryEntryTitle = "Grocery"
	PlaceholderImage  = "https://via.placeholder.com/150"
)

// IngredientLine is one purchasable product within a cart entry.
type IngredientLine struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Brand       string `json:"brand"`
	Size        string `json:"size"`
	SoldBy      string `json:"sold_by"`
	UnitPrice   Cents  `json:"unit_price"`
	PromoPrice  *Cents `json:"promo_price"`
	Status      string `json:"status"`
}

// CartEntry is a selectable group of lines: a recipe or the grocery aggregate.
type CartEntry struct {
	EntryID    string           `json:"entry_id"`
	Title      string           `json:"title"`
	Image      string           `json:"image"`
	Selected   bool             `json:"selected"`
	Lines      []IngredientLine `json:"lines"`
	Quantities map[string]int   `json:"quantities"`
	Total      Cents            `json:"total"`
}

// Quantity returns the effective quantity of a line, 1 when no override is stored.
func (e *CartEntry) Quantity(productID string) int {
	if q, ok := e.Quantities[productID]; ok {
		return q
	}
	return 1
}

// LineIndex returns the position of the line with productID, or -1.
func (e *CartEntry) LineIndex(productID string) int {
	for i := range e.Lines {
		if e.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// IsGrocery reports whether this is the aggregate entry for standalone products.
func (e *CartEntry) IsGrocery() bool {
	return e.EntryID == GroceryEntryID
}

// Clone returns a deep copy of the entry.
func (e CartEntry) Clone() CartEntry {
	c := e
	c.Lines = make([]IngredientLine, len(e.Lines))
	for i, l := range e.Lines {
		if l.PromoPrice != nil {
			p := *l.PromoPrice
			l.PromoPrice = &p
		}
		c.Lines[i] = l
	}
	c.Quantities = make(map[string]int, len(e.Quantities))
	for k, v := range e.Quantities {
		c.Quantities[k] = v
	}
	return c
}

// Snapshot is the whole persisted cart.
type Snapshot struct {
	Entries   []CartEntry `json:"entries"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Find returns the index and a pointer to the entry with entryID, or -1 and nil.
func (s *Snapshot) Find(entryID string) (int, *CartEntry) {
	for i := range s.Entries {
		if s.Entries[i].EntryID == entryID {
			return i, &s.Entries[i]
		}
	}
	return -1, nil
}

// SelectedIDs returns the ids of selected entries in cart order.
func (s *Snapshot) SelectedIDs() []string {
	var ids []string
	for _, e := range s.Entries {
		if e.Selected {
			ids = append(ids, e.EntryID)
		}
	}
	return ids
}

func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{Entries: []CartEntry{}}
	}
	c := &Snapshot{
		Entries:   make([]CartEntry, len(s.Entries)),
		UpdatedAt: s.UpdatedAt,
	}
	for i, e := range s.Entries {
		c.Entries[i] = e.Clone()
	}
	return c
}
