package catalog

import (
	"github.com/fjod/go_cart/internal/domain"
)

type KrogerPrice struct {
	Regular *domain.Cents `json:"regular"`
	Promo   *domain.Cents `json:"promo"`
}

type Inventory struct {
	Status     string `json:"status"`
	StockLevel string `json:"stockLevel"`
}

// KrogerItem is one sellable variant of a product.
type KrogerItem struct {
	ItemID    string      `json:"itemId"`
	Price     KrogerPrice `json:"price"`
	Size      string      `json:"size"`
	SoldBy    string      `json:"soldBy"`
	Inventory Inventory   `json:"inventory"`
}

type ImageSize struct {
	Size string `json:"size"`
	URL  string `json:"url"`
}

type Image struct {
	Perspective string      `json:"perspective"`
	Featured    bool        `json:"featured"`
	Sizes       []ImageSize `json:"sizes"`
}

// Product is a grocery catalog item as returned by the product endpoints.
type Product struct {
	ProductID   domain.FlexibleID `json:"productId"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Brand       string            `json:"brand"`
	UPC         string            `json:"upc"`
	Images      []Image           `json:"images"`
	Items       []KrogerItem      `json:"items"`
}

type Recipe struct {
	ID                domain.FlexibleID `json:"id"`
	Title             string            `json:"title"`
	Image             string            `json:"image"`
	KrogerIngredients []Product         `json:"krogerIngredients"`
}

// FeaturedImage picks the featured image's largest size, then any image.
func (p Product) FeaturedImage() string {
	pick := func(img Image) string {
		for _, want := range []string{"xlarge", "large", "medium"} {
			for _, s := range img.Sizes {
				if s.Size == want && s.URL != "" {
					return s.URL
				}
			}
		}
		for _, s := range img.Sizes {
			if s.URL != "" {
				return s.URL
			}
		}
		return ""
	}
	for _, img := range p.Images {
		if img.Featured {
			if url := pick(img); url != "" {
				return url
			}
		}
	}
	for _, img := range p.Images {
		if url := pick(img); url != "" {
			return url
		}
	}
	return ""
}

// Line converts the product into a cart line using its first sale item.
func (p Product) Line() domain.IngredientLine {
	line := domain.IngredientLine{
		ProductID:   string(p.ProductID),
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
	}
	if line.Name == "" {
		line.Name = p.Description
	}
	if line.Description == "" {
		line.Description = line.Name
	}
	if len(p.Items) > 0 {
		item := p.Items[0]
		if item.Price.Regular != nil {
			line.UnitPrice = *item.Price.Regular
		}
		if item.Price.Promo != nil && *item.Price.Promo > 0 {
			promo := *item.Price.Promo
			line.PromoPrice = &promo
		}
		line.Size = item.Size
		line.SoldBy = item.SoldBy
		line.Status = item.Inventory.Status
		if line.Status == "" {
			line.Status = item.Inventory.StockLevel
		}
	}
	return line
}
