package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item or service.
type Product struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
	IsService   bool            `json:"is_service"`
	HasVariants bool            `json:"has_variants"`
	Active      bool            `json:"active"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Variants    []Variant       `json:"variants,omitempty"`
}

// Variant mirrors product stock and price per SKU.
type Variant struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"active"`
}

// StockRef addresses a product or one of its variants.
type StockRef struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id,omitempty"`
}

// StockItem is the resolved sellable unit behind a StockRef.
type StockItem struct {
	Ref         StockRef
	Name        string
	Price       decimal.Decimal
	Cost        decimal.Decimal
	Stock       int
	MinStock    int
	IsService   bool
	HasVariants bool
	Active      bool
}

// StockLevel is the state of a stock row right after a mutation.
type StockLevel struct {
	Ref      StockRef        `json:"ref"`
	Name     string          `json:"name"`
	Stock    int             `json:"stock"`
	MinStock int             `json:"min_stock"`
	Cost     decimal.Decimal `json:"cost"`
}

// Low reports whether the level reached the reorder threshold.
func (l StockLevel) Low() bool {
	return l.MinStock > 0 && l.Stock <= l.MinStock
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
