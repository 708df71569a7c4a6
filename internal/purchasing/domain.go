// Package purchasing receives supplier goods into stock at weighted average cost.
package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
)

// Supplier is the read model used to validate a purchase.
type Supplier struct {
	ID     int64
	Name   string
	Active bool
}

// Purchase is a received supplier invoice.
type Purchase struct {
	ID             int64           `json:"id"`
	SequenceNumber int64           `json:"sequence_number"`
	Number         string          `json:"number"`
	SupplierID     int64           `json:"supplier_id"`
	Items          []Item          `json:"items"`
	Total          decimal.Decimal `json:"total"`
	PurchaseDate   time.Time       `json:"purchase_date"`
	Notes          string          `json:"notes,omitempty"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Item is one received line. CostAfter is the product cost once the line was
// applied; services keep their cost untouched.
type Item struct {
	ProductID  int64           `json:"product_id"`
	VariantID  int64           `json:"variant_id,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	LineTotal  decimal.Decimal `json:"line_total"`
	CostAfter  decimal.Decimal `json:"cost_after"`
	StockAfter int             `json:"stock_after"`
}

// Ref returns the stock reference of the line.
func (i Item) Ref() catalog.StockRef {
	return catalog.StockRef{ProductID: i.ProductID, VariantID: i.VariantID}
}

// ItemInput is a requested line.
type ItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	VariantID int64           `json:"variant_id,omitempty" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreateInput drives CreatePurchase.
type CreateInput struct {
	SupplierID   int64
	Items        []ItemInput
	PurchaseDate *time.Time
	Notes        string
}

// Expense is the ledger transaction appended for every purchase.
type Expense struct {
	Amount      decimal.Decimal
	Description string
	RefID       int64
	OccurredAt  time.Time
	CreatedBy   int64
}
