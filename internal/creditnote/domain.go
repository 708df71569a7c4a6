package creditnote

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote reverses part of an invoice. It never edits the invoice itself.
type CreditNote struct {
	ID             int64           `json:"id"`
	SequenceNumber int64           `json:"sequence_number"`
	Number         string          `json:"number"`
	NCF            string          `json:"ncf"`
	InvoiceID      int64           `json:"invoice_id"`
	Reason         string          `json:"reason"`
	Items          []Line          `json:"items"`
	Total          decimal.Decimal `json:"total"`
	RestoreStock   bool            `json:"restore_stock"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Line is a credited invoice line, frozen into the note snapshot.
type Line struct {
	InvoiceItemID int64           `json:"invoice_item_id"`
	ProductID     int64           `json:"product_id"`
	VariantID     int64           `json:"variant_id,omitempty"`
	Description   string          `json:"description"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Amount        decimal.Decimal `json:"amount"`
}

// LineInput requests a quantity of an invoiced product.
type LineInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	VariantID int64 `json:"variant_id,omitempty" validate:"gte=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CreateInput drives Create.
type CreateInput struct {
	InvoiceID    int64
	Reason       string
	Items        []LineInput
	RestoreStock bool
}

// InvoiceHeader is the part of the invoice a credit note needs.
type InvoiceHeader struct {
	ID     int64
	Number string
	Status string
	Total  decimal.Decimal
}

// InvoiceLine is an original line with the quantity already credited.
type InvoiceLine struct {
	ItemID      int64
	ProductID   int64
	VariantID   int64
	Description string
	Quantity    int
	Price       decimal.Decimal
	Credited    int
}

// Remaining returns the quantity that can still be credited.
func (l InvoiceLine) Remaining() int {
	return l.Quantity - l.Credited
}

// NetRevenue is the invoice total minus every credit note against it.
type NetRevenue struct {
	InvoiceID    int64           `json:"invoice_id"`
	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	Credited     decimal.Decimal `json:"credited"`
	Net          decimal.Decimal `json:"net"`
}
