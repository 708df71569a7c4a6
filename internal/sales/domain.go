package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	// InvoiceStatusPending has an outstanding balance.
	InvoiceStatusPending InvoiceStatus = "PENDING"
	// InvoiceStatusPaid is fully settled.
	InvoiceStatusPaid InvoiceStatus = "PAID"
	// InvoiceStatusCancelled is terminal.
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// PaymentMethod enumerates tender types.
type PaymentMethod string

// Payment methods. CREDIT defers collection to receivables.
const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCheck    PaymentMethod = "CHECK"
	PaymentCredit   PaymentMethod = "CREDIT"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentCheck, PaymentCredit:
		return true
	}
	return false
}

// Tender reports whether m can settle money on the spot (everything but CREDIT).
func (m PaymentMethod) Tender() bool {
	return m.Valid() && m != PaymentCredit
}

// QuoteStatus enumerates quote lifecycle states.
type QuoteStatus string

// Quote states.
const (
	QuoteStatusPending   QuoteStatus = "PENDING"
	QuoteStatusAccepted  QuoteStatus = "ACCEPTED"
	QuoteStatusConverted QuoteStatus = "CONVERTED"
	QuoteStatusRejected  QuoteStatus = "REJECTED"
)

// Open reports whether the quote can still be accepted, rejected or converted.
func (s QuoteStatus) Open() bool {
	return s == QuoteStatusPending || s == QuoteStatusAccepted
}

// Client is the read model used to pick the NCF type.
type Client struct {
	ID     int64
	Name   string
	RNC    string
	Active bool
}

// Invoice is a committed sale.
type Invoice struct {
	ID             int64           `json:"id"`
	SequenceNumber int64           `json:"sequence_number"`
	Number         string          `json:"number"`
	NCF            string          `json:"ncf"`
	NCFType        string          `json:"ncf_type"`
	ClientID       int64           `json:"client_id"`
	QuoteID        int64           `json:"quote_id,omitempty"`
	Items          []InvoiceItem   `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Balance        decimal.Decimal `json:"balance"`
	Status         InvoiceStatus   `json:"status"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Notes          string          `json:"notes,omitempty"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	CancelledBy    int64           `json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
}

// InvoiceItem freezes the price at sale time.
type InvoiceItem struct {
	ID          int64           `json:"id"`
	LineNo      int             `json:"line_no"`
	ProductID   int64           `json:"product_id"`
	VariantID   int64           `json:"variant_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Ref returns the stock reference of the line.
func (i InvoiceItem) Ref() catalog.StockRef {
	return catalog.StockRef{ProductID: i.ProductID, VariantID: i.VariantID}
}

// Quote is a priced proposal that reserves nothing.
type Quote struct {
	ID             int64           `json:"id"`
	SequenceNumber int64           `json:"sequence_number"`
	Number         string          `json:"number"`
	ClientID       int64           `json:"client_id"`
	Items          []InvoiceItem   `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Status         QuoteStatus     `json:"status"`
	ValidUntil     *time.Time      `json:"valid_until,omitempty"`
	InvoiceID      int64           `json:"invoice_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LineInput is one requested line.
type LineInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	VariantID int64           `json:"variant_id,omitempty" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

// CreateInvoiceInput drives CreateInvoice.
type CreateInvoiceInput struct {
	ClientID       int64
	Items          []LineInput
	PaymentMethod  PaymentMethod
	Notes          string
	IdempotencyKey string
}

// CreateQuoteInput drives CreateQuote.
type CreateQuoteInput struct {
	ClientID   int64
	Items      []LineInput
	ValidUntil *time.Time
	Notes      string
}

// ConvertQuoteInput drives ConvertQuote.
type ConvertQuoteInput struct {
	QuoteID        int64
	PaymentMethod  PaymentMethod
	IdempotencyKey string
}

// CancelInvoiceInput drives CancelInvoice.
type CancelInvoiceInput struct {
	InvoiceID int64
	Reason    string
}

// UpfrontPayment is the settlement recorded for non-credit sales.
type UpfrontPayment struct {
	InvoiceID int64
	Amount    decimal.Decimal
	Method    PaymentMethod
	PaidAt    time.Time
	CreatedBy int64
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return shared.Invalid("at least one item is required")
	}
	for i, line := range lines {
		if line.ProductID <= 0 {
			return shared.Invalid("item %d: product required", i+1)
		}
		if line.VariantID < 0 {
			return shared.Invalid("item %d: variant id must not be negative", i+1)
		}
		if line.Quantity <= 0 {
			return shared.Invalid("item %d: quantity must be positive", i+1)
		}
		if line.Price.IsNegative() {
			return shared.Invalid("item %d: price must not be negative", i+1)
		}
	}
	return nil
}
