// Package receivables applies payments against invoice balances.
package receivables

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sales"
)

// Payment is money received against an invoice.
type Payment struct {
	ID        int64               `json:"id"`
	InvoiceID int64               `json:"invoice_id"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    sales.PaymentMethod `json:"method"`
	Reference string              `json:"reference,omitempty"`
	Upfront   bool                `json:"upfront"`
	PaidAt    time.Time           `json:"paid_at"`
	CreatedBy int64               `json:"created_by"`
}

// InvoiceBalance is the locked view of an invoice used to apply a payment.
type InvoiceBalance struct {
	ID      int64
	Number  string
	Status  sales.InvoiceStatus
	Total   decimal.Decimal
	Balance decimal.Decimal
}

// RegisterInput drives RegisterPayment.
type RegisterInput struct {
	InvoiceID      int64
	Amount         decimal.Decimal
	Method         sales.PaymentMethod
	Reference      string
	PaidAt         *time.Time
	IdempotencyKey string
}

// Receipt is the result of a registered payment.
type Receipt struct {
	Payment Payment             `json:"payment"`
	Balance decimal.Decimal     `json:"balance"`
	Status  sales.InvoiceStatus `json:"status"`
}

// Statement summarises an invoice's payment history.
type Statement struct {
	InvoiceID int64               `json:"invoice_id"`
	Number    string              `json:"number"`
	Status    sales.InvoiceStatus `json:"status"`
	Total     decimal.Decimal     `json:"total"`
	Paid      decimal.Decimal     `json:"paid"`
	Balance   decimal.Decimal     `json:"balance"`
	Payments  []Payment           `json:"payments"`
}
