// Package dailyclose reconciles one user's business day: billed sales,
// collected money, expenses and the physical cash count.
package dailyclose

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is counted at rate 1.
const BaseCurrency = "DOP"

// Totals are the figures a close is reconciled against.
type Totals struct {
	TotalBilled     decimal.Decimal `json:"total_billed"`
	TotalCollected  decimal.Decimal `json:"total_collected"`
	CashCollected   decimal.Decimal `json:"cash_collected"`
	OtherCollected  decimal.Decimal `json:"other_collected"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	NetCashInDrawer decimal.Decimal `json:"net_cash_in_drawer"`
}

// Summary is the computed day for one user.
type Summary struct {
	Date   string `json:"date"`
	UserID int64  `json:"user_id"`
	Totals
	InvoiceCount int `json:"invoice_count"`
	PaymentCount int `json:"payment_count"`
	ExpenseCount int `json:"expense_count"`
}

// InvoiceRow is an invoice created during the day.
type InvoiceRow struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentRow is a later payment received during the day.
type PaymentRow struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	PaidAt        time.Time       `json:"paid_at"`
}

// ExpenseRow is an expense transaction booked during the day.
type ExpenseRow struct {
	ID          int64           `json:"id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Activity is everything one user did during a business day.
type Activity struct {
	Invoices []InvoiceRow
	Payments []PaymentRow
	Expenses []ExpenseRow
}

// Bill is a denomination and how many were counted.
type Bill struct {
	Denomination decimal.Decimal `json:"denomination"`
	Count        int             `json:"count"`
}

// CurrencyCount is the physical count for one currency.
type CurrencyCount struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
	Bills    []Bill          `json:"bills"`
}

// DailyClose is the persisted reconciliation, unique per (date, user).
type DailyClose struct {
	ID        int64  `json:"id"`
	CloseDate string `json:"close_date"`
	ClosedBy  int64  `json:"closed_by"`
	Totals
	CountedTotal decimal.Decimal `json:"counted_total"`
	Discrepancy  decimal.Decimal `json:"discrepancy"`
	BillCounts   []CurrencyCount `json:"bill_counts"`
	Invoices     []InvoiceRow    `json:"invoices"`
	Payments     []PaymentRow    `json:"payments"`
	Expenses     []ExpenseRow    `json:"expenses"`
	Notes        string          `json:"notes,omitempty"`
	ArchiveKey   string          `json:"archive_key,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SaveInput drives Save. Totals, when sent, must match the recomputed day.
type SaveInput struct {
	Date       time.Time
	Totals     *Totals
	BillCounts []CurrencyCount
	Notes      string
}
