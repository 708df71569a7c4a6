// Package pettycash keeps the petty cash book and its period closings.
package pettycash

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the direction of a cash movement.
type EntryType string

// Entry types.
const (
	EntryIncome  EntryType = "INCOME"
	EntryExpense EntryType = "EXPENSE"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t == EntryIncome || t == EntryExpense
}

// CategoryPettyCash tags transactions that belong to the petty cash book.
const CategoryPettyCash = "PETTY_CASH"

// Transaction is a petty cash movement. ClosingID is set once a closing seals it.
type Transaction struct {
	ID          int64           `json:"id"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedBy   int64           `json:"created_by"`
	ClosingID   int64           `json:"closing_id,omitempty"`
}

// Closing is the sealed snapshot of one petty cash period.
type Closing struct {
	ID               int64           `json:"id"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	TransactionCount int             `json:"transaction_count"`
	Notes            string          `json:"notes,omitempty"`
	ClosedBy         int64           `json:"closed_by"`
	ClosedAt         time.Time       `json:"closed_at"`
}

// Claimed is a transaction row sealed by a closing.
type Claimed struct {
	Type   EntryType
	Amount decimal.Decimal
}

// OpenTotals aggregates the open period.
type OpenTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// DayActivity is the same-day activity the drawer is expected to reflect.
type DayActivity struct {
	CashSales decimal.Decimal
	Expenses  decimal.Decimal
}

// BookState is one consistent read of the book.
type BookState struct {
	Last     Closing
	HasClose bool
	Open     OpenTotals
	Day      DayActivity
}

// Summary describes the open period. Discrepancy is nil for roles that may not see it.
type Summary struct {
	OpeningBalance   decimal.Decimal  `json:"opening_balance"`
	TotalIncome      decimal.Decimal  `json:"total_income"`
	TotalExpense     decimal.Decimal  `json:"total_expense"`
	CurrentBalance   decimal.Decimal  `json:"current_balance"`
	ExpectedBalance  decimal.Decimal  `json:"expected_balance"`
	Discrepancy      *decimal.Decimal `json:"discrepancy,omitempty"`
	OpenTransactions int              `json:"open_transactions"`
	LastClosingAt    *time.Time       `json:"last_closing_at,omitempty"`
}

// EntryInput drives RecordEntry.
type EntryInput struct {
	Type        EntryType
	Amount      decimal.Decimal
	Description string
}
