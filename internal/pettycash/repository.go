package pettycash

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// closeLockKey serialises petty cash closings across processes.
const closeLockKey int64 = 0x50435348 // "PCSH"

// Repository persists the petty cash book.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type closeTx struct {
	tx pgx.Tx
}

// WithCloseTx runs fn in a read-committed transaction so the claiming UPDATE
// observes every open row committed before it runs.
func (r *Repository) WithCloseTx(ctx context.Context, fn func(context.Context, CloseTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &closeTx{tx: tx})
	})
}

func (c *closeTx) LockBook(ctx context.Context) error {
	_, err := c.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, closeLockKey)
	return shared.Persistence("pettycash: lock", err)
}

func (c *closeTx) LastClosingBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := c.tx.QueryRow(ctx, `SELECT closing_balance FROM petty_cash_closings ORDER BY id DESC LIMIT 1`).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	return balance, shared.Persistence("pettycash: last closing balance", err)
}

func (c *closeTx) InsertClosing(ctx context.Context, cl Closing) (int64, error) {
	var id int64
	err := c.tx.QueryRow(ctx, `INSERT INTO petty_cash_closings (opening_balance, closing_balance, notes, closed_by, closed_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, cl.OpeningBalance, cl.ClosingBalance, db.NullString(cl.Notes), cl.ClosedBy, cl.ClosedAt).Scan(&id)
	return id, shared.Persistence("pettycash: insert closing", err)
}

func (c *closeTx) ClaimOpen(ctx context.Context, closingID int64) ([]Claimed, error) {
	rows, err := c.tx.Query(ctx, `UPDATE transactions SET closing_id = $1
WHERE closing_id IS NULL AND category = 'PETTY_CASH'
RETURNING type, amount`, closingID)
	if err != nil {
		return nil, shared.Persistence("pettycash: claim open", err)
	}
	defer rows.Close()
	var out []Claimed
	for rows.Next() {
		var (
			cl  Claimed
			typ string
		)
		if err := rows.Scan(&typ, &cl.Amount); err != nil {
			return nil, shared.Persistence("pettycash: scan claimed", err)
		}
		cl.Type = EntryType(typ)
		out = append(out, cl)
	}
	return out, shared.Persistence("pettycash: claim open", rows.Err())
}

func (c *closeTx) FinalizeClosing(ctx context.Context, cl Closing) error {
	_, err := c.tx.Exec(ctx, `UPDATE petty_cash_closings SET total_income = $2, total_expense = $3, closing_balance = $4, transaction_count = $5
WHERE id = $1`, cl.ID, cl.TotalIncome, cl.TotalExpense, cl.ClosingBalance, cl.TransactionCount)
	return shared.Persistence("pettycash: finalize closing", err)
}

// InsertTransaction appends an open petty cash movement.
func (r *Repository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO transactions (type, category, amount, description, occurred_at, created_by)
VALUES ($1, 'PETTY_CASH', $2, $3, $4, $5) RETURNING id`, string(t.Type), t.Amount, t.Description, t.OccurredAt, t.CreatedBy).Scan(&id)
	return id, shared.Persistence("pettycash: insert transaction", err)
}

// BookState reads the last closing, the open period and the day's activity
// from a single snapshot.
func (r *Repository) BookState(ctx context.Context, from, to time.Time) (BookState, error) {
	var out BookState
	err := db.WithSnapshotTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if out.Last, out.HasClose, err = lastClosing(ctx, tx); err != nil {
			return err
		}
		if out.Open, err = openTotals(ctx, tx); err != nil {
			return err
		}
		out.Day, err = dayActivity(ctx, tx, from, to)
		return err
	})
	return out, shared.Persistence("pettycash: book state", err)
}

// Closings are numbered under the book lock, so id order is closing order.
func lastClosing(ctx context.Context, q querier) (Closing, bool, error) {
	rows, err := q.Query(ctx, selectClosing+` ORDER BY id DESC LIMIT 1`)
	if err != nil {
		return Closing{}, false, shared.Persistence("pettycash: last closing", err)
	}
	closings, err := scanClosings(rows)
	if err != nil || len(closings) == 0 {
		return Closing{}, false, err
	}
	return closings[0], true, nil
}

func openTotals(ctx context.Context, q querier) (OpenTotals, error) {
	var out OpenTotals
	err := q.QueryRow(ctx, `SELECT
	COALESCE(SUM(amount) FILTER (WHERE type = 'INCOME'), 0),
	COALESCE(SUM(amount) FILTER (WHERE type = 'EXPENSE'), 0),
	COUNT(*)
FROM transactions WHERE closing_id IS NULL AND category = 'PETTY_CASH'`).Scan(&out.Income, &out.Expense, &out.Count)
	return out, shared.Persistence("pettycash: open totals", err)
}

// dayActivity sums cash sales and expenses in [from, to).
func dayActivity(ctx context.Context, q querier, from, to time.Time) (DayActivity, error) {
	var out DayActivity
	err := q.QueryRow(ctx, `SELECT
	COALESCE((SELECT SUM(total) FROM invoices WHERE payment_method = 'CASH' AND status = 'PAID' AND created_at >= $1 AND created_at < $2), 0),
	COALESCE((SELECT SUM(amount) FROM transactions WHERE type = 'EXPENSE' AND occurred_at >= $1 AND occurred_at < $2), 0)`, from, to).
		Scan(&out.CashSales, &out.Expenses)
	return out, shared.Persistence("pettycash: day activity", err)
}

// ListClosings returns closings newest first.
func (r *Repository) ListClosings(ctx context.Context, limit int) ([]Closing, error) {
	rows, err := r.pool.Query(ctx, selectClosing+` ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, shared.Persistence("pettycash: list closings", err)
	}
	return scanClosings(rows)
}

// ListOpen returns the open period's movements.
func (r *Repository) ListOpen(ctx context.Context) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, type, amount, description, occurred_at, created_by
FROM transactions WHERE closing_id IS NULL AND category = 'PETTY_CASH' ORDER BY occurred_at, id`)
	if err != nil {
		return nil, shared.Persistence("pettycash: list open", err)
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var (
			t   Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &typ, &t.Amount, &t.Description, &t.OccurredAt, &t.CreatedBy); err != nil {
			return nil, shared.Persistence("pettycash: scan open", err)
		}
		t.Type = EntryType(typ)
		out = append(out, t)
	}
	return out, shared.Persistence("pettycash: list open", rows.Err())
}

const selectClosing = `SELECT id, opening_balance, total_income, total_expense, closing_balance, transaction_count, COALESCE(notes, ''), closed_by, closed_at
FROM petty_cash_closings`

func scanClosings(rows pgx.Rows) ([]Closing, error) {
	defer rows.Close()
	var out []Closing
	for rows.Next() {
		var c Closing
		if err := rows.Scan(&c.ID, &c.OpeningBalance, &c.TotalIncome, &c.TotalExpense, &c.ClosingBalance, &c.TransactionCount,
			&c.Notes, &c.ClosedBy, &c.ClosedAt); err != nil {
			return nil, shared.Persistence("pettycash: scan closing", err)
		}
		out = append(out, c)
	}
	return out, shared.Persistence("pettycash: scan closings", rows.Err())
}
