package dailyclose

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Repository persists daily closes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction, so the
// recomputed day and the upsert see one snapshot.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithSnapshotTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Activity reads a user's day outside a transaction.
func (r *Repository) Activity(ctx context.Context, userID int64, from, to time.Time) (Activity, error) {
	return loadActivity(ctx, r.pool, userID, from, to)
}

func (r *txRepository) Activity(ctx context.Context, userID int64, from, to time.Time) (Activity, error) {
	return loadActivity(ctx, r.tx, userID, from, to)
}

func loadActivity(ctx context.Context, q db.Querier, userID int64, from, to time.Time) (Activity, error) {
	var a Activity
	rows, err := q.Query(ctx, `SELECT id, number, total, status, payment_method, created_at
FROM invoices WHERE created_by = $1 AND created_at >= $2 AND created_at < $3 ORDER BY id`, userID, from, to)
	if err != nil {
		return Activity{}, shared.Persistence("dailyclose: invoices", err)
	}
	a.Invoices, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (InvoiceRow, error) {
		var i InvoiceRow
		err := row.Scan(&i.ID, &i.Number, &i.Total, &i.Status, &i.PaymentMethod, &i.CreatedAt)
		return i, err
	})
	if err != nil {
		return Activity{}, shared.Persistence("dailyclose: scan invoices", err)
	}

	rows, err = q.Query(ctx, `SELECT p.id, p.invoice_id, i.number, p.amount, p.method, p.paid_at
FROM payments p JOIN invoices i ON i.id = p.invoice_id
WHERE NOT p.upfront AND p.created_by = $1 AND p.paid_at >= $2 AND p.paid_at < $3 ORDER BY p.id`, userID, from, to)
	if err != nil {
		return Activity{}, shared.Persistence("dailyclose: payments", err)
	}
	a.Payments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (PaymentRow, error) {
		var p PaymentRow
		err := row.Scan(&p.ID, &p.InvoiceID, &p.InvoiceNumber, &p.Amount, &p.Method, &p.PaidAt)
		return p, err
	})
	if err != nil {
		return Activity{}, shared.Persistence("dailyclose: scan payments", err)
	}

	rows, err = q.Query(ctx, `SELECT id, category, description, amount, occurred_at
FROM transactions WHERE type = 'EXPENSE' AND created_by = $1 AND occurred_at >= $2 AND occurred_at < $3 ORDER BY id`, userID, from, to)
	if err != nil {
		return Activity{}, shared.Persistence("dailyclose: expenses", err)
	}
	a.Expenses, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ExpenseRow, error) {
		var e ExpenseRow
		err := row.Scan(&e.ID, &e.Category, &e.Description, &e.Amount, &e.OccurredAt)
		return e, err
	})
	if err != nil {
		return Activity{}, shared.Persistence("dailyclose: scan expenses", err)
	}
	return a, nil
}

func (r *txRepository) Upsert(ctx context.Context, c DailyClose) (DailyClose, error) {
	counts, err := shared.EncodeSnapshot(c.BillCounts)
	if err != nil {
		return DailyClose{}, err
	}
	invoices, err := shared.EncodeSnapshot(c.Invoices)
	if err != nil {
		return DailyClose{}, err
	}
	payments, err := shared.EncodeSnapshot(c.Payments)
	if err != nil {
		return DailyClose{}, err
	}
	expenses, err := shared.EncodeSnapshot(c.Expenses)
	if err != nil {
		return DailyClose{}, err
	}
	err = r.tx.QueryRow(ctx, `INSERT INTO daily_closes (close_date, closed_by, total_billed, total_collected, cash_collected, other_collected,
	total_expenses, net_cash_in_drawer, counted_total, discrepancy, bill_counts, invoices_data, payments_data, expenses_data, notes)
VALUES ($1::date,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (close_date, closed_by) DO UPDATE SET
	total_billed = EXCLUDED.total_billed,
	total_collected = EXCLUDED.total_collected,
	cash_collected = EXCLUDED.cash_collected,
	other_collected = EXCLUDED.other_collected,
	total_expenses = EXCLUDED.total_expenses,
	net_cash_in_drawer = EXCLUDED.net_cash_in_drawer,
	counted_total = EXCLUDED.counted_total,
	discrepancy = EXCLUDED.discrepancy,
	bill_counts = EXCLUDED.bill_counts,
	invoices_data = EXCLUDED.invoices_data,
	payments_data = EXCLUDED.payments_data,
	expenses_data = EXCLUDED.expenses_data,
	notes = EXCLUDED.notes,
	archive_key = NULL,
	updated_at = NOW()
RETURNING id, created_at, updated_at`,
		c.CloseDate, c.ClosedBy, c.TotalBilled, c.TotalCollected, c.CashCollected, c.OtherCollected,
		c.TotalExpenses, c.NetCashInDrawer, c.CountedTotal, c.Discrepancy, counts, invoices, payments, expenses, db.NullString(c.Notes)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return DailyClose{}, shared.Persistence("dailyclose: upsert", err)
	}
	return c, nil
}

const selectClose = `SELECT id, close_date::text, closed_by, total_billed, total_collected, cash_collected, other_collected, total_expenses,
	net_cash_in_drawer, counted_total, discrepancy, bill_counts, invoices_data, payments_data, expenses_data, COALESCE(notes, ''),
	COALESCE(archive_key, ''), created_at, updated_at
FROM daily_closes`

// Get loads the close for (date, user).
func (r *Repository) Get(ctx context.Context, date string, userID int64) (DailyClose, error) {
	c, err := scanClose(r.pool.QueryRow(ctx, selectClose+` WHERE close_date = $1::date AND closed_by = $2`, date, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return DailyClose{}, shared.NotFound("daily close", date)
	}
	return c, shared.Persistence("dailyclose: get", err)
}

// ListByDate loads every close saved for date.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]DailyClose, error) {
	rows, err := r.pool.Query(ctx, selectClose+` WHERE close_date = $1::date ORDER BY closed_by`, date)
	if err != nil {
		return nil, shared.Persistence("dailyclose: list", err)
	}
	defer rows.Close()
	var out []DailyClose
	for rows.Next() {
		c, err := scanClose(rows)
		if err != nil {
			return nil, shared.Persistence("dailyclose: scan", err)
		}
		out = append(out, c)
	}
	return out, shared.Persistence("dailyclose: list", rows.Err())
}

// SetArchiveKey records where the archived copy lives.
func (r *Repository) SetArchiveKey(ctx context.Context, id int64, key string) error {
	_, err := r.pool.Exec(ctx, `UPDATE daily_closes SET archive_key = $2 WHERE id = $1`, id, key)
	return shared.Persistence("dailyclose: set archive key", err)
}

func scanClose(row pgx.Row) (DailyClose, error) {
	var (
		c                                    DailyClose
		counts, invoices, payments, expenses []byte
	)
	if err := row.Scan(&c.ID, &c.CloseDate, &c.ClosedBy, &c.TotalBilled, &c.TotalCollected, &c.CashCollected, &c.OtherCollected,
		&c.TotalExpenses, &c.NetCashInDrawer, &c.CountedTotal, &c.Discrepancy, &counts, &invoices, &payments, &expenses,
		&c.Notes, &c.ArchiveKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return DailyClose{}, err
	}
	countSnap, err := shared.DecodeSnapshot[CurrencyCount](counts)
	if err != nil {
		return DailyClose{}, err
	}
	invoiceSnap, err := shared.DecodeSnapshot[InvoiceRow](invoices)
	if err != nil {
		return DailyClose{}, err
	}
	paymentSnap, err := shared.DecodeSnapshot[PaymentRow](payments)
	if err != nil {
		return DailyClose{}, err
	}
	expenseSnap, err := shared.DecodeSnapshot[ExpenseRow](expenses)
	if err != nil {
		return DailyClose{}, err
	}
	c.BillCounts, c.Invoices, c.Payments, c.Expenses = countSnap.Items, invoiceSnap.Items, paymentSnap.Items, expenseSnap.Items
	return c, nil
}
