package receivables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sales"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Repository persists payments and invoice balances.
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

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetInvoiceBalance reads the invoice without locking.
func (r *Repository) GetInvoiceBalance(ctx context.Context, invoiceID int64) (InvoiceBalance, error) {
	return loadBalance(ctx, r.pool, invoiceID, false)
}

// ListPayments returns payments in the order they were received.
func (r *Repository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, amount, method, COALESCE(reference, ''), upfront, paid_at, created_by
FROM payments WHERE invoice_id = $1 ORDER BY paid_at, id`, invoiceID)
	if err != nil {
		return nil, shared.Persistence("receivables: list payments", err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var (
			p      Payment
			method string
		)
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &method, &p.Reference, &p.Upfront, &p.PaidAt, &p.CreatedBy); err != nil {
			return nil, shared.Persistence("receivables: scan payment", err)
		}
		p.Method = sales.PaymentMethod(method)
		out = append(out, p)
	}
	return out, shared.Persistence("receivables: list payments", rows.Err())
}

func (r *txRepository) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return shared.Persistence("receivables: claim idempotency key", shared.ClaimIdempotencyKey(ctx, r.tx, key, "receivables"))
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (InvoiceBalance, error) {
	return loadBalance(ctx, r.tx, invoiceID, true)
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (invoice_id, amount, method, reference, upfront, paid_at, created_by)
VALUES ($1,$2,$3,$4,FALSE,$5,$6) RETURNING id`, p.InvoiceID, p.Amount, string(p.Method), db.NullString(p.Reference), p.PaidAt, p.CreatedBy).Scan(&id)
	return id, shared.Persistence("receivables: insert payment", err)
}

func (r *txRepository) UpdateBalance(ctx context.Context, invoiceID int64, balance decimal.Decimal, status sales.InvoiceStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET balance = $2, status = $3 WHERE id = $1`, invoiceID, balance, string(status))
	return shared.Persistence("receivables: update balance", err)
}

func loadBalance(ctx context.Context, q db.Querier, invoiceID int64, forUpdate bool) (InvoiceBalance, error) {
	query := `SELECT id, number, status, total, balance FROM invoices WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		inv    InvoiceBalance
		status string
	)
	err := q.QueryRow(ctx, query, invoiceID).Scan(&inv.ID, &inv.Number, &status, &inv.Total, &inv.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return InvoiceBalance{}, shared.NotFound("invoice", invoiceID)
	}
	inv.Status = sales.InvoiceStatus(status)
	return inv, shared.Persistence("receivables: load invoice", err)
}
