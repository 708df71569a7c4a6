package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sequence"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Repository persists invoices and quotes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	*catalog.Ledger
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{Ledger: catalog.NewLedger(tx), tx: tx})
	})
}

// GetInvoice loads an invoice with its items.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return loadInvoice(ctx, r.pool, id, false)
}

// GetQuote loads a quote with its items.
func (r *Repository) GetQuote(ctx context.Context, id int64) (Quote, error) {
	return loadQuote(ctx, r.pool, id, false)
}

func (r *txRepository) NextSequence(ctx context.Context, kind sequence.Kind) (int64, error) {
	n, err := sequence.Next(ctx, r.tx, kind)
	return n, shared.Persistence("sales: next sequence", err)
}

func (r *txRepository) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return shared.Persistence("sales: claim idempotency key", shared.ClaimIdempotencyKey(ctx, r.tx, key, "sales"))
}

func (r *txRepository) GetClient(ctx context.Context, id int64) (Client, error) {
	var c Client
	err := r.tx.QueryRow(ctx, `SELECT id, name, COALESCE(rnc, ''), active FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.RNC, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.NotFound("client", id)
	}
	return c, shared.Persistence("sales: get client", err)
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (sequence_number, number, ncf, ncf_type, client_id, quote_id, total, balance, status, payment_method, notes, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		inv.SequenceNumber, inv.Number, inv.NCF, inv.NCFType, inv.ClientID, db.NullInt64(inv.QuoteID), inv.Total, inv.Balance,
		string(inv.Status), string(inv.PaymentMethod), db.NullString(inv.Notes), inv.CreatedBy, inv.CreatedAt).Scan(&id)
	return id, shared.Persistence("sales: insert invoice", err)
}

func (r *txRepository) InsertInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO invoice_items (invoice_id, line_no, product_id, variant_id, description, quantity, price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, invoiceID, item.LineNo, item.ProductID, db.NullInt64(item.VariantID), item.Description, item.Quantity, item.Price, item.LineTotal); err != nil {
			return shared.Persistence("sales: insert invoice item", err)
		}
	}
	return nil
}

func (r *txRepository) InsertUpfrontPayment(ctx context.Context, payment UpfrontPayment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO payments (invoice_id, amount, method, upfront, paid_at, created_by)
VALUES ($1,$2,$3,TRUE,$4,$5)`, payment.InvoiceID, payment.Amount, string(payment.Method), payment.PaidAt, payment.CreatedBy)
	return shared.Persistence("sales: insert upfront payment", err)
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return loadInvoice(ctx, r.tx, id, true)
}

func (r *txRepository) CancelInvoice(ctx context.Context, id, actorID int64, at time.Time, reason string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET status = 'CANCELLED', cancelled_by = $2, cancelled_at = $3, cancel_reason = $4
WHERE id = $1 AND status = 'PENDING'`, id, actorID, at, reason)
	if err != nil {
		return shared.Persistence("sales: cancel invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.InvalidState("invoice %d is no longer pending", id)
	}
	return nil
}

func (r *txRepository) InsertQuote(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO quotes (sequence_number, number, client_id, total, status, valid_until, notes, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		q.SequenceNumber, q.Number, q.ClientID, q.Total, string(q.Status), q.ValidUntil, db.NullString(q.Notes), q.CreatedBy, q.CreatedAt).Scan(&id)
	return id, shared.Persistence("sales: insert quote", err)
}

func (r *txRepository) InsertQuoteItems(ctx context.Context, quoteID int64, items []InvoiceItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO quote_items (quote_id, line_no, product_id, variant_id, description, quantity, price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, quoteID, item.LineNo, item.ProductID, db.NullInt64(item.VariantID), item.Description, item.Quantity, item.Price, item.LineTotal); err != nil {
			return shared.Persistence("sales: insert quote item", err)
		}
	}
	return nil
}

func (r *txRepository) GetQuoteForUpdate(ctx context.Context, id int64) (Quote, error) {
	return loadQuote(ctx, r.tx, id, true)
}

func (r *txRepository) UpdateQuoteStatus(ctx context.Context, id int64, status QuoteStatus, invoiceID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE quotes SET status = $2, invoice_id = COALESCE($3, invoice_id) WHERE id = $1`, id, string(status), db.NullInt64(invoiceID))
	return shared.Persistence("sales: update quote", err)
}

func loadInvoice(ctx context.Context, q db.Querier, id int64, forUpdate bool) (Invoice, error) {
	query := `SELECT id, sequence_number, number, ncf, ncf_type, client_id, COALESCE(quote_id, 0), total, balance, status, payment_method,
	COALESCE(notes, ''), created_by, created_at, COALESCE(cancelled_by, 0), cancelled_at, COALESCE(cancel_reason, '')
FROM invoices WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		inv    Invoice
		status string
		method string
	)
	err := q.QueryRow(ctx, query, id).Scan(&inv.ID, &inv.SequenceNumber, &inv.Number, &inv.NCF, &inv.NCFType, &inv.ClientID, &inv.QuoteID,
		&inv.Total, &inv.Balance, &status, &method, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.CancelledBy, &inv.CancelledAt, &inv.CancelReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.NotFound("invoice", id)
	}
	if err != nil {
		return Invoice{}, shared.Persistence("sales: load invoice", err)
	}
	inv.Status = InvoiceStatus(status)
	inv.PaymentMethod = PaymentMethod(method)
	inv.Items, err = loadItems(ctx, q, `SELECT id, line_no, product_id, COALESCE(variant_id, 0), description, quantity, price, line_total
FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func loadQuote(ctx context.Context, q db.Querier, id int64, forUpdate bool) (Quote, error) {
	query := `SELECT id, sequence_number, number, client_id, total, status, valid_until, COALESCE(invoice_id, 0), COALESCE(notes, ''), created_by, created_at
FROM quotes WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		quote  Quote
		status string
	)
	err := q.QueryRow(ctx, query, id).Scan(&quote.ID, &quote.SequenceNumber, &quote.Number, &quote.ClientID, &quote.Total, &status,
		&quote.ValidUntil, &quote.InvoiceID, &quote.Notes, &quote.CreatedBy, &quote.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, shared.NotFound("quote", id)
	}
	if err != nil {
		return Quote{}, shared.Persistence("sales: load quote", err)
	}
	quote.Status = QuoteStatus(status)
	if quote.ValidUntil != nil {
		day := shared.CalendarDate(*quote.ValidUntil)
		quote.ValidUntil = &day
	}
	quote.Items, err = loadItems(ctx, q, `SELECT id, line_no, product_id, COALESCE(variant_id, 0), description, quantity, price, line_total
FROM quote_items WHERE quote_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return Quote{}, err
	}
	return quote, nil
}

func loadItems(ctx context.Context, q db.Querier, query string, parentID int64) ([]InvoiceItem, error) {
	rows, err := q.Query(ctx, query, parentID)
	if err != nil {
		return nil, shared.Persistence("sales: load items", err)
	}
	defer rows.Close()
	items := []InvoiceItem{}
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.LineNo, &item.ProductID, &item.VariantID, &item.Description, &item.Quantity, &item.Price, &item.LineTotal); err != nil {
			return nil, shared.Persistence("sales: scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("sales: load items", err)
	}
	return items, nil
}
