package creditnote

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sequence"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Repository persists credit notes.
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

func (r *txRepository) NextSequence(ctx context.Context, kind sequence.Kind) (int64, error) {
	n, err := sequence.Next(ctx, r.tx, kind)
	return n, shared.Persistence("creditnote: next sequence", err)
}

// GetInvoiceForUpdate locks the invoice row so concurrent notes against the same
// invoice serialize on the cumulative quantity check.
func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (InvoiceHeader, []InvoiceLine, error) {
	var h InvoiceHeader
	err := r.tx.QueryRow(ctx, `SELECT id, number, status, total FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).
		Scan(&h.ID, &h.Number, &h.Status, &h.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return InvoiceHeader{}, nil, shared.NotFound("invoice", invoiceID)
	}
	if err != nil {
		return InvoiceHeader{}, nil, shared.Persistence("creditnote: lock invoice", err)
	}
	rows, err := r.tx.Query(ctx, `SELECT ii.id, ii.product_id, COALESCE(ii.variant_id, 0), ii.description, ii.quantity, ii.price,
	COALESCE((SELECT SUM(cl.quantity) FROM credit_note_lines cl WHERE cl.invoice_item_id = ii.id), 0)
FROM invoice_items ii WHERE ii.invoice_id = $1 ORDER BY ii.line_no`, invoiceID)
	if err != nil {
		return InvoiceHeader{}, nil, shared.Persistence("creditnote: invoice lines", err)
	}
	defer rows.Close()
	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ItemID, &l.ProductID, &l.VariantID, &l.Description, &l.Quantity, &l.Price, &l.Credited); err != nil {
			return InvoiceHeader{}, nil, shared.Persistence("creditnote: scan invoice line", err)
		}
		lines = append(lines, l)
	}
	return h, lines, shared.Persistence("creditnote: invoice lines", rows.Err())
}

func (r *txRepository) InsertCreditNote(ctx context.Context, note CreditNote) (int64, error) {
	items, err := shared.EncodeSnapshot(note.Items)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.tx.QueryRow(ctx, `INSERT INTO credit_notes (sequence_number, number, ncf, invoice_id, reason, total, restore_stock, items, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		note.SequenceNumber, note.Number, note.NCF, note.InvoiceID, note.Reason, note.Total, note.RestoreStock, items, note.CreatedBy, note.CreatedAt).Scan(&id)
	return id, shared.Persistence("creditnote: insert", err)
}

func (r *txRepository) InsertCreditNoteLines(ctx context.Context, noteID int64, lines []Line) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO credit_note_lines (credit_note_id, invoice_item_id, quantity, amount) VALUES ($1,$2,$3,$4)`,
			noteID, line.InvoiceItemID, line.Quantity, line.Amount); err != nil {
			return shared.Persistence("creditnote: insert line", err)
		}
	}
	return nil
}

const selectNote = `SELECT id, sequence_number, number, ncf, invoice_id, reason, total, restore_stock, items, created_by, created_at FROM credit_notes`

// GetCreditNote loads a note and decodes its item snapshot.
func (r *Repository) GetCreditNote(ctx context.Context, id int64) (CreditNote, error) {
	note, err := scanNote(r.pool.QueryRow(ctx, selectNote+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return CreditNote{}, shared.NotFound("credit note", id)
	}
	return note, shared.Persistence("creditnote: get", err)
}

// ListByInvoice returns notes for an invoice in issue order.
func (r *Repository) ListByInvoice(ctx context.Context, invoiceID int64) ([]CreditNote, error) {
	rows, err := r.pool.Query(ctx, selectNote+` WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, shared.Persistence("creditnote: list", err)
	}
	defer rows.Close()
	var out []CreditNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, shared.Persistence("creditnote: scan", err)
		}
		out = append(out, note)
	}
	return out, shared.Persistence("creditnote: list", rows.Err())
}

// InvoiceTotals returns the invoice total and the sum of its credit notes.
func (r *Repository) InvoiceTotals(ctx context.Context, invoiceID int64) (decimal.Decimal, decimal.Decimal, error) {
	var total, credited decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT i.total, COALESCE((SELECT SUM(cn.total) FROM credit_notes cn WHERE cn.invoice_id = i.id), 0)
FROM invoices i WHERE i.id = $1`, invoiceID).Scan(&total, &credited)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, decimal.Zero, shared.NotFound("invoice", invoiceID)
	}
	return total, credited, shared.Persistence("creditnote: invoice totals", err)
}

func scanNote(row pgx.Row) (CreditNote, error) {
	var (
		note CreditNote
		raw  []byte
	)
	if err := row.Scan(&note.ID, &note.SequenceNumber, &note.Number, &note.NCF, &note.InvoiceID, &note.Reason, &note.Total,
		&note.RestoreStock, &raw, &note.CreatedBy, &note.CreatedAt); err != nil {
		return CreditNote{}, err
	}
	snap, err := shared.DecodeSnapshot[Line](raw)
	if err != nil {
		return CreditNote{}, err
	}
	note.Items = snap.Items
	return note, nil
}
