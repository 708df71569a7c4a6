package purchasing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sequence"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Repository persists purchases.
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
	return n, shared.Persistence("purchasing: next sequence", err)
}

func (r *txRepository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.tx.QueryRow(ctx, `SELECT id, name, active FROM suppliers WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.NotFound("supplier", id)
	}
	return s, shared.Persistence("purchasing: get supplier", err)
}

func (r *txRepository) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (sequence_number, number, supplier_id, total, purchase_date, notes, created_by, created_at)
VALUES ($1,$2,$3,$4,$5::date,$6,$7,$8) RETURNING id`,
		p.SequenceNumber, p.Number, p.SupplierID, p.Total, shared.FormatBusinessDate(p.PurchaseDate), db.NullString(p.Notes), p.CreatedBy, p.CreatedAt).Scan(&id)
	return id, shared.Persistence("purchasing: insert purchase", err)
}

func (r *txRepository) InsertPurchaseItems(ctx context.Context, purchaseID int64, items []Item) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO purchase_items (purchase_id, product_id, variant_id, quantity, unit_cost, line_total, cost_after)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, purchaseID, item.ProductID, db.NullInt64(item.VariantID), item.Quantity, item.UnitCost, item.LineTotal, item.CostAfter); err != nil {
			return shared.Persistence("purchasing: insert item", err)
		}
	}
	return nil
}

func (r *txRepository) InsertExpense(ctx context.Context, e Expense) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO transactions (type, category, amount, description, ref_module, ref_id, occurred_at, created_by)
VALUES ('EXPENSE', 'PURCHASE', $1, $2, 'purchase', $3, $4, $5)`, e.Amount, e.Description, e.RefID, e.OccurredAt, e.CreatedBy)
	return shared.Persistence("purchasing: insert expense", err)
}

// GetPurchase loads a purchase with its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := r.pool.QueryRow(ctx, `SELECT id, sequence_number, number, supplier_id, total, purchase_date, COALESCE(notes, ''), created_by, created_at
FROM purchases WHERE id = $1`, id).Scan(&p.ID, &p.SequenceNumber, &p.Number, &p.SupplierID, &p.Total, &p.PurchaseDate, &p.Notes, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, shared.NotFound("purchase", id)
	}
	if err != nil {
		return Purchase{}, shared.Persistence("purchasing: get purchase", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, COALESCE(variant_id, 0), quantity, unit_cost, line_total, cost_after
FROM purchase_items WHERE purchase_id = $1 ORDER BY id`, id)
	if err != nil {
		return Purchase{}, shared.Persistence("purchasing: get items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity, &it.UnitCost, &it.LineTotal, &it.CostAfter); err != nil {
			return Purchase{}, shared.Persistence("purchasing: scan item", err)
		}
		p.Items = append(p.Items, it)
	}
	return p, shared.Persistence("purchasing: get items", rows.Err())
}
