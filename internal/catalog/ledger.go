package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// StockLedger mutates stock inside the caller's transaction.
type StockLedger interface {
	Lookup(ctx context.Context, ref StockRef) (StockItem, error)
	Decrement(ctx context.Context, ref StockRef, qty int) (StockLevel, error)
	Increment(ctx context.Context, ref StockRef, qty int) (StockLevel, error)
	ReceiveAtCost(ctx context.Context, ref StockRef, qty int, unitCost decimal.Decimal) (StockLevel, error)
}

// Ledger is the PostgreSQL StockLedger. Every write is a single conditional
// UPDATE so concurrent sales of the same row cannot oversell.
type Ledger struct {
	q db.Querier
}

// NewLedger binds the ledger to a transaction.
func NewLedger(q db.Querier) *Ledger {
	return &Ledger{q: q}
}

var _ StockLedger = (*Ledger)(nil)

// Lookup resolves ref for validation. Never use the result as the basis of a write.
func (l *Ledger) Lookup(ctx context.Context, ref StockRef) (StockItem, error) {
	item := StockItem{Ref: ref}
	var err error
	if ref.VariantID != 0 {
		err = l.q.QueryRow(ctx, `SELECT v.name, v.price, v.cost, v.stock, p.min_stock, p.is_service, p.has_variants, (v.active AND p.active)
FROM product_variants v JOIN products p ON p.id = v.product_id
WHERE v.id = $1 AND v.product_id = $2`, ref.VariantID, ref.ProductID).
			Scan(&item.Name, &item.Price, &item.Cost, &item.Stock, &item.MinStock, &item.IsService, &item.HasVariants, &item.Active)
	} else {
		err = l.q.QueryRow(ctx, `SELECT name, price, cost, stock, min_stock, is_service, has_variants, active
FROM products WHERE id = $1`, ref.ProductID).
			Scan(&item.Name, &item.Price, &item.Cost, &item.Stock, &item.MinStock, &item.IsService, &item.HasVariants, &item.Active)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return StockItem{}, notFound(ref)
	}
	if err != nil {
		return StockItem{}, shared.Persistence("catalog: lookup", err)
	}
	return item, nil
}

// Decrement subtracts qty only when enough stock remains.
func (l *Ledger) Decrement(ctx context.Context, ref StockRef, qty int) (StockLevel, error) {
	if qty <= 0 {
		return StockLevel{}, shared.Invalid("decrement quantity must be positive")
	}
	level := StockLevel{Ref: ref}
	var err error
	if ref.VariantID != 0 {
		err = l.q.QueryRow(ctx, `UPDATE product_variants v SET stock = v.stock - $3, updated_at = NOW()
FROM products p
WHERE v.id = $1 AND v.product_id = $2 AND p.id = v.product_id AND NOT p.is_service AND v.stock >= $3
RETURNING v.name, v.stock, p.min_stock, v.cost`, ref.VariantID, ref.ProductID, qty).
			Scan(&level.Name, &level.Stock, &level.MinStock, &level.Cost)
	} else {
		err = l.q.QueryRow(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW()
WHERE id = $1 AND NOT is_service AND NOT has_variants AND stock >= $2
RETURNING name, stock, min_stock, cost`, ref.ProductID, qty).
			Scan(&level.Name, &level.Stock, &level.MinStock, &level.Cost)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return StockLevel{}, l.explainMiss(ctx, ref, qty)
	}
	if err != nil {
		return StockLevel{}, shared.Persistence("catalog: decrement", err)
	}
	return level, nil
}

// Increment adds qty back, typically from a credit note.
func (l *Ledger) Increment(ctx context.Context, ref StockRef, qty int) (StockLevel, error) {
	if qty <= 0 {
		return StockLevel{}, shared.Invalid("increment quantity must be positive")
	}
	level := StockLevel{Ref: ref}
	var err error
	if ref.VariantID != 0 {
		err = l.q.QueryRow(ctx, `UPDATE product_variants v SET stock = v.stock + $3, updated_at = NOW()
FROM products p
WHERE v.id = $1 AND v.product_id = $2 AND p.id = v.product_id AND NOT p.is_service
RETURNING v.name, v.stock, p.min_stock, v.cost`, ref.VariantID, ref.ProductID, qty).
			Scan(&level.Name, &level.Stock, &level.MinStock, &level.Cost)
	} else {
		err = l.q.QueryRow(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW()
WHERE id = $1 AND NOT is_service AND NOT has_variants
RETURNING name, stock, min_stock, cost`, ref.ProductID, qty).
			Scan(&level.Name, &level.Stock, &level.MinStock, &level.Cost)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return StockLevel{}, l.explainMiss(ctx, ref, qty)
	}
	if err != nil {
		return StockLevel{}, shared.Persistence("catalog: increment", err)
	}
	return level, nil
}

// ReceiveAtCost increments stock and blends the unit cost with the weighted
// average in the same statement.
func (l *Ledger) ReceiveAtCost(ctx context.Context, ref StockRef, qty int, unitCost decimal.Decimal) (StockLevel, error) {
	if qty <= 0 {
		return StockLevel{}, shared.Invalid("received quantity must be positive")
	}
	if unitCost.IsNegative() {
		return StockLevel{}, shared.Invalid("unit cost must not be negative")
	}
	level := StockLevel{Ref: ref}
	var err error
	if ref.VariantID != 0 {
		err = l.q.QueryRow(ctx, `UPDATE product_variants v SET
	cost = CASE WHEN v.stock <= 0 THEN ROUND($4::numeric, 4)
		ELSE ROUND((v.stock * v.cost + $3 * $4::numeric) / (v.stock + $3), 4) END,
	stock = v.stock + $3,
	updated_at = NOW()
FROM products p
WHERE v.id = $1 AND v.product_id = $2 AND p.id = v.product_id AND NOT p.is_service
RETURNING v.name, v.stock, p.min_stock, v.cost`, ref.VariantID, ref.ProductID, qty, unitCost).
			Scan(&level.Name, &level.Stock, &level.MinStock, &level.Cost)
	} else {
		err = l.q.QueryRow(ctx, `UPDATE products SET
	cost = CASE WHEN stock <= 0 THEN ROUND($3::numeric, 4)
		ELSE ROUND((stock * cost + $2 * $3::numeric) / (stock + $2), 4) END,
	stock = stock + $2,
	updated_at = NOW()
WHERE id = $1 AND NOT is_service AND NOT has_variants
RETURNING name, stock, min_stock, cost`, ref.ProductID, qty, unitCost).
			Scan(&level.Name, &level.Stock, &level.MinStock, &level.Cost)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return StockLevel{}, l.explainMiss(ctx, ref, qty)
	}
	if err != nil {
		return StockLevel{}, shared.Persistence("catalog: receive", err)
	}
	return level, nil
}

// explainMiss turns a zero-row UPDATE into the precise domain error.
func (l *Ledger) explainMiss(ctx context.Context, ref StockRef, qty int) error {
	item, err := l.Lookup(ctx, ref)
	if err != nil {
		return err
	}
	if item.IsService {
		return shared.Invalid("product %d is a service and carries no stock", ref.ProductID)
	}
	if item.HasVariants && ref.VariantID == 0 {
		return shared.Invalid("product %d is stocked per variant", ref.ProductID)
	}
	return &shared.OutOfStockError{ProductID: ref.ProductID, VariantID: ref.VariantID, Requested: qty, Available: item.Stock}
}

func notFound(ref StockRef) error {
	if ref.VariantID != 0 {
		return fmt.Errorf("%w: variant %d of product %d", shared.ErrNotFound, ref.VariantID, ref.ProductID)
	}
	return shared.NotFound("product", ref.ProductID)
}
