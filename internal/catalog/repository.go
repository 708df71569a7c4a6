package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Repository reads the product catalog from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, price, cost, stock, min_stock, is_service, has_variants, active, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.IsService, &p.HasVariants, &p.Active, &p.UpdatedAt)
	return p, err
}

// GetProduct returns a product with its variants.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFound("product", id)
	}
	if err != nil {
		return Product{}, shared.Persistence("catalog: get product", err)
	}
	if p.HasVariants {
		variants, err := r.listVariants(ctx, id)
		if err != nil {
			return Product{}, err
		}
		p.Variants = variants
	}
	return p, nil
}

func (r *Repository) listVariants(ctx context.Context, productID int64) ([]Variant, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, sku, name, price, cost, stock, active
FROM product_variants WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, shared.Persistence("catalog: list variants", err)
	}
	defer rows.Close()
	variants := []Variant{}
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.Cost, &v.Stock, &v.Active); err != nil {
			return nil, shared.Persistence("catalog: scan variant", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("catalog: list variants", err)
	}
	return variants, nil
}

// ListProducts returns active products matching the filter.
func (r *Repository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE active AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR sku ILIKE '%' || $1 || '%')
ORDER BY name ASC, id ASC
LIMIT $2 OFFSET $3`, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, shared.Persistence("catalog: list products", err)
	}
	return collectProducts(rows)
}

// ListLowStock returns stocked products at or below their reorder threshold.
func (r *Repository) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE active AND NOT is_service AND min_stock > 0 AND stock <= min_stock
ORDER BY stock - min_stock ASC, name ASC`)
	if err != nil {
		return nil, shared.Persistence("catalog: list low stock", err)
	}
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, shared.Persistence("catalog: scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("catalog: iterate products", err)
	}
	return products, nil
}
