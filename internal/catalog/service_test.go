package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog/catalogtest"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/rbac"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

type memoryRepo struct {
	products map[int64]catalog.Product
	lastList catalog.ListFilter
}

func (r *memoryRepo) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return catalog.Product{}, shared.NotFound("product", id)
	}
	return p, nil
}

func (r *memoryRepo) ListProducts(_ context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	r.lastList = filter
	out := []catalog.Product{}
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) ListLowStock(context.Context) ([]catalog.Product, error) {
	out := []catalog.Product{}
	for _, p := range r.products {
		if !p.IsService && p.MinStock > 0 && p.Stock <= p.MinStock {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestServiceReads(t *testing.T) {
	repo := &memoryRepo{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Filtro", Stock: 2, MinStock: 5, Active: true},
		2: {ID: 2, Name: "Aceite", Stock: 40, MinStock: 5, Active: true},
	}}
	svc := catalog.NewService(repo, rbac.DefaultPolicy())
	tech := shared.Principal{UserID: 5, Role: shared.RoleTechnician}
	ctx := context.Background()

	p, err := svc.GetProduct(ctx, tech, 1)
	require.NoError(t, err)
	require.Equal(t, "Filtro", p.Name)

	_, err = svc.GetProduct(ctx, tech, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)

	low, err := svc.ListLowStock(ctx, tech)
	require.NoError(t, err)
	require.Len(t, low, 1)

	_, err = svc.ListProducts(ctx, tech, catalog.ListFilter{Limit: 10_000})
	require.NoError(t, err)
	require.Equal(t, 100, repo.lastList.Limit)

	_, err = svc.ListProducts(ctx, shared.Principal{}, catalog.ListFilter{})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestMemoryLedgerConditionalDecrement(t *testing.T) {
	ledger := catalogtest.NewMemory()
	ledger.AddProduct(1, "Bujía", 5, "100", "40")
	ctx := context.Background()
	ref := catalog.StockRef{ProductID: 1}

	level, err := ledger.Decrement(ctx, ref, 3)
	require.NoError(t, err)
	require.Equal(t, 2, level.Stock)

	_, err = ledger.Decrement(ctx, ref, 3)
	var oos *shared.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Equal(t, 2, oos.Available)
	require.Equal(t, 2, ledger.Get(ref).Stock)
}

func TestWeightedAverageOnReceive(t *testing.T) {
	ledger := catalogtest.NewMemory()
	ledger.AddProduct(1, "Pastilla", 20, "80", "40")
	level, err := ledger.ReceiveAtCost(context.Background(), catalog.StockRef{ProductID: 1}, 10, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.Equal(t, 30, level.Stock)
	require.Equal(t, "43.33", level.Cost.StringFixed(2))
}

func TestStockLevelLow(t *testing.T) {
	require.True(t, catalog.StockLevel{Stock: 2, MinStock: 2}.Low())
	require.False(t, catalog.StockLevel{Stock: 0, MinStock: 0}.Low())
	require.False(t, catalog.StockLevel{Stock: 3, MinStock: 2}.Low())
}
