// Package catalogtest provides an in-memory stock ledger for service tests.
package catalogtest

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Memory mirrors the conditional UPDATE semantics of catalog.Ledger.
type Memory struct {
	mu    sync.Mutex
	items map[catalog.StockRef]catalog.StockItem
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{items: make(map[catalog.StockRef]catalog.StockItem)}
}

// Put seeds a product or variant.
func (m *Memory) Put(item catalog.StockItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Ref] = item
}

// AddProduct seeds an active stocked product.
func (m *Memory) AddProduct(id int64, name string, stock int, price, cost string) {
	m.Put(catalog.StockItem{
		Ref:    catalog.StockRef{ProductID: id},
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Cost:   decimal.RequireFromString(cost),
		Stock:  stock,
		Active: true,
	})
}

// AddService seeds an active service product.
func (m *Memory) AddService(id int64, name string, price string) {
	m.Put(catalog.StockItem{
		Ref:       catalog.StockRef{ProductID: id},
		Name:      name,
		Price:     decimal.RequireFromString(price),
		IsService: true,
		Active:    true,
	})
}

// Get returns the current row.
func (m *Memory) Get(ref catalog.StockRef) catalog.StockItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[ref]
}

// Snapshot copies the current state.
func (m *Memory) Snapshot() map[catalog.StockRef]catalog.StockItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[catalog.StockRef]catalog.StockItem, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

// Restore replaces the state with a snapshot.
func (m *Memory) Restore(snapshot map[catalog.StockRef]catalog.StockItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = snapshot
}

// Lookup implements catalog.StockLedger.
func (m *Memory) Lookup(_ context.Context, ref catalog.StockRef) (catalog.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[ref]
	if !ok {
		return catalog.StockItem{}, shared.NotFound("product", ref.ProductID)
	}
	return item, nil
}

// Decrement implements catalog.StockLedger.
func (m *Memory) Decrement(_ context.Context, ref catalog.StockRef, qty int) (catalog.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[ref]
	if !ok {
		return catalog.StockLevel{}, shared.NotFound("product", ref.ProductID)
	}
	if item.IsService {
		return catalog.StockLevel{}, shared.Invalid("product %d is a service and carries no stock", ref.ProductID)
	}
	if item.Stock < qty {
		return catalog.StockLevel{}, &shared.OutOfStockError{ProductID: ref.ProductID, VariantID: ref.VariantID, Requested: qty, Available: item.Stock}
	}
	item.Stock -= qty
	m.items[ref] = item
	return level(item), nil
}

// Increment implements catalog.StockLedger.
func (m *Memory) Increment(_ context.Context, ref catalog.StockRef, qty int) (catalog.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[ref]
	if !ok {
		return catalog.StockLevel{}, shared.NotFound("product", ref.ProductID)
	}
	if item.IsService {
		return catalog.StockLevel{}, shared.Invalid("product %d is a service and carries no stock", ref.ProductID)
	}
	item.Stock += qty
	m.items[ref] = item
	return level(item), nil
}

// ReceiveAtCost implements catalog.StockLedger.
func (m *Memory) ReceiveAtCost(_ context.Context, ref catalog.StockRef, qty int, unitCost decimal.Decimal) (catalog.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[ref]
	if !ok {
		return catalog.StockLevel{}, shared.NotFound("product", ref.ProductID)
	}
	if item.IsService {
		return catalog.StockLevel{}, shared.Invalid("product %d is a service and carries no stock", ref.ProductID)
	}
	item.Cost = shared.WeightedAverageCost(item.Stock, item.Cost, qty, unitCost)
	item.Stock += qty
	m.items[ref] = item
	return level(item), nil
}

func level(item catalog.StockItem) catalog.StockLevel {
	return catalog.StockLevel{Ref: item.Ref, Name: item.Name, Stock: item.Stock, MinStock: item.MinStock, Cost: item.Cost}
}

var _ catalog.StockLedger = (*Memory)(nil)
