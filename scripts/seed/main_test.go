package main

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlanShape(t *testing.T) {
	p := buildPlan(gofakeit.New(42), planOptions{Clients: 12, Suppliers: 3, Products: 15, Services: 4})

	require.Len(t, p.Users, len(seedRoles))
	require.Len(t, p.Clients, 12)
	require.Len(t, p.Suppliers, 3)
	require.Len(t, p.Products, 19)

	skus := map[string]bool{}
	for _, prod := range p.Products {
		require.False(t, skus[prod.SKU], "duplicate sku %s", prod.SKU)
		skus[prod.SKU] = true
		assert.True(t, prod.Stock >= 0)
		if prod.IsService {
			assert.Zero(t, prod.Stock)
			assert.Empty(t, prod.Variants)
			continue
		}
		assert.True(t, prod.Price.GreaterThanOrEqual(prod.Cost), prod.SKU)
		if len(prod.Variants) > 0 {
			assert.Zero(t, prod.Stock, "variant parents hold no stock")
			for _, v := range prod.Variants {
				require.False(t, skus[v.SKU])
				skus[v.SKU] = true
			}
		}
	}
	for _, s := range p.Suppliers {
		assert.Len(t, s.RNC, 9)
	}
}

func TestBuildPlanDeterministic(t *testing.T) {
	opts := planOptions{Clients: 5, Suppliers: 2, Products: 8, Services: 2}
	a := buildPlan(gofakeit.New(7), opts)
	b := buildPlan(gofakeit.New(7), opts)
	require.Equal(t, a.Clients, b.Clients)
	require.Equal(t, a.Products[3].Name, b.Products[3].Name)
}
