// Command seed fills a development database with realistic catalog and party data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/app"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

type userSeed struct {
	Name  string
	Email string
	Role  shared.Role
}

type partySeed struct {
	Name  string
	RNC   string
	Phone string
}

type variantSeed struct {
	SKU   string
	Name  string
	Price decimal.Decimal
	Cost  decimal.Decimal
	Stock int
}

type productSeed struct {
	SKU       string
	Name      string
	Price     decimal.Decimal
	Cost      decimal.Decimal
	Stock     int
	MinStock  int
	IsService bool
	Variants  []variantSeed
}

type plan struct {
	Users     []userSeed
	Clients   []partySeed
	Suppliers []partySeed
	Products  []productSeed
}

type planOptions struct {
	Clients   int
	Suppliers int
	Products  int
	Services  int
}

func main() {
	seed := flag.Uint64("seed", 0, "random seed, 0 picks one")
	clients := flag.Int("clients", 40, "clients to create")
	suppliers := flag.Int("suppliers", 8, "suppliers to create")
	products := flag.Int("products", 60, "stocked products to create")
	services := flag.Int("services", 10, "service products to create")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	p := buildPlan(gofakeit.New(*seed), planOptions{Clients: *clients, Suppliers: *suppliers, Products: *products, Services: *services})
	if err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		return apply(ctx, tx, p)
	}); err != nil {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete",
		slog.Int("users", len(p.Users)),
		slog.Int("clients", len(p.Clients)),
		slog.Int("suppliers", len(p.Suppliers)),
		slog.Int("products", len(p.Products)),
	)
}

var seedRoles = []shared.Role{
	shared.RoleAdmin,
	shared.RoleManager,
	shared.RoleSeller,
	shared.RoleAccountant,
	shared.RoleTechnician,
}

var autoParts = []string{"Filtro de aceite", "Pastillas de freno", "Bujía", "Correa de tiempo", "Amortiguador", "Batería", "Filtro de aire", "Radiador", "Bomba de agua", "Alternador"}

var serviceNames = []string{"Cambio de aceite", "Alineación", "Balanceo", "Diagnóstico computarizado", "Lavado de motor", "Revisión de frenos"}

func buildPlan(f *gofakeit.Faker, opts planOptions) plan {
	var p plan
	for _, role := range seedRoles {
		name := f.Name()
		p.Users = append(p.Users, userSeed{
			Name:  name,
			Email: strings.ToLower(string(role)) + "@facturado.local",
			Role:  role,
		})
	}
	for i := 0; i < opts.Clients; i++ {
		client := partySeed{Name: f.Name(), Phone: f.Numerify("809-###-####")}
		if f.Bool() {
			client.Name = f.Company()
			client.RNC = f.Numerify("1########")
		}
		p.Clients = append(p.Clients, client)
	}
	for i := 0; i < opts.Suppliers; i++ {
		p.Suppliers = append(p.Suppliers, partySeed{Name: f.Company() + " " + f.CompanySuffix(), RNC: f.Numerify("1########"), Phone: f.Numerify("829-###-####")})
	}
	for i := 0; i < opts.Products; i++ {
		cost := decimal.NewFromFloat(f.Price(50, 5000)).Round(2)
		markup := decimal.NewFromFloat(f.Float64Range(1.15, 1.8))
		product := productSeed{
			SKU:      fmt.Sprintf("REP-%05d", i+1),
			Name:     fmt.Sprintf("%s %s %s", autoParts[f.Number(0, len(autoParts)-1)], f.CarMaker(), f.LetterN(2)),
			Cost:     cost,
			Price:    shared.RoundMoney(cost.Mul(markup)),
			Stock:    f.Number(0, 80),
			MinStock: f.Number(2, 10),
		}
		if i%7 == 0 {
			for v := 0; v < 3; v++ {
				product.Variants = append(product.Variants, variantSeed{
					SKU:   fmt.Sprintf("%s-%d", product.SKU, v+1),
					Name:  fmt.Sprintf("%s %s", product.Name, f.Color()),
					Price: product.Price,
					Cost:  product.Cost,
					Stock: f.Number(0, 30),
				})
			}
			product.Stock = 0
		}
		p.Products = append(p.Products, product)
	}
	for i := 0; i < opts.Services; i++ {
		p.Products = append(p.Products, productSeed{
			SKU:       fmt.Sprintf("SRV-%04d", i+1),
			Name:      serviceNames[i%len(serviceNames)],
			Price:     decimal.NewFromFloat(f.Price(500, 4500)).Round(2),
			Cost:      decimal.Zero,
			IsService: true,
		})
	}
	return p
}

func apply(ctx context.Context, tx pgx.Tx, p plan) error {
	for _, u := range p.Users {
		if _, err := tx.Exec(ctx, `INSERT INTO users (name, email, role) VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role`, u.Name, u.Email, string(u.Role)); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}
	for _, c := range p.Clients {
		if _, err := tx.Exec(ctx, `INSERT INTO clients (name, rnc, phone) VALUES ($1, $2, $3)`, c.Name, db.NullString(c.RNC), c.Phone); err != nil {
			return fmt.Errorf("seed clients: %w", err)
		}
	}
	for _, s := range p.Suppliers {
		if _, err := tx.Exec(ctx, `INSERT INTO suppliers (name, rnc) VALUES ($1, $2)`, s.Name, db.NullString(s.RNC)); err != nil {
			return fmt.Errorf("seed suppliers: %w", err)
		}
	}
	for _, prod := range p.Products {
		var id int64
		err := tx.QueryRow(ctx, `INSERT INTO products (sku, name, price, cost, stock, min_stock, is_service, has_variants)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name
RETURNING id`, prod.SKU, prod.Name, prod.Price, prod.Cost, prod.Stock, prod.MinStock, prod.IsService, len(prod.Variants) > 0).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", prod.SKU, err)
		}
		for _, v := range prod.Variants {
			if _, err := tx.Exec(ctx, `INSERT INTO product_variants (product_id, sku, name, price, cost, stock)
VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (sku) DO NOTHING`, id, v.SKU, v.Name, v.Price, v.Cost, v.Stock); err != nil {
				return fmt.Errorf("seed variant %s: %w", v.SKU, err)
			}
		}
	}
	return nil
}
