package purchasing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sequence"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	catalog.StockLedger
	NextSequence(ctx context.Context, kind sequence.Kind) (int64, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	InsertPurchaseItems(ctx context.Context, purchaseID int64, items []Item) error
	InsertExpense(ctx context.Context, e Expense) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records purchases.
type Service struct {
	repo  RepositoryPort
	authz shared.Authorizer
	audit AuditPort
	now   func() time.Time

	invalidator shared.Invalidator
}

// NewService builds Service.
func NewService(repo RepositoryPort, authz shared.Authorizer, audit AuditPort) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, now: time.Now}
}

// WithInvalidator registers the cache dropped after each commit.
func (s *Service) WithInvalidator(inv shared.Invalidator) *Service {
	s.invalidator = inv
	return s
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		_ = s.invalidator.Bump(ctx)
	}
}

// WithNow overrides the clock, primarily for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// CreatePurchase receives every line at its unit cost and books the total as
// an expense. An unknown product aborts the whole purchase.
func (s *Service) CreatePurchase(ctx context.Context, p shared.Principal, input CreateInput) (Purchase, error) {
	if err := s.authz.Authorize(p, shared.ActionPurchaseCreate); err != nil {
		return Purchase{}, err
	}
	if input.SupplierID <= 0 {
		return Purchase{}, shared.Invalid("supplier required")
	}
	if len(input.Items) == 0 {
		return Purchase{}, shared.Invalid("at least one item is required")
	}
	items := make([]Item, 0, len(input.Items))
	total := decimal.Zero
	for i, in := range input.Items {
		if in.ProductID <= 0 || in.VariantID < 0 {
			return Purchase{}, shared.Invalid("item %d: product required", i+1)
		}
		if in.Quantity <= 0 {
			return Purchase{}, shared.Invalid("item %d: quantity must be positive", i+1)
		}
		if in.UnitCost.IsNegative() {
			return Purchase{}, shared.Invalid("item %d: unit cost must not be negative", i+1)
		}
		unitCost := shared.RoundCost(in.UnitCost)
		line := shared.RoundMoney(unitCost.Mul(decimal.NewFromInt(int64(in.Quantity))))
		total = total.Add(line)
		items = append(items, Item{
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			UnitCost:  unitCost,
			LineTotal: line,
		})
	}

	now := s.now()
	purchaseDate := now
	if input.PurchaseDate != nil {
		purchaseDate = *input.PurchaseDate
	}
	purchaseDate, _ = shared.BusinessDay(purchaseDate)

	purchase := Purchase{
		SupplierID:   input.SupplierID,
		Total:        total,
		PurchaseDate: purchaseDate,
		Notes:        strings.TrimSpace(input.Notes),
		CreatedBy:    p.UserID,
		CreatedAt:    now.UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		supplier, err := tx.GetSupplier(ctx, input.SupplierID)
		if err != nil {
			return err
		}
		if !supplier.Active {
			return shared.NotFound("supplier", input.SupplierID)
		}
		for i := range items {
			if err := receive(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		seq, err := tx.NextSequence(ctx, sequence.KindPurchase)
		if err != nil {
			return err
		}
		purchase.SequenceNumber = seq
		purchase.Number = sequence.Format(sequence.PrefixPurchase, seq)
		purchase.Items = items
		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id
		if err := tx.InsertPurchaseItems(ctx, id, items); err != nil {
			return err
		}
		if !total.IsPositive() {
			return nil
		}
		return tx.InsertExpense(ctx, Expense{
			Amount:      total,
			Description: "Compra " + purchase.Number + " a " + supplier.Name,
			RefID:       id,
			OccurredAt:  purchase.CreatedAt,
			CreatedBy:   p.UserID,
		})
	})
	if err != nil {
		return Purchase{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "purchase.create",
			Entity:   "purchase",
			EntityID: strconv.FormatInt(purchase.ID, 10),
			Meta: map[string]any{
				"number":      purchase.Number,
				"supplier_id": purchase.SupplierID,
				"total":       total.StringFixed(2),
				"items":       len(items),
			},
			At: now,
		})
	}
	s.invalidate(ctx)
	return purchase, nil
}

// receive applies one line. Services are recorded without stock or cost.
func receive(ctx context.Context, tx TxRepository, item *Item) error {
	stocked, err := tx.Lookup(ctx, item.Ref())
	if err != nil {
		return err
	}
	if !stocked.Active {
		return shared.NotFound("product", item.ProductID)
	}
	if stocked.IsService {
		item.CostAfter = stocked.Cost
		return nil
	}
	level, err := tx.ReceiveAtCost(ctx, item.Ref(), item.Quantity, item.UnitCost)
	if err != nil {
		return err
	}
	item.CostAfter = level.Cost
	item.StockAfter = level.Stock
	return nil
}

// GetPurchase returns a recorded purchase.
func (s *Service) GetPurchase(ctx context.Context, p shared.Principal, id int64) (Purchase, error) {
	if err := s.authz.Authorize(p, shared.ActionPurchaseCreate); err != nil {
		return Purchase{}, err
	}
	return s.repo.GetPurchase(ctx, id)
}
