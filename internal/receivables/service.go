package receivables

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sales"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key string) error
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (InvoiceBalance, error)
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	UpdateBalance(ctx context.Context, invoiceID int64, balance decimal.Decimal, status sales.InvoiceStatus) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoiceBalance(ctx context.Context, invoiceID int64) (InvoiceBalance, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives business counters after commit.
type MetricsPort interface {
	PaymentRegistered(method string, amount decimal.Decimal)
}

// Service registers payments.
type Service struct {
	repo    RepositoryPort
	authz   shared.Authorizer
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time

	invalidator shared.Invalidator
}

// NewService builds Service.
func NewService(repo RepositoryPort, authz shared.Authorizer, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, metrics: metrics, now: time.Now}
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

// RegisterPayment applies amount to the invoice balance under a row lock.
func (s *Service) RegisterPayment(ctx context.Context, p shared.Principal, input RegisterInput) (Receipt, error) {
	if err := s.authz.Authorize(p, shared.ActionPaymentRegister); err != nil {
		return Receipt{}, err
	}
	if input.InvoiceID <= 0 {
		return Receipt{}, shared.Invalid("invoice required")
	}
	if !input.Amount.IsPositive() {
		return Receipt{}, shared.Invalid("amount must be positive")
	}
	if !input.Method.Tender() {
		return Receipt{}, shared.Invalid("payment method %q cannot settle a balance", input.Method)
	}
	amount := shared.RoundMoney(input.Amount)
	paidAt := s.now().UTC()
	if input.PaidAt != nil {
		paidAt = input.PaidAt.UTC()
	}

	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
			return err
		}
		inv, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == sales.InvoiceStatusCancelled {
			return shared.InvalidState("invoice %s is cancelled", inv.Number)
		}
		if inv.Status == sales.InvoiceStatusPaid {
			return shared.InvalidState("invoice %s is already paid", inv.Number)
		}
		next := inv.Balance.Sub(amount)
		if next.LessThan(shared.Tolerance.Neg()) {
			return shared.ExceedsBalance("amount %s exceeds balance %s", amount.StringFixed(2), inv.Balance.StringFixed(2))
		}
		status := inv.Status
		balance := shared.ClampMoney(next, decimal.Zero, inv.Total)
		if shared.IsSettled(next) {
			status = sales.InvoiceStatusPaid
			balance = decimal.Zero
		}

		payment := Payment{
			InvoiceID: inv.ID,
			Amount:    amount,
			Method:    input.Method,
			Reference: strings.TrimSpace(input.Reference),
			PaidAt:    paidAt,
			CreatedBy: p.UserID,
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		if err := tx.UpdateBalance(ctx, inv.ID, balance, status); err != nil {
			return err
		}
		receipt = Receipt{Payment: payment, Balance: balance, Status: status}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "payment.register",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(input.InvoiceID, 10),
			Meta: map[string]any{
				"payment_id": receipt.Payment.ID,
				"amount":     amount.StringFixed(2),
				"method":     string(input.Method),
				"balance":    receipt.Balance.StringFixed(2),
			},
			At: s.now(),
		})
	}
	if s.metrics != nil {
		s.metrics.PaymentRegistered(string(input.Method), amount)
	}
	s.invalidate(ctx)
	return receipt, nil
}

// ListPayments returns the payments applied to an invoice.
func (s *Service) ListPayments(ctx context.Context, p shared.Principal, invoiceID int64) ([]Payment, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceView); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetInvoiceBalance(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, invoiceID)
}

// Statement returns total, paid and outstanding amounts for an invoice.
func (s *Service) Statement(ctx context.Context, p shared.Principal, invoiceID int64) (Statement, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceView); err != nil {
		return Statement{}, err
	}
	inv, err := s.repo.GetInvoiceBalance(ctx, invoiceID)
	if err != nil {
		return Statement{}, err
	}
	payments, err := s.repo.ListPayments(ctx, invoiceID)
	if err != nil {
		return Statement{}, err
	}
	paid := decimal.Zero
	for _, pay := range payments {
		paid = paid.Add(pay.Amount)
	}
	if payments == nil {
		payments = []Payment{}
	}
	return Statement{
		InvoiceID: inv.ID,
		Number:    inv.Number,
		Status:    inv.Status,
		Total:     inv.Total,
		Paid:      paid,
		Balance:   inv.Balance,
		Payments:  payments,
	}, nil
}
