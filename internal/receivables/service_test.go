package receivables

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/rbac"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sales"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	invoices map[int64]InvoiceBalance
	payments []Payment
	keys     map[string]bool
}

type memoryTx struct{ repo *memoryRepo }

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: map[int64]InvoiceBalance{
			1: {ID: 1, Number: "FAC-00000001", Status: sales.InvoiceStatusPending, Total: dec("1000.00"), Balance: dec("1000.00")},
			2: {ID: 2, Number: "FAC-00000002", Status: sales.InvoiceStatusCancelled, Total: dec("500.00"), Balance: dec("500.00")},
		},
		keys: map[string]bool{},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoices := make(map[int64]InvoiceBalance, len(r.invoices))
	for k, v := range r.invoices {
		invoices[k] = v
	}
	keys := make(map[string]bool, len(r.keys))
	for k, v := range r.keys {
		keys[k] = v
	}
	payments := append([]Payment(nil), r.payments...)
	if err := fn(ctx, memoryTx{repo: r}); err != nil {
		r.invoices, r.keys, r.payments = invoices, keys, payments
		return err
	}
	return nil
}

func (r *memoryRepo) GetInvoiceBalance(_ context.Context, id int64) (InvoiceBalance, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return InvoiceBalance{}, shared.NotFound("invoice", id)
	}
	return inv, nil
}

func (r *memoryRepo) ListPayments(_ context.Context, id int64) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.InvoiceID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (tx memoryTx) ClaimIdempotencyKey(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	if tx.repo.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	tx.repo.keys[key] = true
	return nil
}

func (tx memoryTx) GetInvoiceForUpdate(ctx context.Context, id int64) (InvoiceBalance, error) {
	return tx.repo.GetInvoiceBalance(ctx, id)
}

func (tx memoryTx) InsertPayment(_ context.Context, p Payment) (int64, error) {
	p.ID = int64(len(tx.repo.payments) + 1)
	tx.repo.payments = append(tx.repo.payments, p)
	return p.ID, nil
}

func (tx memoryTx) UpdateBalance(_ context.Context, id int64, balance decimal.Decimal, status sales.InvoiceStatus) error {
	inv := tx.repo.invoices[id]
	inv.Balance, inv.Status = balance, status
	tx.repo.invoices[id] = inv
	return nil
}

type countingMetrics struct{ count int }

func (m *countingMetrics) PaymentRegistered(string, decimal.Decimal) { m.count++ }

var (
	accountant = shared.Principal{UserID: 4, Role: shared.RoleAccountant}
	technician = shared.Principal{UserID: 5, Role: shared.RoleTechnician}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService() (*Service, *memoryRepo, *countingMetrics) {
	repo := newMemoryRepo()
	metrics := &countingMetrics{}
	svc := NewService(repo, rbac.DefaultPolicy(), nil, metrics).
		WithNow(func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) })
	return svc, repo, metrics
}

func pay(amount string) RegisterInput {
	return RegisterInput{InvoiceID: 1, Amount: dec(amount), Method: sales.PaymentCash}
}

func TestPaymentsSettleCreditInvoice(t *testing.T) {
	svc, repo, metrics := newTestService()
	ctx := context.Background()

	receipt, err := svc.RegisterPayment(ctx, accountant, pay("400"))
	require.NoError(t, err)
	assert.True(t, dec("600.00").Equal(receipt.Balance))
	assert.Equal(t, sales.InvoiceStatusPending, receipt.Status)

	receipt, err = svc.RegisterPayment(ctx, accountant, pay("600"))
	require.NoError(t, err)
	assert.True(t, receipt.Balance.IsZero())
	assert.Equal(t, sales.InvoiceStatusPaid, receipt.Status)

	_, err = svc.RegisterPayment(ctx, accountant, pay("0.02"))
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Len(t, repo.payments, 2)
	require.Equal(t, 2, metrics.count)

	st, err := svc.Statement(ctx, accountant, 1)
	require.NoError(t, err)
	assert.True(t, dec("1000.00").Equal(st.Paid))
	assert.True(t, st.Balance.Add(st.Paid).Equal(st.Total))
}

func TestSettledInvoiceRejectsCentPayments(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterPayment(ctx, accountant, pay("1000"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = svc.RegisterPayment(ctx, accountant, pay("0.01"))
		require.ErrorIs(t, err, shared.ErrInvalidState)
	}
	require.Len(t, repo.payments, 1)

	st, err := svc.Statement(ctx, accountant, 1)
	require.NoError(t, err)
	assert.True(t, dec("1000.00").Equal(st.Paid))
	assert.True(t, st.Balance.IsZero())
	assert.True(t, shared.WithinTolerance(st.Balance.Add(st.Paid), st.Total))
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(context.Context) error {
	c.bumps++
	return nil
}

func TestPaymentInvalidatesDailyCloseCache(t *testing.T) {
	svc, _, _ := newTestService()
	inv := &countingInvalidator{}
	svc.WithInvalidator(inv)
	ctx := context.Background()

	_, err := svc.RegisterPayment(ctx, accountant, pay("100"))
	require.NoError(t, err)
	_, err = svc.RegisterPayment(ctx, accountant, pay("5000"))
	require.ErrorIs(t, err, shared.ErrExceedsBalance)
	require.Equal(t, 1, inv.bumps)
}

func TestOverpaymentPersistsNothing(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.RegisterPayment(context.Background(), accountant, pay("1000.02"))
	require.ErrorIs(t, err, shared.ErrExceedsBalance)
	require.Equal(t, "EXCEEDS_BALANCE", shared.ErrorCode(err))
	require.Empty(t, repo.payments)
	require.True(t, dec("1000.00").Equal(repo.invoices[1].Balance))
}

func TestPaymentWithinToleranceSettles(t *testing.T) {
	svc, _, _ := newTestService()

	receipt, err := svc.RegisterPayment(context.Background(), accountant, pay("999.99"))
	require.NoError(t, err)
	require.Equal(t, sales.InvoiceStatusPaid, receipt.Status)
	require.True(t, receipt.Balance.IsZero())
}

func TestPaymentRejections(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterPayment(ctx, technician, pay("10"))
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.RegisterPayment(ctx, accountant, pay("0"))
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RegisterPayment(ctx, accountant, RegisterInput{InvoiceID: 1, Amount: dec("10"), Method: sales.PaymentCredit})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RegisterPayment(ctx, accountant, RegisterInput{InvoiceID: 2, Amount: dec("10"), Method: sales.PaymentCard})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.RegisterPayment(ctx, accountant, RegisterInput{InvoiceID: 9, Amount: dec("10"), Method: sales.PaymentCard})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentIdempotencyKey(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	in := pay("100")
	in.IdempotencyKey = "pay-1"
	_, err := svc.RegisterPayment(ctx, accountant, in)
	require.NoError(t, err)
	_, err = svc.RegisterPayment(ctx, accountant, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, repo.payments, 1)
}
