package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog/catalogtest"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/rbac"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sequence"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

type memoryState struct {
	invoices  map[int64]Invoice
	quotes    map[int64]Quote
	payments  []UpfrontPayment
	sequences map[sequence.Kind]int64
	idemKeys  map[string]bool
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		invoices:  make(map[int64]Invoice, len(s.invoices)),
		quotes:    make(map[int64]Quote, len(s.quotes)),
		payments:  append([]UpfrontPayment(nil), s.payments...),
		sequences: make(map[sequence.Kind]int64, len(s.sequences)),
		idemKeys:  make(map[string]bool, len(s.idemKeys)),
	}
	for k, v := range s.invoices {
		out.invoices[k] = v
	}
	for k, v := range s.quotes {
		out.quotes[k] = v
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	for k, v := range s.idemKeys {
		out.idemKeys[k] = v
	}
	return out
}

type memoryRepo struct {
	mu      sync.Mutex
	stock   *catalogtest.Memory
	clients map[int64]Client
	state   memoryState
	nextID  int64
}

type memoryTx struct {
	*catalogtest.Memory
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		stock: catalogtest.NewMemory(),
		clients: map[int64]Client{
			1: {ID: 1, Name: "Consumidor final", Active: true},
			2: {ID: 2, Name: "Taller Pérez SRL", RNC: "131-00000-1", Active: true},
			3: {ID: 3, Name: "Inactivo", Active: false},
		},
		state: memoryState{
			invoices:  map[int64]Invoice{},
			quotes:    map[int64]Quote{},
			sequences: map[sequence.Kind]int64{},
			idemKeys:  map[string]bool{},
		},
	}
}

// WithTx serialises callers and restores every map when fn fails.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := r.state.clone()
	savedStock := r.stock.Snapshot()
	if err := fn(ctx, &memoryTx{Memory: r.stock, repo: r}); err != nil {
		r.state = saved
		r.stock.Restore(savedStock)
		return err
	}
	return nil
}

func (r *memoryRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := r.state.invoices[id]
	if !ok {
		return Invoice{}, shared.NotFound("invoice", id)
	}
	return inv, nil
}

func (r *memoryRepo) GetQuote(_ context.Context, id int64) (Quote, error) {
	q, ok := r.state.quotes[id]
	if !ok {
		return Quote{}, shared.NotFound("quote", id)
	}
	return q, nil
}

func (tx *memoryTx) NextSequence(_ context.Context, kind sequence.Kind) (int64, error) {
	tx.repo.state.sequences[kind]++
	return tx.repo.state.sequences[kind], nil
}

func (tx *memoryTx) ClaimIdempotencyKey(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	if tx.repo.state.idemKeys[key] {
		return shared.ErrIdempotencyConflict
	}
	tx.repo.state.idemKeys[key] = true
	return nil
}

func (tx *memoryTx) GetClient(_ context.Context, id int64) (Client, error) {
	c, ok := tx.repo.clients[id]
	if !ok {
		return Client{}, shared.NotFound("client", id)
	}
	return c, nil
}

func (tx *memoryTx) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	tx.repo.nextID++
	inv.ID = tx.repo.nextID
	tx.repo.state.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (tx *memoryTx) InsertInvoiceItems(_ context.Context, invoiceID int64, items []InvoiceItem) error {
	inv := tx.repo.state.invoices[invoiceID]
	inv.Items = append([]InvoiceItem(nil), items...)
	tx.repo.state.invoices[invoiceID] = inv
	return nil
}

func (tx *memoryTx) InsertUpfrontPayment(_ context.Context, payment UpfrontPayment) error {
	tx.repo.state.payments = append(tx.repo.state.payments, payment)
	return nil
}

func (tx *memoryTx) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return tx.repo.GetInvoice(ctx, id)
}

func (tx *memoryTx) CancelInvoice(_ context.Context, id, actorID int64, at time.Time, reason string) error {
	inv := tx.repo.state.invoices[id]
	inv.Status = InvoiceStatusCancelled
	inv.CancelledBy = actorID
	inv.CancelledAt = &at
	inv.CancelReason = reason
	tx.repo.state.invoices[id] = inv
	return nil
}

func (tx *memoryTx) InsertQuote(_ context.Context, q Quote) (int64, error) {
	tx.repo.nextID++
	q.ID = tx.repo.nextID
	tx.repo.state.quotes[q.ID] = q
	return q.ID, nil
}

func (tx *memoryTx) InsertQuoteItems(_ context.Context, quoteID int64, items []InvoiceItem) error {
	q := tx.repo.state.quotes[quoteID]
	q.Items = append([]InvoiceItem(nil), items...)
	tx.repo.state.quotes[quoteID] = q
	return nil
}

func (tx *memoryTx) GetQuoteForUpdate(ctx context.Context, id int64) (Quote, error) {
	return tx.repo.GetQuote(ctx, id)
}

func (tx *memoryTx) UpdateQuoteStatus(_ context.Context, id int64, status QuoteStatus, invoiceID int64) error {
	q := tx.repo.state.quotes[id]
	q.Status = status
	if invoiceID != 0 {
		q.InvoiceID = invoiceID
	}
	tx.repo.state.quotes[id] = q
	return nil
}

type recordingNotifier struct {
	levels []catalog.StockLevel
}

func (n *recordingNotifier) NotifyLowStock(_ context.Context, levels []catalog.StockLevel) error {
	n.levels = append(n.levels, levels...)
	return nil
}

var (
	admin  = shared.Principal{UserID: 1, Role: shared.RoleAdmin}
	seller = shared.Principal{UserID: 2, Role: shared.RoleSeller}
	tech   = shared.Principal{UserID: 3, Role: shared.RoleTechnician}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService() (*Service, *memoryRepo, *recordingNotifier) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, rbac.DefaultPolicy(), nil, notifier, nil).
		WithNow(func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) })
	return svc, repo, notifier
}

func TestCashSaleDecrementsStockAndSettles(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Filtro de aceite", 5, "250", "120")
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, seller, CreateInvoiceInput{
		ClientID:      1,
		Items:         []LineInput{{ProductID: 10, Quantity: 3, Price: dec("250")}},
		PaymentMethod: PaymentCash,
	})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, inv.Status)
	require.True(t, inv.Balance.IsZero())
	require.Equal(t, "750.00", inv.Total.StringFixed(2))
	require.Equal(t, "FAC-00000001", inv.Number)
	require.Equal(t, "B0200000001", inv.NCF)
	require.Equal(t, 2, repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
	require.Len(t, repo.state.payments, 1)
	require.True(t, repo.state.payments[0].Amount.Equal(inv.Total))

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{
		ClientID:      1,
		Items:         []LineInput{{ProductID: 10, Quantity: 3, Price: dec("250")}},
		PaymentMethod: PaymentCash,
	})
	var oos *shared.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.ErrorIs(t, err, shared.ErrOutOfStock)
	require.Equal(t, 2, oos.Available)
	require.Equal(t, 2, repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
	require.Len(t, repo.state.invoices, 1)
	require.Len(t, repo.state.payments, 1)
}

func TestOutOfStockLeavesZeroTrace(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Filtro", 10, "100", "50")
	repo.stock.AddProduct(11, "Bujía", 1, "80", "30")
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, seller, CreateInvoiceInput{
		ClientID: 1,
		Items: []LineInput{
			{ProductID: 10, Quantity: 4, Price: dec("100")},
			{ProductID: 11, Quantity: 2, Price: dec("80")},
		},
		PaymentMethod: PaymentCard,
	})
	require.ErrorIs(t, err, shared.ErrOutOfStock)
	require.Equal(t, 10, repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
	require.Empty(t, repo.state.invoices)
	require.Empty(t, repo.state.payments)
	require.Empty(t, repo.state.sequences)
}

func TestDuplicateLinesAreAggregatedBeforeStockCheck(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Filtro", 4, "100", "50")

	_, err := svc.CreateInvoice(context.Background(), seller, CreateInvoiceInput{
		ClientID: 1,
		Items: []LineInput{
			{ProductID: 10, Quantity: 3, Price: dec("100")},
			{ProductID: 10, Quantity: 2, Price: dec("100")},
		},
		PaymentMethod: PaymentCash,
	})
	var oos *shared.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Equal(t, 5, oos.Requested)
	require.Equal(t, 4, repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
}

func TestCreditSaleStaysPendingAndServicesSkipStock(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddService(20, "Mano de obra", "1000")

	inv, err := svc.CreateInvoice(context.Background(), seller, CreateInvoiceInput{
		ClientID:      2,
		Items:         []LineInput{{ProductID: 20, Quantity: 1, Price: dec("1000")}},
		PaymentMethod: PaymentCredit,
	})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPending, inv.Status)
	require.True(t, inv.Balance.Equal(dec("1000")))
	require.Equal(t, sequence.NCFCreditFiscal, inv.NCFType)
	require.Empty(t, repo.state.payments)
}

func TestCreateInvoiceValidationAndAuthorization(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Filtro", 4, "100", "50")
	ctx := context.Background()
	valid := []LineInput{{ProductID: 10, Quantity: 1, Price: dec("100")}}

	_, err := svc.CreateInvoice(ctx, tech, CreateInvoiceInput{ClientID: 1, Items: valid, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, Items: []LineInput{{ProductID: 10, Quantity: 0}}, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, Items: valid, PaymentMethod: "BITCOIN"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 99, Items: valid, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 3, Items: valid, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, Items: []LineInput{{ProductID: 77, Quantity: 1}}, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, 4, repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
}

func TestIdempotencyKeyPreventsDoubleSale(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Filtro", 4, "100", "50")
	input := CreateInvoiceInput{
		ClientID:       1,
		Items:          []LineInput{{ProductID: 10, Quantity: 1, Price: dec("100")}},
		PaymentMethod:  PaymentCash,
		IdempotencyKey: "pos-1-abc",
	}
	_, err := svc.CreateInvoice(context.Background(), seller, input)
	require.NoError(t, err)
	_, err = svc.CreateInvoice(context.Background(), seller, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Equal(t, 3, repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
}

func TestLowStockNotification(t *testing.T) {
	svc, repo, notifier := newTestService()
	repo.stock.Put(catalog.StockItem{Ref: catalog.StockRef{ProductID: 10}, Name: "Filtro", Price: dec("100"), Stock: 5, MinStock: 3, Active: true})

	_, err := svc.CreateInvoice(context.Background(), seller, CreateInvoiceInput{
		ClientID:      1,
		Items:         []LineInput{{ProductID: 10, Quantity: 2, Price: dec("100")}},
		PaymentMethod: PaymentCash,
	})
	require.NoError(t, err)
	require.Len(t, notifier.levels, 1)
	require.Equal(t, 3, notifier.levels[0].Stock)
}

func TestCancelInvoice(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Filtro", 5, "100", "50")
	ctx := context.Background()

	credit, err := svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, Items: []LineInput{{ProductID: 10, Quantity: 1, Price: dec("100")}}, PaymentMethod: PaymentCredit})
	require.NoError(t, err)
	cash, err := svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, Items: []LineInput{{ProductID: 10, Quantity: 1, Price: dec("100")}}, PaymentMethod: PaymentCash})
	require.NoError(t, err)

	_, err = svc.CancelInvoice(ctx, seller, CancelInvoiceInput{InvoiceID: credit.ID, Reason: "error"})
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.CancelInvoice(ctx, admin, CancelInvoiceInput{InvoiceID: credit.ID})
	require.ErrorIs(t, err, shared.ErrValidation)

	cancelled, err := svc.CancelInvoice(ctx, admin, CancelInvoiceInput{InvoiceID: credit.ID, Reason: "cliente desistió"})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusCancelled, cancelled.Status)

	_, err = svc.CancelInvoice(ctx, admin, CancelInvoiceInput{InvoiceID: credit.ID, Reason: "again"})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.CancelInvoice(ctx, admin, CancelInvoiceInput{InvoiceID: cash.ID, Reason: "paid"})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, 3, repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(context.Context) error {
	c.bumps++
	return nil
}

func TestCommittedChangesInvalidateDailyCloseCache(t *testing.T) {
	svc, repo, _ := newTestService()
	inv := &countingInvalidator{}
	svc.WithInvalidator(inv)
	repo.stock.AddProduct(10, "Filtro", 1, "100", "50")
	ctx := context.Background()

	credit, err := svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, Items: []LineInput{{ProductID: 10, Quantity: 1, Price: dec("100")}}, PaymentMethod: PaymentCredit})
	require.NoError(t, err)
	require.Equal(t, 1, inv.bumps)

	_, err = svc.CreateInvoice(ctx, seller, CreateInvoiceInput{ClientID: 1, Items: []LineInput{{ProductID: 10, Quantity: 1, Price: dec("100")}}, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrOutOfStock)
	require.Equal(t, 1, inv.bumps)

	_, err = svc.CancelInvoice(ctx, admin, CancelInvoiceInput{InvoiceID: credit.ID, Reason: "error de digitación"})
	require.NoError(t, err)
	require.Equal(t, 2, inv.bumps)
}
