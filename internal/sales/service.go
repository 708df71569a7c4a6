package sales

import (
	"context"
	"errors"
	"sort"
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
	ClaimIdempotencyKey(ctx context.Context, key string) error
	GetClient(ctx context.Context, id int64) (Client, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
	InsertUpfrontPayment(ctx context.Context, payment UpfrontPayment) error
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	CancelInvoice(ctx context.Context, id, actorID int64, at time.Time, reason string) error
	InsertQuote(ctx context.Context, q Quote) (int64, error)
	InsertQuoteItems(ctx context.Context, quoteID int64, items []InvoiceItem) error
	GetQuoteForUpdate(ctx context.Context, id int64) (Quote, error)
	UpdateQuoteStatus(ctx context.Context, id int64, status QuoteStatus, invoiceID int64) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetQuote(ctx context.Context, id int64) (Quote, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockNotifier is told about rows that dropped to their reorder threshold.
type StockNotifier interface {
	NotifyLowStock(ctx context.Context, levels []catalog.StockLevel) error
}

// MetricsPort counts committed sales.
type MetricsPort interface {
	InvoiceCreated(method string, total decimal.Decimal)
	StockRejected()
}

// Service coordinates invoices and quotes.
type Service struct {
	repo     RepositoryPort
	authz    shared.Authorizer
	audit    AuditPort
	notifier StockNotifier
	metrics  MetricsPort
	now      func() time.Time

	invalidator shared.Invalidator
}

// NewService builds Service.
func NewService(repo RepositoryPort, authz shared.Authorizer, audit AuditPort, notifier StockNotifier, metrics MetricsPort) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, notifier: notifier, metrics: metrics, now: time.Now}
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

// CreateInvoice records a sale: invoice, items and stock decrement commit together.
func (s *Service) CreateInvoice(ctx context.Context, p shared.Principal, input CreateInvoiceInput) (Invoice, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceCreate); err != nil {
		return Invoice{}, err
	}
	if input.ClientID <= 0 {
		return Invoice{}, shared.Invalid("client required")
	}
	if !input.PaymentMethod.Valid() {
		return Invoice{}, shared.Invalid("unknown payment method %q", input.PaymentMethod)
	}
	if err := validateLines(input.Items); err != nil {
		return Invoice{}, err
	}

	var (
		invoice Invoice
		levels  []catalog.StockLevel
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
			return err
		}
		var err error
		invoice, levels, err = s.issueInvoice(ctx, tx, p, issueParams{
			clientID: input.ClientID,
			lines:    input.Items,
			method:   input.PaymentMethod,
			notes:    input.Notes,
		})
		return err
	})
	if err != nil {
		s.countRejection(err)
		return Invoice{}, err
	}
	s.afterInvoice(ctx, p, invoice, levels, "invoice.create")
	return invoice, nil
}

type issueParams struct {
	clientID int64
	quoteID  int64
	lines    []LineInput
	method   PaymentMethod
	notes    string
}

type demand struct {
	ref catalog.StockRef
	qty int
}

// issueInvoice runs inside the caller's transaction.
func (s *Service) issueInvoice(ctx context.Context, tx TxRepository, p shared.Principal, params issueParams) (Invoice, []catalog.StockLevel, error) {
	client, err := tx.GetClient(ctx, params.clientID)
	if err != nil {
		return Invoice{}, nil, err
	}
	if !client.Active {
		return Invoice{}, nil, shared.NotFound("client", params.clientID)
	}

	items, demands, err := resolveLines(ctx, tx, params.lines)
	if err != nil {
		return Invoice{}, nil, err
	}

	seq, err := tx.NextSequence(ctx, sequence.KindInvoice)
	if err != nil {
		return Invoice{}, nil, err
	}
	ncfType := sequence.NCFTypeForClient(client.RNC)
	ncfSeq, err := tx.NextSequence(ctx, sequence.NCFKind(ncfType))
	if err != nil {
		return Invoice{}, nil, err
	}

	now := s.now().UTC()
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	invoice := Invoice{
		SequenceNumber: seq,
		Number:         sequence.Format(sequence.PrefixInvoice, seq),
		NCF:            sequence.FormatNCF(ncfType, ncfSeq),
		NCFType:        ncfType,
		ClientID:       client.ID,
		QuoteID:        params.quoteID,
		Items:          items,
		Total:          total,
		PaymentMethod:  params.method,
		Notes:          strings.TrimSpace(params.notes),
		CreatedBy:      p.UserID,
		CreatedAt:      now,
	}
	if params.method.Tender() {
		invoice.Status = InvoiceStatusPaid
		invoice.Balance = decimal.Zero
	} else {
		invoice.Status = InvoiceStatusPending
		invoice.Balance = total
		if shared.IsSettled(total) {
			invoice.Status = InvoiceStatusPaid
			invoice.Balance = decimal.Zero
		}
	}

	id, err := tx.InsertInvoice(ctx, invoice)
	if err != nil {
		return Invoice{}, nil, err
	}
	invoice.ID = id
	if err := tx.InsertInvoiceItems(ctx, id, invoice.Items); err != nil {
		return Invoice{}, nil, err
	}

	var low []catalog.StockLevel
	for _, d := range demands {
		level, err := tx.Decrement(ctx, d.ref, d.qty)
		if err != nil {
			return Invoice{}, nil, err
		}
		if level.Low() {
			low = append(low, level)
		}
	}

	if params.method.Tender() && total.IsPositive() {
		if err := tx.InsertUpfrontPayment(ctx, UpfrontPayment{
			InvoiceID: id,
			Amount:    total,
			Method:    params.method,
			PaidAt:    now,
			CreatedBy: p.UserID,
		}); err != nil {
			return Invoice{}, nil, err
		}
	}
	return invoice, low, nil
}

// resolveLines validates every line against the catalog and aggregates stock
// demand per row. Demands are sorted so concurrent sales lock rows in the same order.
func resolveLines(ctx context.Context, tx catalog.StockLedger, lines []LineInput) ([]InvoiceItem, []demand, error) {
	items := make([]InvoiceItem, 0, len(lines))
	totals := make(map[catalog.StockRef]int)
	stocked := make(map[catalog.StockRef]catalog.StockItem)
	for i, line := range lines {
		ref := catalog.StockRef{ProductID: line.ProductID, VariantID: line.VariantID}
		item, err := tx.Lookup(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		if !item.Active {
			return nil, nil, shared.NotFound("product", line.ProductID)
		}
		if item.HasVariants && line.VariantID == 0 {
			return nil, nil, shared.Invalid("item %d: product %d requires a variant", i+1, line.ProductID)
		}
		price := shared.RoundMoney(line.Price)
		items = append(items, InvoiceItem{
			LineNo:      i + 1,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Description: item.Name,
			Quantity:    line.Quantity,
			Price:       price,
			LineTotal:   shared.RoundMoney(price.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
		if item.IsService {
			continue
		}
		totals[ref] += line.Quantity
		stocked[ref] = item
	}

	demands := make([]demand, 0, len(totals))
	for ref, qty := range totals {
		if available := stocked[ref].Stock; available < qty {
			return nil, nil, &shared.OutOfStockError{ProductID: ref.ProductID, VariantID: ref.VariantID, Requested: qty, Available: available}
		}
		demands = append(demands, demand{ref: ref, qty: qty})
	}
	sort.Slice(demands, func(i, j int) bool {
		if demands[i].ref.ProductID != demands[j].ref.ProductID {
			return demands[i].ref.ProductID < demands[j].ref.ProductID
		}
		return demands[i].ref.VariantID < demands[j].ref.VariantID
	})
	return items, demands, nil
}

func (s *Service) afterInvoice(ctx context.Context, p shared.Principal, invoice Invoice, low []catalog.StockLevel, action string) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   action,
			Entity:   "invoice",
			EntityID: strconv.FormatInt(invoice.ID, 10),
			Meta: map[string]any{
				"number":         invoice.Number,
				"ncf":            invoice.NCF,
				"total":          invoice.Total.StringFixed(2),
				"payment_method": string(invoice.PaymentMethod),
			},
			At: invoice.CreatedAt,
		})
	}
	if s.metrics != nil {
		s.metrics.InvoiceCreated(string(invoice.PaymentMethod), invoice.Total)
	}
	if s.notifier != nil && len(low) > 0 {
		_ = s.notifier.NotifyLowStock(ctx, low)
	}
	s.invalidate(ctx)
}

func (s *Service) countRejection(err error) {
	if s.metrics == nil {
		return
	}
	if errors.Is(err, shared.ErrOutOfStock) {
		s.metrics.StockRejected()
	}
}

// GetInvoice returns an invoice with its items.
func (s *Service) GetInvoice(ctx context.Context, p shared.Principal, id int64) (Invoice, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceView); err != nil {
		return Invoice{}, err
	}
	if id <= 0 {
		return Invoice{}, shared.Invalid("invoice id required")
	}
	return s.repo.GetInvoice(ctx, id)
}

// CancelInvoice moves a PENDING invoice to CANCELLED. Stock is not restored;
// returns go through credit notes.
func (s *Service) CancelInvoice(ctx context.Context, p shared.Principal, input CancelInvoiceInput) (Invoice, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceCancel); err != nil {
		return Invoice{}, err
	}
	if input.InvoiceID <= 0 {
		return Invoice{}, shared.Invalid("invoice id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return Invoice{}, shared.Invalid("cancel reason required")
	}
	now := s.now().UTC()
	var invoice Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if current.Status != InvoiceStatusPending {
			return shared.InvalidState("invoice %s is %s, only PENDING invoices can be cancelled", current.Number, current.Status)
		}
		if err := tx.CancelInvoice(ctx, current.ID, p.UserID, now, reason); err != nil {
			return err
		}
		current.Status = InvoiceStatusCancelled
		current.CancelledBy = p.UserID
		current.CancelledAt = &now
		current.CancelReason = reason
		invoice = current
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "invoice.cancel",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(invoice.ID, 10),
			Meta:     map[string]any{"reason": reason, "balance": invoice.Balance.StringFixed(2)},
			At:       now,
		})
	}
	s.invalidate(ctx)
	return invoice, nil
}
