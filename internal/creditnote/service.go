package creditnote

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

const invoiceStatusCancelled = "CANCELLED"

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	catalog.StockLedger
	NextSequence(ctx context.Context, kind sequence.Kind) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (InvoiceHeader, []InvoiceLine, error)
	InsertCreditNote(ctx context.Context, note CreditNote) (int64, error)
	InsertCreditNoteLines(ctx context.Context, noteID int64, lines []Line) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetCreditNote(ctx context.Context, id int64) (CreditNote, error)
	ListByInvoice(ctx context.Context, invoiceID int64) ([]CreditNote, error)
	InvoiceTotals(ctx context.Context, invoiceID int64) (total, credited decimal.Decimal, err error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service issues credit notes.
type Service struct {
	repo  RepositoryPort
	authz shared.Authorizer
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, authz shared.Authorizer, audit AuditPort) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, now: time.Now}
}

// WithNow overrides the clock, primarily for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create validates every line against the invoice before writing anything,
// then persists the note and optionally returns goods to stock.
func (s *Service) Create(ctx context.Context, p shared.Principal, input CreateInput) (CreditNote, error) {
	if err := s.authz.Authorize(p, shared.ActionCreditNoteCreate); err != nil {
		return CreditNote{}, err
	}
	reason := strings.TrimSpace(input.Reason)
	if input.InvoiceID <= 0 {
		return CreditNote{}, shared.Invalid("invoice required")
	}
	if reason == "" {
		return CreditNote{}, shared.Invalid("reason required")
	}
	if len(input.Items) == 0 {
		return CreditNote{}, shared.Invalid("at least one item is required")
	}
	for i, item := range input.Items {
		if item.ProductID <= 0 || item.VariantID < 0 {
			return CreditNote{}, shared.Invalid("item %d: product required", i+1)
		}
		if item.Quantity <= 0 {
			return CreditNote{}, shared.Invalid("item %d: quantity must be positive", i+1)
		}
	}

	var note CreditNote
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		invoice, lines, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == invoiceStatusCancelled {
			return shared.InvalidState("invoice %s is cancelled", invoice.Number)
		}
		credited, err := allocate(lines, input.Items)
		if err != nil {
			return err
		}

		seq, err := tx.NextSequence(ctx, sequence.KindCreditNote)
		if err != nil {
			return err
		}
		ncfSeq, err := tx.NextSequence(ctx, sequence.NCFKind(sequence.NCFCreditNote))
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, line := range credited {
			total = total.Add(line.Amount)
		}
		note = CreditNote{
			SequenceNumber: seq,
			Number:         sequence.Format(sequence.PrefixCreditNote, seq),
			NCF:            sequence.FormatNCF(sequence.NCFCreditNote, ncfSeq),
			InvoiceID:      invoice.ID,
			Reason:         reason,
			Items:          credited,
			Total:          total,
			RestoreStock:   input.RestoreStock,
			CreatedBy:      p.UserID,
			CreatedAt:      s.now().UTC(),
		}
		id, err := tx.InsertCreditNote(ctx, note)
		if err != nil {
			return err
		}
		note.ID = id
		if err := tx.InsertCreditNoteLines(ctx, id, credited); err != nil {
			return err
		}
		if !input.RestoreStock {
			return nil
		}
		return restock(ctx, tx, credited)
	})
	if err != nil {
		return CreditNote{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "creditnote.create",
			Entity:   "credit_note",
			EntityID: strconv.FormatInt(note.ID, 10),
			Meta: map[string]any{
				"invoice_id":    note.InvoiceID,
				"number":        note.Number,
				"total":         note.Total.StringFixed(2),
				"restore_stock": note.RestoreStock,
			},
			At: note.CreatedAt,
		})
	}
	return note, nil
}

// allocate maps requested quantities onto invoice lines, filling lines of the
// same product in order. It fails when the cumulative credited quantity would
// exceed what was invoiced.
func allocate(lines []InvoiceLine, requested []LineInput) ([]Line, error) {
	remaining := make([]int, len(lines))
	for i, line := range lines {
		remaining[i] = line.Remaining()
	}
	out := make([]Line, 0, len(requested))
	for _, req := range requested {
		want := req.Quantity
		matched := false
		for i, line := range lines {
			if line.ProductID != req.ProductID || line.VariantID != req.VariantID {
				continue
			}
			matched = true
			if want == 0 {
				break
			}
			take := min(want, remaining[i])
			if take <= 0 {
				continue
			}
			remaining[i] -= take
			want -= take
			out = append(out, Line{
				InvoiceItemID: line.ItemID,
				ProductID:     line.ProductID,
				VariantID:     line.VariantID,
				Description:   line.Description,
				Quantity:      take,
				Price:         line.Price,
				Amount:        shared.RoundMoney(line.Price.Mul(decimal.NewFromInt(int64(take)))),
			})
		}
		if !matched {
			return nil, shared.Invalid("product %d was not invoiced", req.ProductID)
		}
		if want > 0 {
			return nil, shared.OverQuantity("product %d: %d units beyond the invoiced quantity", req.ProductID, want)
		}
	}
	return out, nil
}

func restock(ctx context.Context, tx TxRepository, lines []Line) error {
	for _, line := range lines {
		ref := catalog.StockRef{ProductID: line.ProductID, VariantID: line.VariantID}
		item, err := tx.Lookup(ctx, ref)
		if err != nil {
			return err
		}
		if item.IsService {
			continue
		}
		if _, err := tx.Increment(ctx, ref, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a credit note.
func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (CreditNote, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceView); err != nil {
		return CreditNote{}, err
	}
	return s.repo.GetCreditNote(ctx, id)
}

// ListByInvoice returns the notes issued against an invoice.
func (s *Service) ListByInvoice(ctx context.Context, p shared.Principal, invoiceID int64) ([]CreditNote, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceView); err != nil {
		return nil, err
	}
	return s.repo.ListByInvoice(ctx, invoiceID)
}

// NetRevenue reports the invoice total net of credit notes.
func (s *Service) NetRevenue(ctx context.Context, p shared.Principal, invoiceID int64) (NetRevenue, error) {
	if err := s.authz.Authorize(p, shared.ActionInvoiceView); err != nil {
		return NetRevenue{}, err
	}
	total, credited, err := s.repo.InvoiceTotals(ctx, invoiceID)
	if err != nil {
		return NetRevenue{}, err
	}
	return NetRevenue{InvoiceID: invoiceID, InvoiceTotal: total, Credited: credited, Net: total.Sub(credited)}, nil
}
