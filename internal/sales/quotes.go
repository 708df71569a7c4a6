package sales

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sequence"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// CreateQuote persists a quote. Stock is neither checked nor reserved.
func (s *Service) CreateQuote(ctx context.Context, p shared.Principal, input CreateQuoteInput) (Quote, error) {
	if err := s.authz.Authorize(p, shared.ActionQuoteCreate); err != nil {
		return Quote{}, err
	}
	if input.ClientID <= 0 {
		return Quote{}, shared.Invalid("client required")
	}
	if err := validateLines(input.Items); err != nil {
		return Quote{}, err
	}
	if input.ValidUntil != nil {
		start, _ := shared.BusinessDay(s.now())
		if input.ValidUntil.Before(start) {
			return Quote{}, shared.Invalid("valid_until must not be in the past")
		}
	}

	var quote Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		client, err := tx.GetClient(ctx, input.ClientID)
		if err != nil {
			return err
		}
		if !client.Active {
			return shared.NotFound("client", input.ClientID)
		}
		items, err := quoteItems(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		seq, err := tx.NextSequence(ctx, sequence.KindQuote)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.LineTotal)
		}
		quote = Quote{
			SequenceNumber: seq,
			Number:         sequence.Format(sequence.PrefixQuote, seq),
			ClientID:       client.ID,
			Items:          items,
			Total:          total,
			Status:         QuoteStatusPending,
			ValidUntil:     input.ValidUntil,
			Notes:          strings.TrimSpace(input.Notes),
			CreatedBy:      p.UserID,
			CreatedAt:      s.now().UTC(),
		}
		id, err := tx.InsertQuote(ctx, quote)
		if err != nil {
			return err
		}
		quote.ID = id
		return tx.InsertQuoteItems(ctx, id, items)
	})
	if err != nil {
		return Quote{}, err
	}
	s.recordQuote(ctx, p, quote, "quote.create")
	return quote, nil
}

func quoteItems(ctx context.Context, tx catalog.StockLedger, lines []LineInput) ([]InvoiceItem, error) {
	items := make([]InvoiceItem, 0, len(lines))
	for i, line := range lines {
		item, err := tx.Lookup(ctx, catalog.StockRef{ProductID: line.ProductID, VariantID: line.VariantID})
		if err != nil {
			return nil, err
		}
		if !item.Active {
			return nil, shared.NotFound("product", line.ProductID)
		}
		if item.HasVariants && line.VariantID == 0 {
			return nil, shared.Invalid("item %d: product %d requires a variant", i+1, line.ProductID)
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
	}
	return items, nil
}

// AcceptQuote marks a pending quote as accepted by the client.
func (s *Service) AcceptQuote(ctx context.Context, p shared.Principal, quoteID int64) (Quote, error) {
	return s.transitionQuote(ctx, p, quoteID, QuoteStatusPending, QuoteStatusAccepted)
}

// RejectQuote closes an open quote without converting it.
func (s *Service) RejectQuote(ctx context.Context, p shared.Principal, quoteID int64) (Quote, error) {
	return s.transitionQuote(ctx, p, quoteID, "", QuoteStatusRejected)
}

func (s *Service) transitionQuote(ctx context.Context, p shared.Principal, quoteID int64, from, to QuoteStatus) (Quote, error) {
	if err := s.authz.Authorize(p, shared.ActionQuoteCreate); err != nil {
		return Quote{}, err
	}
	if quoteID <= 0 {
		return Quote{}, shared.Invalid("quote id required")
	}
	var quote Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if !current.Status.Open() || (from != "" && current.Status != from) {
			return shared.InvalidState("quote %s is %s", current.Number, current.Status)
		}
		if err := tx.UpdateQuoteStatus(ctx, current.ID, to, 0); err != nil {
			return err
		}
		current.Status = to
		quote = current
		return nil
	})
	if err != nil {
		return Quote{}, err
	}
	s.recordQuote(ctx, p, quote, "quote."+strings.ToLower(string(to)))
	return quote, nil
}

// ConvertQuote turns an open quote into an invoice at the quoted prices.
// Stock is decremented exactly as in CreateInvoice.
func (s *Service) ConvertQuote(ctx context.Context, p shared.Principal, input ConvertQuoteInput) (Invoice, error) {
	if err := s.authz.Authorize(p, shared.ActionQuoteConvert); err != nil {
		return Invoice{}, err
	}
	if input.QuoteID <= 0 {
		return Invoice{}, shared.Invalid("quote id required")
	}
	if !input.PaymentMethod.Valid() {
		return Invoice{}, shared.Invalid("unknown payment method %q", input.PaymentMethod)
	}
	today, _ := shared.BusinessDay(s.now())

	var (
		invoice Invoice
		levels  []catalog.StockLevel
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
			return err
		}
		quote, err := tx.GetQuoteForUpdate(ctx, input.QuoteID)
		if err != nil {
			return err
		}
		if !quote.Status.Open() {
			return shared.InvalidState("quote %s is %s", quote.Number, quote.Status)
		}
		if quote.ValidUntil != nil && shared.CalendarDate(*quote.ValidUntil).Before(today) {
			return shared.InvalidState("quote %s expired", quote.Number)
		}
		lines := make([]LineInput, 0, len(quote.Items))
		for _, item := range quote.Items {
			lines = append(lines, LineInput{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity, Price: item.Price})
		}
		invoice, levels, err = s.issueInvoice(ctx, tx, p, issueParams{
			clientID: quote.ClientID,
			quoteID:  quote.ID,
			lines:    lines,
			method:   input.PaymentMethod,
			notes:    quote.Notes,
		})
		if err != nil {
			return err
		}
		return tx.UpdateQuoteStatus(ctx, quote.ID, QuoteStatusConverted, invoice.ID)
	})
	if err != nil {
		s.countRejection(err)
		return Invoice{}, err
	}
	s.afterInvoice(ctx, p, invoice, levels, "quote.convert")
	return invoice, nil
}

// GetQuote returns a quote with its items.
func (s *Service) GetQuote(ctx context.Context, p shared.Principal, id int64) (Quote, error) {
	if err := s.authz.Authorize(p, shared.ActionQuoteCreate); err != nil {
		return Quote{}, err
	}
	return s.repo.GetQuote(ctx, id)
}

func (s *Service) recordQuote(ctx context.Context, p shared.Principal, quote Quote, action string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   action,
		Entity:   "quote",
		EntityID: strconv.FormatInt(quote.ID, 10),
		Meta:     map[string]any{"number": quote.Number, "status": string(quote.Status), "invoice_id": quote.InvoiceID},
	})
}
