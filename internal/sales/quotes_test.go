package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// QuoteWorkflowSuite walks quotes from creation to conversion.
type QuoteWorkflowSuite struct {
	suite.Suite
	service *Service
	repo    *memoryRepo
	ctx     context.Context
}

func (s *QuoteWorkflowSuite) SetupTest() {
	s.service, s.repo, _ = newTestService()
	s.repo.stock.AddProduct(10, "Amortiguador", 4, "3500", "2000")
	s.repo.stock.AddService(20, "Instalación", "800")
	s.ctx = context.Background()
}

func (s *QuoteWorkflowSuite) createQuote(qty int) Quote {
	valid := time.Date(2026, 3, 20, 0, 0, 0, 0, shared.BusinessLocation())
	quote, err := s.service.CreateQuote(s.ctx, tech, CreateQuoteInput{
		ClientID: 2,
		Items: []LineInput{
			{ProductID: 10, Quantity: qty, Price: dec("3500")},
			{ProductID: 20, Quantity: 1, Price: dec("800")},
		},
		ValidUntil: &valid,
	})
	s.Require().NoError(err)
	return quote
}

func (s *QuoteWorkflowSuite) TestQuoteDoesNotTouchStock() {
	quote := s.createQuote(10)
	s.Equal(QuoteStatusPending, quote.Status)
	s.Equal("COT-00000001", quote.Number)
	s.Equal("35800.00", quote.Total.StringFixed(2))
	s.Equal(4, s.repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
}

func (s *QuoteWorkflowSuite) TestConvertDecrementsStockOnce() {
	quote := s.createQuote(2)

	accepted, err := s.service.AcceptQuote(s.ctx, tech, quote.ID)
	s.Require().NoError(err)
	s.Equal(QuoteStatusAccepted, accepted.Status)

	_, err = s.service.ConvertQuote(s.ctx, tech, ConvertQuoteInput{QuoteID: quote.ID, PaymentMethod: PaymentCash})
	s.ErrorIs(err, shared.ErrUnauthorized)

	inv, err := s.service.ConvertQuote(s.ctx, seller, ConvertQuoteInput{QuoteID: quote.ID, PaymentMethod: PaymentCredit})
	s.Require().NoError(err)
	s.Equal(quote.ID, inv.QuoteID)
	s.Equal(InvoiceStatusPending, inv.Status)
	s.True(inv.Total.Equal(quote.Total))
	s.Equal(2, s.repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)

	stored, err := s.service.GetQuote(s.ctx, seller, quote.ID)
	s.Require().NoError(err)
	s.Equal(QuoteStatusConverted, stored.Status)
	s.Equal(inv.ID, stored.InvoiceID)

	_, err = s.service.ConvertQuote(s.ctx, seller, ConvertQuoteInput{QuoteID: quote.ID, PaymentMethod: PaymentCash})
	s.ErrorIs(err, shared.ErrInvalidState)
	s.Equal(2, s.repo.stock.Get(catalog.StockRef{ProductID: 10}).Stock)
}

func (s *QuoteWorkflowSuite) TestConvertWithoutStockFailsAndKeepsQuoteOpen() {
	quote := s.createQuote(6)
	_, err := s.service.ConvertQuote(s.ctx, seller, ConvertQuoteInput{QuoteID: quote.ID, PaymentMethod: PaymentCash})
	s.ErrorIs(err, shared.ErrOutOfStock)

	stored, err := s.service.GetQuote(s.ctx, seller, quote.ID)
	s.Require().NoError(err)
	s.Equal(QuoteStatusPending, stored.Status)
	s.Empty(s.repo.state.invoices)
}

func (s *QuoteWorkflowSuite) TestExpiredQuoteCannotConvert() {
	quote := s.createQuote(1)
	s.service.WithNow(func() time.Time { return time.Date(2026, 3, 25, 12, 0, 0, 0, time.UTC) })
	_, err := s.service.ConvertQuote(s.ctx, seller, ConvertQuoteInput{QuoteID: quote.ID, PaymentMethod: PaymentCash})
	s.ErrorIs(err, shared.ErrInvalidState)
}

func (s *QuoteWorkflowSuite) TestRejectClosesQuote() {
	quote := s.createQuote(1)
	rejected, err := s.service.RejectQuote(s.ctx, tech, quote.ID)
	s.Require().NoError(err)
	s.Equal(QuoteStatusRejected, rejected.Status)

	_, err = s.service.AcceptQuote(s.ctx, tech, quote.ID)
	s.ErrorIs(err, shared.ErrInvalidState)
}

func TestQuoteWorkflowSuite(t *testing.T) {
	suite.Run(t, new(QuoteWorkflowSuite))
}

func TestQuoteConvertsOnItsLastValidDay(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Amortiguador", 4, "3500", "2000")
	ctx := context.Background()
	lastDay := time.Date(2026, 3, 10, 0, 0, 0, 0, shared.BusinessLocation())

	newQuote := func(validUntil time.Time) Quote {
		t.Helper()
		quote, err := svc.CreateQuote(ctx, seller, CreateQuoteInput{
			ClientID:   1,
			Items:      []LineInput{{ProductID: 10, Quantity: 1, Price: dec("3500")}},
			ValidUntil: &lastDay,
		})
		require.NoError(t, err)
		// stored the way a DATE column decodes
		stored := repo.state.quotes[quote.ID]
		stored.ValidUntil = &validUntil
		repo.state.quotes[quote.ID] = stored
		return quote
	}

	today := newQuote(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	inv, err := svc.ConvertQuote(ctx, seller, ConvertQuoteInput{QuoteID: today.ID, PaymentMethod: PaymentCash})
	require.NoError(t, err)
	require.Equal(t, today.ID, inv.QuoteID)

	yesterday := newQuote(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	_, err = svc.ConvertQuote(ctx, seller, ConvertQuoteInput{QuoteID: yesterday.ID, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestQuoteInPastRejected(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stock.AddProduct(10, "Amortiguador", 4, "3500", "2000")
	past := time.Date(2026, 1, 1, 0, 0, 0, 0, shared.BusinessLocation())
	_, err := svc.CreateQuote(context.Background(), tech, CreateQuoteInput{
		ClientID:   1,
		Items:      []LineInput{{ProductID: 10, Quantity: 1, Price: dec("3500")}},
		ValidUntil: &past,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
