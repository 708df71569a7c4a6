package pettycash

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// CloseTx exposes the operations of a closing transaction.
type CloseTx interface {
	LockBook(ctx context.Context) error
	LastClosingBalance(ctx context.Context) (decimal.Decimal, error)
	InsertClosing(ctx context.Context, c Closing) (int64, error)
	ClaimOpen(ctx context.Context, closingID int64) ([]Claimed, error)
	FinalizeClosing(ctx context.Context, c Closing) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithCloseTx(ctx context.Context, fn func(context.Context, CloseTx) error) error
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	BookState(ctx context.Context, from, to time.Time) (BookState, error)
	ListClosings(ctx context.Context, limit int) ([]Closing, error)
	ListOpen(ctx context.Context) ([]Transaction, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs the petty cash book.
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

// RecordEntry appends an open movement to the book.
func (s *Service) RecordEntry(ctx context.Context, p shared.Principal, input EntryInput) (Transaction, error) {
	if err := s.authz.Authorize(p, shared.ActionPettyCashEntry); err != nil {
		return Transaction{}, err
	}
	if !input.Type.Valid() {
		return Transaction{}, shared.Invalid("type must be INCOME or EXPENSE")
	}
	if !input.Amount.IsPositive() {
		return Transaction{}, shared.Invalid("amount must be positive")
	}
	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		return Transaction{}, shared.Invalid("description required")
	}
	t := Transaction{
		Type:        input.Type,
		Amount:      shared.RoundMoney(input.Amount),
		Description: desc,
		OccurredAt:  s.now().UTC(),
		CreatedBy:   p.UserID,
	}
	id, err := s.repo.InsertTransaction(ctx, t)
	if err != nil {
		return Transaction{}, err
	}
	t.ID = id
	s.invalidate(ctx)
	return t, nil
}

// Summary reports the open period. The discrepancy against same-day sales is
// only disclosed to roles allowed to see it.
func (s *Service) Summary(ctx context.Context, p shared.Principal) (Summary, error) {
	if err := s.authz.Authorize(p, shared.ActionPettyCashView); err != nil {
		return Summary{}, err
	}
	from, to := shared.BusinessDay(s.now())
	state, err := s.repo.BookState(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	open, day := state.Open, state.Day

	opening := decimal.Zero
	var lastAt *time.Time
	if state.HasClose {
		opening = state.Last.ClosingBalance
		at := state.Last.ClosedAt
		lastAt = &at
	}
	current := opening.Add(open.Income).Sub(open.Expense)
	expected := day.CashSales.Sub(day.Expenses)
	out := Summary{
		OpeningBalance:   opening,
		TotalIncome:      open.Income,
		TotalExpense:     open.Expense,
		CurrentBalance:   current,
		ExpectedBalance:  expected,
		OpenTransactions: open.Count,
		LastClosingAt:    lastAt,
	}
	if s.authz.Allowed(p, shared.ActionPettyCashDiscrepancyView) {
		d := current.Sub(expected)
		out.Discrepancy = &d
	}
	return out, nil
}

// OpenTransactions lists the movements of the open period.
func (s *Service) OpenTransactions(ctx context.Context, p shared.Principal) ([]Transaction, error) {
	if err := s.authz.Authorize(p, shared.ActionPettyCashView); err != nil {
		return nil, err
	}
	return s.repo.ListOpen(ctx)
}

// Close seals every open movement into a new closing. Totals come from exactly
// the rows the closing claimed, so an entry committed while the close runs is
// either included or left for the next period.
func (s *Service) Close(ctx context.Context, p shared.Principal, notes string) (Closing, error) {
	if err := s.authz.Authorize(p, shared.ActionPettyCashClose); err != nil {
		return Closing{}, err
	}
	closing := Closing{
		Notes:    strings.TrimSpace(notes),
		ClosedBy: p.UserID,
		ClosedAt: s.now().UTC(),
	}
	err := s.repo.WithCloseTx(ctx, func(ctx context.Context, tx CloseTx) error {
		if err := tx.LockBook(ctx); err != nil {
			return err
		}
		opening, err := tx.LastClosingBalance(ctx)
		if err != nil {
			return err
		}
		closing.OpeningBalance = opening
		closing.TotalIncome = decimal.Zero
		closing.TotalExpense = decimal.Zero
		closing.ClosingBalance = opening
		id, err := tx.InsertClosing(ctx, closing)
		if err != nil {
			return err
		}
		closing.ID = id
		claimed, err := tx.ClaimOpen(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range claimed {
			switch c.Type {
			case EntryIncome:
				closing.TotalIncome = closing.TotalIncome.Add(c.Amount)
			case EntryExpense:
				closing.TotalExpense = closing.TotalExpense.Add(c.Amount)
			}
		}
		closing.TransactionCount = len(claimed)
		closing.ClosingBalance = opening.Add(closing.TotalIncome).Sub(closing.TotalExpense)
		return tx.FinalizeClosing(ctx, closing)
	})
	if err != nil {
		return Closing{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "pettycash.close",
			Entity:   "petty_cash_closing",
			EntityID: strconv.FormatInt(closing.ID, 10),
			Meta: map[string]any{
				"opening_balance": closing.OpeningBalance.StringFixed(2),
				"closing_balance": closing.ClosingBalance.StringFixed(2),
				"transactions":    closing.TransactionCount,
			},
			At: closing.ClosedAt,
		})
	}
	return closing, nil
}

// ListClosings returns the most recent closings first.
func (s *Service) ListClosings(ctx context.Context, p shared.Principal, limit int) ([]Closing, error) {
	if err := s.authz.Authorize(p, shared.ActionPettyCashView); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListClosings(ctx, limit)
}
