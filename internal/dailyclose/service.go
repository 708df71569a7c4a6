package dailyclose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	Activity(ctx context.Context, userID int64, from, to time.Time) (Activity, error)
	Upsert(ctx context.Context, c DailyClose) (DailyClose, error)
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Activity(ctx context.Context, userID int64, from, to time.Time) (Activity, error)
	Get(ctx context.Context, date string, userID int64) (DailyClose, error)
	ListByDate(ctx context.Context, date string) ([]DailyClose, error)
	SetArchiveKey(ctx context.Context, id int64, key string) error
}

// SummaryCache stores summaries of finished days.
type SummaryCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context) error
}

// Archiver keeps an immutable copy of every saved close.
type Archiver interface {
	PutJSON(ctx context.Context, key string, body []byte) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service computes and saves daily closes.
type Service struct {
	repo    RepositoryPort
	authz   shared.Authorizer
	audit   AuditPort
	cache   SummaryCache
	archive Archiver
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service. cache and archive may be nil.
func NewService(repo RepositoryPort, authz shared.Authorizer, audit AuditPort, cache SummaryCache, archive Archiver) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, cache: cache, archive: archive, logger: slog.Default(), now: time.Now}
}

// WithLogger sets the logger used when the cache is unavailable.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNow overrides the clock, primarily for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// authorizeUser lets everyone with dailyclose.save read their own day and
// requires dailyclose.view_all for anyone else's.
func (s *Service) authorizeUser(p shared.Principal, userID int64) error {
	if err := s.authz.Authorize(p, shared.ActionDailyCloseSave); err != nil {
		return err
	}
	if userID != p.UserID {
		return s.authz.Authorize(p, shared.ActionDailyCloseViewAll)
	}
	return nil
}

func (s *Service) checkDate(date time.Time) (time.Time, time.Time, error) {
	from, to := shared.BusinessDay(date)
	today, _ := shared.BusinessDay(s.now())
	if from.After(today) {
		return time.Time{}, time.Time{}, shared.Invalid("date %s is in the future", shared.FormatBusinessDate(from))
	}
	return from, to, nil
}

// Summary computes a user's day. Finished days are served from the cache;
// the current day is always recomputed. A failing cache falls back to the
// database.
func (s *Service) Summary(ctx context.Context, p shared.Principal, date time.Time, userID int64) (Summary, error) {
	if userID == 0 {
		userID = p.UserID
	}
	if err := s.authorizeUser(p, userID); err != nil {
		return Summary{}, err
	}
	from, to, err := s.checkDate(date)
	if err != nil {
		return Summary{}, err
	}
	load := func(ctx context.Context) (any, error) {
		activity, err := s.repo.Activity(ctx, userID, from, to)
		if err != nil {
			return nil, err
		}
		return summarize(from, userID, activity), nil
	}
	today, _ := shared.BusinessDay(s.now())
	if s.cache == nil || !from.Before(today) {
		out, err := load(ctx)
		if err != nil {
			return Summary{}, err
		}
		return out.(Summary), nil
	}
	key, err := s.cache.BuildKey(ctx, "summary", shared.FormatBusinessDate(from), strconv.FormatInt(userID, 10))
	if err == nil {
		var out Summary
		err = s.cache.FetchJSON(ctx, key, &out, load)
		if err == nil {
			return out, nil
		}
		// loader failures are already classified; anything else came from redis
		if shared.IsClassified(err) {
			return Summary{}, err
		}
	}
	s.logger.WarnContext(ctx, "daily close cache unavailable",
		slog.String("date", shared.FormatBusinessDate(from)),
		slog.Int64("user_id", userID),
		slog.Any("error", err))
	out, err := load(ctx)
	if err != nil {
		return Summary{}, err
	}
	return out.(Summary), nil
}

func summarize(day time.Time, userID int64, a Activity) Summary {
	return Summary{
		Date:         shared.FormatBusinessDate(day),
		UserID:       userID,
		Totals:       Aggregate(a),
		InvoiceCount: len(a.Invoices),
		PaymentCount: len(a.Payments),
		ExpenseCount: len(a.Expenses),
	}
}

// Save recomputes the principal's day inside the transaction, rejects stale
// client totals and upserts the close for (date, user).
func (s *Service) Save(ctx context.Context, p shared.Principal, input SaveInput) (DailyClose, error) {
	if err := s.authz.Authorize(p, shared.ActionDailyCloseSave); err != nil {
		return DailyClose{}, err
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	from, to, err := s.checkDate(input.Date)
	if err != nil {
		return DailyClose{}, err
	}
	counts, err := NormalizeCounts(input.BillCounts)
	if err != nil {
		return DailyClose{}, err
	}
	counted := CountedTotal(counts)

	var saved DailyClose
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		activity, err := tx.Activity(ctx, p.UserID, from, to)
		if err != nil {
			return err
		}
		totals := Aggregate(activity)
		if input.Totals != nil {
			if field, stale := Stale(*input.Totals, totals); stale {
				return shared.Invalid("stale totals: %s changed since the summary was computed", field)
			}
		}
		saved, err = tx.Upsert(ctx, DailyClose{
			CloseDate:    shared.FormatBusinessDate(from),
			ClosedBy:     p.UserID,
			Totals:       totals,
			CountedTotal: counted,
			Discrepancy:  counted.Sub(totals.NetCashInDrawer),
			BillCounts:   counts,
			Invoices:     nonNil(activity.Invoices),
			Payments:     nonNil(activity.Payments),
			Expenses:     nonNil(activity.Expenses),
			Notes:        strings.TrimSpace(input.Notes),
		})
		return err
	})
	if err != nil {
		return DailyClose{}, err
	}

	if s.archive != nil {
		if key, err := s.store(ctx, saved); err == nil {
			if err := s.repo.SetArchiveKey(ctx, saved.ID, key); err == nil {
				saved.ArchiveKey = key
			}
		}
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "dailyclose.save",
			Entity:   "daily_close",
			EntityID: strconv.FormatInt(saved.ID, 10),
			Meta: map[string]any{
				"close_date":  saved.CloseDate,
				"net_cash":    saved.NetCashInDrawer.StringFixed(2),
				"counted":     saved.CountedTotal.StringFixed(2),
				"discrepancy": saved.Discrepancy.StringFixed(2),
			},
			At: s.now(),
		})
	}
	return saved, nil
}

func (s *Service) store(ctx context.Context, c DailyClose) (string, error) {
	body, err := json.Marshal(struct {
		SchemaVersion int `json:"schema_version"`
		DailyClose
	}{SchemaVersion: shared.SnapshotSchemaVersion, DailyClose: c})
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("daily-close/%s/%d-%s.json", c.CloseDate, c.ClosedBy, uuid.NewString())
	if err := s.archive.PutJSON(ctx, key, body); err != nil {
		return "", err
	}
	return key, nil
}

// Get returns a saved close.
func (s *Service) Get(ctx context.Context, p shared.Principal, date time.Time, userID int64) (DailyClose, error) {
	if userID == 0 {
		userID = p.UserID
	}
	if err := s.authorizeUser(p, userID); err != nil {
		return DailyClose{}, err
	}
	return s.repo.Get(ctx, shared.FormatBusinessDate(date), userID)
}

// ListByDate returns every user's close for a date.
func (s *Service) ListByDate(ctx context.Context, p shared.Principal, date time.Time) ([]DailyClose, error) {
	if err := s.authz.Authorize(p, shared.ActionDailyCloseViewAll); err != nil {
		return nil, err
	}
	return s.repo.ListByDate(ctx, shared.FormatBusinessDate(date))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
