package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	jobmetrics "github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/jobs"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// StockLookup resolves the current state of a stock row.
type StockLookup interface {
	Lookup(ctx context.Context, ref catalog.StockRef) (catalog.StockItem, error)
}

// AuditPort records confirmed alerts.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LowStockJob re-checks reported rows and records an alert for those still low.
type LowStockJob struct {
	lookup  StockLookup
	audit   AuditPort
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLowStockJob wires the job dependencies.
func NewLowStockJob(lookup StockLookup, audit AuditPort, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &LowStockJob{lookup: lookup, audit: audit, logger: logger, metrics: metrics}
}

// Handle processes TaskLowStockNotify tasks.
func (j *LowStockJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	tracker := j.metrics.Track(TaskLowStockNotify)
	defer func() { err = tracker.End(err) }()

	var payload LowStockPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	confirmed := 0
	for _, level := range payload.Levels {
		item, err := j.lookup.Lookup(ctx, level.Ref)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		current := catalog.StockLevel{Ref: item.Ref, Name: item.Name, Stock: item.Stock, MinStock: item.MinStock, Cost: item.Cost}
		if item.IsService || !item.Active || !current.Low() {
			continue
		}
		confirmed++
		j.logger.Warn("low stock",
			slog.Int64("product_id", current.Ref.ProductID),
			slog.Int64("variant_id", current.Ref.VariantID),
			slog.String("name", current.Name),
			slog.Int("stock", current.Stock),
			slog.Int("min_stock", current.MinStock),
		)
		_ = j.audit.Record(ctx, shared.AuditLog{
			Action:   "stock.low_alert",
			Entity:   "product",
			EntityID: alertEntityID(current.Ref),
			Meta: map[string]any{
				"stock":       current.Stock,
				"min_stock":   current.MinStock,
				"detected_at": payload.DetectedAt,
			},
		})
	}
	j.metrics.AddLowStockAlerts(confirmed)
	return nil
}

func alertEntityID(ref catalog.StockRef) string {
	id := strconv.FormatInt(ref.ProductID, 10)
	if ref.VariantID > 0 {
		id += ":" + strconv.FormatInt(ref.VariantID, 10)
	}
	return id
}
