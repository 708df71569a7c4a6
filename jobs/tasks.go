package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockNotify reports stock rows that reached their reorder threshold.
	TaskLowStockNotify = "notify:low_stock"
)

// LowStockPayload lists the rows observed low right after a committed sale.
type LowStockPayload struct {
	Levels     []catalog.StockLevel `json:"levels"`
	DetectedAt time.Time            `json:"detected_at"`
}

// NewLowStockTask builds a low stock task with a unique id.
func NewLowStockTask(payload LowStockPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockNotify, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(5),
	), nil
}
