package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
)

// Enqueuer is the subset of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits jobs to the queue.
type Client struct {
	enqueuer Enqueuer
	closer   func() error
	now      func() time.Time
}

// NewClient constructs a Client backed by Redis.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	client := asynq.NewClient(redisOpts)
	return &Client{enqueuer: client, closer: client.Close, now: time.Now}
}

// NewClientWithEnqueuer wraps an existing enqueuer, used by tests.
func NewClientWithEnqueuer(enqueuer Enqueuer) *Client {
	return &Client{enqueuer: enqueuer, now: time.Now}
}

// NotifyLowStock enqueues one task carrying every low row of a sale.
func (c *Client) NotifyLowStock(ctx context.Context, levels []catalog.StockLevel) error {
	if c == nil || c.enqueuer == nil || len(levels) == 0 {
		return nil
	}
	task, err := NewLowStockTask(LowStockPayload{Levels: levels, DetectedAt: c.now().UTC()})
	if err != nil {
		return fmt.Errorf("jobs: build low stock task: %w", err)
	}
	if _, err := c.enqueuer.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue low stock: %w", err)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}
