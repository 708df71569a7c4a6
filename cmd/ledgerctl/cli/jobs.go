package cli

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/jobs"
)

func newJobsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print the default queue state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := opts.config()
				if err != nil {
					return err
				}
				inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
				defer func() { _ = inspector.Close() }()
				info, err := inspector.GetQueueInfo(jobs.QueueDefault)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(opts.out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
					info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived)
				return err
			},
		},
		&cobra.Command{
			Use:   "low-stock",
			Short: "Enqueue a low stock notification for every product at its threshold",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := opts.config()
				if err != nil {
					return err
				}
				pool, err := db.New(cmd.Context(), cfg.PGDSN, db.Options{MaxConns: 2, StatementTimeout: cfg.PGStatementTimeout})
				if err != nil {
					return err
				}
				defer pool.Close()

				products, err := catalog.NewRepository(pool).ListLowStock(cmd.Context())
				if err != nil {
					return err
				}
				levels := lowStockLevels(products)
				if len(levels) == 0 {
					_, err = fmt.Fprintln(opts.out, "no products at their reorder threshold")
					return err
				}
				client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
				defer func() { _ = client.Close() }()
				if err := client.NotifyLowStock(cmd.Context(), levels); err != nil {
					return err
				}
				_, err = fmt.Fprintf(opts.out, "enqueued low stock notification for %d products\n", len(levels))
				return err
			},
		},
	)
	return cmd
}

func lowStockLevels(products []catalog.Product) []catalog.StockLevel {
	levels := make([]catalog.StockLevel, 0, len(products))
	for _, p := range products {
		level := catalog.StockLevel{Ref: catalog.StockRef{ProductID: p.ID}, Name: p.Name, Stock: p.Stock, MinStock: p.MinStock, Cost: p.Cost}
		if level.Low() {
			levels = append(levels, level)
		}
	}
	return levels
}
