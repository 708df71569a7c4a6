package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/app"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	jobmetrics "github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/jobs"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/cache"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := shared.SetBusinessTimezone(cfg.BusinessTimezone); err != nil {
		logger.Error("business timezone", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 4, StatementTimeout: cfg.PGStatementTimeout})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// asynq keeps its own connections; this only fails fast on a bad address
	redisClient, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	if err := redisClient.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}

	metrics := jobmetrics.NewMetrics(nil)
	lowStock := jobs.NewLowStockJob(catalog.NewLedger(pool), shared.NewAuditLogger(pool), logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    shared.BusinessLocation(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockNotify, Handler: lowStock.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
