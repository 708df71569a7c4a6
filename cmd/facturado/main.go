package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/app"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/creditnote"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/dailyclose"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/observability"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/pettycash"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/cache"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/storage"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/purchasing"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/rbac"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/receivables"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sales"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, StatementTimeout: cfg.PGStatementTimeout})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("redis unavailable, serving daily close summaries uncached", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	policy := rbac.DefaultPolicy()
	tokens := rbac.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	auditLogger := shared.NewAuditLogger(dbpool)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	var archiver dailyclose.Archiver
	if archiveCfg := cfg.Archive(); archiveCfg.Enabled() {
		archive, err := storage.New(ctx, archiveCfg)
		if err != nil {
			logger.Error("init snapshot archive", slog.Any("error", err))
			os.Exit(1)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			logger.Warn("ensure archive bucket", slog.Any("error", err))
		}
		archiver = archive
	} else {
		logger.Info("snapshot archive disabled")
	}

	dailyCloseCache := cache.NewVersioned(redisClient, "dailyclose", cfg.CacheTTL)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), policy)
	salesService := sales.NewService(sales.NewRepository(dbpool), policy, auditLogger, jobClient, metrics.Ledger()).
		WithInvalidator(dailyCloseCache)
	creditNoteService := creditnote.NewService(creditnote.NewRepository(dbpool), policy, auditLogger)
	receivablesService := receivables.NewService(receivables.NewRepository(dbpool), policy, auditLogger, metrics.Ledger()).
		WithInvalidator(dailyCloseCache)
	purchasingService := purchasing.NewService(purchasing.NewRepository(dbpool), policy, auditLogger).
		WithInvalidator(dailyCloseCache)
	pettyCashService := pettycash.NewService(pettycash.NewRepository(dbpool), policy, auditLogger).
		WithInvalidator(dailyCloseCache)
	dailyCloseService := dailyclose.NewService(
		dailyclose.NewRepository(dbpool),
		policy,
		auditLogger,
		dailyCloseCache,
		archiver,
	).WithLogger(logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		RBACMiddleware: rbac.Middleware{Tokens: tokens, Policy: policy, Logger: logger},
		Metrics:        metrics,
		Health:         healthCheck(dbpool),

		CatalogHandler:     catalog.NewHandler(logger, catalogService),
		SalesHandler:       sales.NewHandler(logger, salesService),
		CreditNoteHandler:  creditnote.NewHandler(logger, creditNoteService),
		ReceivablesHandler: receivables.NewHandler(logger, receivablesService),
		PurchasingHandler:  purchasing.NewHandler(logger, purchasingService),
		PettyCashHandler:   pettycash.NewHandler(logger, pettyCashService),
		DailyCloseHandler:  dailyclose.NewHandler(logger, dailyCloseService),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func healthCheck(pool *pgxpool.Pool) func(*http.Request) error {
	return func(r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
