package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerloom/ledgerloom/internal/app"
	"github.com/ledgerloom/ledgerloom/internal/coa"
	"github.com/ledgerloom/ledgerloom/internal/engagement"
	"github.com/ledgerloom/ledgerloom/internal/observability"
	"github.com/ledgerloom/ledgerloom/internal/platform/db"
	"github.com/ledgerloom/ledgerloom/internal/statement"
	"github.com/ledgerloom/ledgerloom/internal/trialbalance"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	metrics := observability.NewMetrics()

	accountsRepo := coa.NewRepository(dbpool)
	importer := coa.NewImporter(accountsRepo)
	accountsHandler := coa.NewHandler(logger, accountsRepo, importer)

	engagementRepo := engagement.NewRepository(dbpool)
	engagementService := engagement.NewService(engagementRepo)
	engagementHandler := engagement.NewHandler(logger, engagementService)

	trialBalanceRepo := trialbalance.NewRepository(dbpool)
	trialBalanceService := trialbalance.NewService(trialBalanceRepo, accountsRepo)
	trialBalanceHandler := trialbalance.NewHandler(logger, trialBalanceService, metrics, cfg.UploadRateLimit)

	statementRepo := statement.NewRepository(dbpool)
	statementService := statement.NewService(accountsRepo, trialBalanceRepo, statementRepo)
	statementHandler := statement.NewHandler(logger, statementService, statementRepo, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AccountsHandler:     accountsHandler,
		EngagementHandler:   engagementHandler,
		TrialBalanceHandler: trialBalanceHandler,
		StatementHandler:    statementHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
