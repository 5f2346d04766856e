package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/config"
	"github.com/wardstock/stocktake/internal/repository/sheets"
	"github.com/wardstock/stocktake/internal/scheduler"
	"github.com/wardstock/stocktake/internal/server/handlers"
	"github.com/wardstock/stocktake/internal/server/router"
	"github.com/wardstock/stocktake/internal/service/counting"
	"github.com/wardstock/stocktake/internal/store"
	"github.com/wardstock/stocktake/pkg/clients/notify"
	"github.com/wardstock/stocktake/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	sheetsClient, err := sheets.NewGoogleSheetsClient(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets client", zap.Error(err))
	}

	tableStore := store.New(sheetsClient, cfg.Counting.CacheTTL, baseLogger.Named("store"))
	countingSvc := counting.NewService(tableStore, cfg.Counting.DefaultDevice, baseLogger.Named("svc.counting"))

	countingHandler := handlers.NewCountingHandler(countingSvc, baseLogger.Named("handlers.counting"))
	engine := router.New(countingHandler, baseLogger.Named("router"))

	if cfg.Report.WebhookURL != "" {
		notifier := notify.NewWebhookClient(cfg.Report.WebhookURL)
		sched := scheduler.NewScheduler(*cfg, countingSvc, notifier, baseLogger.Named("scheduler"))
		sched.Start()
		defer sched.Stop()
	} else {
		baseLogger.Warn("report webhook url missing, scheduled reports disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
