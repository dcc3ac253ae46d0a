package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/appointment"
	"github.com/hackgods/clinic-appointment-engine/internal/config"
	"github.com/hackgods/clinic-appointment-engine/internal/db"
	"github.com/hackgods/clinic-appointment-engine/internal/logging"
	"github.com/hackgods/clinic-appointment-engine/internal/metrics"
	"github.com/hackgods/clinic-appointment-engine/internal/rollover"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("rollover-worker stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	logger.Info("rollover-worker starting",
		zap.String("env", cfg.Env),
		zap.String("schedule", cfg.RolloverSchedule),
		zap.String("timezone", loc.String()))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	// Rollover only touches storage, so no locker or notifier is wired.
	appointments := appointment.NewService(appointment.Dependencies{
		Repo:    appointment.NewPgRepository(pgPool),
		Metrics: engineMetrics,
		Logger:  logger,
	}, appointment.Config{Location: loc})

	scheduler := rollover.NewScheduler(appointments, rollover.Config{
		DailySpec:  cfg.RolloverSchedule,
		HourlySpec: cfg.HourlySchedule,
		Location:   loc,
		Timeout:    cfg.RolloverTimeout,
	}, logger)
	if err := scheduler.Start(rootCtx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutdown signal received, stopping rollover worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("rollover job still running at shutdown", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	return nil
}
